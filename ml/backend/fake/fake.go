// fake.go - Symbolisches Backend fuer Dry-Run-Ausfuehrung
//
// Dieses Modul implementiert ml.Backend/Context/Tensor als reine
// Shape/DType-Platzhalter: keine Arithmetik, keine Pufferallokation,
// keine Seiteneffekte. Ein Scan-Durchlauf unter diesem Backend
// validiert ausschliesslich Shapes und Datentypen.
//
// Eingaben, die keine Platzhalter sind (z.B. dense-Tensoren aus
// Session-Kwargs), werden anhand ihrer Shape/DType als gueltige
// Platzhalter uebernommen statt abgelehnt.
package fake

import (
	"fmt"

	"github.com/nnscope/nnscope/ml"
)

func init() {
	ml.RegisterBackend(ml.BackendFake, New)
}

// New erstellt ein symbolisches Backend
func New(ml.BackendParams) (ml.Backend, error) {
	return &Backend{}, nil
}

// Backend ist das symbolische Backend. Es haelt keinerlei Speicher.
type Backend struct{}

func (b *Backend) Name() string { return ml.BackendFake }

func (b *Backend) NewContext() ml.Context { return &Context{b: b} }

// AllocatedBytes ist fuer das symbolische Backend immer 0
func (b *Backend) AllocatedBytes() uint64 { return 0 }

func (b *Backend) Close() {}

// Context ist der symbolische Compute-Kontext. Close beendet den
// Dry-Run-Modus; jede weitere Verwendung ist ein Programmierfehler.
type Context struct {
	b      *Backend
	closed bool
}

func (c *Context) check() {
	if c.closed {
		panic("fake: context used after close")
	}
}

func (c *Context) tensor(dtype ml.DType, shape []int) ml.Tensor {
	c.check()

	s := make([]int, len(shape))
	copy(s, shape)
	return &Tensor{shape: s, dtype: dtype}
}

func (c *Context) Empty(dtype ml.DType, shape ...int) ml.Tensor {
	return c.tensor(dtype, shape)
}

func (c *Context) Zeros(dtype ml.DType, shape ...int) ml.Tensor {
	return c.tensor(dtype, shape)
}

func (c *Context) FromFloats(s []float32, shape ...int) ml.Tensor {
	if len(s) != ml.Numel(shape) {
		panic(fmt.Sprintf("fake: %d elements do not fit shape %v", len(s), shape))
	}
	return c.tensor(ml.DTypeF32, shape)
}

func (c *Context) FromBytes(dtype ml.DType, s []byte, shape ...int) ml.Tensor {
	if len(s) != ml.Numel(shape)*dtype.Size() {
		panic(fmt.Sprintf("fake: %d bytes do not fit shape %v (%s)", len(s), shape, dtype))
	}
	return c.tensor(dtype, shape)
}

func (c *Context) Backend() ml.Backend { return c.b }

func (c *Context) Close() { c.closed = true }

// Tensor ist ein Platzhalter, der nur Shape und DType traegt
type Tensor struct {
	shape []int
	dtype ml.DType
}

func (t *Tensor) Dim(n int) int { return ml.Dim(t.shape, n) }

func (t *Tensor) Shape() []int {
	s := make([]int, len(t.shape))
	copy(s, t.shape)
	return s
}

func (t *Tensor) DType() ml.DType { return t.dtype }

// Floats liefert nil: ein Platzhalter hat keine Daten
func (t *Tensor) Floats() []float32 { return nil }

func (t *Tensor) Bytes() []byte { return nil }

func infer(ctx ml.Context, dtype ml.DType, shape []int, err error) ml.Tensor {
	if err != nil {
		panic(err)
	}

	ctx.(*Context).check()
	return &Tensor{shape: shape, dtype: dtype}
}

func (t *Tensor) Add(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	shape, err := ml.BroadcastShape("add", t.shape, t2.Shape())
	return infer(ctx, t.dtype, shape, err)
}

func (t *Tensor) Mul(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	shape, err := ml.BroadcastShape("mul", t.shape, t2.Shape())
	return infer(ctx, t.dtype, shape, err)
}

func (t *Tensor) Mulmat(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	shape, err := ml.MulmatShape(t.shape, t2.Shape())
	return infer(ctx, t.dtype, shape, err)
}

func (t *Tensor) Scale(ctx ml.Context, _ float64) ml.Tensor {
	return infer(ctx, t.dtype, t.Shape(), nil)
}

func (t *Tensor) Softmax(ctx ml.Context) ml.Tensor {
	return infer(ctx, t.dtype, t.Shape(), nil)
}

func (t *Tensor) GELU(ctx ml.Context) ml.Tensor {
	return infer(ctx, t.dtype, t.Shape(), nil)
}

func (t *Tensor) RELU(ctx ml.Context) ml.Tensor {
	return infer(ctx, t.dtype, t.Shape(), nil)
}

func (t *Tensor) Tanh(ctx ml.Context) ml.Tensor {
	return infer(ctx, t.dtype, t.Shape(), nil)
}

func (t *Tensor) Reshape(ctx ml.Context, shape ...int) ml.Tensor {
	out, err := ml.ReshapeShape(t.shape, shape)
	return infer(ctx, t.dtype, out, err)
}

func (t *Tensor) Concat(ctx ml.Context, t2 ml.Tensor, dim int) ml.Tensor {
	shape, err := ml.ConcatShape(t.shape, t2.Shape(), dim)
	return infer(ctx, t.dtype, shape, err)
}

func (t *Tensor) Duplicate(ctx ml.Context) ml.Tensor {
	return infer(ctx, t.dtype, t.Shape(), nil)
}
