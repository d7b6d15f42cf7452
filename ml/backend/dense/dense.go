// dense.go - Reales CPU-Backend fuer Tensor-Operationen
//
// Dieses Modul implementiert ml.Backend/Context/Tensor mit echten
// Puffern. Matrixprodukte laufen ueber pdevine/tensor, elementweise
// Operationen und Reduktionen ueber gonum/floats. Gerechnet wird
// intern in float64, gespeichert und uebergeben wird float32.
//
// Das Backend zaehlt allokierte Pufferbytes mit, damit Aufrufer
// pruefen koennen, dass ein symbolischer Scan keine realen
// Allokationen ausgeloest hat.
package dense

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/pdevine/tensor"
	"gonum.org/v1/gonum/floats"

	"github.com/nnscope/nnscope/ml"
)

func init() {
	ml.RegisterBackend(ml.BackendDense, New)
}

// New erstellt ein dense-Backend
func New(ml.BackendParams) (ml.Backend, error) {
	return &Backend{}, nil
}

// Backend ist das reale CPU-Backend
type Backend struct {
	allocated atomic.Uint64
}

func (b *Backend) Name() string { return ml.BackendDense }

func (b *Backend) NewContext() ml.Context { return &Context{b: b} }

// AllocatedBytes gibt die bisher allokierten Pufferbytes zurueck
func (b *Backend) AllocatedBytes() uint64 { return b.allocated.Load() }

func (b *Backend) Close() {}

// Context ist der reale Compute-Kontext
type Context struct {
	b      *Backend
	closed bool
}

func (c *Context) check() {
	if c.closed {
		panic("dense: context used after close")
	}
}

func (c *Context) tensor(dtype ml.DType, shape []int, data []float64) *Tensor {
	c.check()

	s := make([]int, len(shape))
	copy(s, shape)

	if data == nil {
		data = make([]float64, ml.Numel(s))
	}
	c.b.allocated.Add(uint64(len(data) * 8))

	return &Tensor{b: c.b, shape: s, dtype: dtype, data: data}
}

func (c *Context) Empty(dtype ml.DType, shape ...int) ml.Tensor {
	return c.tensor(dtype, shape, nil)
}

func (c *Context) Zeros(dtype ml.DType, shape ...int) ml.Tensor {
	return c.tensor(dtype, shape, nil)
}

func (c *Context) FromFloats(s []float32, shape ...int) ml.Tensor {
	if len(s) != ml.Numel(shape) {
		panic(fmt.Sprintf("dense: %d elements do not fit shape %v", len(s), shape))
	}

	data := make([]float64, len(s))
	for i, f := range s {
		data[i] = float64(f)
	}
	return c.tensor(ml.DTypeF32, shape, data)
}

func (c *Context) FromBytes(dtype ml.DType, s []byte, shape ...int) ml.Tensor {
	f32s, err := ml.FloatsFromBytes(dtype, s)
	if err != nil {
		panic(err)
	}
	if len(f32s) != ml.Numel(shape) {
		panic(fmt.Sprintf("dense: %d bytes do not fit shape %v (%s)", len(s), shape, dtype))
	}

	data := make([]float64, len(f32s))
	for i, f := range f32s {
		data[i] = float64(f)
	}
	return c.tensor(dtype, shape, data)
}

func (c *Context) Backend() ml.Backend { return c.b }

func (c *Context) Close() { c.closed = true }

// Tensor ist ein realer Tensor mit float64-Puffer
type Tensor struct {
	b     *Backend
	shape []int
	dtype ml.DType
	data  []float64
}

func (t *Tensor) Dim(n int) int { return ml.Dim(t.shape, n) }

func (t *Tensor) Shape() []int {
	s := make([]int, len(t.shape))
	copy(s, t.shape)
	return s
}

func (t *Tensor) DType() ml.DType { return t.dtype }

func (t *Tensor) Floats() []float32 {
	f32s := make([]float32, len(t.data))
	for i, f := range t.data {
		f32s[i] = float32(f)
	}
	return f32s
}

func (t *Tensor) Bytes() []byte {
	bts, err := ml.BytesFromFloats(t.dtype, t.Floats())
	if err != nil {
		panic(err)
	}
	return bts
}

func dctx(ctx ml.Context) *Context {
	c := ctx.(*Context)
	c.check()
	return c
}

// binaryOp fuehrt eine elementweise Operation mit Zeilen-Broadcast aus
func (t *Tensor) binaryOp(ctx ml.Context, op string, t2 ml.Tensor, apply func(dst, s []float64)) ml.Tensor {
	c := dctx(ctx)

	shape, err := ml.BroadcastShape(op, t.shape, t2.Shape())
	if err != nil {
		panic(err)
	}

	other, ok := t2.(*Tensor)
	if !ok {
		panic(fmt.Sprintf("dense: %s with non-dense operand", op))
	}

	out := c.tensor(t.dtype, shape, nil)
	copy(out.data, t.data)

	if len(other.data) == len(out.data) {
		apply(out.data, other.data)
		return out
	}

	// Zeilen-Broadcast: [n,d] op [d]
	d := len(other.data)
	for i := 0; i < len(out.data); i += d {
		apply(out.data[i:i+d], other.data)
	}
	return out
}

func (t *Tensor) Add(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binaryOp(ctx, "add", t2, floats.Add)
}

func (t *Tensor) Mul(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binaryOp(ctx, "mul", t2, floats.Mul)
}

func (t *Tensor) Mulmat(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	c := dctx(ctx)

	shape, err := ml.MulmatShape(t.shape, t2.Shape())
	if err != nil {
		panic(err)
	}

	other, ok := t2.(*Tensor)
	if !ok {
		panic("dense: mulmat with non-dense operand")
	}

	a := tensor.New(tensor.WithShape(t.shape...), tensor.WithBacking(t.data))
	b := tensor.New(tensor.WithShape(other.shape...), tensor.WithBacking(other.data))

	prod, err := tensor.MatMul(a, b)
	if err != nil {
		panic(ml.ShapeError{Op: "mulmat", Shapes: [][]int{t.shape, other.shape}})
	}

	return c.tensor(t.dtype, shape, prod.Data().([]float64))
}

func (t *Tensor) Scale(ctx ml.Context, s float64) ml.Tensor {
	c := dctx(ctx)

	out := c.tensor(t.dtype, t.shape, nil)
	copy(out.data, t.data)
	floats.Scale(s, out.data)
	return out
}

// Softmax normalisiert zeilenweise (letzte Dimension)
func (t *Tensor) Softmax(ctx ml.Context) ml.Tensor {
	c := dctx(ctx)

	out := c.tensor(t.dtype, t.shape, nil)
	copy(out.data, t.data)

	d := t.shape[len(t.shape)-1]
	for i := 0; i < len(out.data); i += d {
		row := out.data[i : i+d]
		floats.AddConst(-floats.Max(row), row)
		for j, v := range row {
			row[j] = math.Exp(v)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return out
}

func (t *Tensor) unaryOp(ctx ml.Context, f func(float64) float64) ml.Tensor {
	c := dctx(ctx)

	out := c.tensor(t.dtype, t.shape, nil)
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

func (t *Tensor) GELU(ctx ml.Context) ml.Tensor {
	return t.unaryOp(ctx, func(v float64) float64 {
		return 0.5 * v * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(v+0.044715*v*v*v)))
	})
}

func (t *Tensor) RELU(ctx ml.Context) ml.Tensor {
	return t.unaryOp(ctx, func(v float64) float64 {
		return math.Max(v, 0)
	})
}

func (t *Tensor) Tanh(ctx ml.Context) ml.Tensor {
	return t.unaryOp(ctx, math.Tanh)
}

func (t *Tensor) Reshape(ctx ml.Context, shape ...int) ml.Tensor {
	c := dctx(ctx)

	out, err := ml.ReshapeShape(t.shape, shape)
	if err != nil {
		panic(err)
	}

	data := make([]float64, len(t.data))
	copy(data, t.data)
	return c.tensor(t.dtype, out, data)
}

// Concat konkateniert entlang dim; fuer dim 0 ein reines Append,
// andere Dimensionen werden zeilenweise verschraenkt
func (t *Tensor) Concat(ctx ml.Context, t2 ml.Tensor, dim int) ml.Tensor {
	c := dctx(ctx)

	shape, err := ml.ConcatShape(t.shape, t2.Shape(), dim)
	if err != nil {
		panic(err)
	}

	other, ok := t2.(*Tensor)
	if !ok {
		panic("dense: concat with non-dense operand")
	}

	if dim == 0 {
		data := make([]float64, 0, len(t.data)+len(other.data))
		data = append(data, t.data...)
		data = append(data, other.data...)
		return c.tensor(t.dtype, shape, data)
	}

	// Verschraenkung entlang innerer Dimension (nur 2D)
	data := make([]float64, 0, len(t.data)+len(other.data))
	da, db := t.shape[1], other.shape[1]
	for i := 0; i < t.shape[0]; i++ {
		data = append(data, t.data[i*da:(i+1)*da]...)
		data = append(data, other.data[i*db:(i+1)*db]...)
	}
	return c.tensor(t.dtype, shape, data)
}

func (t *Tensor) Duplicate(ctx ml.Context) ml.Tensor {
	c := dctx(ctx)

	data := make([]float64, len(t.data))
	copy(data, t.data)
	return c.tensor(t.dtype, t.shape, data)
}
