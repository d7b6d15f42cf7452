// context.go - Context und Tensor Interfaces fuer Tensor-Operationen
// Dieses Modul definiert die Schnittstellen fuer Tensor-Operationen und
// Compute-Kontexte. Beide Backends (dense, fake) implementieren sie.
package ml

// Context represents an execution context for tensor operations.
// Close gibt alle kontextgebundenen Ressourcen deterministisch frei;
// beim symbolischen Backend beendet es den Dry-Run-Modus.
type Context interface {
	Empty(dtype DType, shape ...int) Tensor
	Zeros(dtype DType, shape ...int) Tensor
	FromFloats(s []float32, shape ...int) Tensor
	FromBytes(dtype DType, s []byte, shape ...int) Tensor

	// Backend returns the backend this context computes on
	Backend() Backend

	Close()
}

// Tensor represents a multi-dimensional array with various operations.
// Operationen auf inkompatiblen Shapes loesen einen panic mit
// [ShapeError] aus, unabhaengig vom Backend.
type Tensor interface {
	Dim(n int) int
	Shape() []int
	DType() DType

	// Floats returns the element data; nil for symbolic tensors
	Floats() []float32
	Bytes() []byte

	Add(ctx Context, t2 Tensor) Tensor
	Mul(ctx Context, t2 Tensor) Tensor
	Mulmat(ctx Context, t2 Tensor) Tensor
	Scale(ctx Context, s float64) Tensor

	Softmax(ctx Context) Tensor
	GELU(ctx Context) Tensor
	RELU(ctx Context) Tensor
	Tanh(ctx Context) Tensor

	Reshape(ctx Context, shape ...int) Tensor
	Concat(ctx Context, t2 Tensor, dim int) Tensor
	Duplicate(ctx Context) Tensor
}
