// backend.go - Backend-Interface und Registrierung fuer Tensor-Backends
// Dieses Modul definiert das Backend-Interface und die Backend-Factory-Funktionen.
package ml

import "fmt"

// Bekannte Backend-Namen. "dense" rechnet real, "fake" nur symbolisch
// (Shape/DType-Platzhalter ohne Speicherallokation).
const (
	BackendDense = "dense"
	BackendFake  = "fake"
)

// Backend represents a tensor execution backend.
type Backend interface {
	// Name returns the registered backend name
	Name() string

	// NewContext creates a fresh compute context
	NewContext() Context

	// AllocatedBytes returns the number of buffer bytes this backend has
	// allocated so far. The symbolic backend always reports zero.
	AllocatedBytes() uint64

	// Close frees all memory associated with this backend
	Close()
}

// BackendParams controls how a backend is created
type BackendParams struct {
	// NumThreads sets the number of threads to use if running on the CPU
	NumThreads int
}

var backends = make(map[string]func(BackendParams) (Backend, error))

// RegisterBackend registers a backend factory function.
func RegisterBackend(name string, f func(BackendParams) (Backend, error)) {
	if _, ok := backends[name]; ok {
		panic("backend: backend already registered")
	}

	backends[name] = f
}

// NewBackend creates a new backend instance for the given name.
func NewBackend(name string, params BackendParams) (Backend, error) {
	if backend, ok := backends[name]; ok {
		return backend(params)
	}

	return nil, fmt.Errorf("unsupported backend %q", name)
}
