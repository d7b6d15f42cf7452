// backend.go - Registrierung der konkreten Tensor-Backends
// Wird von model blank-importiert, damit beide Backends verfuegbar sind.
package backend

import (
	_ "github.com/nnscope/nnscope/ml/backend/dense"
	_ "github.com/nnscope/nnscope/ml/backend/fake"
)
