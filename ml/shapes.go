// shapes.go - Gemeinsame Shape-Inferenz fuer alle Backends
// Dieses Modul berechnet Ergebnis-Shapes der Tensor-Operationen, damit
// das symbolische und das reale Backend identisch validieren.
package ml

import "fmt"

// MulmatShape inferiert die Ergebnis-Shape einer Matrixmultiplikation
// [n,k] x [k,m] -> [n,m]
func MulmatShape(a, b []int) ([]int, error) {
	if len(a) != 2 || len(b) != 2 || a[1] != b[0] {
		return nil, ShapeError{Op: "mulmat", Shapes: [][]int{a, b}}
	}
	return []int{a[0], b[1]}, nil
}

// BroadcastShape inferiert die Ergebnis-Shape einer elementweisen
// Operation. Erlaubt ist gleiche Shape oder Broadcast einer Zeile
// [d] bzw. [1,d] auf [n,d].
func BroadcastShape(op string, a, b []int) ([]int, error) {
	if SameShape(a, b) {
		return a, nil
	}

	row := b
	if len(b) == 2 && b[0] == 1 {
		row = b[1:]
	}
	if len(a) == 2 && len(row) == 1 && a[1] == row[0] {
		return a, nil
	}

	return nil, ShapeError{Op: op, Shapes: [][]int{a, b}}
}

// ConcatShape inferiert die Ergebnis-Shape einer Konkatenation entlang dim
func ConcatShape(a, b []int, dim int) ([]int, error) {
	if len(a) != len(b) || dim < 0 || dim >= len(a) {
		return nil, ShapeError{Op: "concat", Shapes: [][]int{a, b}}
	}
	for i := range a {
		if i != dim && a[i] != b[i] {
			return nil, ShapeError{Op: "concat", Shapes: [][]int{a, b}}
		}
	}

	shape := make([]int, len(a))
	copy(shape, a)
	shape[dim] += b[dim]
	return shape, nil
}

// ReshapeShape prueft eine Reshape-Operation auf Elementerhaltung
func ReshapeShape(a, shape []int) ([]int, error) {
	if Numel(a) != Numel(shape) {
		return nil, ShapeError{Op: "reshape", Shapes: [][]int{a, shape}}
	}

	out := make([]int, len(shape))
	copy(out, shape)
	return out, nil
}

// checkDim validiert einen Dimensionsindex
func checkDim(shape []int, n int) {
	if n < 0 || n >= len(shape) {
		panic(fmt.Sprintf("ml: dimension %d out of range for shape %v", n, shape))
	}
}

// Dim gibt die Groesse der Dimension n zurueck
func Dim(shape []int, n int) int {
	checkDim(shape, n)
	return shape[n]
}
