// types.go - Datentypen und Byte-Konvertierung fuer Tensor-Operationen
// Dieses Modul definiert DType, ShapeError und die Konvertierung
// zwischen Rohbytes (F32/F16/BF16) und float32-Slices.
package ml

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// DType represents the data type of tensor elements.
type DType int

const (
	DTypeOther DType = iota
	DTypeF32
	DTypeF16
	DTypeBF16
	DTypeI32
)

// Size gibt die Groesse eines Elements in Bytes zurueck
func (d DType) Size() int {
	switch d {
	case DTypeF16, DTypeBF16:
		return 2
	default:
		return 4
	}
}

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	case DTypeI32:
		return "i32"
	default:
		return "other"
	}
}

// ShapeError beschreibt inkompatible Shapes einer Tensor-Operation.
// Backends loesen ihn per panic aus; Adapter fangen ihn via recover
// und geben ihn als Fehler zurueck.
type ShapeError struct {
	Op     string
	Shapes [][]int
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("%s: incompatible shapes %v", e.Op, e.Shapes)
}

// Numel gibt die Anzahl der Elemente einer Shape zurueck
func Numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// SameShape prueft zwei Shapes auf Gleichheit
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FloatsFromBytes dekodiert Rohbytes des angegebenen DType zu float32
func FloatsFromBytes(dtype DType, s []byte) ([]float32, error) {
	if len(s)%dtype.Size() != 0 {
		return nil, fmt.Errorf("ml: %d bytes is not a multiple of %s element size", len(s), dtype)
	}

	switch dtype {
	case DTypeF32:
		f32s := make([]float32, len(s)/4)
		for i := range f32s {
			f32s[i] = math.Float32frombits(binary.LittleEndian.Uint32(s[i*4:]))
		}
		return f32s, nil
	case DTypeF16:
		f32s := make([]float32, len(s)/2)
		for i := range f32s {
			f32s[i] = float16.Frombits(binary.LittleEndian.Uint16(s[i*2:])).Float32()
		}
		return f32s, nil
	case DTypeBF16:
		return bfloat16.DecodeFloat32(s), nil
	case DTypeI32:
		f32s := make([]float32, len(s)/4)
		for i := range f32s {
			f32s[i] = float32(int32(binary.LittleEndian.Uint32(s[i*4:])))
		}
		return f32s, nil
	default:
		return nil, fmt.Errorf("ml: cannot decode dtype %s", dtype)
	}
}

// BytesFromFloats kodiert float32-Werte als Rohbytes des angegebenen DType
func BytesFromFloats(dtype DType, s []float32) ([]byte, error) {
	switch dtype {
	case DTypeF32:
		bts := make([]byte, len(s)*4)
		for i, f := range s {
			binary.LittleEndian.PutUint32(bts[i*4:], math.Float32bits(f))
		}
		return bts, nil
	case DTypeF16:
		bts := make([]byte, len(s)*2)
		for i, f := range s {
			binary.LittleEndian.PutUint16(bts[i*2:], float16.Fromfloat32(f).Bits())
		}
		return bts, nil
	case DTypeBF16:
		return bfloat16.EncodeFloat32(s), nil
	case DTypeI32:
		bts := make([]byte, len(s)*4)
		for i, f := range s {
			binary.LittleEndian.PutUint32(bts[i*4:], uint32(int32(f)))
		}
		return bts, nil
	default:
		return nil, fmt.Errorf("ml: cannot encode dtype %s", dtype)
	}
}
