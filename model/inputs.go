// inputs.go - Normalisierte Eingaben und Keyword-Argumente
//
// Dieses Modul definiert die Wertetypen, die zwischen Session,
// Invoker und Adapter gereicht werden. Clone ist jeweils eine echte
// Tiefkopie: der symbolische Dry-Run darf niemals Zustand mutieren,
// den der reale Pass spaeter konsumiert.
package model

import "github.com/nnscope/nnscope/ml"

// Inputs ist die normalisierte, backend-unabhaengige Eingabeform
type Inputs struct {
	Data  []float32
	Shape []int
	DType ml.DType
}

// Empty prueft, ob noch keine Eingaben vorliegen
func (in Inputs) Empty() bool {
	return len(in.Shape) == 0
}

// Rows gibt die Anzahl der Samples zurueck
func (in Inputs) Rows() int {
	if in.Empty() {
		return 0
	}
	return in.Shape[0]
}

// Clone erstellt eine Tiefkopie
func (in Inputs) Clone() Inputs {
	out := Inputs{
		Data:  make([]float32, len(in.Data)),
		Shape: make([]int, len(in.Shape)),
		DType: in.DType,
	}
	copy(out.Data, in.Data)
	copy(out.Shape, in.Shape)
	return out
}

// Materialize erstellt einen Tensor im uebergebenen Kontext
func (in Inputs) Materialize(ctx ml.Context) ml.Tensor {
	return ctx.FromFloats(in.Data, in.Shape...)
}

// Kwargs sind Keyword-Argumente fuer Input-Normalisierung und Execute
type Kwargs map[string]any

// Bool liest einen Bool-Wert mit Default
func (kw Kwargs) Bool(key string, defaultValue bool) bool {
	if v, ok := kw[key].(bool); ok {
		return v
	}
	return defaultValue
}

// Float liest einen Gleitkomma-Wert mit Default
func (kw Kwargs) Float(key string, defaultValue float64) float64 {
	switch v := kw[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultValue
	}
}

// Clone erstellt eine Tiefkopie. Verschachtelte Maps, Slices und
// Inputs werden kopiert; Skalare sind per se unveraenderlich.
func (kw Kwargs) Clone() Kwargs {
	if kw == nil {
		return nil
	}

	out := make(Kwargs, len(kw))
	for k, v := range kw {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch v := v.(type) {
	case Kwargs:
		return v.Clone()
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = deepCopy(e)
		}
		return out
	case []float32:
		out := make([]float32, len(v))
		copy(out, v)
		return out
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out
	case []int:
		out := make([]int, len(v))
		copy(out, v)
		return out
	case Inputs:
		return v.Clone()
	default:
		return v
	}
}
