// Package mlp - Zweischichtiges Feed-Forward-Netz
//
// Dieses Paket implementiert model.Adapter fuer ein kleines MLP:
// ffn_up (Mulmat + Bias), GELU, ffn_down (Mulmat + Bias), Softmax.
// Die Gewichte werden deterministisch aus Config.Seed initialisiert,
// damit Durchlaeufe reproduzierbar sind. Jedes Modul meldet seine
// Shapes an den Cache der Base, im realen wie im symbolischen Modus.
package mlp

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/nnscope/nnscope/ml"
	"github.com/nnscope/nnscope/model"
)

func init() {
	model.Register("mlp", New)
}

// Model ist das Feed-Forward-Netz
type Model struct {
	model.Base

	cfg model.Config

	wUp, bUp     []float32
	wDown, bDown []float32
}

// New erstellt ein MLP aus der Konfiguration
func New(c model.Config) (model.Adapter, error) {
	if c.InputDim <= 0 {
		c.InputDim = 4
	}
	if c.HiddenDim <= 0 {
		c.HiddenDim = 16
	}
	if c.OutputDim <= 0 {
		c.OutputDim = 4
	}
	if c.DType == ml.DTypeOther {
		c.DType = ml.DTypeF32
	}

	m := &Model{Base: model.NewBase(), cfg: c}

	rng := rand.New(rand.NewSource(c.Seed))
	m.wUp = initWeights(rng, c.InputDim, c.HiddenDim)
	m.bUp = make([]float32, c.HiddenDim)
	m.wDown = initWeights(rng, c.HiddenDim, c.OutputDim)
	m.bDown = make([]float32, c.OutputDim)

	return m, nil
}

// initWeights initialisiert eine [in,out]-Matrix mit Xavier-Skalierung
func initWeights(rng *rand.Rand, in, out int) []float32 {
	scale := float32(math.Sqrt(2 / float64(in+out)))

	w := make([]float32, in*out)
	for i := range w {
		w[i] = float32(rng.NormFloat64()) * scale
	}
	return w
}

// PrepareInputs normalisiert rohe Eingaben zu [n,d]. Jedes Argument
// ist ein Sample ([]float32) oder ein Block von Samples ([][]float32);
// die Breite wird hier bewusst nicht gegen InputDim geprueft, das ist
// Aufgabe des Scans bzw. des realen Durchlaufs.
func (m *Model) PrepareInputs(kwargs model.Kwargs, inputs ...any) (model.Inputs, int, error) {
	var rows [][]float32
	for _, raw := range inputs {
		switch v := raw.(type) {
		case []float32:
			rows = append(rows, v)
		case [][]float32:
			rows = append(rows, v...)
		case []float64:
			row := make([]float32, len(v))
			for i, f := range v {
				row[i] = float32(f)
			}
			rows = append(rows, row)
		case model.Inputs:
			if len(v.Shape) != 2 {
				return model.Inputs{}, 0, fmt.Errorf("mlp: prepared input must be 2D, got shape %v", v.Shape)
			}
			for i := 0; i < v.Shape[0]; i++ {
				rows = append(rows, v.Data[i*v.Shape[1]:(i+1)*v.Shape[1]])
			}
		default:
			return model.Inputs{}, 0, fmt.Errorf("mlp: unsupported input type %T", raw)
		}
	}

	if len(rows) == 0 {
		return model.Inputs{}, 0, model.ErrNoInput
	}

	width := len(rows[0])
	if width == 0 {
		return model.Inputs{}, 0, model.ErrNoInput
	}

	out := model.Inputs{
		Data:  make([]float32, 0, len(rows)*width),
		Shape: []int{len(rows), width},
		DType: ml.DTypeF32,
	}
	for i, row := range rows {
		if len(row) != width {
			return model.Inputs{}, 0, fmt.Errorf("mlp: ragged input, sample %d has %d values, expected %d", i, len(row), width)
		}
		out.Data = append(out.Data, row...)
	}

	return out, len(rows), nil
}

// BatchInputs konkateniert prepared hinter das laufende Batch
func (m *Model) BatchInputs(batched, prepared model.Inputs) (model.Inputs, error) {
	if batched.Empty() {
		return prepared.Clone(), nil
	}

	if batched.Shape[1] != prepared.Shape[1] {
		return model.Inputs{}, fmt.Errorf("mlp: cannot batch width %d onto width %d", prepared.Shape[1], batched.Shape[1])
	}

	out := batched.Clone()
	out.Data = append(out.Data, prepared.Data...)
	out.Shape[0] += prepared.Shape[0]
	return out, nil
}

// Execute fuehrt den Forward-Pass aus. Shape-Fehler der Backends
// kommen als panic mit ml.ShapeError an und werden hier in einen
// Fehler zurueckverwandelt.
func (m *Model) Execute(ctx ml.Context, inputs model.Inputs, kwargs model.Kwargs) (t ml.Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(ml.ShapeError)
			if !ok {
				panic(r)
			}
			t, err = nil, se
		}
	}()

	if inputs.Empty() {
		return nil, model.ErrNoInput
	}

	x := inputs.Materialize(ctx)

	wUp := ctx.FromFloats(m.wUp, m.cfg.InputDim, m.cfg.HiddenDim)
	bUp := ctx.FromFloats(m.bUp, m.cfg.HiddenDim)
	hidden := x.Mulmat(ctx, wUp).Add(ctx, bUp)
	m.Record(ctx, "ffn_up", x, hidden)

	act := hidden.GELU(ctx)
	m.Record(ctx, "ffn_gelu", hidden, act)

	wDown := ctx.FromFloats(m.wDown, m.cfg.HiddenDim, m.cfg.OutputDim)
	bDown := ctx.FromFloats(m.bDown, m.cfg.OutputDim)
	logits := act.Mulmat(ctx, wDown).Add(ctx, bDown)
	m.Record(ctx, "ffn_down", act, logits)

	if temp := kwargs.Float("temperature", 1); temp != 1 && temp > 0 {
		logits = logits.Scale(ctx, 1/temp)
	}

	if kwargs.Bool("logits", false) {
		return logits, nil
	}

	probs := logits.Softmax(ctx)
	m.Record(ctx, "output", logits, probs)
	return probs, nil
}
