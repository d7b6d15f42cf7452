// MODUL: dense_test
// ZWECK: Unit-Tests fuer das reale CPU-Backend
// INPUT: Kleine Matrizen mit bekannten Ergebnissen
// OUTPUT: Test-Ergebnisse
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: testing (stdlib), go-cmp, dense.go
// HINWEISE: Fliesskomma-Vergleiche laufen ueber EquateApprox

package dense

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nnscope/nnscope/ml"
)

func newContext(t *testing.T) (ml.Backend, ml.Context) {
	t.Helper()

	b, err := New(ml.BackendParams{})
	if err != nil {
		t.Fatal(err)
	}
	return b, b.NewContext()
}

var approx = cmpopts.EquateApprox(0, 1e-5)

// TestMulmat prueft ein Matrixprodukt mit bekanntem Ergebnis.
func TestMulmat(t *testing.T) {
	b, ctx := newContext(t)
	defer b.Close()
	defer ctx.Close()

	a := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	w := ctx.FromFloats([]float32{7, 8, 9, 10, 11, 12}, 3, 2)

	got := a.Mulmat(ctx, w).Floats()
	want := []float32{58, 64, 139, 154}

	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Mulmat (-erwartet +bekommen):\n%s", diff)
	}
}

// TestAddBroadcast prueft den Zeilen-Broadcast eines Bias.
func TestAddBroadcast(t *testing.T) {
	b, ctx := newContext(t)
	defer b.Close()
	defer ctx.Close()

	x := ctx.FromFloats([]float32{1, 2, 3, 4}, 2, 2)
	bias := ctx.FromFloats([]float32{10, 20}, 2)

	got := x.Add(ctx, bias).Floats()
	want := []float32{11, 22, 13, 24}

	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("Add (-erwartet +bekommen):\n%s", diff)
	}
}

// TestSoftmax prueft Zeilensummen und Monotonie.
func TestSoftmax(t *testing.T) {
	b, ctx := newContext(t)
	defer b.Close()
	defer ctx.Close()

	x := ctx.FromFloats([]float32{1, 2, 3, 1, 1, 1}, 2, 3)
	got := x.Softmax(ctx).Floats()

	for i := 0; i < 2; i++ {
		sum := float64(got[i*3] + got[i*3+1] + got[i*3+2])
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("Zeile %d: Summe = %f, erwartet 1", i, sum)
		}
	}

	if !(got[0] < got[1] && got[1] < got[2]) {
		t.Errorf("Softmax nicht monoton: %v", got[:3])
	}

	uniform := float32(1.0 / 3)
	if diff := cmp.Diff([]float32{uniform, uniform, uniform}, got[3:], approx); diff != "" {
		t.Errorf("gleichverteilte Zeile (-erwartet +bekommen):\n%s", diff)
	}
}

// TestConcatRows prueft die Batch-Konkatenation entlang Dimension 0.
func TestConcatRows(t *testing.T) {
	b, ctx := newContext(t)
	defer b.Close()
	defer ctx.Close()

	a := ctx.FromFloats([]float32{1, 2}, 1, 2)
	c := ctx.FromFloats([]float32{3, 4, 5, 6}, 2, 2)

	cat := a.Concat(ctx, c, 0)
	if !ml.SameShape(cat.Shape(), []int{3, 2}) {
		t.Fatalf("Concat-Shape = %v, erwartet [3 2]", cat.Shape())
	}

	if diff := cmp.Diff([]float32{1, 2, 3, 4, 5, 6}, cat.Floats(), approx); diff != "" {
		t.Errorf("Concat (-erwartet +bekommen):\n%s", diff)
	}
}

// TestBytesRoundtrip prueft die DType-Konvertierung ueber Rohbytes.
func TestBytesRoundtrip(t *testing.T) {
	b, ctx := newContext(t)
	defer b.Close()
	defer ctx.Close()

	for _, dtype := range []ml.DType{ml.DTypeF32, ml.DTypeF16, ml.DTypeBF16} {
		src := []float32{0.5, -1.25, 2, 0}

		bts, err := ml.BytesFromFloats(dtype, src)
		if err != nil {
			t.Fatalf("%s: %v", dtype, err)
		}

		got := ctx.FromBytes(dtype, bts, 2, 2).Floats()
		if diff := cmp.Diff(src, got, cmpopts.EquateApprox(0.02, 0.02)); diff != "" {
			t.Errorf("%s Roundtrip (-erwartet +bekommen):\n%s", dtype, diff)
		}
	}
}

// TestAllocationTracking prueft, dass reale Puffer gezaehlt werden.
func TestAllocationTracking(t *testing.T) {
	b, ctx := newContext(t)
	defer b.Close()
	defer ctx.Close()

	if b.AllocatedBytes() != 0 {
		t.Fatalf("frisches Backend meldet %d Bytes", b.AllocatedBytes())
	}

	ctx.Zeros(ml.DTypeF32, 4, 4)
	if got := b.AllocatedBytes(); got < 16*8 {
		t.Errorf("AllocatedBytes = %d, erwartet mindestens %d", got, 16*8)
	}
}

// TestShapeMismatchPanics prueft den ShapeError-Pfad des realen Backends.
func TestShapeMismatchPanics(t *testing.T) {
	b, ctx := newContext(t)
	defer b.Close()
	defer ctx.Close()

	x := ctx.FromFloats(make([]float32, 6), 2, 3)
	w := ctx.FromFloats(make([]float32, 8), 4, 2)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("kein panic bei inkompatiblen Shapes")
		}
		if _, ok := r.(ml.ShapeError); !ok {
			t.Fatalf("panic-Wert %T, erwartet ml.ShapeError", r)
		}
	}()

	x.Mulmat(ctx, w)
}
