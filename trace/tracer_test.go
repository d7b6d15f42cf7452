// MODUL: tracer_test
// ZWECK: End-to-End-Tests der Tracing-Session mit realem MLP-Modell
// INPUT: Synthetische Eingabe-Samples
// OUTPUT: Test-Ergebnisse
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: testing (stdlib), model/models/mlp
// HINWEISE: Prueft die Session gegen beide Backends (Scan + Real)

package trace

import (
	"errors"
	"math"
	"testing"

	"github.com/nnscope/nnscope/model"
	_ "github.com/nnscope/nnscope/model/models/mlp"
)

func newMLP(t *testing.T) model.Adapter {
	t.Helper()

	m, err := model.New("mlp", model.Config{InputDim: 4, HiddenDim: 8, OutputDim: 2, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// TestSessionEndToEnd fuehrt zwei Invocations (3 und 5 Samples) durch
// das reale Modell und prueft Buchfuehrung und Ergebnis.
func TestSessionEndToEnd(t *testing.T) {
	tr := New(newMLP(t))

	if tr.ID() == "" {
		t.Error("Session ohne ID")
	}

	first := make([][]float32, 3)
	second := make([][]float32, 5)
	for i := range first {
		first[i] = []float32{1, 2, 3, 4}
	}
	for i := range second {
		second[i] = []float32{5, 6, 7, 8}
	}

	for _, rows := range [][][]float32{first, second} {
		if err := tr.Invoke(rows).Do(func(*Invoker) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}

	if tr.BatchStart() != 3 || tr.BatchSize() != 5 {
		t.Errorf("Buchfuehrung: start=%d size=%d, erwartet 3/5", tr.BatchStart(), tr.BatchSize())
	}

	out, err := tr.Run()
	if err != nil {
		t.Fatal(err)
	}

	shape := out.Shape()
	if shape[0] != 8 || shape[1] != 2 {
		t.Fatalf("Output-Shape = %v, erwartet [8 2]", shape)
	}

	// Softmax: jede Zeile summiert zu 1
	floats := out.Floats()
	for i := 0; i < 8; i++ {
		sum := float64(floats[i*2] + floats[i*2+1])
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("Zeile %d: Softmax-Summe = %f, erwartet 1", i, sum)
		}
	}

	// Identische Eingaben muessen identische Zeilen liefern
	if floats[0] != floats[2] {
		t.Error("Zeilen 0 und 1 unterscheiden sich trotz identischer Eingabe")
	}
}

// TestSessionScanRejectsBadWidth prueft, dass der Scan eine falsche
// Eingabebreite vor der realen Ausfuehrung ablehnt.
func TestSessionScanRejectsBadWidth(t *testing.T) {
	tr := New(newMLP(t))

	// Breite 3 statt 4: der Mulmat-Schritt passt nicht
	err := tr.Invoke([]float32{1, 2, 3}).Do(func(*Invoker) error { return nil })

	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("Enter: %v, erwartet ScanError", err)
	}
}

// TestSessionScanDisabledDefers prueft denselben Fall ohne Scan: der
// Fehler erscheint erst bei Run.
func TestSessionScanDisabledDefers(t *testing.T) {
	tr := New(newMLP(t))

	if err := tr.Invoke([]float32{1, 2, 3}).WithScan(false).Do(func(*Invoker) error { return nil }); err != nil {
		t.Fatalf("Enter ohne Scan: %v", err)
	}

	if _, err := tr.Run(); err == nil {
		t.Fatal("Run: kein Fehler trotz falscher Eingabebreite")
	}
}

// TestSessionKwargs prueft Session-Kwargs auf dem realen Pfad.
func TestSessionKwargs(t *testing.T) {
	tr := New(newMLP(t), WithKwargs(model.Kwargs{"logits": true}))

	if err := tr.Invoke([]float32{1, 2, 3, 4}).Do(func(*Invoker) error { return nil }); err != nil {
		t.Fatal(err)
	}

	out, err := tr.Run()
	if err != nil {
		t.Fatal(err)
	}

	// Logits statt Softmax: Zeilensumme im Allgemeinen != 1
	floats := out.Floats()
	if sum := float64(floats[0] + floats[1]); math.Abs(sum-1) < 1e-9 {
		t.Errorf("Logits sehen wie Softmax aus: Summe = %f", sum)
	}
}
