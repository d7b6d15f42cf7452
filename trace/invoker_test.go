// MODUL: invoker_test
// ZWECK: Unit-Tests fuer den Invocation-Koordinator
// INPUT: Stub-Adapter mit steuerbaren Fehlerpfaden
// OUTPUT: Test-Ergebnisse
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: testing (stdlib), invoker.go, tracer.go, scan.go
// HINWEISE: Der Stub zaehlt Clear/Reset-Aufrufe und protokolliert,
// unter welchem Backend Execute lief

package trace

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nnscope/nnscope/intervention"
	"github.com/nnscope/nnscope/ml"
	"github.com/nnscope/nnscope/model"
)

// stubAdapter ist ein minimaler Modell-Adapter fuer Tests
type stubAdapter struct {
	prepareErr error
	failFake   bool
	failDense  bool

	// mutateOnScan laesst Execute unter dem symbolischen Backend die
	// uebergebenen Eingaben veraendern, um die Tiefkopie zu pruefen
	mutateOnScan bool

	clears     int
	resets     int
	executions []string
}

func (s *stubAdapter) PrepareInputs(kwargs model.Kwargs, inputs ...any) (model.Inputs, int, error) {
	if s.prepareErr != nil {
		return model.Inputs{}, 0, s.prepareErr
	}

	var rows [][]float32
	for _, raw := range inputs {
		switch v := raw.(type) {
		case []float32:
			rows = append(rows, v)
		case [][]float32:
			rows = append(rows, v...)
		default:
			return model.Inputs{}, 0, fmt.Errorf("stub: unsupported input type %T", raw)
		}
	}
	if len(rows) == 0 {
		return model.Inputs{}, 0, model.ErrNoInput
	}

	width := len(rows[0])
	out := model.Inputs{Shape: []int{len(rows), width}, DType: ml.DTypeF32}
	for _, row := range rows {
		if len(row) != width {
			return model.Inputs{}, 0, errors.New("stub: ragged input")
		}
		out.Data = append(out.Data, row...)
	}
	return out, len(rows), nil
}

func (s *stubAdapter) BatchInputs(batched, prepared model.Inputs) (model.Inputs, error) {
	if batched.Empty() {
		return prepared.Clone(), nil
	}
	if batched.Shape[1] != prepared.Shape[1] {
		return model.Inputs{}, errors.New("stub: width mismatch")
	}

	out := batched.Clone()
	out.Data = append(out.Data, prepared.Data...)
	out.Shape[0] += prepared.Shape[0]
	return out, nil
}

func (s *stubAdapter) Execute(ctx ml.Context, inputs model.Inputs, kwargs model.Kwargs) (ml.Tensor, error) {
	name := ctx.Backend().Name()
	s.executions = append(s.executions, name)

	if name == ml.BackendFake {
		if s.failFake {
			return nil, errors.New("stub: shape mismatch")
		}
		if s.mutateOnScan && len(inputs.Data) > 0 {
			inputs.Data[0] = 999
		}
	} else if s.failDense {
		return nil, errors.New("stub: execution failed")
	}

	return ctx.Zeros(ml.DTypeF32, inputs.Shape...), nil
}

func (s *stubAdapter) Clear() { s.clears++ }
func (s *stubAdapter) Reset() { s.resets++ }

// ============================================================================
// Batch-Buchfuehrung
// ============================================================================

// TestBatchBookkeeping prueft batchStart/batchSize/batched ueber
// mehrere sequenzielle Invocations.
func TestBatchBookkeeping(t *testing.T) {
	tr := New(&stubAdapter{})

	sizes := []int{2, 3, 4}
	wantStart := []int{0, 2, 5}

	for i, n := range sizes {
		var rows [][]float32
		for j := 0; j < n; j++ {
			rows = append(rows, []float32{float32(i), float32(j)})
		}

		if err := tr.Invoke(rows).Do(func(*Invoker) error { return nil }); err != nil {
			t.Fatalf("Invocation %d: unerwarteter Fehler %v", i, err)
		}

		if tr.BatchStart() != wantStart[i] {
			t.Errorf("Invocation %d: batchStart = %d, erwartet %d", i, tr.BatchStart(), wantStart[i])
		}
		if tr.BatchSize() != n {
			t.Errorf("Invocation %d: batchSize = %d, erwartet %d", i, tr.BatchSize(), n)
		}
	}

	if rows := tr.BatchedInput().Rows(); rows != 9 {
		t.Errorf("batched: %d Zeilen, erwartet 9", rows)
	}

	// Reihenfolge: Invocation k belegt [start_k, start_k+n_k)
	data := tr.BatchedInput().Data
	if data[0] != 0 || data[2*2] != 1 || data[(2+3)*2] != 2 {
		t.Errorf("batched: Samples nicht in Eintrittsreihenfolge: %v", data)
	}
}

// TestEndToEndThreePlusFive prueft das Szenario aus zwei Invocations
// mit Batch-Groessen 3 und 5.
func TestEndToEndThreePlusFive(t *testing.T) {
	tr := New(&stubAdapter{})

	first := [][]float32{{1, 1}, {2, 2}, {3, 3}}
	second := [][]float32{{4, 4}, {5, 5}, {6, 6}, {7, 7}, {8, 8}}

	for _, rows := range [][][]float32{first, second} {
		if err := tr.Invoke(rows).Do(func(*Invoker) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}

	if tr.BatchStart() != 3 {
		t.Errorf("batchStart = %d, erwartet 3", tr.BatchStart())
	}
	if tr.BatchSize() != 5 {
		t.Errorf("batchSize = %d, erwartet 5", tr.BatchSize())
	}

	batched := tr.BatchedInput()
	if batched.Rows() != 8 {
		t.Fatalf("batched: %d Zeilen, erwartet 8", batched.Rows())
	}
	for i, row := range append(first, second...) {
		if batched.Data[i*2] != row[0] {
			t.Errorf("Zeile %d: %v, erwartet %v", i, batched.Data[i*2], row[0])
		}
	}
}

// ============================================================================
// Exklusivitaet
// ============================================================================

// TestReentrancy prueft, dass ein zweiter aktiver Invoker abgelehnt
// wird und der Session-Zustand unveraendert bleibt.
func TestReentrancy(t *testing.T) {
	tr := New(&stubAdapter{})

	inv1 := tr.Invoke([]float32{1, 2})
	if err := inv1.Enter(); err != nil {
		t.Fatal(err)
	}

	inv2 := tr.Invoke([]float32{3, 4})
	if err := inv2.Enter(); !errors.Is(err, ErrInvokerActive) {
		t.Fatalf("zweiter Enter: %v, erwartet ErrInvokerActive", err)
	}

	// Buchfuehrung darf der abgelehnte Invoker nicht beruehrt haben
	if tr.BatchStart() != 0 || tr.BatchSize() != 1 || tr.BatchedInput().Rows() != 1 {
		t.Errorf("Session-Zustand korrumpiert: start=%d size=%d rows=%d",
			tr.BatchStart(), tr.BatchSize(), tr.BatchedInput().Rows())
	}

	if err := inv1.Exit(nil); err != nil {
		t.Fatal(err)
	}

	// Ein verlassener Invoker ist single-use
	if err := inv1.Enter(); !errors.Is(err, ErrInvokerReused) {
		t.Fatalf("erneuter Enter: %v, erwartet ErrInvokerReused", err)
	}
}

// TestPrepareErrorLeavesStateUntouched prueft den
// InputPreparationError-Pfad.
func TestPrepareErrorLeavesStateUntouched(t *testing.T) {
	prepareErr := errors.New("bad input")
	adapter := &stubAdapter{prepareErr: prepareErr}
	tr := New(adapter)

	err := tr.Invoke([]float32{1}).Enter()
	if !errors.Is(err, prepareErr) {
		t.Fatalf("Enter: %v, erwartet den Adapter-Fehler unveraendert", err)
	}

	if tr.ActiveInvoker() != nil {
		t.Error("Active-Referenz nicht geloescht")
	}
	if tr.BatchStart() != 0 || tr.BatchSize() != 0 || !tr.BatchedInput().Empty() {
		t.Error("Batch-Zustand wurde trotz Prepare-Fehler veraendert")
	}

	// Die Session bleibt benutzbar
	adapter.prepareErr = nil
	if err := tr.Invoke([]float32{1}).Do(func(*Invoker) error { return nil }); err != nil {
		t.Fatalf("Folge-Invocation: %v", err)
	}
}

// ============================================================================
// Symbolischer Scan
// ============================================================================

// TestScanFailureBeforeRealExecution prueft, dass ein Scan-Fehler vor
// jeder realen Berechnung auftaucht.
func TestScanFailureBeforeRealExecution(t *testing.T) {
	adapter := &stubAdapter{failFake: true}
	tr := New(adapter)

	err := tr.Invoke([]float32{1, 2}).WithScan(true).Do(func(*Invoker) error { return nil })

	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("Enter: %v, erwartet ScanError", err)
	}

	for _, backend := range adapter.executions {
		if backend != ml.BackendFake {
			t.Errorf("reale Ausfuehrung waehrend des Scans: %v", adapter.executions)
		}
	}
	if adapter.clears != 1 {
		t.Errorf("Clear-Aufrufe = %d, erwartet 1", adapter.clears)
	}
	if tr.BatchStart() != 0 || tr.BatchSize() != 0 || !tr.BatchedInput().Empty() {
		t.Error("Batch-Zustand wurde trotz Scan-Fehler veraendert")
	}
}

// TestScanDisabledDefersValidation prueft, dass scan=false den Fehler
// nur verschiebt, nicht verschluckt.
func TestScanDisabledDefersValidation(t *testing.T) {
	adapter := &stubAdapter{failFake: true, failDense: true}
	tr := New(adapter)

	// Ohne Scan tritt beim Betreten kein Fehler auf
	if err := tr.Invoke([]float32{1, 2}).WithScan(false).Do(func(*Invoker) error { return nil }); err != nil {
		t.Fatalf("Enter ohne Scan: %v", err)
	}
	if adapter.resets != 1 {
		t.Errorf("Reset-Aufrufe = %d, erwartet 1", adapter.resets)
	}
	if adapter.clears != 0 {
		t.Errorf("Clear-Aufrufe = %d, erwartet 0", adapter.clears)
	}

	// Der Fehler erscheint erst bei der realen Ausfuehrung
	if _, err := tr.Run(); err == nil {
		t.Fatal("Run: kein Fehler, erwartet aufgeschobenen Ausfuehrungsfehler")
	}
}

// TestScanCannotMutateRealInputs prueft die Tiefkopie vor dem Dry-Run.
func TestScanCannotMutateRealInputs(t *testing.T) {
	adapter := &stubAdapter{mutateOnScan: true}
	tr := New(adapter)

	if err := tr.Invoke([]float32{1, 2}).WithScan(true).Do(func(*Invoker) error { return nil }); err != nil {
		t.Fatal(err)
	}

	if got := tr.BatchedInput().Data[0]; got != 1 {
		t.Errorf("Scan hat reale Eingaben mutiert: Data[0] = %v, erwartet 1", got)
	}
}

// ============================================================================
// Exit-Pfade
// ============================================================================

// TestExitOnErrorClearsActive prueft, dass der Fehlerpfad die
// Active-Referenz freigibt und den Fehler unveraendert durchreicht.
func TestExitOnErrorClearsActive(t *testing.T) {
	tr := New(&stubAdapter{})

	userErr := errors.New("user error")
	err := tr.Invoke([]float32{1}).Do(func(*Invoker) error { return userErr })
	if !errors.Is(err, userErr) {
		t.Fatalf("Do: %v, erwartet den Fehler unveraendert", err)
	}

	if tr.ActiveInvoker() != nil {
		t.Fatal("Active-Referenz nach Fehler nicht geloescht")
	}

	// Eine frische Invocation darf sofort wieder eintreten
	if err := tr.Invoke([]float32{2}).Do(func(*Invoker) error { return nil }); err != nil {
		t.Fatalf("Folge-Invocation: %v", err)
	}
}

// TestExitOnPanicClearsActive prueft den panic-Pfad von Do.
func TestExitOnPanicClearsActive(t *testing.T) {
	tr := New(&stubAdapter{})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic wurde verschluckt")
			}
		}()
		tr.Invoke([]float32{1}).Do(func(*Invoker) error { panic("boom") })
	}()

	if tr.ActiveInvoker() != nil {
		t.Fatal("Active-Referenz nach panic nicht geloescht")
	}
}

// ============================================================================
// Graph-Helper
// ============================================================================

// TestApplyAddsExactlyOneNode prueft den Apply-Durchgriff.
func TestApplyAddsExactlyOneNode(t *testing.T) {
	tr := New(&stubAdapter{})

	inv := tr.Invoke([]float32{1, 2})
	if err := inv.Enter(); err != nil {
		t.Fatal(err)
	}
	defer inv.Exit(nil)

	startBefore, sizeBefore := tr.BatchStart(), tr.BatchSize()

	proxy := inv.Apply(func(args []any, _ map[string]any) (any, error) {
		return args[0].(int) * 2, nil
	}, 21)

	if tr.Graph().Len() != 1 {
		t.Fatalf("Graph: %d Knoten, erwartet 1", tr.Graph().Len())
	}
	if tr.BatchStart() != startBefore || tr.BatchSize() != sizeBefore {
		t.Error("Apply hat die Batch-Buchfuehrung veraendert")
	}

	// Vor Settle ist der Wert aufgeschoben
	if _, err := proxy.Value(); !errors.Is(err, intervention.ErrPending) {
		t.Fatalf("Value vor Settle: %v, erwartet ErrPending", err)
	}

	if err := tr.Graph().Settle(); err != nil {
		t.Fatal(err)
	}

	v, err := proxy.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("Value = %v, erwartet 42", v)
	}
}

// TestRunRequiresClosedInvocations prueft die Run-Vorbedingungen.
func TestRunRequiresClosedInvocations(t *testing.T) {
	tr := New(&stubAdapter{})

	if _, err := tr.Run(); !errors.Is(err, ErrNoInvocations) {
		t.Fatalf("Run ohne Invocations: %v, erwartet ErrNoInvocations", err)
	}

	inv := tr.Invoke([]float32{1})
	if err := inv.Enter(); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Run(); !errors.Is(err, ErrInvokerActive) {
		t.Fatalf("Run mit aktivem Invoker: %v, erwartet ErrInvokerActive", err)
	}

	if err := inv.Exit(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Run(); err != nil {
		t.Fatalf("Run nach Exit: %v", err)
	}
}
