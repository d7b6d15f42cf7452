// invoker.go - Invocation-Koordinator
//
// Ein Invoker traegt genau eine Eingabe in die Session ein. Enter
// normalisiert die Eingabe, fuehrt optional den symbolischen Scan aus
// und aktualisiert die Batch-Buchfuehrung der Session; Exit gibt die
// Active-Referenz auf jedem Pfad wieder frei. Ein Invoker ist
// single-use: einmal betreten, einmal verlassen, nie wieder.
package trace

import (
	"log/slog"

	"github.com/nnscope/nnscope/intervention"
	"github.com/nnscope/nnscope/model"
)

// Invoker koordiniert eine einzelne Invocation innerhalb einer Session
type Invoker struct {
	tracer *Tracer

	// inputs sind die rohen Eingaben, unveraendert seit Konstruktion
	inputs   []any
	prepared model.Inputs

	scan   bool
	kwargs model.Kwargs

	entered bool
	exited  bool
}

// WithScan setzt, ob beim Betreten der symbolische Scan laeuft.
// Ohne Scan werden Shape-Fehler erst bei der realen Ausfuehrung
// sichtbar. Muss vor Enter gesetzt werden.
func (inv *Invoker) WithScan(scan bool) *Invoker {
	inv.scan = scan
	return inv
}

// WithKwargs setzt Keyword-Argumente fuer die Input-Normalisierung
func (inv *Invoker) WithKwargs(kw model.Kwargs) *Invoker {
	inv.kwargs = kw
	return inv
}

// Prepared gibt die normalisierte Eingabe dieser Invocation zurueck
func (inv *Invoker) Prepared() model.Inputs { return inv.prepared }

// Enter betritt die Invocation.
//
// Ablauf: Exklusivitaet pruefen, als aktiver Invoker registrieren,
// Eingaben normalisieren, scannen (oder Reset), Batch-Buchfuehrung
// fortschreiben, normalisierte Eingabe ans Batch anhaengen. Schlaegt
// ein Schritt fehl, wird die Active-Referenz wieder geloescht; die
// Batch-Buchfuehrung ist zu diesem Zeitpunkt noch unveraendert.
func (inv *Invoker) Enter() (err error) {
	t := inv.tracer

	if inv.entered || inv.exited {
		return ErrInvokerReused
	}
	if t.invoker != nil {
		return ErrInvokerActive
	}
	if t.model == nil {
		return ErrNoModel
	}

	t.invoker = inv
	inv.entered = true
	defer func() {
		if err != nil {
			t.invoker = nil
		}
	}()

	prepared, batchSize, err := t.model.PrepareInputs(inv.kwargs, inv.inputs...)
	if err != nil {
		return err
	}
	inv.prepared = prepared

	if inv.scan {
		t.model.Clear()
		if err := runScan(t.model, prepared, t.kwargs); err != nil {
			return err
		}
	} else {
		t.model.Reset()
	}

	// Erst den Offset um die Groesse der vorigen Invocation erhoehen,
	// dann mit der neuen ueberschreiben. Die Reihenfolge ist hart.
	t.batchStart += t.batchSize
	t.batchSize = batchSize

	batched, err := t.model.BatchInputs(t.batched, prepared)
	if err != nil {
		return err
	}
	t.batched = batched

	slog.Debug("invocation entered", "id", t.ID(), "batch_start", t.batchStart, "batch_size", t.batchSize, "scan", inv.scan)
	return nil
}

// Exit verlaesst die Invocation. Ein innerhalb des Scopes
// aufgetretener Fehler wird unveraendert zurueckgegeben; die
// Active-Referenz der Session wird auch auf dem Fehlerpfad geloescht,
// damit eine nachfolgende Invocation nicht blockiert ist.
func (inv *Invoker) Exit(err error) error {
	if inv.tracer.invoker == inv {
		inv.tracer.invoker = nil
	}
	inv.exited = true
	return err
}

// Do betritt die Invocation, ruft fn und verlaesst sie auf jedem
// Pfad wieder, auch bei panic innerhalb von fn
func (inv *Invoker) Do(fn func(*Invoker) error) (err error) {
	if err := inv.Enter(); err != nil {
		return err
	}

	defer func() {
		err = inv.Exit(err)
	}()

	return fn(inv)
}

// Apply haengt eine Operation direkt an den Interventions-Graphen der
// Session an und gibt das Proxy-Handle auf deren Ergebnis zurueck.
// Eine Shape-Validierung findet hier nicht statt.
func (inv *Invoker) Apply(target intervention.Target, args ...any) *intervention.Proxy {
	return inv.tracer.graph.Add(target, args, nil)
}

// ApplyKwargs ist Apply mit zusaetzlichen Keyword-Argumenten
func (inv *Invoker) ApplyKwargs(target intervention.Target, args []any, kwargs map[string]any) *intervention.Proxy {
	return inv.tracer.graph.Add(target, args, kwargs)
}
