// scan.go - Symbolischer Dry-Run vor der realen Ausfuehrung
//
// Der Scan fuehrt das Modell einmal unter dem symbolischen Backend
// aus: jeder Wert ist ein reiner Shape/DType-Platzhalter, es wird
// nichts gerechnet und nichts allokiert. Zweck ist allein das
// Vorbefuellen des Shape-Caches und das fruehe Aufdecken von
// Shape-Fehlern, bevor reale Berechnung versucht wird.
package trace

import (
	"github.com/nnscope/nnscope/ml"
	"github.com/nnscope/nnscope/model"
)

// runScan fuehrt den Dry-Run aus. Eingaben und Kwargs werden vorher
// tief kopiert, damit der Scan keinen Zustand mutieren kann, den der
// reale Pass spaeter konsumiert. Der symbolische Kontext wird beim
// Verlassen deterministisch geschlossen, auch im Fehlerfall.
func runScan(m model.Adapter, prepared model.Inputs, kwargs model.Kwargs) error {
	b, err := ml.NewBackend(ml.BackendFake, ml.BackendParams{})
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := b.NewContext()
	defer ctx.Close()

	if _, err := m.Execute(ctx, prepared.Clone(), kwargs.Clone()); err != nil {
		return &ScanError{Err: err}
	}

	return nil
}
