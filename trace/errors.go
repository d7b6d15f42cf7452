// errors.go - Fehler-Taxonomie der Tracing-Session
//
// Reentrancy-Verstoesse sind eigene Sentinel-Fehler und schlagen fehl,
// bevor irgendein Session-Zustand mutiert wurde. Fehler der
// Kollaborateure (Input-Normalisierung, realer Forward-Pass) werden
// unveraendert durchgereicht; nur Scan-Fehler werden in ScanError
// gewickelt, damit Aufrufer den Dry-Run-Pfad erkennen koennen.
package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrInvokerActive: ein zweiter Invoker wurde betreten, waehrend
	// in derselben Session noch einer aktiv ist
	ErrInvokerActive = errors.New("trace: another invoker is already active in this session")

	// ErrInvokerReused: ein Invoker wurde ein zweites Mal betreten
	ErrInvokerReused = errors.New("trace: invoker cannot be entered twice")

	// ErrNoModel: die Session hat keinen Modell-Adapter
	ErrNoModel = errors.New("trace: session has no model adapter")

	// ErrNoInvocations: Run ohne eine einzige Invocation
	ErrNoInvocations = errors.New("trace: no invocations entered")
)

// ScanError meldet einen Fehlschlag des symbolischen Dry-Runs,
// bevor irgendeine reale Berechnung versucht wurde
type ScanError struct {
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("trace: symbolic scan failed: %v", e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }
