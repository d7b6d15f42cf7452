// Package model - Adapter-Interface und Registrierung
//
// Dieses Paket definiert den Vertrag zwischen Tracing-Session und
// Modell sowie die Registrierung konkreter Architekturen.
//
// Hauptkomponenten:
// - Adapter: Interface fuer alle Modell-Architekturen
// - Base: Basis-Implementierung fuer gemeinsame Funktionalitaet
// - New: Erstellt neue Adapter-Instanzen
// - Register: Registriert Modell-Konstruktoren
package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nnscope/nnscope/ml"
	_ "github.com/nnscope/nnscope/ml/backend"
)

// Fehler-Definitionen
var (
	ErrUnsupportedModel = errors.New("model not supported")
	ErrNoInput          = errors.New("model: empty input")
)

// Adapter definiert den Vertrag, den die Tracing-Session konsumiert.
// Execute muss unter jedem Backend des uebergebenen Kontexts laufen,
// insbesondere unter dem symbolischen.
type Adapter interface {
	// PrepareInputs normalisiert rohe Eingaben und ist die einzige
	// Quelle fuer die Batch-Groesse dieser Invocation
	PrepareInputs(kwargs Kwargs, inputs ...any) (Inputs, int, error)

	// BatchInputs haengt prepared in Reihenfolge an das laufende Batch an
	BatchInputs(batched, prepared Inputs) (Inputs, error)

	// Execute fuehrt den Forward-Pass auf dem Backend des Kontexts aus
	Execute(ctx ml.Context, inputs Inputs, kwargs Kwargs) (ml.Tensor, error)

	// Clear verwirft den Shape/DType-Cache aller Module
	Clear()

	// Reset verwirft nur transienten Per-Run-Zustand
	Reset()
}

// Config enthaelt die Modell-Konfiguration
type Config struct {
	InputDim  int
	HiddenDim int
	OutputDim int
	DType     ml.DType
	Seed      int64
}

// Base implementiert gemeinsame Felder und Methoden fuer alle Modelle
type Base struct {
	shapes  *ShapeCache
	outputs map[string]ml.Tensor
}

// NewBase erstellt eine initialisierte Base
func NewBase() Base {
	return Base{
		shapes:  NewShapeCache(),
		outputs: make(map[string]ml.Tensor),
	}
}

// Shapes gibt den Shape-Cache des Modells zurueck
func (b *Base) Shapes() *ShapeCache {
	return b.shapes
}

// Record speichert die beobachteten Shapes eines Moduls. Unter dem
// realen Backend wird zusaetzlich der Output fuer spaetere Zugriffe
// aufgehoben; symbolische Platzhalter werden nicht aufgehoben, damit
// der Dry-Run keinen Zustand in den realen Pass leckt.
func (b *Base) Record(ctx ml.Context, name string, in, out ml.Tensor) {
	b.shapes.Record(name, in.Shape(), out.Shape(), out.DType())

	if ctx.Backend().Name() != ml.BackendFake {
		b.outputs[name] = out
	}
}

// Output gibt den zuletzt aufgezeichneten Output eines Moduls zurueck
func (b *Base) Output(name string) (ml.Tensor, error) {
	if t, ok := b.outputs[name]; ok {
		return t, nil
	}

	if _, err := b.shapes.Lookup(name); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("model: module %q has no recorded output, run the model first", name)
}

// Clear verwirft Shape-Cache und transiente Outputs
func (b *Base) Clear() {
	b.shapes.Clear()
	clear(b.outputs)
}

// Reset verwirft nur die transienten Outputs
func (b *Base) Reset() {
	clear(b.outputs)
}

// models speichert registrierte Modell-Konstruktoren
var models = make(map[string]func(Config) (Adapter, error))

// Register registriert einen Modell-Konstruktor fuer eine Architektur
func Register(name string, f func(Config) (Adapter, error)) {
	if _, ok := models[name]; ok {
		panic("model: model already registered")
	}

	models[name] = f
}

// New initialisiert eine neue Adapter-Instanz fuer eine Architektur
func New(arch string, c Config) (Adapter, error) {
	f, ok := models[arch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, arch)
	}

	return f(c)
}

// Architectures gibt alle registrierten Architekturen sortiert zurueck
func Architectures() []string {
	archs := make([]string, 0, len(models))
	for name := range models {
		archs = append(archs, name)
	}
	sort.Strings(archs)
	return archs
}
