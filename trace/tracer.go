// tracer.go - Tracing-Session
//
// Dieses Modul haelt den kumulativen Zustand einer Session: das
// laufende Batch (batchStart, batchSize, batched), den
// Interventions-Graphen und die Referenz auf den aktuell aktiven
// Invoker. Invoker betreten und verlassen die Session strikt
// sequenziell; nach der letzten Invocation fuehrt Run genau einen
// realen Forward-Pass ueber das volle Batch aus.
package trace

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/nnscope/nnscope/envconfig"
	"github.com/nnscope/nnscope/intervention"
	"github.com/nnscope/nnscope/ml"
	"github.com/nnscope/nnscope/model"
)

// Tracer ist die Tracing-Session
type Tracer struct {
	id    uuid.UUID
	model model.Adapter
	graph *intervention.Graph

	// invoker ist eine nicht-besitzende Referenz auf hoechstens
	// einen aktiven Invoker, nil wenn keiner aktiv ist
	invoker *Invoker

	batchStart int
	batchSize  int
	batched    model.Inputs

	kwargs model.Kwargs
}

// Option konfiguriert eine Session
type Option func(*Tracer)

// WithKwargs setzt Keyword-Argumente, die einheitlich auf die reale
// Ausfuehrung angewendet werden
func WithKwargs(kw model.Kwargs) Option {
	return func(t *Tracer) {
		t.kwargs = kw
	}
}

// New erstellt eine Session fuer den uebergebenen Modell-Adapter
func New(m model.Adapter, opts ...Option) *Tracer {
	t := &Tracer{
		id:    uuid.New(),
		model: m,
		graph: intervention.NewGraph(),
	}
	t.graph.MaxNodes = int(envconfig.MaxNodes())

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// ID gibt die Session-ID zurueck
func (t *Tracer) ID() string { return t.id.String() }

// Graph gibt den Interventions-Graphen der Session zurueck
func (t *Tracer) Graph() *intervention.Graph { return t.graph }

// Model gibt den Modell-Adapter der Session zurueck
func (t *Tracer) Model() model.Adapter { return t.model }

// BatchStart gibt den kumulativen Offset aller abgeschlossenen
// Invocations ausser der letzten zurueck
func (t *Tracer) BatchStart() int { return t.batchStart }

// BatchSize gibt die Batch-Groesse der zuletzt betretenen Invocation zurueck
func (t *Tracer) BatchSize() int { return t.batchSize }

// BatchedInput gibt das konkatenierte Batch aller Invocations zurueck
func (t *Tracer) BatchedInput() model.Inputs { return t.batched }

// ActiveInvoker gibt den aktuell aktiven Invoker zurueck, nil wenn keiner
func (t *Tracer) ActiveInvoker() *Invoker { return t.invoker }

// Invoke erstellt einen neuen Invoker fuer die uebergebenen rohen
// Eingaben. Der Invoker ist noch nicht betreten.
func (t *Tracer) Invoke(inputs ...any) *Invoker {
	return &Invoker{
		tracer: t,
		inputs: inputs,
		scan:   envconfig.ScanDefault(true),
	}
}

// Run fuehrt den einen realen Forward-Pass ueber das volle Batch aus
// und loest anschliessend die aufgezeichneten Graph-Knoten auf
func (t *Tracer) Run() (ml.Tensor, error) {
	if t.invoker != nil {
		return nil, ErrInvokerActive
	}
	if t.batched.Empty() {
		return nil, ErrNoInvocations
	}

	b, err := ml.NewBackend(ml.BackendDense, ml.BackendParams{})
	if err != nil {
		return nil, err
	}
	defer b.Close()

	ctx := b.NewContext()
	defer ctx.Close()

	slog.Debug("running batched execution", "id", t.ID(), "samples", t.batched.Rows(), "nodes", t.graph.Len())

	out, err := t.model.Execute(ctx, t.batched, t.kwargs)
	if err != nil {
		return nil, err
	}

	if err := t.graph.Settle(); err != nil {
		return nil, err
	}

	return out, nil
}
