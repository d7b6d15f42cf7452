// routes_trace.go - Trace- und List-Handler
// Hauptfunktionen: TraceHandler, ListHandler
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nnscope/nnscope/api"
	"github.com/nnscope/nnscope/model"
	_ "github.com/nnscope/nnscope/model/models"
	"github.com/nnscope/nnscope/trace"
)

// ListHandler listet die registrierten Architekturen auf
func (s *Server) ListHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.ListResponse{Models: model.Architectures()})
}

// TraceHandler fuehrt eine komplette Tracing-Session aus: alle
// Invocations werden sequenziell betreten, danach laeuft genau ein
// realer Forward-Pass ueber das konkatenierte Batch
func (s *Server) TraceHandler(c *gin.Context) {
	checkpointStart := time.Now()

	var req api.TraceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Model == "" {
		req.Model = "mlp"
	}
	if len(req.Invocations) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "at least one invocation is required"})
		return
	}

	m, err := model.New(req.Model, model.Config{})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, model.ErrUnsupportedModel) {
			status = http.StatusNotFound
		}
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}

	tracer := trace.New(m, trace.WithKwargs(model.Kwargs(req.Options)))

	for i, invocation := range req.Invocations {
		inv := tracer.Invoke(invocation.Inputs)

		if scan := firstOf(invocation.Scan, req.Scan); scan != nil {
			inv.WithScan(*scan)
		}

		if err := inv.Do(func(*trace.Invoker) error { return nil }); err != nil {
			slog.Debug("invocation rejected", "id", tracer.ID(), "invocation", i, "error", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	out, err := tracer.Run()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shape := out.Shape()
	floats := out.Floats()

	rows := make([][]float32, 0, shape[0])
	width := len(floats) / shape[0]
	for i := 0; i < shape[0]; i++ {
		rows = append(rows, floats[i*width:(i+1)*width])
	}

	var modules []string
	if shaped, ok := m.(interface{ Shapes() *model.ShapeCache }); ok {
		modules = shaped.Shapes().Names()
	}

	c.JSON(http.StatusOK, api.TraceResponse{
		ID:            tracer.ID(),
		Model:         req.Model,
		BatchStart:    tracer.BatchStart(),
		BatchSize:     tracer.BatchSize(),
		TotalSamples:  tracer.BatchedInput().Rows(),
		Shape:         shape,
		Output:        rows,
		Modules:       modules,
		TotalDuration: time.Since(checkpointStart),
	})
}

// firstOf gibt den ersten gesetzten Bool-Pointer zurueck
func firstOf(ptrs ...*bool) *bool {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}
