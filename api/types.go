// types.go - Core API Types (Basis-Typen, Errors, Requests, Responses)
// Enthaelt: StatusError, TraceRequest, Invocation, TraceResponse, ListResponse
package api

import (
	"fmt"
	"time"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		return "something went wrong, please see the nnscope server logs for details"
	}
}

// TraceRequest beschreibt eine komplette Tracing-Session: eine Folge
// von Invocations, die zu einem Batch konkateniert und in genau einem
// realen Forward-Pass ausgefuehrt werden
type TraceRequest struct {
	// Model ist die Architektur (Default: mlp)
	Model string `json:"model"`

	// Scan steuert den symbolischen Scan fuer alle Invocations,
	// sofern eine Invocation ihn nicht selbst setzt
	Scan *bool `json:"scan,omitempty"`

	// Invocations werden in Reihenfolge betreten
	Invocations []Invocation `json:"invocations"`

	// Options sind Session-Kwargs fuer die reale Ausfuehrung
	// (z.B. "temperature", "logits")
	Options map[string]any `json:"options,omitempty"`
}

// Invocation ist eine einzelne Eingabe der Session
type Invocation struct {
	// Inputs sind die Samples dieser Invocation, je Zeile eines
	Inputs [][]float32 `json:"inputs"`

	Scan *bool `json:"scan,omitempty"`
}

// TraceResponse gibt Batch-Buchfuehrung und Ergebnis zurueck
type TraceResponse struct {
	ID    string `json:"id"`
	Model string `json:"model"`

	BatchStart   int `json:"batch_start"`
	BatchSize    int `json:"batch_size"`
	TotalSamples int `json:"total_samples"`

	Shape  []int       `json:"shape"`
	Output [][]float32 `json:"output"`

	// Modules sind die nach dem Lauf bekannten Modulnamen
	Modules []string `json:"modules,omitempty"`

	TotalDuration time.Duration `json:"total_duration"`
}

// ListResponse listet registrierte Architekturen
type ListResponse struct {
	Models []string `json:"models"`
}

// VersionResponse gibt die Server-Version zurueck
type VersionResponse struct {
	Version string `json:"version"`
}
