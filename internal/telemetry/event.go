// Package telemetry emits best-effort request events to an external pipeline.
package telemetry

import "time"

// Event is one auth API request observation, published as JSON.
type Event struct {
	Name           string    `json:"name"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	Status         int       `json:"status"`
	IP             string    `json:"ip"`
	DurationMillis int64     `json:"duration_ms"`
	At             time.Time `json:"at"`
}
