// Package server exposes a running simulation over HTTP: JSON state, a PNG
// frame, Prometheus metrics and a websocket state stream. Handlers never
// touch the simulation directly; they read the latest Frame published by the
// game loop.
package server

import (
	"sync/atomic"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/telemetry"
)

// Frame is an immutable copy of the simulation at one tick. Nothing may
// modify a Frame after it is published.
type Frame struct {
	Tick         int64                  `json:"tick"`
	Width        float64                `json:"width"`
	Height       float64                `json:"height"`
	Paused       bool                   `json:"paused"`
	Polarization float64                `json:"polarization"`
	Agents       []components.AgentView `json:"agents"`

	// Latest completed stats window, nil before the first flush
	Window *telemetry.WindowStats `json:"-"`
}

// Source supplies the latest published frame. Latest returns nil before the
// first publish.
type Source interface {
	Latest() *Frame
}

// Publisher hands frames from the game loop to concurrent readers without
// locking.
type Publisher struct {
	latest atomic.Pointer[Frame]
}

// Publish replaces the current frame.
func (p *Publisher) Publish(f *Frame) {
	p.latest.Store(f)
}

// Latest returns the most recently published frame.
func (p *Publisher) Latest() *Frame {
	return p.latest.Load()
}
