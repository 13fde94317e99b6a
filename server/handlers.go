package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pthm-cable/boids/frame"
	"github.com/pthm-cable/boids/telemetry"
)

type handlers struct {
	source     Source
	frameWidth int
}

// statsResponse summarizes a frame without the agent list.
type statsResponse struct {
	Tick         int64                  `json:"tick"`
	Paused       bool                   `json:"paused"`
	Agents       int                    `json:"agents"`
	Predated     int                    `json:"predated"`
	Polarization float64                `json:"polarization"`
	Window       *telemetry.WindowStats `json:"window,omitempty"`
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status string `json:"status"`
		Ready  bool   `json:"ready"`
		Tick   int64  `json:"tick"`
	}{Status: "ok"}

	if f := h.source.Latest(); f != nil {
		resp.Ready = true
		resp.Tick = f.Tick
	}
	writeJSON(w, resp)
}

func (h *handlers) handleState(w http.ResponseWriter, r *http.Request) {
	f := h.source.Latest()
	if f == nil {
		writeError(w, "no frame published yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, f)
}

func (h *handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	f := h.source.Latest()
	if f == nil {
		writeError(w, "no frame published yet", http.StatusServiceUnavailable)
		return
	}

	resp := statsResponse{
		Tick:         f.Tick,
		Paused:       f.Paused,
		Polarization: f.Polarization,
		Window:       f.Window,
	}
	for _, v := range f.Agents {
		if v.IsPredator {
			continue
		}
		resp.Agents++
		if v.Predated {
			resp.Predated++
		}
	}
	writeJSON(w, resp)
}

func (h *handlers) handleFramePNG(w http.ResponseWriter, r *http.Request) {
	width := h.frameWidth
	if q := r.URL.Query().Get("width"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, "width must be a positive integer", http.StatusBadRequest)
			return
		}
		width = n
	}

	f := h.source.Latest()
	if f == nil {
		writeError(w, "no frame published yet", http.StatusServiceUnavailable)
		return
	}

	// Encode fully before writing so a failure can still change the status
	var buf bytes.Buffer
	if err := frame.EncodePNG(&buf, f.Agents, f.Width, f.Height, width); err != nil {
		slog.Error("encoding frame", "tick", f.Tick, "error", err)
		writeError(w, "encoding frame failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
