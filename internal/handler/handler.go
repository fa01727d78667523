// Package handler contains HTTP handlers for the webhook API.
package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"callcard-relay/internal/dispatch"
	"callcard-relay/internal/model"
)

// maxBodyBytes caps webhook payloads; call events are a few hundred bytes.
const maxBodyBytes = 1 << 20

// Handler wraps HTTP handlers with logger and dispatcher.
type Handler struct {
	log      *zap.Logger
	dispatch dispatch.Dispatcher
}

// New creates a new Handler instance.
func New(log *zap.Logger, d dispatch.Dispatcher) *Handler {
	return &Handler{log: log, dispatch: d}
}

// Alive answers the provider's reachability probe on the root path.
func (h *Handler) Alive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Webhook is alive!"))
}

// Healthz is a simple health check endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Webhook acknowledges every delivery with an empty 200 and hands decodable
// events to the dispatcher only after the acknowledgment is written.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var ev model.CallEvent
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&ev)

	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if err != nil {
		h.log.Warn("failed to decode webhook payload", zap.Error(err))
		return
	}

	h.log.Debug("webhook received", zap.String("event", ev.Event), zap.String("call_id", ev.Data.ID.String()))
	h.dispatch.Dispatch(ev)
}
