package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// keepAliveInterval bounds how long an idle SSE connection goes without
// traffic so intermediaries do not drop it.
const keepAliveInterval = 25 * time.Second

// streamFilings serves the live event feed over Server-Sent Events. Each hub
// event becomes one SSE message with the event type as its name.
func (s *Server) streamFilings(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, events := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)
	s.logger.Info("stream subscriber connected", zap.String("subscriber", id.String()))

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("stream subscriber disconnected", zap.String("subscriber", id.String()))
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(evt.Data)
			if err != nil {
				s.logger.Warn("stream event marshal failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
