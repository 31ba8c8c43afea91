package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soochol/stateflow/internal/engine"
)

// streamInstanceEvents streams an instance's events as SSE until the
// instance completes or the client disconnects. The bus drops events for a
// slow subscriber, so the instance is also re-read every streamResync and
// the stream ends with "done" once it is completed.
func (s *Server) streamInstanceEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Subscribe before reading the instance so no event is missed in between.
	events := s.eventBus.Channel(ctx, 64)

	inst, err := s.instanceSvc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if inst.IsCompleted {
		writeDoneEvent(w, map[string]any{"instance_id": inst.ID, "current_state": inst.CurrentState})
		flusher.Flush()
		return
	}
	flusher.Flush()

	resync := time.NewTicker(s.streamResync)
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-resync.C:
			cur, err := s.instanceSvc.Get(ctx, id)
			if err != nil || !cur.IsCompleted {
				continue
			}
			writeDoneEvent(w, map[string]any{"instance_id": cur.ID, "current_state": cur.CurrentState})
			flusher.Flush()
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.InstanceID != id {
				continue
			}
			writeSSEEvent(w, ev)
			if ev.Type == engine.EventInstanceCompleted {
				writeDoneEvent(w, map[string]any{"instance_id": ev.InstanceID, "current_state": ev.ToState})
				flusher.Flush()
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single event as an SSE frame.
func writeSSEEvent(w http.ResponseWriter, ev engine.Event) {
	data, _ := json.Marshal(ev)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

// writeDoneEvent writes the final "done" SSE event.
func writeDoneEvent(w http.ResponseWriter, payload map[string]any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
}
