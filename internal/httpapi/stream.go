package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Snapshot streams are exposed as server-sent events. Each event carries the
// full current snapshot as JSON; clients replace their local state instead of
// merging deltas.

func (a *API) handleStreamProducts(w http.ResponseWriter, r *http.Request) {
	ch, cancel := a.store.StreamProducts(r.Context())
	defer cancel()
	serveSSE(w, r, "products", ch)
}

func (a *API) handleStreamSales(w http.ResponseWriter, r *http.Request) {
	ch, cancel := a.store.StreamSales(r.Context())
	defer cancel()
	serveSSE(w, r, "sales", ch)
}

func (a *API) handleStreamAlerts(w http.ResponseWriter, r *http.Request) {
	ch, cancel := a.store.StreamAlerts(r.Context())
	defer cancel()
	serveSSE(w, r, "alerts", ch)
}

// handleStreamOutcomes relays registration outcomes as they happen. Unlike
// the snapshot streams there is no initial state; subscribers only see
// attempts made while connected.
func (a *API) handleStreamOutcomes(w http.ResponseWriter, r *http.Request) {
	if a.outcomes == nil {
		writeError(w, http.StatusNotFound, errors.New("outcome stream not enabled"))
		return
	}
	ch, cancel := a.outcomes.Subscribe(r.Context())
	defer cancel()
	serveSSE(w, r, "outcome", ch)
}

func serveSSE[T any](w http.ResponseWriter, r *http.Request, event string, ch <-chan T) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case payload, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
