package feed

import (
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"
)

const defaultLimit = 20

// Health is the /api/health response.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int    `json:"uptime_seconds"`
	Events        int    `json:"events"`
}

// EventList is the /api/events response.
type EventList struct {
	Events []Record `json:"events"`
	Total  int      `json:"total"`
}

// Handlers serves the JSON endpoints.
type Handlers struct {
	Store     *Store
	Version   string
	StartTime time.Time
}

func (h *Handlers) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{
		Status:        "ok",
		Version:       h.Version,
		UptimeSeconds: int(time.Since(h.StartTime).Seconds()),
		Events:        h.Store.Len(),
	})
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := defaultLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var kind string
	if err := runtime.BindQueryParameter("form", true, false, "kind", query, &kind); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events := h.Store.Recent(limit, Kind(kind))
	writeJSON(w, http.StatusOK, EventList{Events: events, Total: len(events)})
}
