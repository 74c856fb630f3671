package handlers

import (
	"net/http"
	"time"

	"subrecetas/internal/catalog"
	applog "subrecetas/internal/log"
)

type healthResponse struct {
	Status      string    `json:"status"`
	SeedVersion string    `json:"seed_version,omitempty"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

// Health reports whether the catalog store answers. It returns 503 when the
// meta repository cannot be read so load balancers take the instance out of rotation.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Time: time.Now().UTC()}

	version, ok, err := h.repos.Meta.Get(r.Context(), catalog.SeedKey)
	if err != nil {
		applog.Warn(r.Context(), "health check could not read catalog", "error", err)
		resp.Status = "unavailable"
		resp.Error = "catalog store unavailable"
		writeJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	if ok {
		resp.SeedVersion = version
	}
	writeJSON(w, r, http.StatusOK, resp)
}
