package handlers

import (
	"net/http"

	applog "subrecetas/internal/log"
)

// Home sends visitors of the root path to the catalog cost page.
func Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	applog.Debug(r.Context(), "redirecting to catalog page")
	http.Redirect(w, r, "/catalog", http.StatusFound)
}
