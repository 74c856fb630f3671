// Package handlers implements the HTTP JSON API and the catalog cost page.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"

	"subrecetas/internal/catalog"
	"subrecetas/internal/invoice"
	applog "subrecetas/internal/log"
	"subrecetas/internal/reconcile"
)

const defaultMaxUpload int64 = 10 << 20

// Deps are the collaborators shared by every handler.
type Deps struct {
	Repos     catalog.Repositories
	Parser    invoice.Parser
	Sessions  *scs.SessionManager
	MaxUpload int64
	Options   reconcile.Options
}

// Handlers serves the API routes with explicit dependencies.
type Handlers struct {
	repos     catalog.Repositories
	parser    invoice.Parser
	sessions  *scs.SessionManager
	maxUpload int64
	options   reconcile.Options
}

// New builds the handler set. A nil session manager disables draft storage.
func New(deps Deps) *Handlers {
	maxUpload := deps.MaxUpload
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Handlers{
		repos:     deps.Repos,
		parser:    deps.Parser,
		sessions:  deps.Sessions,
		maxUpload: maxUpload,
		options:   deps.Options,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(r.Context(), "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorResponse{Error: message})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func renderComponent(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render page", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
