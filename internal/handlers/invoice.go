package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"subrecetas/internal/catalog"
	"subrecetas/internal/invoice"
	applog "subrecetas/internal/log"
	"subrecetas/internal/reconcile"
	"subrecetas/models"
)

const sessionDraftKey = "invoice:draft"

// Draft is the parsed invoice awaiting reconciliation, kept in the session.
type Draft struct {
	FileName    string           `json:"file_name"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	Response    invoice.Response `json:"response"`
	Selections  []string         `json:"selections"`
}

type parseResponse struct {
	invoice.Response
	Fingerprint string   `json:"fingerprint,omitempty"`
	Selections  []string `json:"selections"`
}

type reconcileRequest struct {
	Items      []invoice.ParsedLine `json:"items"`
	Selections []string             `json:"selections"`
}

type reviewResponse struct {
	reconcile.Review
	Banner reconcile.Banner `json:"banner"`
}

type blockedResponse struct {
	Error     string              `json:"error"`
	RowErrors reconcile.RowErrors `json:"row_errors"`
}

type overwriteResponse struct {
	Error             string              `json:"error"`
	PendingOverwrites []models.Ingredient `json:"pending_overwrites"`
}

// ParseInvoice accepts a multipart "file" upload or a JSON {fileName} body,
// runs the configured parser and stores the result as the session draft.
func (h *Handlers) ParseInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.parser == nil {
		writeError(w, r, http.StatusBadRequest, "invoice parser is not configured")
		return
	}

	input, data, err := h.readInvoiceInput(w, r)
	if err != nil {
		applog.Debug(ctx, "invoice upload rejected", "error", err)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ctx = applog.WithFields(ctx, "file", input.FileName)

	resp, err := h.parser.Parse(ctx, input)
	if err == nil {
		err = resp.Validate()
	}
	if err != nil {
		applog.Error(ctx, "invoice parse failed", "error", err)
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("could not parse invoice: %v", err))
		return
	}

	draft := Draft{FileName: input.FileName, Response: resp}
	if len(data) > 0 {
		draft.Fingerprint = invoice.Fingerprint(data)
		if warning := h.duplicateWarning(ctx, draft.Fingerprint); warning != "" {
			draft.Response.Warnings = append(draft.Response.Warnings, warning)
		}
	}
	draft.Selections = reconcile.SuggestSelections(draft.Response.Items, h.listIngredients(ctx))
	h.saveDraft(ctx, draft)

	applog.Info(ctx, "invoice parsed", "items", len(resp.Items), "confidence", resp.Confidence)
	writeJSON(w, r, http.StatusOK, parseResponse{
		Response:    draft.Response,
		Fingerprint: draft.Fingerprint,
		Selections:  draft.Selections,
	})
}

// GetDraft returns the session draft.
func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.loadDraft(r.Context())
	if !ok {
		writeError(w, r, http.StatusNotFound, "no invoice draft")
		return
	}
	writeJSON(w, r, http.StatusOK, draft)
}

// DeleteDraft discards the session draft. Nothing is written to the catalog.
func (h *Handlers) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if h.sessions != nil {
		h.sessions.Remove(r.Context(), sessionDraftKey)
	}
	applog.Debug(r.Context(), "invoice draft discarded")
	w.WriteHeader(http.StatusNoContent)
}

// ReconcileInvoice evaluates row errors, the save gate and match indicators
// for the posted lines, or for the session draft when no lines are posted.
func (h *Handlers) ReconcileInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req reconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	draft, hasDraft := h.loadDraft(ctx)
	lines := req.Items
	if lines == nil {
		if !hasDraft {
			writeError(w, r, http.StatusBadRequest, "no invoice lines to reconcile")
			return
		}
		lines = draft.Response.Items
	}
	selections := req.Selections
	if selections == nil && hasDraft {
		selections = draft.Selections
	}

	stored, err := h.repos.Ingredients.List(ctx)
	if err != nil {
		applog.Error(ctx, "list ingredients failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "could not load ingredients")
		return
	}

	resp := reviewResponse{
		Review: reconcile.Evaluate(lines, selections, stored),
		Banner: reconcile.Summarize(invoice.Response{}),
	}
	if hasDraft {
		resp.Banner = reconcile.Summarize(draft.Response)
		if req.Items == nil && req.Selections != nil {
			draft.Selections = req.Selections
			h.saveDraft(ctx, draft)
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// CommitInvoice persists the reconciled lines. Missing lines, selections and
// fingerprint are taken from the session draft.
func (h *Handlers) CommitInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req reconcile.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	draft, hasDraft := h.loadDraft(ctx)
	if hasDraft {
		if req.Lines == nil {
			req.Lines = draft.Response.Items
			if req.Fingerprint == "" {
				req.Fingerprint = draft.Fingerprint
			}
		}
		if req.Selections == nil {
			req.Selections = draft.Selections
		}
	}
	if len(req.Lines) == 0 {
		writeError(w, r, http.StatusBadRequest, "no invoice lines to commit")
		return
	}

	if req.Fingerprint != "" {
		ctx = applog.WithFields(ctx, "fingerprint", req.Fingerprint)
	}

	result, err := reconcile.Commit(ctx, h.repos, req, h.options)
	if err != nil {
		var blocked *reconcile.BlockedError
		var overwrite *reconcile.OverwriteError
		var count *reconcile.SelectionCountError
		switch {
		case errors.As(err, &count):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.As(err, &blocked):
			writeJSON(w, r, http.StatusUnprocessableEntity, blockedResponse{Error: err.Error(), RowErrors: blocked.Rows})
		case errors.As(err, &overwrite):
			writeJSON(w, r, http.StatusConflict, overwriteResponse{Error: err.Error(), PendingOverwrites: overwrite.Pending})
		default:
			writeCatalogError(w, r, err)
		}
		return
	}

	if h.sessions != nil {
		h.sessions.Remove(ctx, sessionDraftKey)
	}
	applog.Info(ctx, "invoice committed", "created", result.Created, "updated", result.Updated)
	writeJSON(w, r, http.StatusOK, result)
}

func (h *Handlers) readInvoiceInput(w http.ResponseWriter, r *http.Request) (invoice.Input, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
	case "application/json":
		var body struct {
			FileName string `json:"fileName"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return invoice.Input{}, nil, errors.New("invalid JSON body")
		}
		fileName := strings.TrimSpace(body.FileName)
		if fileName == "" {
			return invoice.Input{}, nil, errors.New("fileName is required")
		}
		return invoice.Input{FileName: fileName}, nil, nil
	default:
		return invoice.Input{}, nil, fmt.Errorf("unsupported content type %q, expected multipart/form-data or application/json", mediaType)
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return invoice.Input{}, nil, fmt.Errorf("invalid multipart upload: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return invoice.Input{}, nil, errors.New("multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return invoice.Input{}, nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return invoice.Input{}, nil, errors.New("uploaded file is empty")
	}
	input, err := invoice.NewUploadInput(header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		return invoice.Input{}, nil, err
	}
	return input, data, nil
}

func (h *Handlers) duplicateWarning(ctx context.Context, fingerprint string) string {
	if h.repos.Meta == nil {
		return ""
	}
	savedAt, seen, err := reconcile.SeenInvoice(ctx, h.repos.Meta, fingerprint)
	if err != nil {
		applog.Warn(ctx, "invoice fingerprint lookup failed", "error", err)
		return ""
	}
	if !seen {
		return ""
	}
	return fmt.Sprintf("This invoice was already saved on %s.", savedAt)
}

func (h *Handlers) listIngredients(ctx context.Context) []models.Ingredient {
	if h.repos.Ingredients == nil {
		return nil
	}
	stored, err := h.repos.Ingredients.List(ctx)
	if err != nil {
		applog.Warn(ctx, "ingredient suggestions unavailable", "error", err)
		return nil
	}
	return stored
}

func (h *Handlers) saveDraft(ctx context.Context, draft Draft) {
	if h.sessions == nil {
		return
	}
	data, err := json.Marshal(draft)
	if err != nil {
		applog.Error(ctx, "encode invoice draft", "error", err)
		return
	}
	h.sessions.Put(ctx, sessionDraftKey, data)
}

func (h *Handlers) loadDraft(ctx context.Context) (Draft, bool) {
	if h.sessions == nil {
		return Draft{}, false
	}
	data := h.sessions.GetBytes(ctx, sessionDraftKey)
	if len(data) == 0 {
		return Draft{}, false
	}
	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		applog.Warn(ctx, "discarding unreadable invoice draft", "error", err)
		return Draft{}, false
	}
	return draft, true
}

func writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *catalog.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case catalog.IsNotFound(err):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		applog.Error(r.Context(), "catalog request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}
