package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"subrecetas/internal/catalog"
	"subrecetas/internal/costing"
	applog "subrecetas/internal/log"
	"subrecetas/internal/units"
	"subrecetas/internal/views/pages"
	"subrecetas/models"
)

type savedResponse struct {
	Saved int `json:"saved"`
}

type subRecipeCostResponse struct {
	ID   string  `json:"id"`
	Cost float64 `json:"cost"`
}

type recipeCostResponse struct {
	ID            string  `json:"id"`
	Total         float64 `json:"total"`
	PerPax        float64 `json:"per_pax"`
	FoodCostRatio float64 `json:"food_cost_ratio"`
}

type danglingResponse struct {
	Dangling []catalog.DanglingReference `json:"dangling"`
}

// ListIngredients returns every ingredient.
func (h *Handlers) ListIngredients(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.Ingredients.List(r.Context())
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, emptyIfNil(items))
}

// SaveIngredients upserts a JSON array of ingredients after batch validation.
func (h *Handlers) SaveIngredients(w http.ResponseWriter, r *http.Request) {
	var batch []models.Ingredient
	if err := decodeJSON(r, &batch); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	saved, err := catalog.SaveIngredients(r.Context(), h.repos, batch)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, savedResponse{Saved: saved})
}

// DeleteIngredient removes the ingredient named by the {id} path value.
func (h *Handlers) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, catalog.DeleteIngredient)
}

// ListSubRecipes returns every sub-recipe with its items.
func (h *Handlers) ListSubRecipes(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.SubRecipes.List(r.Context())
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, emptyIfNil(items))
}

// SaveSubRecipes upserts a JSON array of sub-recipes after batch validation.
func (h *Handlers) SaveSubRecipes(w http.ResponseWriter, r *http.Request) {
	var batch []models.SubRecipe
	if err := decodeJSON(r, &batch); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	saved, err := catalog.SaveSubRecipes(r.Context(), h.repos, batch)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, savedResponse{Saved: saved})
}

// DeleteSubRecipe removes the sub-recipe named by the {id} path value.
func (h *Handlers) DeleteSubRecipe(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, catalog.DeleteSubRecipe)
}

// SubRecipeCost prices one stored sub-recipe.
func (h *Handlers) SubRecipeCost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cost, err := catalog.SubRecipeCostByID(r.Context(), h.repos, id)
	if err != nil {
		writeCostError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subRecipeCostResponse{ID: id, Cost: cost})
}

// ListRecipes returns every recipe with its items.
func (h *Handlers) ListRecipes(w http.ResponseWriter, r *http.Request) {
	items, err := h.repos.Recipes.List(r.Context())
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, emptyIfNil(items))
}

// SaveRecipes upserts a JSON array of recipes after batch validation.
func (h *Handlers) SaveRecipes(w http.ResponseWriter, r *http.Request) {
	var batch []models.Recipe
	if err := decodeJSON(r, &batch); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	saved, err := catalog.SaveRecipes(r.Context(), h.repos, batch)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, savedResponse{Saved: saved})
}

// DeleteRecipe removes the recipe named by the {id} path value.
func (h *Handlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, catalog.DeleteRecipe)
}

// RecipeCost prices one stored recipe and reports its food cost ratio.
func (h *Handlers) RecipeCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	cost, err := catalog.RecipeCostByID(ctx, h.repos, id)
	if err != nil {
		writeCostError(w, r, err)
		return
	}
	recipe, err := h.repos.Recipes.GetByID(ctx, id)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	line := catalog.RecipeCostLine{Recipe: recipe, Cost: cost}
	writeJSON(w, r, http.StatusOK, recipeCostResponse{
		ID:            id,
		Total:         cost.Total,
		PerPax:        cost.PerPax,
		FoodCostRatio: line.FoodCostRatio(),
	})
}

// Catalog returns the whole catalog with its cost sheet.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	snapshot, err := catalog.LoadSnapshot(r.Context(), h.repos)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, struct {
		catalog.Snapshot
		Costs catalog.CostSheet `json:"costs"`
	}{Snapshot: snapshot, Costs: snapshot.Costs()})
}

// DanglingReferences lists items that point at deleted entities.
func (h *Handlers) DanglingReferences(w http.ResponseWriter, r *http.Request) {
	snapshot, err := catalog.LoadSnapshot(r.Context(), h.repos)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	dangling := snapshot.DanglingReferences()
	if dangling == nil {
		dangling = []catalog.DanglingReference{}
	}
	writeJSON(w, r, http.StatusOK, danglingResponse{Dangling: dangling})
}

// CatalogPage renders the HTML cost page, or only the cost tables for HTMX
// refreshes.
func (h *Handlers) CatalogPage(w http.ResponseWriter, r *http.Request) {
	snapshot, err := catalog.LoadSnapshot(r.Context(), h.repos)
	if err != nil {
		applog.Error(r.Context(), "load catalog snapshot", "error", err)
		http.Error(w, "could not load catalog", http.StatusInternalServerError)
		return
	}
	view := pages.NewCatalogView(snapshot)
	w.Header().Add("Vary", "HX-Request")
	if wantsFragment(r) {
		renderComponent(w, r, pages.CostTables(view))
		return
	}
	renderComponent(w, r, pages.CatalogPage(view))
}

func (h *Handlers) deleteByID(w http.ResponseWriter, r *http.Request, remove func(ctx context.Context, repos catalog.Repositories, id string) error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "id is required")
		return
	}
	if err := remove(r.Context(), h.repos, id); err != nil {
		writeCatalogError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeCostError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missing  *costing.MissingEntityError
		mismatch *costing.UnitMismatchError
		quantity *units.QuantityError
	)
	if errors.As(err, &missing) || errors.As(err, &mismatch) || errors.As(err, &quantity) {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeCatalogError(w, r, err)
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
