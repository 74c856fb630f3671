package server

import (
	"context"
	"net/http"

	"subrecetas/internal/handlers"
	applog "subrecetas/internal/log"
)

func newRouter(h *handlers.Handlers) http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")

	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /healthz", h.Health},
		{"POST /api/parse-invoice", h.ParseInvoice},
		{"GET /api/invoice/draft", h.GetDraft},
		{"DELETE /api/invoice/draft", h.DeleteDraft},
		{"POST /api/invoice/reconcile", h.ReconcileInvoice},
		{"POST /api/invoice/commit", h.CommitInvoice},
		{"GET /api/ingredients", h.ListIngredients},
		{"POST /api/ingredients", h.SaveIngredients},
		{"DELETE /api/ingredients/{id}", h.DeleteIngredient},
		{"GET /api/subrecipes", h.ListSubRecipes},
		{"POST /api/subrecipes", h.SaveSubRecipes},
		{"DELETE /api/subrecipes/{id}", h.DeleteSubRecipe},
		{"GET /api/subrecipes/{id}/cost", h.SubRecipeCost},
		{"GET /api/recipes", h.ListRecipes},
		{"POST /api/recipes", h.SaveRecipes},
		{"DELETE /api/recipes/{id}", h.DeleteRecipe},
		{"GET /api/recipes/{id}/cost", h.RecipeCost},
		{"GET /api/catalog", h.Catalog},
		{"GET /api/catalog/dangling", h.DanglingReferences},
		{"GET /catalog", h.CatalogPage},
		{"GET /", handlers.Home},
	}
	for _, route := range routes {
		mux.HandleFunc(route.pattern, route.handler)
		applog.Debug(context.Background(), "route registered", "pattern", route.pattern)
	}
	return mux
}
