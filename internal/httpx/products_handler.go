package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rizkyfp/go-storefront/internal/catalog"
)

type ProductsHandler struct {
	Catalog *catalog.CachedRepo
	Log     *zap.Logger
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/category/{category}", h.byCategory)
	r.Get("/products/{id}", h.get)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	if len(search) > 100 {
		search = search[:100]
	}

	f := catalog.Filter{
		Search:   search,
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ps, err := h.Catalog.List(ctx, f)
	if err != nil {
		h.Log.Error("list products failed", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Server error fetching products")
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) byCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListByCategory(ctx, category)
	if err != nil {
		h.Log.Error("list by category failed", zap.String("category", category), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Server error fetching products")
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Catalog.Get(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.Log.Error("get product failed", zap.String("id", id), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Server error fetching product")
		return
	}

	if err := h.Catalog.IncrementViews(ctx, id); err != nil {
		h.Log.Warn("increment views failed", zap.String("id", id), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, p)
}
