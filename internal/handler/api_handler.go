package handler

import (
	"net/http"

	"fsanano/item-catalog/internal/model"
)

type categoriesResponse struct {
	Categories []model.Category `json:"Categories"`
}

type categoryResponse struct {
	Category string       `json:"Category"`
	Items    []model.Item `json:"Items"`
}

type itemResponse struct {
	Item model.Item `json:"Item"`
}

func (h *Handler) CatalogJSON(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, categoriesResponse{Categories: categories})
}

func (h *Handler) CategoryJSON(w http.ResponseWriter, r *http.Request) {
	catID, ok := pathID(r, "catId")
	if !ok {
		http.NotFound(w, r)
		return
	}

	page, err := h.catalog.BrowseCategory(r.Context(), catID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, categoryResponse{Category: page.Category.Name, Items: page.Items})
}

func (h *Handler) ItemJSON(w http.ResponseWriter, r *http.Request) {
	catID, itemID, ok := itemPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	item, err := h.catalog.Item(r.Context(), catID, itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, itemResponse{Item: item})
}
