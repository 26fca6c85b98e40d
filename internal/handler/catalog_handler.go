package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fsanano/item-catalog/internal/model"
	"fsanano/item-catalog/internal/service"
	"fsanano/item-catalog/internal/session"
)

func (h *Handler) ShowCatalog(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalog.Browse(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "catalog", view{Categories: page.Categories, Items: page.Items})
}

func (h *Handler) ShowCategory(w http.ResponseWriter, r *http.Request) {
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

	h.render(w, r, http.StatusOK, "category", view{
		Categories: page.Categories,
		Category:   page.Category,
		Items:      page.Items,
	})
}

func (h *Handler) ShowItem(w http.ResponseWriter, r *http.Request) {
	catID, itemID, ok := itemPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	page, err := h.catalog.ViewItem(r.Context(), catID, itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "item", view{
		Categories: page.Categories,
		Category:   page.Category,
		Item:       page.Item,
		CanMutate:  service.CanMutate(session.FromContext(r.Context()), page.Item),
	})
}

// NewItemForm serves /category/new and /category/new/{catId}; the latter
// preselects the category.
func (h *Handler) NewItemForm(w http.ResponseWriter, r *http.Request) {
	var catID int64
	if chi.URLParam(r, "catId") != "" {
		id, ok := pathID(r, "catId")
		if !ok {
			http.NotFound(w, r)
			return
		}
		catID = id
	}

	categories, selected, err := h.catalog.NewItemForm(r.Context(), session.FromContext(r.Context()), catID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var form service.ItemInput
	if selected.ID != 0 {
		form.Category = strconv.FormatInt(selected.ID, 10)
	}

	h.render(w, r, http.StatusOK, "item_form", view{
		Categories: categories,
		Action:     r.URL.Path,
		Form:       form,
	})
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	in := itemInput(r)

	item, err := h.catalog.AddItem(r.Context(), session.FromContext(r.Context()), in)
	if model.IsValidation(err) {
		h.renderInvalidForm(w, r, model.Item{}, in, err)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, itemURL(item), "Added")
}

func (h *Handler) EditItemForm(w http.ResponseWriter, r *http.Request) {
	catID, itemID, ok := itemPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	item, err := h.catalog.ItemForChange(r.Context(), session.FromContext(r.Context()), catID, itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "item_form", view{
		Categories: categories,
		Item:       item,
		Action:     r.URL.Path,
		Form: service.ItemInput{
			Name:        item.Name,
			Description: item.Description,
			Category:    strconv.FormatInt(item.CategoryID, 10),
		},
	})
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	catID, itemID, ok := itemPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	in := itemInput(r)
	item, err := h.catalog.EditItem(r.Context(), session.FromContext(r.Context()), catID, itemID, in)
	if model.IsValidation(err) {
		h.renderInvalidForm(w, r, model.Item{ID: itemID, CategoryID: catID}, in, err)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, itemURL(item), "Edit successful")
}

func (h *Handler) DeleteItemForm(w http.ResponseWriter, r *http.Request) {
	catID, itemID, ok := itemPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	item, err := h.catalog.ItemForChange(r.Context(), session.FromContext(r.Context()), catID, itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "delete_item", view{Item: item, Action: r.URL.Path})
}

// DeleteItem removes the item only when the form confirms with delete=yes.
// Either way the owner lands on the category page.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	catID, itemID, ok := itemPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	sess := session.FromContext(r.Context())
	back := "/category/" + strconv.FormatInt(catID, 10)

	if r.PostFormValue("delete") != "yes" {
		if _, err := h.catalog.ItemForChange(r.Context(), sess, catID, itemID); err != nil {
			h.fail(w, r, err)
			return
		}
		h.redirect(w, r, back, "")
		return
	}

	if _, err := h.catalog.DeleteItem(r.Context(), sess, catID, itemID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.redirect(w, r, back, "Item deleted")
}

// renderInvalidForm shows the add/edit form again with the submitted values
// and the validation message.
func (h *Handler) renderInvalidForm(w http.ResponseWriter, r *http.Request, item model.Item, in service.ItemInput, cause error) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	message := "Invalid values"
	var ve *model.ValidationError
	if errors.As(cause, &ve) && ve.Message != "" {
		message = ve.Message
	}

	h.render(w, r, http.StatusUnprocessableEntity, "item_form", view{
		Categories: categories,
		Item:       item,
		Action:     r.URL.Path,
		Form:       in,
		Error:      message,
	})
}

func itemInput(r *http.Request) service.ItemInput {
	return service.ItemInput{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Category:    r.PostFormValue("category"),
	}
}
