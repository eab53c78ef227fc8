package http

import "net/http"

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "categories.list", newCategoryWithTopicsViews(categories))
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.categories.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "categories.get", newCategoryView(category))
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	category, err := h.categories.Create(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusCreated, "categories.create", newCategoryView(category))
}

func (h *Handler) renameCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	category, err := h.categories.Rename(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "categories.update", newCategoryView(category))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.categories.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "categories.delete", newCategoryView(category))
}
