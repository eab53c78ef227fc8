package http

import "net/http"

type topicRequest struct {
	Title string `json:"title"`
}

type notesRequest struct {
	Content *string `json:"content"`
}

func (h *Handler) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.List(r.Context(), r.PathValue("categoryId"), r.URL.Query().Get("title"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "topics.list", newTopicSummaryViews(topics))
}

func (h *Handler) getTopic(w http.ResponseWriter, r *http.Request) {
	view, err := h.topics.Get(r.Context(), r.PathValue("categoryId"), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "topics.get", newTopicDetailView(view))
}

func (h *Handler) createTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	topic, err := h.topics.Create(r.Context(), r.PathValue("categoryId"), req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusCreated, "topics.create", newTopicView(topic))
}

func (h *Handler) renameTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	topic, err := h.topics.Rename(r.Context(), r.PathValue("categoryId"), r.PathValue("id"), req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "topics.update", newTopicView(topic))
}

func (h *Handler) deleteTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := h.topics.Delete(r.Context(), r.PathValue("categoryId"), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "topics.delete", newTopicView(topic))
}

func (h *Handler) getNotes(w http.ResponseWriter, r *http.Request) {
	content, err := h.topics.Notes(r.Context(), r.PathValue("categoryId"), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "notes.get", content)
}

// updateNotes answers once the text is stored. Narration failures are
// reported only through the returned audio reference.
func (h *Handler) updateNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.topics.UpdateNotes(r.Context(), r.PathValue("categoryId"), r.PathValue("id"), req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeOK(w, r, http.StatusOK, "notes.update", newNotesView(result))
}
