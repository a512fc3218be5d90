package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stagehand-music/stagehand/internal/domain"
	"github.com/stagehand-music/stagehand/internal/storage"
)

// BlogHandler handles blog post endpoints.
type BlogHandler struct {
	store storage.Storage
}

// NewBlogHandler creates a new BlogHandler.
func NewBlogHandler(store storage.Storage) *BlogHandler {
	return &BlogHandler{store: store}
}

// Create creates a new post.
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBlogPostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	post := &domain.BlogPost{
		ID:        generateID(),
		Title:     req.Title,
		Body:      req.Body,
		Author:    req.Author,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.CreateBlogPost(r.Context(), post); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

// List lists posts, newest first.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.ListBlogPosts(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// Get gets a post by ID.
func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetBlogPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Update applies the fields present in the request to a post.
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetBlogPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req domain.UpdateBlogPostRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	setString(&post.Title, req.Title)
	setString(&post.Body, req.Body)
	setString(&post.Author, req.Author)

	if err := h.store.UpdateBlogPost(r.Context(), post); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Delete deletes a post.
func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteBlogPost(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
