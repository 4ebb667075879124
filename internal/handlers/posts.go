package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goblog/apiserver/internal/services"
)

// PostHandler provides HTTP handlers for the site's post surface: the
// paginated feeds and the authenticated CRUD flow.
type PostHandler struct {
	postService *services.PostService
}

func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostRouter registers post routes on the given router.
func PostRouter(r chi.Router, handler *PostHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/", handler.ListFeed)
	r.With(authMiddleware).Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.With(authMiddleware).Put("/", handler.UpdatePost)
		r.With(authMiddleware).Delete("/", handler.DeletePost)
	})
}

// ListFeed serves the site-wide feed, five posts per page, newest first.
func (h *PostHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.postService.ListFeed(r.Context(), page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListUserPosts serves one user's posts, paginated like the feed.
func (h *PostHandler) ListUserPosts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	username := chi.URLParam(r, "username")
	result, err := h.postService.ListByUsername(r.Context(), username, page)
	if err != nil {
		writeDomainError(w, err, "user not found", "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostUpsertRequest is the JSON payload for creating or updating a post.
type PostUpsertRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// CreatePost creates a post authored by the authenticated user.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PostUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.postService.Create(r.Context(), services.CreatePostParams{
		AuthorID: userID,
		Title:    req.Title,
		Text:     req.Text,
	})
	if err != nil {
		writeDomainError(w, err, "user not found", "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "post not found", "failed to fetch post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// UpdatePost replaces the post's title and text. Author only.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req PostUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.postService.Update(r.Context(), userID, id, req.Title, req.Text)
	if err != nil {
		writeDomainError(w, err, "post not found", "failed to update post")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeletePost removes the post. Author only.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parsePostID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.postService.Delete(r.Context(), userID, id); err != nil {
		writeDomainError(w, err, "post not found", "failed to delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
