package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goblog/apiserver/internal/services"
	"github.com/goblog/apiserver/internal/store"
	"github.com/goblog/apiserver/types"
)

// LegacyAPIHandler reproduces the original /api surface bit for bit:
// every failure is a 404 carrying {"error": ...} and every success is a
// 200, regardless of the failure's nature. New clients should prefer the
// modern routes; this surface exists for the generator scripts and any
// integrations written against the old service.
type LegacyAPIHandler struct {
	userService *services.UserService
	postService *services.PostService
}

func NewLegacyAPIHandler(userService *services.UserService, postService *services.PostService) *LegacyAPIHandler {
	return &LegacyAPIHandler{
		userService: userService,
		postService: postService,
	}
}

// LegacyAPIRouter registers the /api routes. Static segments must be
// registered alongside the {username} wildcard; chi gives them priority.
func LegacyAPIRouter(r chi.Router, handler *LegacyAPIHandler) {
	r.Get("/getuserposts/{username}", handler.GetUserPosts)
	r.Post("/createuser", handler.CreateUser)
	// TODO: createpost accepts an arbitrary user_id with no auth check;
	// gate it behind RequireAuth once API clients are issued tokens.
	r.Post("/createpost", handler.CreatePost)
	r.Get("/{username}", handler.GetUser)
	r.Delete("/{username}", handler.DeleteUser)
}

// GetUserPosts returns every post by the named user, unpaginated. A user
// without posts gets an informational payload rather than an empty array.
func (h *LegacyAPIHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	posts, err := h.postService.ListAllByUsername(r.Context(), username)
	if err != nil {
		h.fail(w, err, "user not found")
		return
	}
	if len(posts) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"info": "user has no posts yet"})
		return
	}

	payload := make([]map[string]any, 0, len(posts))
	for _, post := range posts {
		payload = append(payload, legacyPostJSON(post))
	}
	writeJSON(w, http.StatusOK, payload)
}

// GetUser returns the legacy user payload, including a post count.
func (h *LegacyAPIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.userService.GetByUsername(r.Context(), username)
	if err != nil {
		h.fail(w, err, "user not found")
		return
	}

	count, err := h.postService.CountByUser(r.Context(), user.ID)
	if err != nil {
		h.fail(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, legacyUserJSON(user, count))
}

// DeleteUser removes the named account and, through the cascade, all of
// its posts.
func (h *LegacyAPIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := h.userService.DeleteByUsername(r.Context(), username); err != nil {
		h.fail(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"success": "Deleted successfully."})
}

// LegacyCreateUserRequest is the createuser payload. picture_url and
// created_at are optional.
type LegacyCreateUserRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	PictureURL string `json:"picture_url"`
	CreatedAt  string `json:"created_at"`
}

func (h *LegacyAPIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req LegacyCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.failMsg(w, "no input data provided")
		return
	}

	user, err := h.userService.Create(r.Context(), services.CreateUserParams{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		CreatedAt:  req.CreatedAt,
		PictureURL: req.PictureURL,
	})
	if err != nil {
		h.fail(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": "User created successfully.",
		"user":    legacyUserJSON(user, 0),
	})
}

// LegacyCreatePostRequest is the createpost payload. created_at is an
// optional "YYYY-MM-DD HH:MM:SS" override.
type LegacyCreatePostRequest struct {
	UserID    int    `json:"user_id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func (h *LegacyAPIHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req LegacyCreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.failMsg(w, "no input data provided")
		return
	}

	post, err := h.postService.Create(r.Context(), services.CreatePostParams{
		AuthorID:  req.UserID,
		Title:     req.Title,
		Text:      req.Text,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		h.fail(w, err, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": "Post created successfully.",
		"post":    legacyPostJSON(post),
	})
}

// fail reports client-caused errors as the legacy 404 payload, keeping
// the validation detail when there is one. Infrastructure failures are
// still server faults.
func (h *LegacyAPIHandler) fail(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.failMsg(w, notFoundMsg)
	case errors.Is(err, services.ErrValidation), errors.Is(err, store.ErrConflict):
		h.failMsg(w, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *LegacyAPIHandler) failMsg(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

func legacyUserJSON(user types.User, postCount int) map[string]any {
	return map[string]any{
		"user_id":     user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"profile_img": user.ProfileImg,
		"created_at":  user.CreatedAt.Format(types.CreatedAtLayout),
		"posts":       postCount,
	}
}

func legacyPostJSON(post types.BlogPost) map[string]any {
	return map[string]any{
		"author":     post.Author,
		"created_at": post.CreatedAt.Format(types.CreatedAtLayout),
		"author_id":  post.UserID,
		"title":      post.Title,
		"text":       strings.TrimSpace(post.Text),
	}
}
