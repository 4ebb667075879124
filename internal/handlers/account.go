package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goblog/apiserver/internal/services"
)

const (
	maxPictureMemory = 8 << 20
	formFieldPicture = "picture"
)

// AccountHandler serves the authenticated account flows (profile update,
// picture upload) and public profile image reads.
type AccountHandler struct {
	userService   *services.UserService
	avatarService *services.AvatarService
}

func NewAccountHandler(userService *services.UserService, avatarService *services.AvatarService) *AccountHandler {
	return &AccountHandler{
		userService:   userService,
		avatarService: avatarService,
	}
}

// AccountRouter registers the authenticated account routes.
func AccountRouter(r chi.Router, handler *AccountHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Put("/", handler.UpdateAccount)
	r.With(authMiddleware).Put("/picture", handler.UpdatePicture)
}

// UpdateAccountRequest carries the optional account fields; absent fields
// are left unchanged.
type UpdateAccountRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// UpdateAccount applies a partial username/email update for the
// authenticated user.
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Update(r.Context(), userID, services.UpdateUserParams{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		writeDomainError(w, err, "user not found", "failed to update account")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdatePicture accepts a multipart "picture" upload (jpg/png), resizes
// it, and attaches it to the authenticated user's account.
func (h *AccountHandler) UpdatePicture(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxPictureMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldPicture)
	if err != nil {
		writeError(w, http.StatusBadRequest, "picture file is required")
		return
	}
	defer file.Close()

	user, err := h.avatarService.SetFromUpload(r.Context(), userID, header.Filename, file)
	if err != nil {
		writeDomainError(w, err, "user not found", "failed to store picture")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetPicture streams the named user's stored profile image.
func (h *AccountHandler) GetPicture(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.userService.GetByUsername(r.Context(), username)
	if err != nil {
		writeDomainError(w, err, "user not found", "failed to load user")
		return
	}

	reader, contentType, err := h.avatarService.Open(r.Context(), user.ProfileImg)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile image not found")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
