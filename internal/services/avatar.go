package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goblog/apiserver/internal/storage"
	"github.com/goblog/apiserver/types"
)

const (
	// avatarMaxDim is the bounding box profile pictures are shrunk into.
	avatarMaxDim = 200

	maxImageBytes = 8 << 20
	fetchTimeout  = 15 * time.Second
)

// avatarContentTypes lists the accepted image types and their wire
// content types.
var avatarContentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// AvatarService fetches, resizes, and stores profile pictures. Stored
// objects are keyed "<username>.<ext>"; re-uploading overwrites the
// previous picture in place.
type AvatarService struct {
	users  UserRepository
	store  *storage.Storage
	client *http.Client
}

func NewAvatarService(users UserRepository, store *storage.Storage) *AvatarService {
	return &AvatarService{
		users:  users,
		store:  store,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// SetFromUpload resizes an uploaded image and assigns it to the user's
// account. The upload's extension decides the stored format; anything but
// jpg/png is rejected before any bytes are read.
func (s *AvatarService) SetFromUpload(ctx context.Context, userID int, filename string, r io.Reader) (types.User, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	contentType, ok := avatarContentTypes[ext]
	if !ok {
		return types.User{}, fmt.Errorf("%w: only jpg and png images are allowed", ErrValidation)
	}

	data, err := readLimited(r)
	if err != nil {
		return types.User{}, err
	}

	thumb, err := thumbnail(data, ext)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	key := user.Username + "." + ext
	if err := s.store.Put(ctx, key, bytes.NewReader(thumb), int64(len(thumb)), contentType); err != nil {
		return types.User{}, err
	}

	user.ProfileImg = key
	return s.users.Update(ctx, user)
}

// FromURL downloads an image, resizes it, and stores it under the given
// username, returning the stored filename. The caller is responsible for
// attaching the filename to a user row; the legacy createuser flow calls
// this before the insert so the account never exists without its picture.
func (s *AvatarService) FromURL(ctx context.Context, username, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: invalid picture_url", ErrValidation)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch picture: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch picture: unexpected status %d", resp.StatusCode)
	}

	data, err := readLimited(resp.Body)
	if err != nil {
		return "", err
	}

	mtype := mimetype.Detect(data)
	ext := strings.TrimPrefix(mtype.Extension(), ".")
	if _, ok := avatarContentTypes[ext]; !ok {
		return "", fmt.Errorf("%w: picture_url must point to a jpg or png image", ErrValidation)
	}

	thumb, err := thumbnail(data, ext)
	if err != nil {
		return "", err
	}

	key := username + "." + ext
	if err := s.store.Put(ctx, key, bytes.NewReader(thumb), int64(len(thumb)), mtype.String()); err != nil {
		return "", err
	}
	return key, nil
}

// Open streams a stored profile image, returning its content type.
func (s *AvatarService) Open(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	contentType, ok := avatarContentTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}
	r, err := s.store.Get(ctx, filename)
	if err != nil {
		return nil, "", err
	}
	return r, contentType, nil
}

// thumbnail shrinks the image to fit avatarMaxDim on its longest side,
// preserving aspect ratio and never upscaling.
func thumbnail(data []byte, ext string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode image", ErrValidation)
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported image type %q", ErrValidation, ext)
	}

	fitted := imaging.Fit(img, avatarMaxDim, avatarMaxDim, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrValidation, maxImageBytes)
	}
	return data, nil
}
