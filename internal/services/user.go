package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goblog/apiserver/internal/events"
	"github.com/goblog/apiserver/internal/store"
	"github.com/goblog/apiserver/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// PictureFetcher turns a remote image URL into a stored profile image
// filename for the given username.
type PictureFetcher interface {
	FromURL(ctx context.Context, username, rawURL string) (string, error)
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo      UserRepository
	pictures  PictureFetcher
	publisher events.Publisher
}

func NewUserService(repo UserRepository, pictures PictureFetcher, publisher events.Publisher) *UserService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &UserService{repo: repo, pictures: pictures, publisher: publisher}
}

// CreateUserParams carries the fields accepted at account creation.
// CreatedAt and PictureURL are optional and only reachable through the
// legacy create API.
type CreateUserParams struct {
	Username   string
	Email      string
	Password   string
	CreatedAt  string
	PictureURL string
}

// Register creates an account from the interactive registration flow.
func (s *UserService) Register(ctx context.Context, email, username, password string) (types.User, error) {
	return s.Create(ctx, CreateUserParams{Username: username, Email: email, Password: password})
}

// Create hashes the password and inserts the account row. When a picture
// URL is given the image is fetched, resized, and stored before the insert
// so the row never exists without its image. Duplicate email or username
// surfaces as store.ErrConflict.
func (s *UserService) Create(ctx context.Context, params CreateUserParams) (types.User, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)
	if params.Username == "" || params.Email == "" || params.Password == "" {
		return types.User{}, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}

	user := types.User{
		Username: params.Username,
		Email:    params.Email,
	}

	if params.CreatedAt != "" {
		createdAt, err := ParseCreatedAt(params.CreatedAt)
		if err != nil {
			return types.User{}, err
		}
		user.CreatedAt = createdAt
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = string(hashed)

	if params.PictureURL != "" {
		if s.pictures == nil {
			return types.User{}, fmt.Errorf("%w: picture_url is not supported", ErrValidation)
		}
		filename, err := s.pictures.FromURL(ctx, user.Username, params.PictureURL)
		if err != nil {
			return types.User{}, err
		}
		user.ProfileImg = filename
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.publish(ctx, events.Event{Name: events.UserCreated, Subject: created.Username})
	return created, nil
}

// Authenticate checks credentials for the login flow. Unknown emails and
// wrong passwords fail with distinct errors, matching the messages the
// site has always shown.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrEmailNotRegistered
		}
		return types.User{}, err
	}
	if !VerifyPassword(user, password) {
		return types.User{}, ErrInvalidPassword
	}
	return user, nil
}

// VerifyPassword reports whether plaintext matches the user's stored hash.
func VerifyPassword(user types.User, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}

// UpdateUserParams carries the optional account-update fields. Nil means
// "leave unchanged".
type UpdateUserParams struct {
	Username *string
	Email    *string
}

// Update applies a partial account update. The same uniqueness constraints
// as registration apply to the changed fields.
func (s *UserService) Update(ctx context.Context, userID int, params UpdateUserParams) (types.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	changed := false
	if params.Username != nil && *params.Username != user.Username {
		if strings.TrimSpace(*params.Username) == "" {
			return types.User{}, fmt.Errorf("%w: username cannot be empty", ErrValidation)
		}
		user.Username = strings.TrimSpace(*params.Username)
		changed = true
	}
	if params.Email != nil && *params.Email != user.Email {
		if strings.TrimSpace(*params.Email) == "" {
			return types.User{}, fmt.Errorf("%w: email cannot be empty", ErrValidation)
		}
		user.Email = strings.TrimSpace(*params.Email)
		changed = true
	}
	if !changed {
		return types.User{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	return s.repo.Update(ctx, user)
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// DeleteByUsername removes the account. The database cascades the delete
// to the user's posts in the same statement, so no reader can observe the
// user gone with posts left behind.
func (s *UserService) DeleteByUsername(ctx context.Context, username string) error {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}

	s.publish(ctx, events.Event{Name: events.UserDeleted, Subject: user.Username})
	return nil
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", event.Name).Msg("event publish failed")
	}
}
