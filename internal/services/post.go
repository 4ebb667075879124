package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goblog/apiserver/internal/events"
	"github.com/goblog/apiserver/internal/store"
	"github.com/goblog/apiserver/types"
	"github.com/rs/zerolog/log"
)

// FeedPageSize is the fixed page size for site feeds. The legacy
// getuserposts API intentionally ignores it and returns full lists.
const FeedPageSize = 5

// PostRepository defines persistence operations for blog posts.
type PostRepository interface {
	GetByID(ctx context.Context, id int) (types.BlogPost, error)
	Create(ctx context.Context, post types.BlogPost) (types.BlogPost, error)
	ListAll(ctx context.Context, offset, limit int) ([]types.BlogPost, int, error)
	ListByUser(ctx context.Context, userID, offset, limit int) ([]types.BlogPost, int, error)
	ListAllByUser(ctx context.Context, userID int) ([]types.BlogPost, error)
	CountByUser(ctx context.Context, userID int) (int, error)
	Update(ctx context.Context, post types.BlogPost) (types.BlogPost, error)
	Delete(ctx context.Context, id int) error
}

// PostService encapsulates blog post use-cases.
type PostService struct {
	repo      PostRepository
	users     UserRepository
	publisher events.Publisher
}

func NewPostService(repo PostRepository, users UserRepository, publisher events.Publisher) *PostService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PostService{repo: repo, users: users, publisher: publisher}
}

// Page is one bounded slice of an ordered post listing. Pages are 1-based;
// a page past the end carries an empty Items slice.
type Page struct {
	Items []types.BlogPost `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int              `json:"total"`
}

// CreatePostParams carries the fields accepted at post creation. CreatedAt
// is an optional "YYYY-MM-DD HH:MM:SS" override.
type CreatePostParams struct {
	AuthorID  int
	Title     string
	Text      string
	CreatedAt string
}

// Create validates and inserts a post. The author id must resolve to an
// existing user; a post cannot exist without its author.
func (s *PostService) Create(ctx context.Context, params CreatePostParams) (types.BlogPost, error) {
	params.Title = strings.TrimSpace(params.Title)
	if params.Title == "" || strings.TrimSpace(params.Text) == "" {
		return types.BlogPost{}, fmt.Errorf("%w: title and text are required", ErrValidation)
	}
	if utf8.RuneCountInString(params.Title) > types.MaxTitleLen {
		return types.BlogPost{}, fmt.Errorf("%w: title exceeds %d characters", ErrValidation, types.MaxTitleLen)
	}

	author, err := s.users.GetByID(ctx, params.AuthorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.BlogPost{}, fmt.Errorf("%w: user_id %d does not exist", ErrValidation, params.AuthorID)
		}
		return types.BlogPost{}, err
	}

	post := types.BlogPost{
		UserID: author.ID,
		Author: author.Username,
		Title:  params.Title,
		Text:   params.Text,
	}

	if params.CreatedAt != "" {
		createdAt, err := ParseCreatedAt(params.CreatedAt)
		if err != nil {
			return types.BlogPost{}, err
		}
		post.CreatedAt = createdAt
	}

	created, err := s.repo.Create(ctx, post)
	if err != nil {
		return types.BlogPost{}, err
	}

	s.publish(ctx, events.Event{Name: events.PostCreated, Subject: strconv.Itoa(created.ID)})
	return created, nil
}

func (s *PostService) Get(ctx context.Context, id int) (types.BlogPost, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFeed returns one page of the site-wide feed, newest first.
func (s *PostService) ListFeed(ctx context.Context, page int) (Page, error) {
	offset, limit := pageWindow(page)
	items, total, err := s.repo.ListAll(ctx, offset, limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Page: normalizePage(page), Limit: limit, Total: total}, nil
}

// ListByUsername returns one page of the named user's posts. A user with
// no posts yields an empty page, not an error; an unknown user yields
// store.ErrNotFound.
func (s *PostService) ListByUsername(ctx context.Context, username string, page int) (Page, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return Page{}, err
	}
	offset, limit := pageWindow(page)
	items, total, err := s.repo.ListByUser(ctx, user.ID, offset, limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Page: normalizePage(page), Limit: limit, Total: total}, nil
}

// ListAllByUsername returns every post by the named user, unpaginated.
func (s *PostService) ListAllByUsername(ctx context.Context, username string) ([]types.BlogPost, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAllByUser(ctx, user.ID)
}

// Update replaces the post's title and text. Only the author may call it;
// anyone else gets ErrNotAuthor and the post stays untouched.
func (s *PostService) Update(ctx context.Context, actorID, postID int, title, text string) (types.BlogPost, error) {
	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return types.BlogPost{}, err
	}
	if post.UserID != actorID {
		return types.BlogPost{}, ErrNotAuthor
	}

	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(text) == "" {
		return types.BlogPost{}, fmt.Errorf("%w: title and text are required", ErrValidation)
	}
	if utf8.RuneCountInString(title) > types.MaxTitleLen {
		return types.BlogPost{}, fmt.Errorf("%w: title exceeds %d characters", ErrValidation, types.MaxTitleLen)
	}

	post.Title = title
	post.Text = text
	return s.repo.Update(ctx, post)
}

// Delete removes the post. Only the author may call it.
func (s *PostService) Delete(ctx context.Context, actorID, postID int) error {
	post, err := s.repo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		return ErrNotAuthor
	}
	return s.repo.Delete(ctx, post.ID)
}

// CountByUser returns how many posts the user has authored.
func (s *PostService) CountByUser(ctx context.Context, userID int) (int, error) {
	return s.repo.CountByUser(ctx, userID)
}

func (s *PostService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", event.Name).Msg("event publish failed")
	}
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func pageWindow(page int) (offset, limit int) {
	return (normalizePage(page) - 1) * FeedPageSize, FeedPageSize
}
