package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goblog/apiserver/internal/events"
	"github.com/goblog/apiserver/internal/store"
	"github.com/goblog/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository with the same uniqueness
// behavior as the real one.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, fmt.Errorf("%w: email already registered", store.ErrConflict)
		}
		if existing.Username == user.Username {
			return types.User{}, fmt.Errorf("%w: username already registered", store.ErrConflict)
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.ProfileImg == "" {
		user.ProfileImg = types.DefaultProfileImg
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// fakePostRepo is an in-memory PostRepository preserving the feed order
// (created_at descending, id ascending on ties).
type fakePostRepo struct {
	mu     sync.Mutex
	nextID int
	posts  []types.BlogPost
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{nextID: 1}
}

func (f *fakePostRepo) GetByID(_ context.Context, id int) (types.BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, post := range f.posts {
		if post.ID == id {
			return post, nil
		}
	}
	return types.BlogPost{}, store.ErrNotFound
}

func (f *fakePostRepo) Create(_ context.Context, post types.BlogPost) (types.BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.ID = f.nextID
	f.nextID++
	f.posts = append(f.posts, post)
	return post, nil
}

func (f *fakePostRepo) ordered() []types.BlogPost {
	out := make([]types.BlogPost, len(f.posts))
	copy(out, f.posts)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			a, b := out[i], out[j]
			swap := false
			if b.CreatedAt.After(a.CreatedAt) {
				swap = true
			} else if b.CreatedAt.Equal(a.CreatedAt) && b.ID < a.ID {
				swap = true
			}
			if swap {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (f *fakePostRepo) ListAll(_ context.Context, offset, limit int) ([]types.BlogPost, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.ordered()
	return window(all, offset, limit), len(all), nil
}

func (f *fakePostRepo) ListByUser(_ context.Context, userID, offset, limit int) ([]types.BlogPost, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []types.BlogPost
	for _, post := range f.ordered() {
		if post.UserID == userID {
			mine = append(mine, post)
		}
	}
	return window(mine, offset, limit), len(mine), nil
}

func (f *fakePostRepo) ListAllByUser(_ context.Context, userID int) ([]types.BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []types.BlogPost
	for _, post := range f.ordered() {
		if post.UserID == userID {
			mine = append(mine, post)
		}
	}
	return mine, nil
}

func (f *fakePostRepo) CountByUser(_ context.Context, userID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, post := range f.posts {
		if post.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakePostRepo) Update(_ context.Context, post types.BlogPost) (types.BlogPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.posts {
		if existing.ID == post.ID {
			f.posts[i] = post
			return post, nil
		}
	}
	return types.BlogPost{}, store.ErrNotFound
}

func (f *fakePostRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.posts {
		if existing.ID == id {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func window(posts []types.BlogPost, offset, limit int) []types.BlogPost {
	if offset >= len(posts) {
		return []types.BlogPost{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Name)
	}
	return out
}
