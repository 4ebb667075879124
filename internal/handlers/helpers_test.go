package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goblog/apiserver/internal/services"
	"github.com/goblog/apiserver/internal/storage"
	"github.com/goblog/apiserver/internal/store"
	"github.com/goblog/apiserver/types"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret"
	testTokenTTL = time.Hour
)

// memUserRepo is an in-memory services.UserRepository with the store's
// uniqueness behavior.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (m *memUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
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
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memUserRepo) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// memPostRepo is an in-memory services.PostRepository preserving the feed
// ordering.
type memPostRepo struct {
	mu     sync.Mutex
	nextID int
	posts  []types.BlogPost
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{nextID: 1}
}

func (m *memPostRepo) GetByID(_ context.Context, id int) (types.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, post := range m.posts {
		if post.ID == id {
			return post, nil
		}
	}
	return types.BlogPost{}, store.ErrNotFound
}

func (m *memPostRepo) Create(_ context.Context, post types.BlogPost) (types.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.ID = m.nextID
	m.nextID++
	m.posts = append(m.posts, post)
	return post, nil
}

func (m *memPostRepo) ordered() []types.BlogPost {
	out := make([]types.BlogPost, len(m.posts))
	copy(out, m.posts)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			a, b := out[i], out[j]
			if b.CreatedAt.After(a.CreatedAt) || (b.CreatedAt.Equal(a.CreatedAt) && b.ID < a.ID) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (m *memPostRepo) ListAll(_ context.Context, offset, limit int) ([]types.BlogPost, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.ordered()
	return clamp(all, offset, limit), len(all), nil
}

func (m *memPostRepo) ListByUser(_ context.Context, userID, offset, limit int) ([]types.BlogPost, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []types.BlogPost
	for _, post := range m.ordered() {
		if post.UserID == userID {
			mine = append(mine, post)
		}
	}
	return clamp(mine, offset, limit), len(mine), nil
}

func (m *memPostRepo) ListAllByUser(_ context.Context, userID int) ([]types.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []types.BlogPost
	for _, post := range m.ordered() {
		if post.UserID == userID {
			mine = append(mine, post)
		}
	}
	return mine, nil
}

func (m *memPostRepo) CountByUser(_ context.Context, userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, post := range m.posts {
		if post.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *memPostRepo) Update(_ context.Context, post types.BlogPost) (types.BlogPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.posts {
		if existing.ID == post.ID {
			m.posts[i] = post
			return post, nil
		}
	}
	return types.BlogPost{}, store.ErrNotFound
}

func (m *memPostRepo) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.posts {
		if existing.ID == id {
			m.posts = append(m.posts[:i], m.posts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func clamp(posts []types.BlogPost, offset, limit int) []types.BlogPost {
	if offset >= len(posts) {
		return []types.BlogPost{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}

// memObjectStorage backs the avatar service in tests.
type memObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: map[string][]byte{}}
}

func (m *memObjectStorage) EnsureBucket(context.Context) error { return nil }

func (m *memObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjectStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjectStorage) Bucket() string { return "test" }

// testApp wires the full route tree over in-memory repositories, matching
// the production server's layout.
type testApp struct {
	router  *chi.Mux
	users   *memUserRepo
	posts   *memPostRepo
	objects *memObjectStorage
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	users := newMemUserRepo()
	posts := newMemPostRepo()
	objects := newMemObjectStorage()

	avatarService := services.NewAvatarService(users, storage.NewStorage(objects))
	userService := services.NewUserService(users, avatarService, nil)
	postService := services.NewPostService(posts, users, nil)

	authHandler := NewAuthHandler(userService, testSecret, testTokenTTL)
	postHandler := NewPostHandler(postService)
	accountHandler := NewAccountHandler(userService, avatarService)
	legacyHandler := NewLegacyAPIHandler(userService, postService)

	authMiddleware := RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authHandler)
	})
	router.Route("/posts", func(r chi.Router) {
		PostRouter(r, postHandler, authMiddleware)
	})
	router.Route("/account", func(r chi.Router) {
		AccountRouter(r, accountHandler, authMiddleware)
	})
	router.Get("/users/{username}/posts", postHandler.ListUserPosts)
	router.Get("/users/{username}/picture", accountHandler.GetPicture)
	router.Route("/api", func(r chi.Router) {
		LegacyAPIRouter(r, legacyHandler)
	})

	return &testApp{router: router, users: users, posts: posts, objects: objects}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the HTTP surface and returns the
// issued token and user.
func (a *testApp) register(t *testing.T, username, email, password string) (string, types.User) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.User
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}
