package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/goblog/apiserver/internal/services"
	"github.com/goblog/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	app := newTestApp(t)
	token, user := app.register(t, "ana", "ana@example.com", "pw")

	rec := app.do(t, http.MethodPost, "/posts", token, PostUpsertRequest{
		Title: "Hello",
		Text:  "first post",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post types.BlogPost
	decodeJSON(t, rec, &post)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "ana", post.Author)
	assert.Equal(t, user.ID, post.UserID)
}

func TestCreatePostRequiresAuth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/posts", "", PostUpsertRequest{Title: "t", Text: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePostValidation(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "ana", "ana@example.com", "pw")

	rec := app.do(t, http.MethodPost, "/posts", token, PostUpsertRequest{Title: "no text"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPost(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "ana", "ana@example.com", "pw")

	rec := app.do(t, http.MethodPost, "/posts", token, PostUpsertRequest{Title: "t", Text: "x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.BlogPost
	decodeJSON(t, rec, &created)

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/posts/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/posts/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/posts/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedPagination(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "ana", "ana@example.com", "pw")

	for i := 0; i < 7; i++ {
		rec := app.do(t, http.MethodPost, "/posts", token, PostUpsertRequest{
			Title: fmt.Sprintf("post %d", i),
			Text:  "body",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := app.do(t, http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page services.Page
	decodeJSON(t, rec, &page)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, services.FeedPageSize, page.Limit)
	assert.Equal(t, 7, page.Total)
	assert.Len(t, page.Items, 5)

	rec = app.do(t, http.MethodGet, "/posts?page=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	assert.Len(t, page.Items, 2)

	rec = app.do(t, http.MethodGet, "/posts?page=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	assert.Empty(t, page.Items)
	assert.Equal(t, 7, page.Total)

	rec = app.do(t, http.MethodGet, "/posts?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/posts?page=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUserPosts(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "ana", "ana@example.com", "pw")
	app.register(t, "bo", "bo@example.com", "pw")

	rec := app.do(t, http.MethodPost, "/posts", token, PostUpsertRequest{Title: "mine", Text: "x"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(t, http.MethodGet, "/users/ana/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page services.Page
	decodeJSON(t, rec, &page)
	assert.Equal(t, 1, page.Total)

	// a user with no posts is an empty page, not an error
	rec = app.do(t, http.MethodGet, "/users/bo/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &page)
	assert.Empty(t, page.Items)

	rec = app.do(t, http.MethodGet, "/users/ghost/posts", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdatePostAuthorOnly(t *testing.T) {
	app := newTestApp(t)
	anaToken, _ := app.register(t, "ana", "ana@example.com", "pw")
	boToken, _ := app.register(t, "bo", "bo@example.com", "pw")

	rec := app.do(t, http.MethodPost, "/posts", anaToken, PostUpsertRequest{Title: "orig", Text: "body"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.BlogPost
	decodeJSON(t, rec, &created)
	path := fmt.Sprintf("/posts/%d", created.ID)

	rec = app.do(t, http.MethodPut, path, boToken, PostUpsertRequest{Title: "hacked", Text: "gone"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, path, "", nil)
	var unchanged types.BlogPost
	decodeJSON(t, rec, &unchanged)
	assert.Equal(t, "orig", unchanged.Title)

	rec = app.do(t, http.MethodPut, path, anaToken, PostUpsertRequest{Title: "new", Text: "new body"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated types.BlogPost
	decodeJSON(t, rec, &updated)
	assert.Equal(t, "new", updated.Title)
}

func TestDeletePostAuthorOnly(t *testing.T) {
	app := newTestApp(t)
	anaToken, _ := app.register(t, "ana", "ana@example.com", "pw")
	boToken, _ := app.register(t, "bo", "bo@example.com", "pw")

	rec := app.do(t, http.MethodPost, "/posts", anaToken, PostUpsertRequest{Title: "t", Text: "x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created types.BlogPost
	decodeJSON(t, rec, &created)
	path := fmt.Sprintf("/posts/%d", created.ID)

	rec = app.do(t, http.MethodDelete, path, boToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodDelete, path, anaToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodDelete, path, anaToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
