// Package seed populates a running server with demo data through the
// legacy /api surface, the same way the original generator scripts did.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/goblog/apiserver/types"
	"github.com/rs/zerolog/log"
)

const (
	randomUserAPI = "https://randomuser.me/api/?results=%d"

	// The randomuser API throttles clients that fetch pictures too
	// quickly, and the server fetches one per created user.
	userCreateDelay = time.Second
)

// Seeder drives a running goblog server over HTTP.
type Seeder struct {
	baseURL     string
	identityAPI string
	client      *http.Client
}

func New(baseURL string) *Seeder {
	return &Seeder{
		baseURL:     baseURL,
		identityAPI: randomUserAPI,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type randomUserResponse struct {
	Results []struct {
		Email string `json:"email"`
		Login struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"login"`
		Registered struct {
			Date string `json:"date"`
		} `json:"registered"`
		Picture struct {
			Large string `json:"large"`
		} `json:"picture"`
	} `json:"results"`
}

type createUserRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	CreatedAt  string `json:"created_at,omitempty"`
	PictureURL string `json:"picture_url,omitempty"`
}

type createUserResponse struct {
	Success string `json:"success"`
	User    struct {
		UserID   int    `json:"user_id"`
		Username string `json:"username"`
	} `json:"user"`
}

// Users fetches count random identities and registers each one through
// /api/createuser. It returns the ids of the created users.
func (s *Seeder) Users(ctx context.Context, count int) ([]int, error) {
	identities, err := s.fetchIdentities(ctx, count)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(identities))
	for i, identity := range identities {
		if i > 0 {
			select {
			case <-time.After(userCreateDelay):
			case <-ctx.Done():
				return ids, ctx.Err()
			}
		}

		var created createUserResponse
		if err := s.post(ctx, "/api/createuser", identity, &created); err != nil {
			log.Warn().Err(err).Str("username", identity.Username).Msg("seed user failed")
			continue
		}
		log.Info().Int("user_id", created.User.UserID).Str("username", created.User.Username).Msg("seeded user")
		ids = append(ids, created.User.UserID)
	}
	return ids, nil
}

func (s *Seeder) fetchIdentities(ctx context.Context, count int) ([]createUserRequest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(s.identityAPI, count), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch random users: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch random users: unexpected status %d", resp.StatusCode)
	}

	var payload randomUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode random users: %w", err)
	}

	identities := make([]createUserRequest, 0, len(payload.Results))
	for _, result := range payload.Results {
		identity := createUserRequest{
			Username:   result.Login.Username,
			Email:      result.Email,
			Password:   result.Login.Password,
			PictureURL: result.Picture.Large,
		}
		if registered, err := time.Parse(time.RFC3339, result.Registered.Date); err == nil {
			identity.CreatedAt = registered.UTC().Format(types.CreatedAtLayout)
		}
		identities = append(identities, identity)
	}
	return identities, nil
}

type postsFile struct {
	Posts []struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"posts"`
}

type createPostRequest struct {
	UserID int    `json:"user_id"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// Posts reads a {"posts": [...]} file and submits each entry through
// /api/createpost, assigning a random author from userIDs.
func (s *Seeder) Posts(ctx context.Context, path string, userIDs []int) error {
	if len(userIDs) == 0 {
		return fmt.Errorf("no user ids to assign posts to")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read posts file: %w", err)
	}
	var file postsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode posts file: %w", err)
	}

	for _, post := range file.Posts {
		req := createPostRequest{
			UserID: userIDs[rand.Intn(len(userIDs))],
			Title:  post.Title,
			Text:   post.Text,
		}
		if err := s.post(ctx, "/api/createpost", req, nil); err != nil {
			log.Warn().Err(err).Str("title", post.Title).Msg("seed post failed")
			continue
		}
		log.Info().Int("user_id", req.UserID).Str("title", post.Title).Msg("seeded post")
	}
	return nil
}

func (s *Seeder) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(detail))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
