package linkedin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/config"
	"github.com/spotlighthq/spotlight/internal/models"
	"github.com/spotlighthq/spotlight/internal/service/publisher"
	"github.com/spotlighthq/spotlight/internal/store"
)

// stubStore covers the one store method the publisher touches.
type stubStore struct {
	store.Store

	mu    sync.Mutex
	saved *models.User
}

func (s *stubStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *user
	s.saved = &clone
	return nil
}

func (s *stubStore) savedUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

type requestLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *requestLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *requestLog) count(entry string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e == entry {
			n++
		}
	}
	return n
}

func linkedinUser() *models.User {
	return &models.User{
		ID:                   1,
		Email:                "user@example.com",
		FullName:             "Test User",
		LinkedInAuthorURN:    "urn:li:person:abc",
		LinkedInAccessToken:  "old-token",
		LinkedInRefreshToken: "refresh-token",
	}
}

func TestPublishWithVideoUpload(t *testing.T) {
	log := &requestLog{}
	var registerBody, ugcBody map[string]any

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("GET /media.mp4", func(w http.ResponseWriter, r *http.Request) {
		log.add("download")
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("fake video bytes"))
	})
	mux.HandleFunc("POST /v2/assets", func(w http.ResponseWriter, r *http.Request) {
		log.add("register")
		assert.Equal(t, "Bearer old-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&registerBody))
		json.NewEncoder(w).Encode(map[string]any{
			"value": map[string]any{
				"asset": "urn:li:digitalmediaAsset:xyz",
				"uploadMechanism": map[string]any{
					"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest": map[string]any{
						"uploadUrl": server.URL + "/upload",
					},
				},
			},
		})
	})
	mux.HandleFunc("PUT /upload", func(w http.ResponseWriter, r *http.Request) {
		log.add("upload")
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "fake video bytes", string(body))
		assert.Equal(t, "video/mp4", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		log.add("ugc")
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ugcBody))
		json.NewEncoder(w).Encode(map[string]any{"id": "urn:li:share:123"})
	})

	cfg := &config.LinkedInConfig{APIBaseURL: server.URL}
	pub := NewPublisher(cfg, &stubStore{}, zap.NewNop())

	result, err := pub.Publish(context.Background(), linkedinUser(), publisher.Request{
		Title:    "Topic A",
		Content:  "post text",
		MediaURL: server.URL + "/media.mp4",
		MediaAlt: "Topic A",
	})
	require.NoError(t, err)

	assert.Equal(t, "urn:li:share:123", result.PostID)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:share:123", result.URL)
	assert.Equal(t, []string{"download", "register", "upload", "ugc"}, log.entries)

	register := registerBody["registerUploadRequest"].(map[string]any)
	assert.Equal(t, "urn:li:person:abc", register["owner"])
	assert.Equal(t, []any{"urn:li:digitalmediaRecipe:feedshare-video"}, register["recipes"])

	share := ugcBody["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
	assert.Equal(t, "VIDEO", share["shareMediaCategory"])
	media := share["media"].([]any)[0].(map[string]any)
	assert.Equal(t, "urn:li:digitalmediaAsset:xyz", media["media"])
	assert.Equal(t, "urn:li:person:abc", ugcBody["author"])
}

func TestPublishTextOnlySkipsUpload(t *testing.T) {
	log := &requestLog{}
	var ugcBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		log.add("ugc")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ugcBody))
		json.NewEncoder(w).Encode(map[string]any{"id": "urn:li:share:9"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.add("unexpected:" + r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := &config.LinkedInConfig{APIBaseURL: server.URL}
	pub := NewPublisher(cfg, &stubStore{}, zap.NewNop())

	result, err := pub.Publish(context.Background(), linkedinUser(), publisher.Request{
		Title:   "Topic A",
		Content: "text only",
	})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:9", result.PostID)

	assert.Equal(t, []string{"ugc"}, log.entries)
	share := ugcBody["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
	assert.Equal(t, "NONE", share["shareMediaCategory"])
	assert.Nil(t, share["media"])
}

func TestPublishRefreshesExpiredTokenOnce(t *testing.T) {
	log := &requestLog{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		log.add("token")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-token",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "new-refresh",
		})
	})
	mux.HandleFunc("POST /v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		log.add("ugc")
		if r.Header.Get("Authorization") != "Bearer new-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "urn:li:share:55"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := &config.LinkedInConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		APIBaseURL:   server.URL,
		TokenURL:     server.URL + "/oauth/token",
	}
	st := &stubStore{}
	pub := NewPublisher(cfg, st, zap.NewNop())

	user := linkedinUser()
	result, err := pub.Publish(context.Background(), user, publisher.Request{Content: "text"})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:55", result.PostID)

	assert.Equal(t, 1, log.count("token"))
	assert.Equal(t, 2, log.count("ugc"))

	// Refreshed credentials are persisted
	saved := st.savedUser()
	require.NotNil(t, saved)
	assert.Equal(t, "new-token", saved.LinkedInAccessToken)
	assert.Equal(t, "new-refresh", saved.LinkedInRefreshToken)
}

func TestPublishFailsWhenTokenStaysRejected(t *testing.T) {
	log := &requestLog{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		log.add("token")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "still-bad",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("POST /v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		log.add("ugc")
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := &config.LinkedInConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		APIBaseURL:   server.URL,
		TokenURL:     server.URL + "/oauth/token",
	}
	pub := NewPublisher(cfg, &stubStore{}, zap.NewNop())

	_, err := pub.Publish(context.Background(), linkedinUser(), publisher.Request{Content: "text"})
	require.Error(t, err)

	// Exactly one refresh, no infinite retry loop
	assert.Equal(t, 1, log.count("token"))
	assert.Equal(t, 2, log.count("ugc"))
}

func TestPublishRejectsUnconnectedUser(t *testing.T) {
	pub := NewPublisher(&config.LinkedInConfig{}, &stubStore{}, zap.NewNop())

	user := linkedinUser()
	user.LinkedInAccessToken = ""
	_, err := pub.Publish(context.Background(), user, publisher.Request{Content: "text"})
	assert.ErrorContains(t, err, "access token")

	user = linkedinUser()
	user.LinkedInAuthorURN = ""
	_, err = pub.Publish(context.Background(), user, publisher.Request{Content: "text"})
	assert.ErrorContains(t, err, "author urn")
}

func TestImageUploadUsesImageRecipe(t *testing.T) {
	var registerBody map[string]any

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("GET /media.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png bytes"))
	})
	mux.HandleFunc("POST /v2/assets", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&registerBody))
		json.NewEncoder(w).Encode(map[string]any{
			"value": map[string]any{
				"asset": "urn:li:digitalmediaAsset:img",
				"uploadMechanism": map[string]any{
					"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest": map[string]any{
						"uploadUrl": server.URL + "/upload",
					},
				},
			},
		})
	})
	mux.HandleFunc("PUT /upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	cfg := &config.LinkedInConfig{APIBaseURL: server.URL}
	pub := NewPublisher(cfg, &stubStore{}, zap.NewNop())

	urn, category, err := pub.uploadMedia(context.Background(), linkedinUser(), server.URL+"/media.png")
	require.NoError(t, err)
	assert.Equal(t, "urn:li:digitalmediaAsset:img", urn)
	assert.Equal(t, "IMAGE", category)

	register := registerBody["registerUploadRequest"].(map[string]any)
	assert.Equal(t, []any{"urn:li:digitalmediaRecipe:feedshare-image"}, register["recipes"])
}
