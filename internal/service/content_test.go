package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/config"
	"github.com/spotlighthq/spotlight/internal/models"
)

func newContentService(cfg config.ContentConfig, st *memStore) *ContentService {
	return NewContentService(&cfg, st, zap.NewNop())
}

func TestGenerateContentFallsBackWithoutToken(t *testing.T) {
	svc := newContentService(config.ContentConfig{}, newMemStore())

	content := svc.GenerateContent(context.Background(), "React Hooks Deep Dive", "Tech")
	assert.Equal(t, fallbackTemplates["React Hooks Deep Dive"], content)
}

func TestGenerateContentFallsBackWhenProviderUnreachable(t *testing.T) {
	cfg := config.ContentConfig{
		Token:   "test-token",
		BaseURL: "http://127.0.0.1:1",
	}
	svc := newContentService(cfg, newMemStore())

	content := svc.GenerateContent(context.Background(), "Intro to X", "Tech")
	assert.True(t, strings.Contains(content, "Intro to X"))
	assert.True(t, strings.Contains(content, "#"))
}

func TestGenerateContentSanitizesProviderOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"<think>internal reasoning</think>**Big News!** Ship it. *(1,234 characters)*"}}]}`))
	}))
	defer server.Close()

	cfg := config.ContentConfig{
		Token:   "test-token",
		BaseURL: server.URL,
	}
	svc := newContentService(cfg, newMemStore())

	content := svc.GenerateContent(context.Background(), "Shipping", "Tech")
	assert.Equal(t, "Big News! Ship it.", content)
}

func TestGenerateContentFallsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.ContentConfig{
		Token:   "test-token",
		BaseURL: server.URL,
	}
	svc := newContentService(cfg, newMemStore())

	content := svc.GenerateContent(context.Background(), "React Performance Optimization", "Tech")
	assert.Equal(t, fallbackTemplates["React Performance Optimization"], content)
}

func TestGenerateUniqueContentReturnsHash(t *testing.T) {
	st := newMemStore()
	svc := newContentService(config.ContentConfig{}, st)

	content, hash, err := svc.GenerateUniqueContent(context.Background(), "React Hooks Deep Dive", "Tech")
	require.NoError(t, err)
	assert.Equal(t, HashContent(content), hash)
}

func TestGenerateUniqueContentGivesUpOnDuplicates(t *testing.T) {
	st := newMemStore()
	svc := newContentService(config.ContentConfig{}, st)

	// Fallback content is deterministic, so pre-seeding its hash makes
	// every regeneration attempt collide.
	content := svc.GenerateContent(context.Background(), "React Hooks Deep Dive", "Tech")
	require.NoError(t, st.CreatePost(context.Background(), &models.Post{
		Title:       "existing",
		Content:     content,
		ContentHash: HashContent(content),
		UserID:      1,
	}))

	_, _, err := svc.GenerateUniqueContent(context.Background(), "React Hooks Deep Dive", "Tech")
	assert.ErrorIs(t, err, ErrDuplicateContent)
}

func TestHashContentIsStableAndDistinct(t *testing.T) {
	assert.Equal(t, HashContent("hello"), HashContent("hello"))
	assert.NotEqual(t, HashContent("hello"), HashContent("hello "))
	assert.Len(t, HashContent("hello"), 32)
}

func TestSelectTopicPrefersNicheTopics(t *testing.T) {
	st := newMemStore()
	st.niches[7] = &models.Niche{ID: 7, Name: "Fitness", Topics: models.StringArray{"Nutrition tips"}}
	svc := newContentService(config.ContentConfig{}, st)

	nicheID := uint(7)
	topic, nicheName := svc.SelectTopic(context.Background(), &nicheID)
	assert.Equal(t, "Nutrition tips", topic)
	assert.Equal(t, "Fitness", nicheName)
}

func TestSelectTopicFallsBackToDefaults(t *testing.T) {
	svc := newContentService(config.ContentConfig{}, newMemStore())

	topic, nicheName := svc.SelectTopic(context.Background(), nil)
	assert.Contains(t, defaultTopics, topic)
	assert.Equal(t, "General", nicheName)

	// Unknown niche id also falls back
	nicheID := uint(99)
	topic, nicheName = svc.SelectTopic(context.Background(), &nicheID)
	assert.Contains(t, defaultTopics, topic)
	assert.Equal(t, "General", nicheName)
}

func TestSelectTopicKeepsNicheNameWhenTopicsEmpty(t *testing.T) {
	st := newMemStore()
	st.niches[7] = &models.Niche{ID: 7, Name: "Fitness"}
	svc := newContentService(config.ContentConfig{}, st)

	nicheID := uint(7)
	topic, nicheName := svc.SelectTopic(context.Background(), &nicheID)
	assert.Contains(t, defaultTopics, topic)
	assert.Equal(t, "Fitness", nicheName)
}
