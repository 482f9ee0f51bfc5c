package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spotlighthq/spotlight/internal/models"
	"github.com/spotlighthq/spotlight/internal/store"
)

// memStore is an in-memory store.Store used across the service tests.
type memStore struct {
	mu     sync.Mutex
	posts  map[uint]*models.Post
	users  map[uint]*models.User
	niches map[uint]*models.Niche
	nextID uint

	saveCount int
}

func newMemStore() *memStore {
	return &memStore{
		posts:  make(map[uint]*models.Post),
		users:  make(map[uint]*models.User),
		niches: make(map[uint]*models.Niche),
	}
}

func (m *memStore) CreatePost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.posts {
		if existing.ContentHash == post.ContentHash {
			return fmt.Errorf("duplicate content hash %s", post.ContentHash)
		}
	}
	m.nextID++
	post.ID = m.nextID
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	clone := *post
	m.posts[post.ID] = &clone
	return nil
}

func (m *memStore) SavePost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCount++
	clone := *post
	m.posts[post.ID] = &clone
	return nil
}

func (m *memStore) GetPost(_ context.Context, id uint) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %d not found", id)
	}
	clone := *post
	return &clone, nil
}

func (m *memStore) ListPosts(_ context.Context, userID uint, status string, page, limit int) ([]models.Post, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var posts []models.Post
	for _, post := range m.posts {
		if post.UserID != userID {
			continue
		}
		if status != "" && post.Status != status {
			continue
		}
		posts = append(posts, *post)
	}
	return posts, int64(len(posts)), nil
}

func (m *memStore) ContentHashExists(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, post := range m.posts {
		if post.ContentHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) PostsAwaitingVideo(_ context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var posts []models.Post
	for _, post := range m.posts {
		if post.VideoID == "" {
			continue
		}
		if post.Status == models.StatusPending || post.Status == models.StatusProcessing {
			posts = append(posts, *post)
		}
	}
	return posts, nil
}

func (m *memStore) PostsDueForPublish(_ context.Context, now time.Time) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var posts []models.Post
	for _, post := range m.posts {
		if post.Status != models.StatusReady || post.PublishState != models.PublishStateUnpublished {
			continue
		}
		if post.NextAttemptAt == nil || post.NextAttemptAt.After(now) {
			continue
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

func (m *memStore) UserPostCountSince(_ context.Context, userID uint, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, post := range m.posts {
		if post.UserID == userID && !post.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) PostStats(_ context.Context, userID uint) (*store.PostStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &store.PostStats{}
	for _, post := range m.posts {
		if post.UserID != userID {
			continue
		}
		stats.TotalPosts++
		if post.PublishState == models.PublishStatePublished {
			stats.PublishedPosts++
		}
		if post.Status == models.StatusFailed || post.PublishState == models.PublishStateFailed {
			stats.FailedPosts++
		}
	}
	return stats, nil
}

func (m *memStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d not found", id)
	}
	clone := *user
	return &clone, nil
}

func (m *memStore) SaveUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memStore) UsersWithPostingHour(_ context.Context, hour int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, user := range m.users {
		if user.PostingHour != nil && *user.PostingHour == hour {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (m *memStore) GetNiche(_ context.Context, id uint) (*models.Niche, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	niche, ok := m.niches[id]
	if !ok {
		return nil, fmt.Errorf("niche %d not found", id)
	}
	clone := *niche
	return &clone, nil
}

func (m *memStore) ListNiches(_ context.Context) ([]models.Niche, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var niches []models.Niche
	for _, niche := range m.niches {
		niches = append(niches, *niche)
	}
	return niches, nil
}

func (m *memStore) postCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

func (m *memStore) savedPost(id uint) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts[id]
}
