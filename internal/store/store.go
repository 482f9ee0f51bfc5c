package store

import (
	"context"
	"time"

	"github.com/spotlighthq/spotlight/internal/models"
)

// PostStats is the dashboard summary for one user's posts.
type PostStats struct {
	TotalPosts     int64        `json:"total_posts"`
	PublishedPosts int64        `json:"published_posts"`
	FailedPosts    int64        `json:"failed_posts"`
	InFlightPosts  int64        `json:"in_flight_posts"`
	LastPublished  *models.Post `json:"last_published,omitempty"`
}

// Store is the persistence boundary for the posting pipeline. The
// scheduler and workflows only touch the database through it, which
// keeps them testable against an in-memory fake.
type Store interface {
	CreatePost(ctx context.Context, post *models.Post) error
	SavePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	ListPosts(ctx context.Context, userID uint, status string, page, limit int) ([]models.Post, int64, error)
	ContentHashExists(ctx context.Context, hash string) (bool, error)

	// PostsAwaitingVideo returns posts whose external video job is still
	// being tracked (status pending/processing with a job id).
	PostsAwaitingVideo(ctx context.Context) ([]models.Post, error)

	// PostsDueForPublish returns ready, unpublished posts whose
	// next_attempt_at is at or before now.
	PostsDueForPublish(ctx context.Context, now time.Time) ([]models.Post, error)

	UserPostCountSince(ctx context.Context, userID uint, since time.Time) (int64, error)
	PostStats(ctx context.Context, userID uint) (*PostStats, error)

	GetUser(ctx context.Context, id uint) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	UsersWithPostingHour(ctx context.Context, hour int) ([]models.User, error)

	GetNiche(ctx context.Context, id uint) (*models.Niche, error)
	ListNiches(ctx context.Context) ([]models.Niche, error)
}
