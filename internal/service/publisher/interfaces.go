package publisher

import (
	"context"
	"time"

	"github.com/spotlighthq/spotlight/internal/models"
)

// Request carries everything a platform adapter needs to create a post on
// behalf of a user. MediaURL points at the rendered asset to attach; when
// empty the post is text-only.
type Request struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	MediaURL string `json:"media_url,omitempty"`
	MediaAlt string `json:"media_alt,omitempty"`
}

// Result is the platform's record of a successful publish.
type Result struct {
	PostID      string    `json:"post_id"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher is the adapter contract for one target platform. Adapters own
// credential refresh (at most one refresh-and-retry per call); the retry
// budget for transient failures is owned by the scheduler, not here.
type Publisher interface {
	GetPlatformName() string
	Publish(ctx context.Context, user *models.User, req Request) (*Result, error)
}

// FromPost builds a publish request from a ready post. The rendered
// video wins over the stock image when both are present.
func FromPost(post *models.Post) Request {
	req := Request{
		Title:    post.Title,
		Content:  post.Content,
		MediaURL: post.VideoURL,
		MediaAlt: post.Title,
	}
	if req.MediaURL == "" {
		req.MediaURL = post.ImageURL
		if post.ImageAlt != "" {
			req.MediaAlt = post.ImageAlt
		}
	}
	return req
}
