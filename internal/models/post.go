package models

import (
	"time"

	"gorm.io/gorm"
)

// Post status values track the video-generation pipeline.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Publish state values track the platform publication outcome,
// independent of the video pipeline status.
const (
	PublishStateUnpublished = "unpublished"
	PublishStatePublished   = "published"
	PublishStateFailed      = "failed"
)

const (
	PlatformLinkedIn = "linkedin"
	PlatformYouTube  = "youtube"
	PlatformFacebook = "facebook"
	PlatformOther    = "other"
)

type Post struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"not null;size:500" json:"title"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	ContentHash  string     `gorm:"uniqueIndex;not null;size:64" json:"content_hash"`
	ImageURL     string     `gorm:"size:1000" json:"image_url"`
	ImageAlt     string     `gorm:"size:500" json:"image_alt"`
	VideoURL     string     `gorm:"size:1000" json:"video_url"`
	VideoID      string     `gorm:"size:255;index" json:"video_id"`
	Platform     string     `gorm:"size:50;default:'linkedin'" json:"platform"`
	Status       string     `gorm:"size:50;default:'pending';index" json:"status"`
	PublishState string     `gorm:"size:50;default:'unpublished';index" json:"publish_state"`
	Retries      int        `gorm:"default:0" json:"retries"`
	MaxRetries   int        `gorm:"default:3" json:"max_retries"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	// NextAttemptAt is the durable publish-retry due time; a restart
	// loses nothing because the poll loop picks up due posts from here.
	NextAttemptAt  *time.Time     `gorm:"index" json:"next_attempt_at"`
	PostedAt       *time.Time     `json:"posted_at"`
	PlatformPostID string         `gorm:"size:255" json:"platform_post_id"`
	PlatformURL    string         `gorm:"size:1000" json:"platform_url"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// VideoReady reports whether the rendered video is available for publishing.
func (p *Post) VideoReady() bool {
	return p.Status == StatusReady && p.VideoURL != ""
}

// MediaReady reports whether the post's media is available for
// publishing: posts from the video pipeline need the rendered video,
// image posts need their stock image.
func (p *Post) MediaReady() bool {
	if p.VideoID != "" {
		return p.VideoReady()
	}
	return p.Status == StatusReady && p.ImageURL != ""
}
