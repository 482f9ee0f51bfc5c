package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	FullName  string `gorm:"not null;size:255" json:"full_name"`
	AvatarURL string `gorm:"size:1000" json:"avatar_url"`
	NicheID   *uint  `gorm:"index" json:"niche_id"`
	Gender    string `gorm:"size:20" json:"gender"`

	// PostingHour is the hour of day (0-23) the schedule trigger matches
	// against, interpreted in the scheduler's configured timezone.
	PostingHour *int `json:"posting_hour"`

	// Video provider identifiers filled in by avatar provisioning.
	AvatarGroupID  string `gorm:"size:255" json:"avatar_group_id"`
	TalkingPhotoID string `gorm:"size:255" json:"talking_photo_id"`
	VoiceID        string `gorm:"size:255" json:"voice_id"`

	// Per-platform credentials, managed by the OAuth connect flow.
	LinkedInAuthorURN    string `gorm:"size:255" json:"linkedin_author_urn"`
	LinkedInAccessToken  string `gorm:"size:2000" json:"-"`
	LinkedInRefreshToken string `gorm:"size:2000" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// AvatarProvisioned reports whether the user finished avatar setup and
// can have videos generated.
func (u *User) AvatarProvisioned() bool {
	return u.TalkingPhotoID != "" && u.VoiceID != ""
}
