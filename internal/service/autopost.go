package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/models"
	"github.com/spotlighthq/spotlight/internal/service/heygen"
	"github.com/spotlighthq/spotlight/internal/store"
)

// ErrSetupIncomplete signals that the user has not finished avatar
// provisioning and cannot have videos generated yet.
var ErrSetupIncomplete = errors.New("avatar setup incomplete")

// ContentGenerator is the content side of post creation.
type ContentGenerator interface {
	SelectTopic(ctx context.Context, nicheID *uint) (topic string, nicheName string)
	GenerateUniqueContent(ctx context.Context, topic, nicheName string) (content string, hash string, err error)
}

// VideoGenerator is the subset of the video provider the posting pipeline
// uses after avatar provisioning is done.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, talkingPhotoID, voiceID, script, title string) (string, error)
	GetVideoStatus(ctx context.Context, videoID string) (*heygen.VideoStatus, error)
}

// AutoPostService orchestrates content generation and media acquisition
// to create posts for a user: a video render job for provisioned users,
// a stock image otherwise.
type AutoPostService struct {
	store   store.Store
	content ContentGenerator
	video   VideoGenerator
	images  ImageFetcher
	logger  *zap.Logger
}

func NewAutoPostService(st store.Store, content ContentGenerator, video VideoGenerator, images ImageFetcher, logger *zap.Logger) *AutoPostService {
	return &AutoPostService{
		store:   st,
		content: content,
		video:   video,
		images:  images,
		logger:  logger,
	}
}

// CreatePostForUser generates content, submits a video render job and
// persists a pending post. It returns ErrSetupIncomplete when the user
// has not finished avatar setup and ErrDuplicateContent when content
// generation exhausted its regeneration attempts; callers treat both as
// "no post today", not as failures. The post row is only created after
// the video job submission succeeds, so a provider failure leaves
// nothing behind.
func (s *AutoPostService) CreatePostForUser(ctx context.Context, userID uint) (*models.Post, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	if !user.AvatarProvisioned() {
		s.logger.Warn("User has not completed avatar setup, skipping post creation",
			zap.Uint("user_id", userID))
		return nil, ErrSetupIncomplete
	}

	topic, nicheName := s.content.SelectTopic(ctx, user.NicheID)

	content, hash, err := s.content.GenerateUniqueContent(ctx, topic, nicheName)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Submitting video generation",
		zap.Uint("user_id", userID),
		zap.String("topic", topic))

	videoID, err := s.video.GenerateVideo(ctx, user.TalkingPhotoID, user.VoiceID, content, topic)
	if err != nil {
		return nil, fmt.Errorf("video submission failed: %w", err)
	}

	post := &models.Post{
		Title:        topic,
		Content:      content,
		ContentHash:  hash,
		VideoID:      videoID,
		Platform:     models.PlatformLinkedIn,
		Status:       models.StatusPending,
		PublishState: models.PublishStateUnpublished,
		MaxRetries:   3,
		ScheduledFor: time.Now(),
		UserID:       userID,
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to persist post: %w", err)
	}

	s.logger.Info("Post created",
		zap.Uint("post_id", post.ID),
		zap.Uint("user_id", userID),
		zap.String("video_id", videoID))

	return post, nil
}

// CreateImagePostForUser creates a stock-image post. It skips the video
// pipeline entirely: the post is ready for publishing as soon as it is
// created, so the scheduler's poll loop picks it up on the next tick.
func (s *AutoPostService) CreateImagePostForUser(ctx context.Context, userID uint) (*models.Post, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	topic, nicheName := s.content.SelectTopic(ctx, user.NicheID)

	content, hash, err := s.content.GenerateUniqueContent(ctx, topic, nicheName)
	if err != nil {
		return nil, err
	}

	imageURL, imageAlt := s.images.FetchImage(ctx, topic)

	now := time.Now()
	post := &models.Post{
		Title:         topic,
		Content:       content,
		ContentHash:   hash,
		ImageURL:      imageURL,
		ImageAlt:      imageAlt,
		Platform:      models.PlatformLinkedIn,
		Status:        models.StatusReady,
		PublishState:  models.PublishStateUnpublished,
		MaxRetries:    3,
		ScheduledFor:  now,
		NextAttemptAt: &now,
		UserID:        userID,
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to persist post: %w", err)
	}

	s.logger.Info("Image post created",
		zap.Uint("post_id", post.ID),
		zap.Uint("user_id", userID),
		zap.String("image_url", imageURL))

	return post, nil
}
