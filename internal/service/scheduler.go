package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/config"
	"github.com/spotlighthq/spotlight/internal/models"
	"github.com/spotlighthq/spotlight/internal/service/heygen"
	"github.com/spotlighthq/spotlight/internal/service/publisher"
	"github.com/spotlighthq/spotlight/internal/store"
)

// maxBackoff caps the exponential publish-retry delay.
const maxBackoff = 5 * time.Minute

// PostCreator triggers post creation for one user: the video pipeline
// for provisioned users, a stock-image post otherwise.
type PostCreator interface {
	CreatePostForUser(ctx context.Context, userID uint) (*models.Post, error)
	CreateImagePostForUser(ctx context.Context, userID uint) (*models.Post, error)
}

// Scheduler drives the post lifecycle with two independent periodic
// loops: a short-interval poll that tracks outstanding video jobs and
// publishes due posts, and a long-interval trigger that creates posts for
// users whose posting hour matches. Each loop carries its own atomic
// in-flight flag; a tick that fires while the previous run is still going
// is skipped, not queued.
type Scheduler struct {
	config     *config.SchedulerConfig
	logger     *zap.Logger
	store      store.Store
	video      VideoGenerator
	creator    PostCreator
	publishers *publisher.Manager

	location *time.Location
	now      func() time.Time

	pollTicker     *time.Ticker
	scheduleTicker *time.Ticker
	stopCh         chan struct{}

	pollInFlight     atomic.Bool
	scheduleInFlight atomic.Bool
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, st store.Store, video VideoGenerator, creator PostCreator, publishers *publisher.Manager) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		config:     cfg,
		logger:     logger,
		store:      st,
		video:      video,
		creator:    creator,
		publishers: publishers,
		location:   location,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	pollInterval, err := time.ParseDuration(s.config.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", s.config.PollInterval, err)
	}
	scheduleInterval, err := time.ParseDuration(s.config.ScheduleInterval)
	if err != nil {
		return fmt.Errorf("invalid schedule interval %q: %w", s.config.ScheduleInterval, err)
	}

	s.logger.Info("Starting scheduler",
		zap.String("poll_interval", s.config.PollInterval),
		zap.String("schedule_interval", s.config.ScheduleInterval),
		zap.String("timezone", s.config.Timezone))

	s.pollTicker = time.NewTicker(pollInterval)
	s.scheduleTicker = time.NewTicker(scheduleInterval)

	// Run first poll immediately to pick up work left over from a restart
	go s.RunPollCycle(ctx)

	go func() {
		for {
			select {
			case <-s.pollTicker.C:
				s.RunPollCycle(ctx)
			case <-s.stopCh:
				s.logger.Info("Poll loop stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Poll loop context cancelled")
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-s.scheduleTicker.C:
				s.RunScheduleCycle(ctx)
			case <-s.stopCh:
				s.logger.Info("Schedule loop stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Schedule loop context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.pollTicker != nil {
		s.pollTicker.Stop()
	}
	if s.scheduleTicker != nil {
		s.scheduleTicker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

// RunPollCycle tracks outstanding video jobs and publishes due posts.
// Re-entrant calls while a cycle is in flight are skipped entirely.
func (s *Scheduler) RunPollCycle(ctx context.Context) {
	if !s.pollInFlight.CompareAndSwap(false, true) {
		s.logger.Warn("Poll cycle already running, skipping")
		return
	}
	defer s.pollInFlight.Store(false)

	s.pollVideoStatuses(ctx)
	s.publishDuePosts(ctx)
}

// RunScheduleCycle creates posts for users whose posting hour matches the
// current hour in the configured timezone, at most once per user per day.
func (s *Scheduler) RunScheduleCycle(ctx context.Context) {
	if !s.scheduleInFlight.CompareAndSwap(false, true) {
		s.logger.Warn("Schedule cycle already running, skipping")
		return
	}
	defer s.scheduleInFlight.Store(false)

	now := s.now().In(s.location)
	users, err := s.store.UsersWithPostingHour(ctx, now.Hour())
	if err != nil {
		s.logger.Error("Failed to load users for schedule cycle", zap.Error(err))
		return
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)

	for _, user := range users {
		count, err := s.store.UserPostCountSince(ctx, user.ID, startOfDay)
		if err != nil {
			s.logger.Error("Failed to count posts for user",
				zap.Uint("user_id", user.ID),
				zap.Error(err))
			continue
		}
		if count > 0 {
			continue
		}

		// Per-user failures must not abort the batch
		if _, err := s.creator.CreatePostForUser(ctx, user.ID); err != nil {
			switch {
			case errors.Is(err, ErrSetupIncomplete):
				// No avatar yet, fall back to a stock-image post
				if _, imgErr := s.creator.CreateImagePostForUser(ctx, user.ID); imgErr != nil {
					if errors.Is(imgErr, ErrDuplicateContent) {
						s.logger.Info("Skipping scheduled post for user",
							zap.Uint("user_id", user.ID),
							zap.Error(imgErr))
						continue
					}
					s.logger.Error("Scheduled image post creation failed",
						zap.Uint("user_id", user.ID),
						zap.Error(imgErr))
				}
			case errors.Is(err, ErrDuplicateContent):
				s.logger.Info("Skipping scheduled post for user",
					zap.Uint("user_id", user.ID),
					zap.Error(err))
			default:
				s.logger.Error("Scheduled post creation failed",
					zap.Uint("user_id", user.ID),
					zap.Error(err))
			}
		}
	}
}

// pollVideoStatuses checks every tracked video job. A transient error on
// one poll is logged and retried next tick; a failed job is terminal for
// its post. Unchanged provider status mutates nothing.
func (s *Scheduler) pollVideoStatuses(ctx context.Context) {
	posts, err := s.store.PostsAwaitingVideo(ctx)
	if err != nil {
		s.logger.Error("Failed to load posts awaiting video", zap.Error(err))
		return
	}

	for i := range posts {
		post := &posts[i]

		statusData, err := s.video.GetVideoStatus(ctx, post.VideoID)
		if err != nil {
			s.logger.Warn("Video status check failed, will retry next cycle",
				zap.Uint("post_id", post.ID),
				zap.String("video_id", post.VideoID),
				zap.Error(err))
			continue
		}

		switch statusData.Status {
		case heygen.VideoStatusCompleted:
			post.Status = models.StatusReady
			post.VideoURL = statusData.VideoURL
			next := s.now()
			post.NextAttemptAt = &next
			if err := s.store.SavePost(ctx, post); err != nil {
				s.logger.Error("Failed to save ready post",
					zap.Uint("post_id", post.ID),
					zap.Error(err))
				continue
			}
			s.logger.Info("Video generation completed",
				zap.Uint("post_id", post.ID),
				zap.String("video_url", post.VideoURL))
			s.attemptPublish(ctx, post)

		case heygen.VideoStatusFailed:
			post.Status = models.StatusFailed
			post.ErrorMessage = statusData.Error
			if post.ErrorMessage == "" {
				post.ErrorMessage = "video generation failed"
			}
			if err := s.store.SavePost(ctx, post); err != nil {
				s.logger.Error("Failed to save failed post",
					zap.Uint("post_id", post.ID),
					zap.Error(err))
				continue
			}
			s.logger.Error("Video generation failed",
				zap.Uint("post_id", post.ID),
				zap.String("video_id", post.VideoID))

		case heygen.VideoStatusProcessing, heygen.VideoStatusPending:
			mirror := models.StatusPending
			if statusData.Status == heygen.VideoStatusProcessing {
				mirror = models.StatusProcessing
			}
			if post.Status == mirror {
				continue
			}
			post.Status = mirror
			if err := s.store.SavePost(ctx, post); err != nil {
				s.logger.Error("Failed to update post status",
					zap.Uint("post_id", post.ID),
					zap.Error(err))
			}

		default:
			s.logger.Warn("Unknown video status",
				zap.Uint("post_id", post.ID),
				zap.String("status", statusData.Status))
		}
	}
}

// publishDuePosts picks up ready posts whose next attempt is due. Because
// the due time lives on the post record, pending retries survive a
// process restart.
func (s *Scheduler) publishDuePosts(ctx context.Context) {
	posts, err := s.store.PostsDueForPublish(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to load due posts", zap.Error(err))
		return
	}

	for i := range posts {
		s.attemptPublish(ctx, &posts[i])
	}
}

// attemptPublish runs one platform publish attempt for a ready post.
func (s *Scheduler) attemptPublish(ctx context.Context, post *models.Post) {
	if !post.MediaReady() {
		s.logger.Warn("Publish requested for post without ready media, skipping",
			zap.Uint("post_id", post.ID),
			zap.String("status", post.Status))
		return
	}

	pub, err := s.publishers.Get(post.Platform)
	if err != nil {
		s.recordPublishFailure(ctx, post, err)
		return
	}

	user, err := s.store.GetUser(ctx, post.UserID)
	if err != nil {
		s.recordPublishFailure(ctx, post, fmt.Errorf("failed to load post owner: %w", err))
		return
	}

	result, err := pub.Publish(ctx, user, publisher.FromPost(post))
	if err != nil {
		s.recordPublishFailure(ctx, post, err)
		return
	}

	now := s.now()
	post.PublishState = models.PublishStatePublished
	post.PlatformPostID = result.PostID
	post.PlatformURL = result.URL
	post.PostedAt = &now
	post.NextAttemptAt = nil
	post.ErrorMessage = ""

	if err := s.store.SavePost(ctx, post); err != nil {
		s.logger.Error("Failed to save published post",
			zap.Uint("post_id", post.ID),
			zap.Error(err))
		return
	}

	s.logger.Info("Post published",
		zap.Uint("post_id", post.ID),
		zap.String("platform", post.Platform),
		zap.String("platform_post_id", result.PostID))
}

// recordPublishFailure increments the retry counter and either schedules
// the next attempt with capped exponential backoff or marks the post
// terminally failed once the retry budget is spent.
func (s *Scheduler) recordPublishFailure(ctx context.Context, post *models.Post, cause error) {
	post.Retries++
	post.ErrorMessage = cause.Error()

	if post.Retries >= post.MaxRetries {
		post.PublishState = models.PublishStateFailed
		post.NextAttemptAt = nil
		s.logger.Error("Post failed after exhausting retries",
			zap.Uint("post_id", post.ID),
			zap.Int("retries", post.Retries),
			zap.Error(cause))
	} else {
		delay := backoffDelay(post.Retries)
		next := s.now().Add(delay)
		post.NextAttemptAt = &next
		s.logger.Warn("Publish attempt failed, retry scheduled",
			zap.Uint("post_id", post.ID),
			zap.Int("retries", post.Retries),
			zap.Duration("backoff", delay),
			zap.Error(cause))
	}

	if err := s.store.SavePost(ctx, post); err != nil {
		s.logger.Error("Failed to save post after publish failure",
			zap.Uint("post_id", post.ID),
			zap.Error(err))
	}
}

// backoffDelay returns 2^retries seconds, capped at maxBackoff.
func backoffDelay(retries int) time.Duration {
	if retries > 10 {
		return maxBackoff
	}
	delay := time.Duration(1<<uint(retries)) * time.Second
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}
