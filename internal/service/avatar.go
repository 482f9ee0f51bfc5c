package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/models"
	"github.com/spotlighthq/spotlight/internal/store"
	"github.com/spotlighthq/spotlight/pkg/util"
)

// AvatarProvisioner is the provisioning side of the video provider: the
// step sequence that turns an uploaded photo into a usable talking photo.
type AvatarProvisioner interface {
	UploadAsset(ctx context.Context, data []byte, contentType string) (string, error)
	CreateAvatarGroup(ctx context.Context, imageKey, name string) (string, error)
	AddLook(ctx context.Context, groupID, imageKey, name string) error
	WaitForTraining(ctx context.Context, groupID string) error
	TalkingPhotoID(ctx context.Context, groupName string) (string, error)
	VoiceID(ctx context.Context, gender string) (string, error)
}

// AvatarService runs the onboarding workflow that provisions a user's
// talking avatar and voice. Steps are not retried individually; a failure
// aborts and leaves the user unprovisioned, and the caller issues a fresh
// request.
type AvatarService struct {
	store  store.Store
	avatar AvatarProvisioner
	logger *zap.Logger
}

func NewAvatarService(st store.Store, avatar AvatarProvisioner, logger *zap.Logger) *AvatarService {
	return &AvatarService{
		store:  st,
		avatar: avatar,
		logger: logger,
	}
}

// ProvisionAvatar uploads the user's likeness photo, provisions an avatar
// group, waits for training, and stores the resulting talking-photo and
// voice ids on the user.
func (s *AvatarService) ProvisionAvatar(ctx context.Context, userID uint, image []byte, contentType string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	groupName := fmt.Sprintf("%s-%s", util.GenerateSlug(user.FullName), uuid.NewString()[:8])

	imageKey, err := s.avatar.UploadAsset(ctx, image, contentType)
	if err != nil {
		return nil, err
	}

	groupID, err := s.avatar.CreateAvatarGroup(ctx, imageKey, groupName)
	if err != nil {
		return nil, err
	}

	if err := s.avatar.AddLook(ctx, groupID, imageKey, groupName+"-look"); err != nil {
		return nil, err
	}

	s.logger.Info("Avatar group created, waiting for training",
		zap.Uint("user_id", userID),
		zap.String("group_id", groupID))

	if err := s.avatar.WaitForTraining(ctx, groupID); err != nil {
		return nil, err
	}

	talkingPhotoID, err := s.avatar.TalkingPhotoID(ctx, groupName)
	if err != nil {
		return nil, err
	}

	gender := user.Gender
	if gender == "" {
		gender = "female"
	}
	voiceID, err := s.avatar.VoiceID(ctx, gender)
	if err != nil {
		return nil, err
	}

	user.AvatarGroupID = groupID
	user.TalkingPhotoID = talkingPhotoID
	user.VoiceID = voiceID

	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to persist avatar ids: %w", err)
	}

	s.logger.Info("Avatar provisioning completed",
		zap.Uint("user_id", userID),
		zap.String("talking_photo_id", talkingPhotoID),
		zap.String("voice_id", voiceID))

	return user, nil
}
