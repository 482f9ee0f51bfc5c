package heygen

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/config"
)

// Video job status values as reported by the provider.
const (
	VideoStatusPending    = "pending"
	VideoStatusProcessing = "processing"
	VideoStatusCompleted  = "completed"
	VideoStatusFailed     = "failed"
)

// Training poll bounds. Exceeding the attempt cap is a failure, never a
// silent success.
const (
	defaultTrainingPollAttempts = 30
	defaultTrainingPollDelay    = 10 * time.Second
)

// VideoStatus is the non-blocking render status of a submitted video job.
// VideoURL is set only when the status is completed.
type VideoStatus struct {
	Status   string
	VideoURL string
	Error    string
}

// Service is the talking-avatar provider adapter. Every method is one
// discrete HTTP call; any failure aborts the pipeline for that post and
// is surfaced to the caller, which does not retry individual steps.
type Service struct {
	config *config.HeyGenConfig
	logger *zap.Logger
	client *http.Client

	trainingPollAttempts int
	trainingPollDelay    time.Duration
}

func NewService(cfg *config.HeyGenConfig, logger *zap.Logger) *Service {
	return &Service{
		config:               cfg,
		logger:               logger,
		client:               &http.Client{Timeout: 60 * time.Second},
		trainingPollAttempts: defaultTrainingPollAttempts,
		trainingPollDelay:    defaultTrainingPollDelay,
	}
}

// UploadAsset uploads a reference photo and returns the provider image key.
func (s *Service) UploadAsset(ctx context.Context, data []byte, contentType string) (string, error) {
	var response struct {
		Data struct {
			ImageKey string `json:"image_key"`
			ID       string `json:"id"`
		} `json:"data"`
	}

	if err := s.doRaw(ctx, http.MethodPost, s.config.UploadURL+"/v1/asset", data, contentType, &response); err != nil {
		return "", fmt.Errorf("asset upload failed: %w", err)
	}

	if response.Data.ImageKey == "" {
		return "", fmt.Errorf("asset upload response missing image_key")
	}

	return response.Data.ImageKey, nil
}

// CreateAvatarGroup provisions a new photo-avatar group from an uploaded
// image.
func (s *Service) CreateAvatarGroup(ctx context.Context, imageKey, name string) (string, error) {
	body := map[string]any{
		"name":      name,
		"image_key": imageKey,
	}

	var response struct {
		Data struct {
			GroupID string `json:"group_id"`
			ID      string `json:"id"`
		} `json:"data"`
	}

	if err := s.doJSON(ctx, http.MethodPost, s.config.BaseURL+"/v2/photo_avatar/avatar_group/create", body, &response); err != nil {
		return "", fmt.Errorf("avatar group creation failed: %w", err)
	}

	groupID := response.Data.GroupID
	if groupID == "" {
		groupID = response.Data.ID
	}
	if groupID == "" {
		return "", fmt.Errorf("avatar group response missing group id")
	}

	return groupID, nil
}

// AddLook registers an additional look on an existing avatar group. The
// provider processes it asynchronously; there is nothing to wait on here.
func (s *Service) AddLook(ctx context.Context, groupID, imageKey, name string) error {
	body := map[string]any{
		"group_id":   groupID,
		"image_keys": []string{imageKey},
		"name":       name,
	}

	if err := s.doJSON(ctx, http.MethodPost, s.config.BaseURL+"/v2/photo_avatar/avatar_group/add", body, nil); err != nil {
		return fmt.Errorf("add look failed: %w", err)
	}

	return nil
}

// TrainingStatus returns the current training status of an avatar group.
func (s *Service) TrainingStatus(ctx context.Context, groupID string) (string, error) {
	var response struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v2/photo_avatar/train/status/%s", s.config.BaseURL, groupID)
	if err := s.doJSON(ctx, http.MethodGet, url, nil, &response); err != nil {
		return "", fmt.Errorf("training status check failed: %w", err)
	}

	return response.Data.Status, nil
}

// WaitForTraining polls the group's training status with a bounded number
// of attempts and a fixed delay until it reaches a terminal state.
func (s *Service) WaitForTraining(ctx context.Context, groupID string) error {
	for attempt := 1; attempt <= s.trainingPollAttempts; attempt++ {
		status, err := s.TrainingStatus(ctx, groupID)
		if err != nil {
			return err
		}

		switch strings.ToLower(status) {
		case "completed", "active", "processed":
			return nil
		case "failed":
			return fmt.Errorf("avatar training failed for group %s", groupID)
		}

		s.logger.Debug("Avatar training in progress",
			zap.String("group_id", groupID),
			zap.String("status", status),
			zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.trainingPollDelay):
		}
	}

	return fmt.Errorf("avatar training timed out for group %s after %d attempts", groupID, s.trainingPollAttempts)
}

// TalkingPhotoID looks up the provisioned talking photo by its group name.
func (s *Service) TalkingPhotoID(ctx context.Context, groupName string) (string, error) {
	var response struct {
		Data struct {
			TalkingPhotos []struct {
				ID   string `json:"talking_photo_id"`
				Name string `json:"talking_photo_name"`
			} `json:"talking_photos"`
		} `json:"data"`
	}

	if err := s.doJSON(ctx, http.MethodGet, s.config.BaseURL+"/v2/avatars", nil, &response); err != nil {
		return "", fmt.Errorf("talking photo lookup failed: %w", err)
	}

	for _, photo := range response.Data.TalkingPhotos {
		if photo.Name == groupName {
			return photo.ID, nil
		}
	}

	return "", fmt.Errorf("no talking photo found for group %s", groupName)
}

// VoiceID selects the first English voice matching the requested gender.
func (s *Service) VoiceID(ctx context.Context, gender string) (string, error) {
	var response struct {
		Data struct {
			Voices []struct {
				VoiceID  string `json:"voice_id"`
				Language string `json:"language"`
				Gender   string `json:"gender"`
			} `json:"voices"`
		} `json:"data"`
	}

	if err := s.doJSON(ctx, http.MethodGet, s.config.BaseURL+"/v2/voices", nil, &response); err != nil {
		return "", fmt.Errorf("voice lookup failed: %w", err)
	}

	for _, voice := range response.Data.Voices {
		if strings.EqualFold(voice.Gender, gender) && strings.EqualFold(voice.Language, "English") {
			return voice.VoiceID, nil
		}
	}

	return "", fmt.Errorf("no English voice found for gender %s", gender)
}

// GenerateVideo submits a render job for a talking photo narrating the
// script. It returns the job id without waiting for completion.
func (s *Service) GenerateVideo(ctx context.Context, talkingPhotoID, voiceID, script, title string) (string, error) {
	body := map[string]any{
		"title": title,
		"video_inputs": []map[string]any{
			{
				"character": map[string]any{
					"type":             "talking_photo",
					"talking_photo_id": talkingPhotoID,
				},
				"voice": map[string]any{
					"type":       "text",
					"voice_id":   voiceID,
					"input_text": script,
				},
			},
		},
		"dimension": map[string]any{
			"width":  1280,
			"height": 720,
		},
	}

	var response struct {
		Data struct {
			VideoID string `json:"video_id"`
		} `json:"data"`
	}

	if err := s.doJSON(ctx, http.MethodPost, s.config.BaseURL+"/v2/video/generate", body, &response); err != nil {
		return "", fmt.Errorf("video generation failed: %w", err)
	}

	if response.Data.VideoID == "" {
		return "", fmt.Errorf("video generation response missing video_id")
	}

	return response.Data.VideoID, nil
}

// GetVideoStatus is a non-blocking status check for a submitted job.
func (s *Service) GetVideoStatus(ctx context.Context, videoID string) (*VideoStatus, error) {
	var response struct {
		Data struct {
			Status   string `json:"status"`
			VideoURL string `json:"video_url"`
			Error    *struct {
				Message string `json:"message"`
				Detail  string `json:"detail"`
			} `json:"error"`
		} `json:"data"`
	}

	statusURL := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", s.config.BaseURL, url.QueryEscape(videoID))
	if err := s.doJSON(ctx, http.MethodGet, statusURL, nil, &response); err != nil {
		return nil, fmt.Errorf("video status check failed: %w", err)
	}

	status := &VideoStatus{
		Status:   response.Data.Status,
		VideoURL: response.Data.VideoURL,
	}
	if response.Data.Error != nil {
		status.Error = response.Data.Error.Message
		if status.Error == "" {
			status.Error = response.Data.Error.Detail
		}
	}

	return status, nil
}
