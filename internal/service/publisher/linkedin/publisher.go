package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	oauthlinkedin "golang.org/x/oauth2/linkedin"

	"github.com/spotlighthq/spotlight/internal/config"
	"github.com/spotlighthq/spotlight/internal/models"
	"github.com/spotlighthq/spotlight/internal/service/publisher"
	"github.com/spotlighthq/spotlight/internal/store"
)

// errUnauthorized marks an expired-credential response from the platform.
var errUnauthorized = errors.New("linkedin credentials rejected")

// Publisher posts ready content to LinkedIn: a two-step media upload
// (register slot, PUT bytes) followed by a ugcPosts creation call. On a
// credential failure it refreshes the user's token exactly once and
// retries the whole publish; a second failure propagates.
type Publisher struct {
	config *config.LinkedInConfig
	store  store.Store
	logger *zap.Logger
	client *http.Client
}

func NewPublisher(cfg *config.LinkedInConfig, st store.Store, logger *zap.Logger) *Publisher {
	return &Publisher{
		config: cfg,
		store:  st,
		logger: logger,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *Publisher) GetPlatformName() string {
	return models.PlatformLinkedIn
}

func (p *Publisher) Publish(ctx context.Context, user *models.User, req publisher.Request) (*publisher.Result, error) {
	if user.LinkedInAccessToken == "" {
		return nil, fmt.Errorf("user %d has no linkedin access token", user.ID)
	}
	if user.LinkedInAuthorURN == "" {
		return nil, fmt.Errorf("user %d has no linkedin author urn", user.ID)
	}

	result, err := p.publish(ctx, user, req)
	if errors.Is(err, errUnauthorized) {
		p.logger.Warn("LinkedIn token rejected, refreshing and retrying once",
			zap.Uint("user_id", user.ID))

		if refreshErr := p.refreshToken(ctx, user); refreshErr != nil {
			return nil, fmt.Errorf("token refresh failed: %w", refreshErr)
		}

		result, err = p.publish(ctx, user, req)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *Publisher) publish(ctx context.Context, user *models.User, req publisher.Request) (*publisher.Result, error) {
	var assetURN string
	var mediaCategory string

	if req.MediaURL != "" {
		urn, category, err := p.uploadMedia(ctx, user, req.MediaURL)
		if err != nil {
			return nil, fmt.Errorf("media upload failed: %w", err)
		}
		assetURN = urn
		mediaCategory = category
	}

	shareContent := map[string]any{
		"shareCommentary": map[string]any{
			"text": req.Content,
		},
		"shareMediaCategory": "NONE",
	}
	if assetURN != "" {
		shareContent["shareMediaCategory"] = mediaCategory
		shareContent["media"] = []map[string]any{
			{
				"status":      "READY",
				"media":       assetURN,
				"description": map[string]any{"text": req.MediaAlt},
				"title":       map[string]any{"text": req.Title},
			},
		}
	}

	payload := map[string]any{
		"author":         user.LinkedInAuthorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var response struct {
		ID string `json:"id"`
	}
	if err := p.doJSON(ctx, user, http.MethodPost, p.config.APIBaseURL+"/v2/ugcPosts", payload, &response); err != nil {
		return nil, err
	}
	if response.ID == "" {
		return nil, fmt.Errorf("ugcPosts response missing post id")
	}

	return &publisher.Result{
		PostID:      response.ID,
		URL:         "https://www.linkedin.com/feed/update/" + response.ID,
		PublishedAt: time.Now(),
	}, nil
}

// uploadMedia downloads the rendered asset and runs the platform's
// two-step upload: register a slot declaring ownership and recipe, then
// PUT the raw bytes to the returned URL. Returns the opaque asset URN and
// the share media category.
func (p *Publisher) uploadMedia(ctx context.Context, user *models.User, mediaURL string) (string, string, error) {
	data, contentType, err := p.downloadMedia(ctx, mediaURL)
	if err != nil {
		return "", "", err
	}

	recipe := "urn:li:digitalmediaRecipe:feedshare-image"
	category := "IMAGE"
	if strings.HasPrefix(contentType, "video/") {
		recipe = "urn:li:digitalmediaRecipe:feedshare-video"
		category = "VIDEO"
	}

	registerPayload := map[string]any{
		"registerUploadRequest": map[string]any{
			"owner":   user.LinkedInAuthorURN,
			"recipes": []string{recipe},
			"serviceRelationships": []map[string]any{
				{
					"relationshipType": "OWNER",
					"identifier":       "urn:li:userGeneratedContent",
				},
			},
		},
	}

	var registerResponse struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}

	registerURL := p.config.APIBaseURL + "/v2/assets?action=registerUpload"
	if err := p.doJSON(ctx, user, http.MethodPost, registerURL, registerPayload, &registerResponse); err != nil {
		return "", "", fmt.Errorf("upload registration failed: %w", err)
	}

	mechanism, ok := registerResponse.Value.UploadMechanism["com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"]
	if !ok || mechanism.UploadURL == "" {
		return "", "", fmt.Errorf("upload registration response missing upload url")
	}
	if registerResponse.Value.Asset == "" {
		return "", "", fmt.Errorf("upload registration response missing asset urn")
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, mechanism.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload request: %w", err)
	}
	putReq.Header.Set("Authorization", "Bearer "+user.LinkedInAccessToken)
	putReq.Header.Set("Content-Type", contentType)

	putResp, err := p.client.Do(putReq)
	if err != nil {
		return "", "", fmt.Errorf("media upload request failed: %w", err)
	}
	defer putResp.Body.Close()

	if putResp.StatusCode == http.StatusUnauthorized {
		return "", "", errUnauthorized
	}
	if putResp.StatusCode < 200 || putResp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(putResp.Body)
		return "", "", fmt.Errorf("media upload returned status %d: %s", putResp.StatusCode, string(respBody))
	}

	return registerResponse.Value.Asset, category, nil
}

func (p *Publisher) downloadMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read media body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return data, contentType, nil
}

func (p *Publisher) doJSON(ctx context.Context, user *models.User, method, url string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+user.LinkedInAccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("linkedin API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// refreshToken exchanges the user's refresh token for a new access token
// and persists both.
func (p *Publisher) refreshToken(ctx context.Context, user *models.User) error {
	if user.LinkedInRefreshToken == "" {
		return fmt.Errorf("user %d has no refresh token", user.ID)
	}

	endpoint := oauthlinkedin.Endpoint
	if p.config.TokenURL != "" {
		endpoint = oauth2.Endpoint{TokenURL: p.config.TokenURL}
	}

	conf := &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		Endpoint:     endpoint,
	}

	source := conf.TokenSource(ctx, &oauth2.Token{
		RefreshToken: user.LinkedInRefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	})

	token, err := source.Token()
	if err != nil {
		return err
	}

	user.LinkedInAccessToken = token.AccessToken
	if token.RefreshToken != "" {
		user.LinkedInRefreshToken = token.RefreshToken
	}

	if err := p.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	return nil
}
