package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/config"
)

// ImageFetcher supplies a stock image for a post.
type ImageFetcher interface {
	FetchImage(ctx context.Context, topic string) (url, alt string)
}

var imageSearchTerms = []string{
	"coding",
	"programming",
	"software",
	"software engineering",
	"software development",
	"software developer",
	"web development",
	"frontend development",
	"backend development",
	"full stack development",
	"computer science",
	"technology",
	"app development",
	"cloud computing",
	"data science",
	"machine learning",
	"artificial intelligence",
	"cybersecurity",
	"system design",
	"debugging",
	"hackathon",
	"open source",
	"developer workspace",
	"laptop coding",
	"code on screen",
	"team collaboration",
	"IT infrastructure",
	"software company",
	"startup office",
	"digital transformation",
}

const (
	fallbackImageURL = "https://images.unsplash.com/photo-1633356122544-f134324a6cee?ixlib=rb-4.0.3&w=400"
	fallbackImageAlt = "React development concept"
)

// ImageService fetches stock imagery for image-backed posts, trying
// Unsplash first, then Pexels.
type ImageService struct {
	config *config.ImagesConfig
	logger *zap.Logger
	client *http.Client
}

func NewImageService(cfg *config.ImagesConfig, logger *zap.Logger) *ImageService {
	return &ImageService{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchImage returns an image URL and alt text for a post. Provider
// failures and missing credentials degrade to a static fallback instead
// of erroring.
func (s *ImageService) FetchImage(ctx context.Context, topic string) (string, string) {
	term := imageSearchTerms[rand.Intn(len(imageSearchTerms))]

	if s.config.UnsplashAccessKey != "" {
		imageURL, alt, err := s.fetchFromUnsplash(ctx, term)
		if err == nil {
			return imageURL, alt
		}
		s.logger.Warn("Unsplash image fetch failed",
			zap.String("search_term", term),
			zap.Error(err))
	}

	if s.config.PexelsAPIKey != "" {
		imageURL, alt, err := s.fetchFromPexels(ctx, term)
		if err == nil {
			return imageURL, alt
		}
		s.logger.Warn("Pexels image fetch failed",
			zap.String("search_term", term),
			zap.Error(err))
	}

	return fallbackImageURL, fallbackImageAlt
}

func (s *ImageService) fetchFromUnsplash(ctx context.Context, term string) (string, string, error) {
	requestURL := fmt.Sprintf("%s/photos/random?query=%s&client_id=%s",
		s.config.UnsplashBaseURL, url.QueryEscape(term), url.QueryEscape(s.config.UnsplashAccessKey))

	var response struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		AltDescription string `json:"alt_description"`
	}
	if err := s.getJSON(ctx, requestURL, nil, &response); err != nil {
		return "", "", err
	}
	if response.URLs.Regular == "" {
		return "", "", fmt.Errorf("unsplash response missing image url")
	}

	alt := response.AltDescription
	if alt == "" {
		alt = "Image related to " + term
	}
	return response.URLs.Regular, alt, nil
}

func (s *ImageService) fetchFromPexels(ctx context.Context, term string) (string, string, error) {
	requestURL := fmt.Sprintf("%s/v1/search?query=%s&per_page=1",
		s.config.PexelsBaseURL, url.QueryEscape(term))

	var response struct {
		Photos []struct {
			Alt string `json:"alt"`
			Src struct {
				Medium string `json:"medium"`
			} `json:"src"`
		} `json:"photos"`
	}
	headers := map[string]string{"Authorization": s.config.PexelsAPIKey}
	if err := s.getJSON(ctx, requestURL, headers, &response); err != nil {
		return "", "", err
	}
	if len(response.Photos) == 0 || response.Photos[0].Src.Medium == "" {
		return "", "", fmt.Errorf("pexels returned no photos for %q", term)
	}

	photo := response.Photos[0]
	alt := photo.Alt
	if alt == "" {
		alt = "Image related to " + term
	}
	return photo.Src.Medium, alt, nil
}

func (s *ImageService) getJSON(ctx context.Context, requestURL string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("image API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
