package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/config"
	"github.com/spotlighthq/spotlight/internal/store"
	"github.com/spotlighthq/spotlight/pkg/util"
)

// ErrDuplicateContent signals that every regeneration attempt produced
// content already published before. It is a control-flow signal, not a
// provider failure.
var ErrDuplicateContent = errors.New("duplicate content after regeneration attempts")

// maxGenerateAttempts bounds regeneration when the hash collides with an
// existing post.
const maxGenerateAttempts = 3

var defaultTopics = []string{
	"React Hooks Deep Dive",
	"React Performance Optimization",
	"Understanding JSX in React",
	"React State Management",
	"React Component Lifecycles",
	"Custom Hooks in React",
	"React Context API Explained",
	"Code Splitting and Lazy Loading in React",
	"React Testing Strategies",
	"Authentication in React Apps",
	"React with TypeScript",
	"Server-Side Rendering with Next.js",
	"Clean Code Practices in React",
	"Debugging and Profiling React Apps",
	"Security Best Practices in React Apps",
	"Scalable Folder Structures in React Projects",
}

var fallbackTemplates = map[string]string{
	"React Hooks Deep Dive": `🚀 React Hooks Deep Dive: useState & useEffect

Mastering hooks is crucial for modern React development! Here's a quick guide:

✨ useState: Manages component state
const [count, setCount] = useState(0);

✨ useEffect: Handles side effects
useEffect(() => {
  document.title = ` + "`Count: ${count}`" + `;
}, [count]);

💡 Pro tip: Always specify dependencies in useEffect to avoid bugs!

#React #Hooks #JavaScript #WebDevelopment #Frontend`,

	"React Performance Optimization": `⚡ React Performance Optimization Tips

Is your React app feeling slow? Try these optimizations:

1. Use React.memo() for component memoization
2. Implement useCallback for functions
3. Use useMemo for expensive calculations
4. Code splitting with React.lazy()
5. Virtualize long lists

Example:
const expensiveValue = useMemo(() => {
  return heavyCalculation(props.data);
}, [props.data]);

#React #Performance #JavaScript #WebDev #Optimization`,
}

// ContentService generates post text: topic selection, AI generation with
// template fallback, and duplicate rejection by content hash.
type ContentService struct {
	config *config.ContentConfig
	store  store.Store
	logger *zap.Logger
	client *http.Client
}

func NewContentService(cfg *config.ContentConfig, st store.Store, logger *zap.Logger) *ContentService {
	return &ContentService{
		config: cfg,
		store:  st,
		logger: logger,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// SelectTopic picks a topic uniformly at random from the user's niche,
// falling back to the default list when the niche has no topics. The
// niche name is kept whenever the niche resolves, it steers the
// generation prompt.
func (s *ContentService) SelectTopic(ctx context.Context, nicheID *uint) (topic string, nicheName string) {
	if nicheID != nil {
		niche, err := s.store.GetNiche(ctx, *nicheID)
		if err != nil {
			s.logger.Warn("Failed to resolve niche, using default topics",
				zap.Uint("niche_id", *nicheID),
				zap.Error(err))
		} else {
			if len(niche.Topics) > 0 {
				return niche.Topics[rand.Intn(len(niche.Topics))], niche.Name
			}
			return defaultTopics[rand.Intn(len(defaultTopics))], niche.Name
		}
	}

	return defaultTopics[rand.Intn(len(defaultTopics))], "General"
}

// GenerateContent produces post text for a topic. Provider failures and
// missing credentials degrade to the static templates instead of erroring.
func (s *ContentService) GenerateContent(ctx context.Context, topic, nicheName string) string {
	if s.config.Token == "" {
		return fallbackContent(topic)
	}

	content, err := s.chatCompletion(ctx, topic, nicheName)
	if err != nil {
		s.logger.Warn("AI content generation failed, using fallback template",
			zap.String("topic", topic),
			zap.Error(err))
		return fallbackContent(topic)
	}

	return util.CleanGeneratedText(content)
}

// GenerateUniqueContent generates content and rejects hashes already in
// storage, regenerating up to maxGenerateAttempts times before giving up
// with ErrDuplicateContent.
func (s *ContentService) GenerateUniqueContent(ctx context.Context, topic, nicheName string) (string, string, error) {
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		content := s.GenerateContent(ctx, topic, nicheName)
		hash := HashContent(content)

		exists, err := s.store.ContentHashExists(ctx, hash)
		if err != nil {
			return "", "", fmt.Errorf("failed to check content hash: %w", err)
		}
		if !exists {
			return content, hash, nil
		}

		s.logger.Info("Duplicate content detected, regenerating",
			zap.String("topic", topic),
			zap.Int("attempt", attempt))
	}

	return "", "", ErrDuplicateContent
}

// HashContent returns the digest used to enforce the no-duplicate-content
// invariant.
func HashContent(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *ContentService) chatCompletion(ctx context.Context, topic, nicheName string) (string, error) {
	url := s.config.BaseURL + "/chat/completions"

	body := chatRequest{
		Model: s.config.Model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: fmt.Sprintf("You are an expert %s content creator. Create engaging content for "+
					"LinkedIn posts. Include practical insights and add appropriate hashtags.", nicheName),
			},
			{
				Role: "user",
				Content: fmt.Sprintf(`Create a LinkedIn post about %s. The post should include:
1. An engaging and attention-grabbing title
2. Clear insights explained in a professional yet approachable tone
3. Practical examples or use cases (if applicable)
4. Actionable best practices or tips
5. 3-5 relevant and trending hashtags
Keep the post concise, impactful, and under 1300 characters. Do not mention or include the character count in the response.`, topic),
			},
		},
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("content API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", errors.New("content API returned no choices")
	}

	return response.Choices[0].Message.Content, nil
}

func fallbackContent(topic string) string {
	if template, ok := fallbackTemplates[topic]; ok {
		return template
	}

	return fmt.Sprintf("📚 %s\n\nExploring new concepts and sharing insights. Stay tuned for more!\n\n#React #JavaScript #WebDevelopment #Programming", topic)
}
