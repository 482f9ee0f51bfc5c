package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/spotlighthq/spotlight/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    logger.Config   `yaml:"logger"`
	Content   ContentConfig   `yaml:"content"`
	Images    ImagesConfig    `yaml:"images"`
	HeyGen    HeyGenConfig    `yaml:"heygen"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Auth      AuthConfig      `yaml:"auth"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type ContentConfig struct {
	Token       string  `yaml:"token"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type ImagesConfig struct {
	UnsplashAccessKey string `yaml:"unsplash_access_key"`
	PexelsAPIKey      string `yaml:"pexels_api_key"`
	UnsplashBaseURL   string `yaml:"unsplash_base_url"`
	PexelsBaseURL     string `yaml:"pexels_base_url"`
}

type HeyGenConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	UploadURL string `yaml:"upload_url"`
}

type LinkedInConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	APIBaseURL   string `yaml:"api_base_url"`
	TokenURL     string `yaml:"token_url"`
}

type SchedulerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	PollInterval     string `yaml:"poll_interval"`
	ScheduleInterval string `yaml:"schedule_interval"`
	Timezone         string `yaml:"timezone"`
}

type AuthConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TOTPSecret string `yaml:"totp_secret"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5341
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Content.BaseURL == "" {
		cfg.Content.BaseURL = "https://router.huggingface.co/v1"
	}
	if cfg.Content.Model == "" {
		cfg.Content.Model = "deepseek-ai/DeepSeek-R1"
	}
	if cfg.Content.MaxTokens == 0 {
		cfg.Content.MaxTokens = 500
	}
	if cfg.Content.Temperature == 0 {
		cfg.Content.Temperature = 0.7
	}
	if cfg.Images.UnsplashBaseURL == "" {
		cfg.Images.UnsplashBaseURL = "https://api.unsplash.com"
	}
	if cfg.Images.PexelsBaseURL == "" {
		cfg.Images.PexelsBaseURL = "https://api.pexels.com"
	}
	if cfg.HeyGen.BaseURL == "" {
		cfg.HeyGen.BaseURL = "https://api.heygen.com"
	}
	if cfg.HeyGen.UploadURL == "" {
		cfg.HeyGen.UploadURL = "https://upload.heygen.com"
	}
	if cfg.LinkedIn.APIBaseURL == "" {
		cfg.LinkedIn.APIBaseURL = "https://api.linkedin.com"
	}
	if cfg.Scheduler.PollInterval == "" {
		cfg.Scheduler.PollInterval = "1m"
	}
	if cfg.Scheduler.ScheduleInterval == "" {
		cfg.Scheduler.ScheduleInterval = "1h"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}

	return cfg, nil
}
