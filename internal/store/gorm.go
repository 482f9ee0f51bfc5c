package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/spotlighthq/spotlight/internal/config"
	"github.com/spotlighthq/spotlight/internal/models"
)

// GormStore implements Store on top of gorm/postgres.
type GormStore struct {
	db *gorm.DB
}

func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode, cfg.TimeZone)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate the schema
	if err := db.AutoMigrate(
		&models.User{},
		&models.Niche{},
		&models.Post{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *GormStore) SavePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Save(post).Error
}

func (s *GormStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *GormStore) ListPosts(ctx context.Context, userID uint, status string, page, limit int) ([]models.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := s.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := query.Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&posts).Error
	return posts, total, err
}

func (s *GormStore) ContentHashExists(ctx context.Context, hash string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("content_hash = ?", hash).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) PostsAwaitingVideo(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.StatusPending, models.StatusProcessing}).
		Where("video_id <> ''").
		Find(&posts).Error
	return posts, err
}

func (s *GormStore) PostsDueForPublish(ctx context.Context, now time.Time) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusReady).
		Where("publish_state = ?", models.PublishStateUnpublished).
		Where("next_attempt_at IS NOT NULL AND next_attempt_at <= ?", now).
		Find(&posts).Error
	return posts, err
}

func (s *GormStore) UserPostCountSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (s *GormStore) PostStats(ctx context.Context, userID uint) (*PostStats, error) {
	stats := &PostStats{}
	db := s.db.WithContext(ctx).Model(&models.Post{})

	if err := db.Where("user_id = ?", userID).Count(&stats.TotalPosts).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ? AND publish_state = ?", userID, models.PublishStatePublished).
		Count(&stats.PublishedPosts).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ? AND (status = ? OR publish_state = ?)", userID, models.StatusFailed, models.PublishStateFailed).
		Count(&stats.FailedPosts).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ? AND status IN ? AND publish_state = ?",
			userID,
			[]string{models.StatusPending, models.StatusProcessing, models.StatusReady},
			models.PublishStateUnpublished).
		Count(&stats.InFlightPosts).Error; err != nil {
		return nil, err
	}

	var last models.Post
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND publish_state = ?", userID, models.PublishStatePublished).
		Order("posted_at DESC").
		First(&last).Error
	if err == nil {
		stats.LastPublished = &last
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return stats, nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *GormStore) UsersWithPostingHour(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("posting_hour = ?", hour).
		Find(&users).Error
	return users, err
}

func (s *GormStore) GetNiche(ctx context.Context, id uint) (*models.Niche, error) {
	var niche models.Niche
	if err := s.db.WithContext(ctx).First(&niche, id).Error; err != nil {
		return nil, err
	}
	return &niche, nil
}

func (s *GormStore) ListNiches(ctx context.Context) ([]models.Niche, error) {
	var niches []models.Niche
	err := s.db.WithContext(ctx).Order("name").Find(&niches).Error
	return niches, err
}

// SeedNiches upserts the default niche catalog on startup.
func (s *GormStore) SeedNiches(ctx context.Context) error {
	niches := []models.Niche{
		{
			Name:        "Fitness",
			Description: "Health, workout, and wellness content.",
			Topics:      models.StringArray{"Workout routines", "Nutrition tips", "Mental health", "Supplements"},
		},
		{
			Name:        "Education",
			Description: "Learning, tutorials, and academic content.",
			Topics:      models.StringArray{"Study tips", "Course reviews", "Career advice", "Technical tutorials"},
		},
		{
			Name:        "Tech",
			Description: "Software, gadgets, and industry news.",
			Topics:      models.StringArray{"Programming", "AI/ML", "Cybersecurity", "Gadget reviews"},
		},
		{
			Name:        "Finance",
			Description: "Personal finance, investing, and market news.",
			Topics:      models.StringArray{"Stock market", "Crypto", "Budgeting", "Real estate"},
		},
	}

	for _, niche := range niches {
		var existing models.Niche
		err := s.db.WithContext(ctx).Where("name = ?", niche.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.db.WithContext(ctx).Create(&niche).Error; err != nil {
				return fmt.Errorf("failed to seed niche %s: %w", niche.Name, err)
			}
			continue
		}
		if err != nil {
			return err
		}
		existing.Description = niche.Description
		existing.Topics = niche.Topics
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update niche %s: %w", niche.Name, err)
		}
	}

	return nil
}
