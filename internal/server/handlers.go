package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spotlighthq/spotlight/internal/models"
	"github.com/spotlighthq/spotlight/internal/service"
)

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if !s.Auth.ValidateToken(req.Token) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	session := s.Auth.CreateSession()
	c.SetCookie("auth_token", session, 86400, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}

func (s *Server) handleListPosts(c *gin.Context) {
	userID, ok := s.userIDParam(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	status := c.Query("status")

	posts, total, err := s.Store.ListPosts(c.Request.Context(), userID, status, page, limit)
	if err != nil {
		s.Logger.Error("Failed to list posts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":        posts,
		"total":        total,
		"total_pages":  totalPages,
		"current_page": page,
	})
}

func (s *Server) handlePostStats(c *gin.Context) {
	userID, ok := s.userIDParam(c)
	if !ok {
		return
	}

	stats, err := s.Stats.UserStats(c.Request.Context(), userID)
	if err != nil {
		s.Logger.Error("Failed to compute post stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch statistics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	post, err := s.AutoPost.CreatePostForUser(c.Request.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSetupIncomplete):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Complete avatar setup before creating posts"})
		case errors.Is(err, service.ErrDuplicateContent):
			c.JSON(http.StatusConflict, gin.H{"error": "Generated content duplicates an existing post"})
		default:
			s.Logger.Error("Failed to create post",
				zap.Uint("user_id", req.UserID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Video generation initiated",
		"post":    post,
	})
}

// handleRetryPost re-arms a post for the scheduler's publish path with a
// fresh retry budget.
func (s *Server) handleRetryPost(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	post, err := s.Store.GetPost(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	post.Retries = 0
	post.ErrorMessage = ""
	post.PublishState = models.PublishStateUnpublished
	if post.VideoURL != "" || (post.VideoID == "" && post.ImageURL != "") {
		// Media already available, go straight back to the publish queue
		post.Status = models.StatusReady
		now := time.Now()
		post.NextAttemptAt = &now
	} else {
		post.Status = models.StatusPending
		post.NextAttemptAt = nil
	}

	if err := s.Store.SavePost(c.Request.Context(), post); err != nil {
		s.Logger.Error("Failed to re-arm post", zap.Uint("post_id", post.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retry post"})
		return
	}

	s.Logger.Info("Post retry initiated", zap.Uint("post_id", post.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Post retry initiated"})
}

func (s *Server) handleUpdatePost(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	post, err := s.Store.GetPost(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	var req struct {
		Title    *string `json:"title"`
		Content  *string `json:"content"`
		Platform *string `json:"platform"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil && *req.Content != post.Content {
		hash := service.HashContent(*req.Content)
		if hash != post.ContentHash {
			exists, err := s.Store.ContentHashExists(c.Request.Context(), hash)
			if err != nil {
				s.Logger.Error("Failed to check content hash", zap.Uint("post_id", post.ID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
				return
			}
			if exists {
				c.JSON(http.StatusConflict, gin.H{"error": "Content duplicates an existing post"})
				return
			}
		}
		post.Content = *req.Content
		post.ContentHash = hash
	}
	if req.Platform != nil {
		post.Platform = *req.Platform
	}

	if err := s.Store.SavePost(c.Request.Context(), post); err != nil {
		s.Logger.Error("Failed to update post", zap.Uint("post_id", post.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post updated successfully", "post": post})
}

func (s *Server) handleListNiches(c *gin.Context) {
	niches, err := s.Store.ListNiches(c.Request.Context())
	if err != nil {
		s.Logger.Error("Failed to list niches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch niches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"niches": niches})
}

func (s *Server) handleListPlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": s.Publishers.AvailablePlatforms()})
}

func (s *Server) handleProvisionAvatar(c *gin.Context) {
	userID, err := strconv.ParseUint(c.PostForm("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read photo"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read photo"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	user, err := s.AvatarService.ProvisionAvatar(c.Request.Context(), uint(userID), data, contentType)
	if err != nil {
		s.Logger.Error("Avatar provisioning failed",
			zap.Uint64("user_id", userID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Avatar provisioning failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Avatar provisioned successfully",
		"user":    user,
	})
}

func (s *Server) userIDParam(c *gin.Context) (uint, bool) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return 0, false
	}
	return uint(userID), true
}
