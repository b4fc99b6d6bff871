package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trainup/backend/internal/models"
	"github.com/trainup/backend/internal/services"
	"github.com/trainup/backend/internal/storage"
	"github.com/trainup/backend/pkg/logger"
	"github.com/trainup/backend/pkg/utils"
	"gorm.io/gorm"
)

const maxVideoSize = 50 * 1024 * 1024

type PostsHandler struct {
	DB      *gorm.DB
	Storage *storage.MinIOClient
}

func NewPostsHandler(db *gorm.DB, store *storage.MinIOClient) *PostsHandler {
	return &PostsHandler{DB: db, Storage: store}
}

type createPostRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	GroupID     uuid.UUID `json:"groupId"`
}

func (h *PostsHandler) Create(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}
	if req.GroupID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "groupId is required")
	}

	var count int64
	if err := h.DB.Model(&models.Group{}).Where("id = ?", req.GroupID).Count(&count).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking group")
	}
	if count == 0 {
		return serviceError(c, services.ErrGroupNotFound)
	}

	post := models.Post{
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		GroupID:     req.GroupID,
	}

	if err := h.DB.Create(&post).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating post")
	}

	logger.Info("post_created", map[string]interface{}{
		"post_id":  post.ID.String(),
		"group_id": post.GroupID.String(),
	})

	return utils.Success(c, fiber.StatusOK, post)
}

func (h *PostsHandler) ListByGroup(c *fiber.Ctx) error {
	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var count int64
	if err := h.DB.Model(&models.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking group")
	}
	if count == 0 {
		return serviceError(c, services.ErrGroupNotFound)
	}

	var posts []models.Post
	if err := h.DB.Where("group_id = ?", groupID).Order("created_at DESC").Find(&posts).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing posts")
	}

	return utils.Success(c, fiber.StatusOK, posts)
}

func (h *PostsHandler) UploadVideo(c *fiber.Ctx) error {
	postID, err := parseUUID(c.Params("postId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}
	if h.Storage == nil {
		return utils.Error(c, fiber.StatusInternalServerError, "storage not configured")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return serviceError(c, services.ErrPostNotFound)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxVideoSize {
		return utils.Error(c, fiber.StatusBadRequest, "file exceeds the 50MB limit")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".mp4" && ext != ".mov" && ext != ".webm" {
		return utils.Error(c, fiber.StatusBadRequest, "only mp4, mov and webm videos are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading upload")
	}
	defer file.Close()

	objectName := fmt.Sprintf("videos/%s%s", uuid.New().String(), ext)
	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.Storage.Upload(c.Context(), objectName, file, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing video")
	}

	videoURL := h.Storage.PublicURL(objectName)

	previous := post.VideoURL
	if err := h.DB.Model(&models.Post{}).Where("id = ?", postID).Update("video_url", videoURL).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating post")
	}

	if previous != nil {
		if oldObject := h.Storage.ObjectNameFromURL(*previous); oldObject != "" {
			_ = h.Storage.Delete(c.Context(), oldObject)
		}
	}

	logger.Info("post_video_uploaded", map[string]interface{}{
		"post_id": postID.String(),
		"object":  objectName,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"videoURL": videoURL})
}

func (h *PostsHandler) DeleteVideo(c *fiber.Ctx) error {
	postID, err := parseUUID(c.Params("postId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return serviceError(c, services.ErrPostNotFound)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	if post.VideoURL != nil && h.Storage != nil {
		if objectName := h.Storage.ObjectNameFromURL(*post.VideoURL); objectName != "" {
			_ = h.Storage.Delete(c.Context(), objectName)
		}
	}

	if err := h.DB.Model(&models.Post{}).Where("id = ?", postID).Update("video_url", nil).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating post")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "video removed"})
}

func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	postID, err := parseUUID(c.Params("postId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return serviceError(c, services.ErrPostNotFound)
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	if post.VideoURL != nil && h.Storage != nil {
		if objectName := h.Storage.ObjectNameFromURL(*post.VideoURL); objectName != "" {
			_ = h.Storage.Delete(c.Context(), objectName)
		}
	}

	if err := h.DB.Delete(&models.Post{}, "id = ?", postID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting post")
	}

	logger.Info("post_deleted", map[string]interface{}{
		"post_id": postID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "post deleted"})
}
