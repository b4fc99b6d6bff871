package handlers

import (
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trainup/backend/internal/middleware"
	"github.com/trainup/backend/internal/models"
	"github.com/trainup/backend/internal/services"
	"github.com/trainup/backend/internal/storage"
	"github.com/trainup/backend/pkg/logger"
	"github.com/trainup/backend/pkg/utils"
	"gorm.io/gorm"
)

const maxAvatarSize = 1 * 1024 * 1024

type UsersHandler struct {
	DB         *gorm.DB
	Catalog    *services.RoleCatalog
	Membership *services.MembershipCoordinator
	Storage    *storage.MinIOClient
}

func NewUsersHandler(db *gorm.DB, catalog *services.RoleCatalog, membership *services.MembershipCoordinator, store *storage.MinIOClient) *UsersHandler {
	return &UsersHandler{DB: db, Catalog: catalog, Membership: membership, Storage: store}
}

type createUserRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	var existing models.User
	if err := h.DB.First(&existing, "email = ?", req.Email).Error; err == nil {
		return utils.Error(c, fiber.StatusBadRequest, "user with this email already exists")
	} else if err != gorm.ErrRecordNotFound {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	defaultRole, err := h.Catalog.Lookup(c.Context(), models.RoleUser)
	if err != nil {
		return serviceError(c, err)
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    trimmedOrNil(req.FirstName),
		LastName:     trimmedOrNil(req.LastName),
		Roles:        []models.Role{defaultRole},
	}

	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "user with this email already exists")
	}

	logger.Info("user_created", map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
	})

	return utils.Success(c, fiber.StatusOK, user)
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}
	if total == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no users found")
	}

	var users []models.User
	err := utils.ApplyPagination(h.DB.Preload("Roles").Order("created_at DESC"), p).Find(&users).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.Preload("Roles").First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user with such id not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}

	return utils.Success(c, fiber.StatusOK, user)
}

func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	// The coordinator detaches membership, trainer assignments and role
	// grants before the row goes away.
	if err := h.Membership.RemoveUser(c.Context(), userID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user deleted"})
}

type addRoleRequest struct {
	UserID uuid.UUID `json:"userId"`
	Value  string    `json:"value"`
}

func (h *UsersHandler) AddRole(c *fiber.Ctx) error {
	var req addRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == uuid.Nil || strings.TrimSpace(req.Value) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "userId and value are required")
	}

	role, err := h.Catalog.Lookup(c.Context(), models.RoleTag(strings.ToUpper(strings.TrimSpace(req.Value))))
	if err != nil {
		return serviceError(c, err)
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Preload("Roles").First(&user, "id = ?", req.UserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return services.ErrUserNotFound
			}
			return err
		}
		if user.HasRole(role.Value) {
			return services.ErrUserHasRole
		}
		return tx.Model(&user).Association("Roles").Append(&role)
	})
	if err != nil {
		return serviceError(c, err)
	}

	logger.Info("role_granted", map[string]interface{}{
		"user_id": req.UserID.String(),
		"role":    string(role.Value),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "role added"})
}

type removeRoleRequest struct {
	Value string `json:"value"`
}

// RemoveRole drops the matching role grant. The default USER role can never
// be stripped, so every account keeps at least one role.
func (h *UsersHandler) RemoveRole(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req removeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	tag := models.RoleTag(strings.ToUpper(strings.TrimSpace(req.Value)))
	if tag == models.RoleUser {
		return serviceError(c, services.ErrDefaultRoleKept)
	}

	role, err := h.Catalog.Lookup(c.Context(), tag)
	if err != nil {
		return serviceError(c, err)
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Preload("Roles").First(&user, "id = ?", userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return services.ErrUserNotFound
			}
			return err
		}
		if !user.HasRole(role.Value) {
			return services.ErrUserLacksRole
		}
		return tx.Model(&user).Association("Roles").Delete(&role)
	})
	if err != nil {
		return serviceError(c, err)
	}

	logger.Info("role_revoked", map[string]interface{}{
		"user_id": userID.String(),
		"role":    string(role.Value),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "role removed"})
}

func (h *UsersHandler) UploadAvatar(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if h.Storage == nil {
		return utils.Error(c, fiber.StatusInternalServerError, "storage not configured")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxAvatarSize {
		return utils.Error(c, fiber.StatusBadRequest, "file exceeds the 1MB limit")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return utils.Error(c, fiber.StatusBadRequest, "only png and jpeg images are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed reading upload")
	}
	defer file.Close()

	objectName := fmt.Sprintf("avatars/%s%s", uuid.New().String(), ext)
	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.Storage.Upload(c.Context(), objectName, file, fileHeader.Size, contentType); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed storing avatar")
	}

	avatarURL := h.Storage.PublicURL(objectName)

	previous := currentUser.AvatarURL
	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("avatar_url", avatarURL).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating avatar")
	}

	if previous != nil {
		if oldObject := h.Storage.ObjectNameFromURL(*previous); oldObject != "" {
			_ = h.Storage.Delete(c.Context(), oldObject)
		}
	}

	logger.InfoWithUser(currentUser.ID.String(), "avatar_uploaded", map[string]interface{}{
		"object": objectName,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"avatar": avatarURL})
}

func (h *UsersHandler) DeleteAvatar(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if currentUser.AvatarURL != nil && h.Storage != nil {
		if objectName := h.Storage.ObjectNameFromURL(*currentUser.AvatarURL); objectName != "" {
			_ = h.Storage.Delete(c.Context(), objectName)
		}
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", currentUser.ID).Update("avatar_url", nil).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed removing avatar")
	}

	logger.InfoWithUser(currentUser.ID.String(), "avatar_removed", nil)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "avatar removed"})
}
