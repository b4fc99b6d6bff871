package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/trainup/backend/internal/models"
	"github.com/trainup/backend/internal/services"
	"github.com/trainup/backend/pkg/logger"
	"github.com/trainup/backend/pkg/utils"
)

type RolesHandler struct {
	Catalog *services.RoleCatalog
}

func NewRolesHandler(catalog *services.RoleCatalog) *RolesHandler {
	return &RolesHandler{Catalog: catalog}
}

type createRoleRequest struct {
	Value       string  `json:"value"`
	Description *string `json:"description"`
}

func (h *RolesHandler) Create(c *fiber.Ctx) error {
	var req createRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Value) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "value is required")
	}

	role, err := h.Catalog.Create(c.Context(), models.RoleTag(req.Value), trimmedOrNil(req.Description))
	if err != nil {
		return serviceError(c, err)
	}

	logger.Info("role_created", map[string]interface{}{
		"role": string(role.Value),
	})

	return utils.Success(c, fiber.StatusOK, role)
}

func (h *RolesHandler) List(c *fiber.Ctx) error {
	roles, err := h.Catalog.List(c.Context())
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing roles")
	}
	if len(roles) == 0 {
		return utils.Error(c, fiber.StatusNotFound, "no roles found")
	}

	return utils.Success(c, fiber.StatusOK, roles)
}

func (h *RolesHandler) GetByValue(c *fiber.Ctx) error {
	role, err := h.Catalog.Lookup(c.Context(), models.RoleTag(strings.ToUpper(c.Params("value"))))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, role)
}

type updateRoleRequest struct {
	Description *string `json:"description"`
}

func (h *RolesHandler) Update(c *fiber.Ctx) error {
	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	role, err := h.Catalog.UpdateDescription(c.Context(), models.RoleTag(c.Params("value")), trimmedOrNil(req.Description))
	if err != nil {
		return serviceError(c, err)
	}

	logger.Info("role_updated", map[string]interface{}{
		"role": string(role.Value),
	})

	return utils.Success(c, fiber.StatusOK, role)
}

func (h *RolesHandler) Delete(c *fiber.Ctx) error {
	tag := models.RoleTag(strings.ToUpper(c.Params("value")))

	if err := h.Catalog.Remove(c.Context(), tag); err != nil {
		return serviceError(c, err)
	}

	logger.Info("role_deleted", map[string]interface{}{
		"role": string(tag),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "role deleted"})
}
