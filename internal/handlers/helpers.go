package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/trainup/backend/internal/services"
	"github.com/trainup/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// serviceError maps the service failure taxonomy onto transport statuses.
// Conflict-class violations map to 400, keeping the published contract.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrRoleNotFound),
		errors.Is(err, services.ErrPostNotFound):
		return utils.Error(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrGroupNameTaken),
		errors.Is(err, services.ErrRoleValueTaken),
		errors.Is(err, services.ErrUserHasRole),
		errors.Is(err, services.ErrUserLacksRole),
		errors.Is(err, services.ErrDefaultRoleKept):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "something went wrong")
	}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
