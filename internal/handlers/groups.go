package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/trainup/backend/internal/middleware"
	"github.com/trainup/backend/internal/services"
	"github.com/trainup/backend/pkg/utils"
)

// GroupsHandler is transport glue only; every mutation of the user-group
// relation goes through the membership coordinator.
type GroupsHandler struct {
	Membership *services.MembershipCoordinator
}

func NewGroupsHandler(membership *services.MembershipCoordinator) *GroupsHandler {
	return &GroupsHandler{Membership: membership}
}

type createGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	group, err := h.Membership.CreateGroup(c.Context(), req.Name, trimmedOrNil(req.Description))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, group)
}

func (h *GroupsHandler) CreateWithTrainer(c *fiber.Ctx) error {
	trainerID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	group, err := h.Membership.CreateGroupWithTrainer(c.Context(), trainerID, req.Name, trimmedOrNil(req.Description))
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, group)
}

// TrainingGroups returns the groups the caller trains, members included.
func (h *GroupsHandler) TrainingGroups(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groups, err := h.Membership.ListGroupsByTrainer(c.Context(), currentUser.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing training groups")
	}

	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) List(c *fiber.Ctx) error {
	groups, err := h.Membership.ListGroups(c.Context())
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing groups")
	}

	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	group, err := h.Membership.GetGroupWithMembers(c.Context(), groupID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, group)
}

func (h *GroupsHandler) Join(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Membership.JoinGroup(c.Context(), groupID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "group joined"})
}

func (h *GroupsHandler) Leave(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Membership.LeaveGroup(c.Context(), groupID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "group left"})
}

func (h *GroupsHandler) LeaveByTrainer(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Membership.LeaveGroupByTrainer(c.Context(), groupID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "trainer removed from group"})
}

func (h *GroupsHandler) Delete(c *fiber.Ctx) error {
	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if err := h.Membership.RemoveGroup(c.Context(), groupID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "group deleted"})
}
