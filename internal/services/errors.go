package services

import "errors"

// Failure taxonomy surfaced by the services. Handlers map these onto HTTP
// statuses at the request boundary; anything unlisted is an internal failure.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrGroupNotFound = errors.New("group not found")
	ErrRoleNotFound  = errors.New("role not found")
	ErrPostNotFound  = errors.New("post not found")

	ErrGroupNameTaken  = errors.New("group with this name already exists")
	ErrRoleValueTaken  = errors.New("role with this value already exists")
	ErrUserHasRole     = errors.New("user already has this role")
	ErrUserLacksRole   = errors.New("user does not have this role")
	ErrDefaultRoleKept = errors.New("the default role cannot be removed from a user")
)
