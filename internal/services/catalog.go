package services

import (
	"context"
	"strings"
	"sync"

	"github.com/trainup/backend/internal/models"
	"gorm.io/gorm"
)

// RoleCatalog is the source of truth for which role tags exist. The read path
// is served from a process-wide cache since role lookups happen on every
// registration and grant; every catalog mutation refreshes the cache.
type RoleCatalog struct {
	DB *gorm.DB

	mu      sync.RWMutex
	byValue map[models.RoleTag]models.Role
}

func NewRoleCatalog(db *gorm.DB) *RoleCatalog {
	return &RoleCatalog{
		DB:      db,
		byValue: make(map[models.RoleTag]models.Role),
	}
}

// Warm populates the cache; called once at startup after seeding.
func (rc *RoleCatalog) Warm(ctx context.Context) error {
	return rc.refresh(ctx)
}

func (rc *RoleCatalog) refresh(ctx context.Context) error {
	var roles []models.Role
	if err := rc.DB.WithContext(ctx).Find(&roles).Error; err != nil {
		return err
	}

	next := make(map[models.RoleTag]models.Role, len(roles))
	for _, role := range roles {
		next[role.Value] = role
	}

	rc.mu.Lock()
	rc.byValue = next
	rc.mu.Unlock()
	return nil
}

func (rc *RoleCatalog) Lookup(ctx context.Context, value models.RoleTag) (models.Role, error) {
	value = normalizeTag(value)

	rc.mu.RLock()
	role, ok := rc.byValue[value]
	rc.mu.RUnlock()
	if ok {
		return role, nil
	}

	// Cache miss falls through to storage so a catalog seeded by another
	// process is still visible.
	var stored models.Role
	err := rc.DB.WithContext(ctx).First(&stored, "value = ?", value).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, err
	}

	rc.mu.Lock()
	rc.byValue[stored.Value] = stored
	rc.mu.Unlock()
	return stored, nil
}

func (rc *RoleCatalog) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := rc.DB.WithContext(ctx).Order("value ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (rc *RoleCatalog) Create(ctx context.Context, value models.RoleTag, description *string) (models.Role, error) {
	value = normalizeTag(value)

	if _, err := rc.Lookup(ctx, value); err == nil {
		return models.Role{}, ErrRoleValueTaken
	} else if err != ErrRoleNotFound {
		return models.Role{}, err
	}

	role := models.Role{Value: value, Description: description}
	if err := rc.DB.WithContext(ctx).Create(&role).Error; err != nil {
		return models.Role{}, err
	}

	if err := rc.refresh(ctx); err != nil {
		return models.Role{}, err
	}
	return role, nil
}

func (rc *RoleCatalog) UpdateDescription(ctx context.Context, value models.RoleTag, description *string) (models.Role, error) {
	role, err := rc.Lookup(ctx, normalizeTag(value))
	if err != nil {
		return models.Role{}, err
	}

	role.Description = description
	if err := rc.DB.WithContext(ctx).Save(&role).Error; err != nil {
		return models.Role{}, err
	}

	if err := rc.refresh(ctx); err != nil {
		return models.Role{}, err
	}
	return role, nil
}

func (rc *RoleCatalog) Remove(ctx context.Context, value models.RoleTag) error {
	role, err := rc.Lookup(ctx, normalizeTag(value))
	if err != nil {
		return err
	}

	err = rc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_roles WHERE role_id = ?", role.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Role{}, "id = ?", role.ID).Error
	})
	if err != nil {
		return err
	}

	return rc.refresh(ctx)
}

func normalizeTag(value models.RoleTag) models.RoleTag {
	return models.RoleTag(strings.ToUpper(strings.TrimSpace(string(value))))
}
