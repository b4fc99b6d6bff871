package services

import (
	"context"
	"errors"
	"testing"

	"github.com/trainup/backend/internal/models"
	"gorm.io/gorm"
)

func seedCatalogRoles(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, tag := range []models.RoleTag{models.RoleAdmin, models.RoleUser, models.RoleTrainer} {
		role := models.Role{Value: tag}
		if err := db.Create(&role).Error; err != nil {
			t.Fatalf("failed seeding role %s: %v", tag, err)
		}
	}
}

func TestRoleCatalog_Lookup(t *testing.T) {
	db := setupServicesTestDB(t)
	seedCatalogRoles(t, db)

	catalog := NewRoleCatalog(db)
	ctx := context.Background()
	if err := catalog.Warm(ctx); err != nil {
		t.Fatalf("warm failed: %v", err)
	}

	t.Run("cached hit", func(t *testing.T) {
		role, err := catalog.Lookup(ctx, models.RoleAdmin)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if role.Value != models.RoleAdmin {
			t.Fatalf("expected ADMIN, got %s", role.Value)
		}
	})

	t.Run("lookup normalizes the tag", func(t *testing.T) {
		role, err := catalog.Lookup(ctx, "  trainer ")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if role.Value != models.RoleTrainer {
			t.Fatalf("expected TRAINER, got %s", role.Value)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		if _, err := catalog.Lookup(ctx, "WIZARD"); !errors.Is(err, ErrRoleNotFound) {
			t.Fatalf("expected ErrRoleNotFound, got %v", err)
		}
	})

	t.Run("cache falls through to the database", func(t *testing.T) {
		// A role inserted behind the catalog's back is still found.
		role := models.Role{Value: "COACH"}
		if err := db.Create(&role).Error; err != nil {
			t.Fatalf("failed inserting role: %v", err)
		}
		got, err := catalog.Lookup(ctx, "COACH")
		if err != nil {
			t.Fatalf("expected fallthrough lookup to succeed: %v", err)
		}
		if got.ID != role.ID {
			t.Fatalf("expected the inserted role, got %s", got.ID)
		}
	})
}

func TestRoleCatalog_Mutations(t *testing.T) {
	db := setupServicesTestDB(t)
	seedCatalogRoles(t, db)

	catalog := NewRoleCatalog(db)
	ctx := context.Background()
	if err := catalog.Warm(ctx); err != nil {
		t.Fatalf("warm failed: %v", err)
	}

	t.Run("create normalizes and caches", func(t *testing.T) {
		desc := "External coaching staff"
		role, err := catalog.Create(ctx, "coach", &desc)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if role.Value != "COACH" {
			t.Fatalf("expected normalized COACH, got %s", role.Value)
		}

		if _, err := catalog.Lookup(ctx, "COACH"); err != nil {
			t.Fatalf("expected fresh role in catalog: %v", err)
		}
	})

	t.Run("duplicate create", func(t *testing.T) {
		if _, err := catalog.Create(ctx, "COACH", nil); !errors.Is(err, ErrRoleValueTaken) {
			t.Fatalf("expected ErrRoleValueTaken, got %v", err)
		}
	})

	t.Run("update description", func(t *testing.T) {
		desc := "Updated"
		role, err := catalog.UpdateDescription(ctx, "COACH", &desc)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if role.Description == nil || *role.Description != "Updated" {
			t.Fatalf("expected updated description, got %v", role.Description)
		}
	})

	t.Run("remove drops grants first", func(t *testing.T) {
		user := createServiceUser(t, db, "granted@test.com")
		var role models.Role
		if err := db.First(&role, "value = ?", "COACH").Error; err != nil {
			t.Fatalf("failed loading role: %v", err)
		}
		if err := db.Model(user).Association("Roles").Append(&role); err != nil {
			t.Fatalf("failed granting role: %v", err)
		}

		if err := catalog.Remove(ctx, "COACH"); err != nil {
			t.Fatalf("remove failed: %v", err)
		}

		var count int64
		db.Table("user_roles").Where("role_id = ?", role.ID).Count(&count)
		if count != 0 {
			t.Fatalf("expected grants removed, found %d", count)
		}
		if _, err := catalog.Lookup(ctx, "COACH"); !errors.Is(err, ErrRoleNotFound) {
			t.Fatalf("expected role gone from catalog, got %v", err)
		}
	})

	t.Run("remove unknown role", func(t *testing.T) {
		if err := catalog.Remove(ctx, "WIZARD"); !errors.Is(err, ErrRoleNotFound) {
			t.Fatalf("expected ErrRoleNotFound, got %v", err)
		}
	})

	t.Run("list is ordered and complete", func(t *testing.T) {
		roles, err := catalog.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(roles) != 3 {
			t.Fatalf("expected 3 roles, got %d", len(roles))
		}
	})
}
