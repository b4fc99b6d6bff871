package database

import (
	"fmt"

	"github.com/trainup/backend/internal/config"
	"github.com/trainup/backend/internal/models"
	"github.com/trainup/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig, auth config.AuthConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := SeedRoles(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db, auth); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Group{},
		&models.Post{},
	)
}

// SeedRoles guarantees the catalog's built-in tags exist. Registration depends
// on the USER role being resolvable, so this runs before the server accepts
// requests.
func SeedRoles(db *gorm.DB) error {
	seed := []models.Role{
		{Value: models.RoleAdmin, Description: ptr("Administrator")},
		{Value: models.RoleUser, Description: ptr("Regular user")},
		{Value: models.RoleTrainer, Description: ptr("Trainer")},
	}

	for _, role := range seed {
		var count int64
		if err := db.Model(&models.Role{}).Where("value = ?", role.Value).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&role).Error; err != nil {
			return err
		}
	}

	return nil
}

func seedAdminUser(db *gorm.DB, auth config.AuthConfig) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(auth.AdminSecret)
	if err != nil {
		return err
	}

	var adminRole models.Role
	if err := db.First(&adminRole, "value = ?", models.RoleAdmin).Error; err != nil {
		return err
	}

	admin := models.User{
		Email:        auth.AdminEmail,
		PasswordHash: hash,
		FirstName:    ptr("System"),
		LastName:     ptr("Admin"),
		Roles:        []models.Role{adminRole},
	}

	return db.Create(&admin).Error
}

func ptr(s string) *string {
	return &s
}
