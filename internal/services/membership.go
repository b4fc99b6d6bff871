package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/trainup/backend/internal/models"
	"github.com/trainup/backend/pkg/logger"
	"gorm.io/gorm"
)

// MembershipCoordinator is the only writer of the user-group relation and the
// group's trainer field. Every mutating operation resolves its targets first
// and runs inside a single transaction, so a failure partway leaves no
// intermediate state behind.
type MembershipCoordinator struct {
	DB *gorm.DB
}

func NewMembershipCoordinator(db *gorm.DB) *MembershipCoordinator {
	return &MembershipCoordinator{DB: db}
}

func (m *MembershipCoordinator) CreateGroup(ctx context.Context, name string, description *string) (models.Group, error) {
	name = strings.TrimSpace(name)

	group := models.Group{Name: name, Description: description}
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.checkNameFree(tx, name); err != nil {
			return err
		}
		return tx.Create(&group).Error
	})
	if err != nil {
		return models.Group{}, err
	}

	logger.Info("group_created", map[string]interface{}{
		"group_id":   group.ID.String(),
		"group_name": group.Name,
	})
	return group, nil
}

func (m *MembershipCoordinator) CreateGroupWithTrainer(ctx context.Context, trainerID uuid.UUID, name string, description *string) (models.Group, error) {
	name = strings.TrimSpace(name)

	group := models.Group{Name: name, Description: description}
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.checkNameFree(tx, name); err != nil {
			return err
		}
		if err := m.checkUserExists(tx, trainerID); err != nil {
			return err
		}
		group.TrainerID = &trainerID
		return tx.Create(&group).Error
	})
	if err != nil {
		return models.Group{}, err
	}

	logger.Info("group_created_with_trainer", map[string]interface{}{
		"group_id":   group.ID.String(),
		"group_name": group.Name,
		"trainer_id": trainerID.String(),
	})
	return group, nil
}

// JoinGroup points the user at the group, unconditionally overwriting any
// previous membership. Last write wins; a user belongs to at most one group.
func (m *MembershipCoordinator) JoinGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.checkGroupExists(tx, groupID); err != nil {
			return err
		}
		if err := m.checkUserExists(tx, userID); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("group_id", groupID).Error
	})
	if err != nil {
		return err
	}

	logger.InfoWithUser(userID.String(), "group_joined", map[string]interface{}{
		"group_id": groupID.String(),
	})
	return nil
}

// LeaveGroup clears the user's group reference. The cited group only has to
// exist; whether the user actually pointed at it is not checked, matching the
// published contract.
func (m *MembershipCoordinator) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.checkGroupExists(tx, groupID); err != nil {
			return err
		}
		if err := m.checkUserExists(tx, userID); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("group_id", nil).Error
	})
	if err != nil {
		return err
	}

	logger.InfoWithUser(userID.String(), "group_left", map[string]interface{}{
		"group_id": groupID.String(),
	})
	return nil
}

// LeaveGroupByTrainer detaches the trainer from the group. Member references
// are untouched.
func (m *MembershipCoordinator) LeaveGroupByTrainer(ctx context.Context, groupID, trainerID uuid.UUID) error {
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.checkGroupExists(tx, groupID); err != nil {
			return err
		}
		if err := m.checkUserExists(tx, trainerID); err != nil {
			return err
		}
		return tx.Model(&models.Group{}).Where("id = ?", groupID).Update("trainer_id", nil).Error
	})
	if err != nil {
		return err
	}

	logger.InfoWithUser(trainerID.String(), "group_trainer_left", map[string]interface{}{
		"group_id": groupID.String(),
	})
	return nil
}

// RemoveGroup detaches every member, removes the group's posts and deletes the
// group, in that order, within one transaction. Deleting first would orphan
// members pointing at a nonexistent group.
func (m *MembershipCoordinator) RemoveGroup(ctx context.Context, groupID uuid.UUID) error {
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.checkGroupExists(tx, groupID); err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("group_id = ?", groupID).Update("group_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, "group_id = ?", groupID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, "id = ?", groupID).Error
	})
	if err != nil {
		return err
	}

	logger.Info("group_removed", map[string]interface{}{
		"group_id": groupID.String(),
	})
	return nil
}

// RemoveUser deletes a user after detaching everything that references them:
// their own membership, any trainer assignment and their role grants.
func (m *MembershipCoordinator) RemoveUser(ctx context.Context, userID uuid.UUID) error {
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.checkUserExists(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(&models.Group{}).Where("trainer_id = ?", userID).Update("trainer_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_roles WHERE user_id = ?", userID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		return err
	}

	logger.Info("user_removed", map[string]interface{}{
		"user_id": userID.String(),
	})
	return nil
}

func (m *MembershipCoordinator) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := m.DB.WithContext(ctx).Order("created_at DESC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (m *MembershipCoordinator) GetGroupWithMembers(ctx context.Context, groupID uuid.UUID) (models.Group, error) {
	var group models.Group
	err := m.DB.WithContext(ctx).
		Preload("Members").
		Preload("Trainer").
		First(&group, "id = ?", groupID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.Group{}, ErrGroupNotFound
		}
		return models.Group{}, err
	}
	return group, nil
}

func (m *MembershipCoordinator) ListGroupsByTrainer(ctx context.Context, trainerID uuid.UUID) ([]models.Group, error) {
	var groups []models.Group
	err := m.DB.WithContext(ctx).
		Preload("Members").
		Where("trainer_id = ?", trainerID).
		Order("created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (m *MembershipCoordinator) checkGroupExists(tx *gorm.DB, groupID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (m *MembershipCoordinator) checkUserExists(tx *gorm.DB, userID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *MembershipCoordinator) checkNameFree(tx *gorm.DB, name string) error {
	var count int64
	if err := tx.Model(&models.Group{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrGroupNameTaken
	}
	return nil
}
