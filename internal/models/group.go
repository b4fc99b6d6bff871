package models

import "github.com/google/uuid"

type Group struct {
	BaseModel
	Name        string     `json:"name" gorm:"type:varchar(150);uniqueIndex;not null"`
	Description *string    `json:"description,omitempty" gorm:"type:text"`
	TrainerID   *uuid.UUID `json:"trainerID,omitempty" gorm:"type:uuid;index"`
	Trainer     *User      `json:"trainer,omitempty" gorm:"foreignKey:TrainerID"`
	Members     []User     `json:"users,omitempty" gorm:"foreignKey:GroupID"`
	Posts       []Post     `json:"-" gorm:"foreignKey:GroupID"`
}
