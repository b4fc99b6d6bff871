package models

import "github.com/google/uuid"

type Post struct {
	BaseModel
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	VideoURL    *string   `json:"videoURL,omitempty" gorm:"type:text"`
	GroupID     uuid.UUID `json:"groupID" gorm:"type:uuid;not null;index"`
	Group       Group     `json:"-" gorm:"foreignKey:GroupID"`
}
