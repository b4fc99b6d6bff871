package models

import "github.com/google/uuid"

type User struct {
	BaseModel
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:text;not null"`
	FirstName    *string    `json:"firstName,omitempty" gorm:"type:varchar(100)"`
	LastName     *string    `json:"lastName,omitempty" gorm:"type:varchar(100)"`
	AvatarURL    *string    `json:"avatar,omitempty" gorm:"type:text"`
	GroupID      *uuid.UUID `json:"groupID,omitempty" gorm:"type:uuid;index"`
	Group        *Group     `json:"-" gorm:"foreignKey:GroupID"`
	Roles        []Role     `json:"roles" gorm:"many2many:user_roles"`
}

// HasRole reports whether the user carries the given tag. Callers that need
// fresh data must have loaded Roles first; the gate preloads them per request.
func (u *User) HasRole(tag RoleTag) bool {
	for _, role := range u.Roles {
		if role.Value == tag {
			return true
		}
	}
	return false
}

func (u *User) RoleTags() []string {
	tags := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		tags = append(tags, string(role.Value))
	}
	return tags
}
