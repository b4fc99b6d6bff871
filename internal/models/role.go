package models

// RoleTag is the flat tag the authorization policy matches against. Tags are
// extensible through the role catalog; the constants below are the seeded set.
type RoleTag string

const (
	RoleAdmin   RoleTag = "ADMIN"
	RoleUser    RoleTag = "USER"
	RoleTrainer RoleTag = "TRAINER"
)

type Role struct {
	BaseModel
	Value       RoleTag `json:"value" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description *string `json:"description,omitempty" gorm:"type:varchar(255)"`
	Users       []User  `json:"-" gorm:"many2many:user_roles"`
}
