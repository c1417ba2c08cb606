package model

import (
	"github.com/google/uuid"
	"time"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"size:254;not null;uniqueIndex:users_email_key"`
	Username     string    `gorm:"size:150;not null;uniqueIndex:users_username_key"`
	FirstName    string    `gorm:"size:150;not null"`
	LastName     string    `gorm:"size:150;not null"`
	PasswordHash string    `gorm:"not null"`
	IsActive     bool      `gorm:"not null"`
	IsStaff      bool      `gorm:"not null"`
	IsSuperuser  bool      `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Roles are embedded into access tokens.
func (u User) Roles() []string {
	roles := []string{"user"}
	if u.IsStaff {
		roles = append(roles, "staff")
	}
	if u.IsSuperuser {
		roles = append(roles, "superuser")
	}
	return roles
}

type Profile struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:user_profiles_user_id_key"`
	Phone       string     `gorm:"size:20;not null"`
	Address     string     `gorm:"not null"`
	DateOfBirth *time.Time `gorm:"type:date"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Profile) TableName() string { return "user_profiles" }

// ProfilePatch carries only the keys a client supplied.
// DateOfBirthSet distinguishes an explicit null from an absent key.
type ProfilePatch struct {
	Phone          *string
	Address        *string
	DateOfBirth    *time.Time
	DateOfBirthSet bool
}

func (p ProfilePatch) Apply(profile *Profile) {
	if p.Phone != nil {
		profile.Phone = *p.Phone
	}
	if p.Address != nil {
		profile.Address = *p.Address
	}
	if p.DateOfBirthSet {
		profile.DateOfBirth = p.DateOfBirth
	}
}

type UserWithProfile struct {
	User    User
	Profile *Profile
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	UserId       uuid.UUID
}
