package model

import (
	"golang.org/x/crypto/bcrypt"
)

// User represents an authenticated console user
type User struct {
	BaseModel
	Email          string        `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password       string        `gorm:"type:varchar(255);not null" json:"-"` // Hidden from JSON
	FullName       string        `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	IsActive       bool          `gorm:"default:true" json:"is_active"`
	OrganizationID *uint         `gorm:"index" json:"organization_id,omitempty"` // Home organization
	Organization   *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Roles          []Role        `gorm:"many2many:user_roles;" json:"roles"`
	TokenVersion   string        `gorm:"type:varchar(255);default:''" json:"-"` // For single session enforcement
}

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// RoleIDs returns the ids of all roles held by the user
func (u *User) RoleIDs() []uint {
	ids := make([]uint, len(u.Roles))
	for i, r := range u.Roles {
		ids[i] = r.ID
	}
	return ids
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID             uint   `json:"id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	IsActive       bool   `json:"is_active"`
	OrganizationID *uint  `json:"organization_id,omitempty"`
	Roles          []Role `json:"roles"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []Role{}
	}
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		IsActive:       u.IsActive,
		OrganizationID: u.OrganizationID,
		Roles:          roles,
	}
}
