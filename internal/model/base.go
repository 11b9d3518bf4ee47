package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel handles the integer ID and standard audit trails
type BaseModel struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // Soft delete support

	// Audit user tracking
	CreatedBy string `json:"created_by,omitempty"`
	UpdatedBy string `json:"updated_by,omitempty"`
	DeletedBy string `json:"-"`
}

// BeforeCreate fills the audit columns when the caller left them empty
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.CreatedBy == "" {
		base.CreatedBy = "system"
	}
	if base.UpdatedBy == "" {
		base.UpdatedBy = base.CreatedBy
	}
	return
}
