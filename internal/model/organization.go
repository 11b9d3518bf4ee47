package model

// Organization is the tenant that scopes all business data
type Organization struct {
	BaseModel
	Code     string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}
