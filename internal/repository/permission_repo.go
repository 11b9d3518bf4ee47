package repository

import (
	"context"
	"errors"

	"crm-console/internal/model"

	"gorm.io/gorm"
)

type PermissionRepository interface {
	FindAll(ctx context.Context) ([]model.Permission, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]model.Permission, error)
	SeedDefaults(ctx context.Context) error
}

type permissionRepo struct {
	db *gorm.DB
}

func NewPermissionRepo(db *gorm.DB) PermissionRepository {
	return &permissionRepo{db}
}

func (r *permissionRepo) FindAll(ctx context.Context) ([]model.Permission, error) {
	var permissions []model.Permission
	if err := r.db.WithContext(ctx).Order("id").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *permissionRepo) FindBySlugs(ctx context.Context, slugs []string) ([]model.Permission, error) {
	var permissions []model.Permission
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

// SeedDefaults creates default permissions if they don't exist
func (r *permissionRepo) SeedDefaults(ctx context.Context) error {
	for _, p := range model.DefaultPermissions() {
		var existing model.Permission
		err := r.db.WithContext(ctx).Where("slug = ?", p.Slug).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
