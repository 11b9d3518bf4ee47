package repository

import (
	"context"
	"errors"

	"crm-console/internal/model"

	"gorm.io/gorm"
)

// ErrRoleNotFound is returned when no role matches.
var ErrRoleNotFound = errors.New("role not found")

type RoleRepository interface {
	FindAll(ctx context.Context) ([]model.Role, error)
	FindByID(ctx context.Context, id uint) (*model.Role, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Role, error)
	ReplacePermissions(ctx context.Context, roleID uint, permissions []model.Permission) error
	SeedDefaults(ctx context.Context) error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Preload("Permissions").Order("id").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) FindByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").First(&role, id).Error; err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}
	return &role, nil
}

func (r *roleRepo) FindByIDs(ctx context.Context, ids []uint) ([]model.Role, error) {
	var roles []model.Role
	if len(ids) == 0 {
		return roles, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepo) ReplacePermissions(ctx context.Context, roleID uint, permissions []model.Permission) error {
	role := model.Role{ID: roleID}
	return r.db.WithContext(ctx).Model(&role).Association("Permissions").Replace(permissions)
}

// SeedDefaults creates the default roles with their fixed ids if they don't exist
func (r *roleRepo) SeedDefaults(ctx context.Context) error {
	for _, defaultRole := range model.DefaultRoles {
		var existingRole model.Role
		err := r.db.WithContext(ctx).First(&existingRole, defaultRole.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role := defaultRole
			if err := r.db.WithContext(ctx).Create(&role).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
