package repository

import (
	"context"

	"crm-console/internal/model"
	"crm-console/internal/organization"

	"gorm.io/gorm"
)

// OrganizationRepository is the organization data collaborator. It satisfies
// organization.Source.
type OrganizationRepository interface {
	List(ctx context.Context) ([]model.Organization, error)
	FindByID(ctx context.Context, id uint) (*model.Organization, error)
	Create(ctx context.Context, org *model.Organization) error
}

type organizationRepo struct {
	db *gorm.DB
}

func NewOrganizationRepo(db *gorm.DB) OrganizationRepository {
	return &organizationRepo{db}
}

func (r *organizationRepo) List(ctx context.Context) ([]model.Organization, error) {
	var orgs []model.Organization
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *organizationRepo) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, notFound(err, organization.ErrNotFound)
	}
	return &org, nil
}

func (r *organizationRepo) Create(ctx context.Context, org *model.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

var _ organization.Source = (*organizationRepo)(nil)
