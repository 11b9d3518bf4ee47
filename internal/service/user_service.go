package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"crm-console/internal/model"
	"crm-console/internal/repository"
	"crm-console/internal/session"
)

var ErrRoleNotFound = errors.New("one or more roles not found")

type UserService interface {
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uint) (*model.UserResponse, error)
	AssignRoles(ctx context.Context, userID uint, roleIDs []uint) (*model.UserResponse, error)
}

type AssignRolesRequest struct {
	RoleIDs []uint `json:"role_ids" validate:"required,dive,gt=0"`
}

type userService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	sessions *session.Manager
	logger   *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, sessions *session.Manager, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	resp := user.ToResponse()
	return &resp, nil
}

// AssignRoles replaces the user's roles and pushes the change into the
// user's live sessions.
func (s *userService) AssignRoles(ctx context.Context, userID uint, roleIDs []uint) (*model.UserResponse, error) {
	roles, err := s.roleRepo.FindByIDs(ctx, dedupe(roleIDs))
	if err != nil {
		return nil, err
	}
	if len(roles) != len(dedupe(roleIDs)) {
		return nil, ErrRoleNotFound
	}

	if err := s.userRepo.ReplaceRoles(ctx, userID, roles); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	refreshed := s.sessions.RefreshUser(ctx, userID)
	s.logger.Info("roles assigned",
		zap.Uint("user_id", userID),
		zap.Uints("role_ids", roleIDs),
		zap.Int("sessions_refreshed", refreshed))

	return s.GetUserByID(ctx, userID)
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
