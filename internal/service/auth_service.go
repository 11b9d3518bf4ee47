package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-console/internal/authz"
	"crm-console/internal/model"
	"crm-console/internal/repository"
	"crm-console/internal/session"
	"crm-console/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error
	Logout(ctx context.Context, claims *jwt.Claims) error
	Refresh(ctx context.Context, userID uint) (*TokenValidationResponse, error)
}

type LoginResponse struct {
	Token       string             `json:"token"`
	User        model.UserResponse `json:"user"`
	Permissions []string           `json:"permissions"` // Flat slugs for easy checking
	IsSuperUser bool               `json:"is_super_user"`
}

type TokenValidationResponse struct {
	User        model.UserResponse `json:"user"`
	Permissions []string           `json:"permissions"`
	IsSuperUser bool               `json:"is_super_user"`
}

type authService struct {
	userRepo repository.UserRepository
	issuer   *jwt.Issuer
	sessions *session.Manager
	logger   *zap.Logger
}

func NewAuthService(userRepo repository.UserRepository, issuer *jwt.Issuer, sessions *session.Manager, logger *zap.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		issuer:   issuer,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// Single session: a new token version invalidates every older token
	newTokenVersion := uuid.NewString()
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, newTokenVersion); err != nil {
		return nil, errors.New("failed to update session")
	}
	user.TokenVersion = newTokenVersion

	token, sessionID, err := s.issuer.GenerateToken(user.ID, user.Email, user.FullName, newTokenVersion)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	// The login exchange already produced the user record, so the session
	// starts settled.
	sess := s.sessions.Acquire(sessionID, user.ID)
	sess.ExpireAt(time.Now().Add(s.issuer.TTL()))
	sess.Settle(user, nil)
	// Older tokens of the user are dead now, so are their sessions.
	if ended := s.sessions.EndUser(ctx, user.ID, sessionID); ended > 0 {
		s.logger.Info("replaced sessions ended", zap.Uint("user_id", user.ID), zap.Int("count", ended))
	}
	s.logger.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("session_id", sessionID))

	return &LoginResponse{
		Token:       token,
		User:        user.ToResponse(),
		Permissions: authz.PermissionSlugs(user),
		IsSuperUser: authz.IsSuperUser(user),
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	claims, err := s.issuer.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}

	return validationResponse(user), nil
}

func (s *authService) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return ErrUserNotFound
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}

	// Force a new login everywhere
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		return err
	}
	s.sessions.RefreshUser(ctx, user.ID)
	return nil
}

// Logout ends the session and rotates the token version so the token cannot
// be replayed.
func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if err := s.userRepo.UpdateTokenVersion(ctx, claims.UserID, uuid.NewString()); err != nil {
		return err
	}
	if err := s.sessions.End(ctx, claims.SessionID); err != nil && !errors.Is(err, session.ErrUnknownSession) {
		s.logger.Warn("logout teardown failed", zap.String("session_id", claims.SessionID), zap.Error(err))
	}
	s.logger.Info("user logged out", zap.Uint("user_id", claims.UserID), zap.String("session_id", claims.SessionID))
	return nil
}

// Refresh reloads the user in all of their live sessions and returns the new view.
func (s *authService) Refresh(ctx context.Context, userID uint) (*TokenValidationResponse, error) {
	s.sessions.RefreshUser(ctx, userID)
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return validationResponse(user), nil
}

func validationResponse(user *model.User) *TokenValidationResponse {
	return &TokenValidationResponse{
		User:        user.ToResponse(),
		Permissions: authz.PermissionSlugs(user),
		IsSuperUser: authz.IsSuperUser(user),
	}
}
