package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookinventory/internal/apperror"
	"bookinventory/internal/auth"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         AuthUser `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Profile(ctx context.Context, userID string) (*model.User, error)
}

type authService struct {
	users  repository.UserRepository
	issuer *auth.TokenIssuer
}

func NewAuthService(users repository.UserRepository, issuer *auth.TokenIssuer) AuthService {
	return &authService{users: users, issuer: issuer}
}

var errBadCredentials = apperror.Unauthorized("invalid email or password")

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("user account is inactive")
	}

	return s.issueTokens(user)
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if err := ensureEmailFree(ctx, s.users, email); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      model.RoleUser,
		IsActive:  true,
	}
	if err := insertUser(ctx, s.users, user); err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := s.issuer.Parse(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	access, err := s.issuer.IssueAccess(subjectOf(user))
	if err != nil {
		return nil, err
	}
	return &RefreshResponse{AccessToken: access, ExpiresIn: int64(s.issuer.AccessTTL().Seconds())}, nil
}

func (s *authService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.activeUser(ctx, userID)
}

// activeUser loads the token subject, rejecting unknown or disabled accounts
func (s *authService) activeUser(ctx context.Context, subject string) (*model.User, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, apperror.Unauthorized("invalid token subject")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("user not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("user account is inactive")
	}
	return user, nil
}

func (s *authService) issueTokens(user *model.User) (*AuthResponse, error) {
	sub := subjectOf(user)
	access, err := s.issuer.IssueAccess(sub)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefresh(sub)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.issuer.AccessTTL().Seconds()),
		User: AuthUser{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Role:      user.Role,
		},
	}, nil
}

func subjectOf(user *model.User) auth.Subject {
	return auth.Subject{ID: user.ID.String(), Email: user.Email, Role: user.Role}
}
