package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookinventory/internal/apperror"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"
	"bookinventory/pkg/pagination"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Role      string `json:"role" binding:"omitempty,oneof=admin manager user"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	Password  *string `json:"password" binding:"omitempty,min=6"`
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	Role      *string `json:"role" binding:"omitempty,oneof=admin manager user"`
	IsActive  *bool   `json:"is_active"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, search string, p pagination.Params) (Page[model.User], error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// ensureEmailFree returns a conflict when email belongs to a live user
func ensureEmailFree(ctx context.Context, repo repository.UserRepository, email string) error {
	_, err := repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.Conflict("email %s is already registered", email)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("database error: %w", err)
	}
}

// insertUser maps a unique-index violation to the same conflict ensureEmailFree
// reports, for registrations that race past the lookup
func insertUser(ctx context.Context, repo repository.UserRepository, user *model.User) error {
	err := repo.Create(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict("email %s is already registered", user.Email)
	default:
		return fmt.Errorf("failed to create user: %w", err)
	}
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	email := normalizeEmail(req.Email)
	if err := ensureEmailFree(ctx, s.repo, email); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return nil, apperror.Validation("invalid role: must be admin, manager or user")
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
		Role:      role,
		IsActive:  true,
	}
	if err := insertUser(ctx, s.repo, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	userID, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, lookupErr(err, "User", id)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, search string, p pagination.Params) (Page[model.User], error) {
	users, total, err := s.repo.List(ctx, search, p)
	if err != nil {
		return Page[model.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return newPage(users, total, p), nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*model.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			if err := ensureEmailFree(ctx, s.repo, email); err != nil {
				return nil, err
			}
			fields["email"] = email
		}
	}
	if req.Password != nil {
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hashed
	}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return nil, apperror.Validation("invalid role: must be admin, manager or user")
		}
		fields["role"] = *req.Role
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, user.ID, fields); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return s.GetUserByID(ctx, id)
}
