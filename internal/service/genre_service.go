package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookinventory/internal/apperror"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"
	"bookinventory/pkg/pagination"

	"github.com/google/uuid"
)

type CreateGenreRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

type UpdateGenreRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

type GenreService interface {
	Create(ctx context.Context, req CreateGenreRequest) (*model.Genre, error)
	List(ctx context.Context, search string, p pagination.Params) (Page[model.Genre], error)
	Get(ctx context.Context, id string) (*model.Genre, error)
	Update(ctx context.Context, id string, req UpdateGenreRequest) (*model.Genre, error)
	Delete(ctx context.Context, id string) error
}

type genreService struct {
	repo repository.GenreRepository
}

func NewGenreService(repo repository.GenreRepository) GenreService {
	return &genreService{repo: repo}
}

func (s *genreService) Create(ctx context.Context, req CreateGenreRequest) (*model.Genre, error) {
	genre := &model.Genre{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.checkName(ctx, genre.Name, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, genre); err != nil {
		return nil, fmt.Errorf("failed to create genre: %w", err)
	}
	return genre, nil
}

func (s *genreService) List(ctx context.Context, search string, p pagination.Params) (Page[model.Genre], error) {
	genres, total, err := s.repo.List(ctx, search, p)
	if err != nil {
		return Page[model.Genre]{}, fmt.Errorf("failed to list genres: %w", err)
	}
	return newPage(genres, total, p), nil
}

func (s *genreService) Get(ctx context.Context, id string) (*model.Genre, error) {
	genreID, err := parseID("genre", id)
	if err != nil {
		return nil, err
	}
	genre, err := s.repo.FindByID(ctx, genreID)
	if err != nil {
		return nil, lookupErr(err, "Genre", id)
	}
	return genre, nil
}

func (s *genreService) Update(ctx context.Context, id string, req UpdateGenreRequest) (*model.Genre, error) {
	genre, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.checkName(ctx, name, &genre.ID); err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, genre.ID, fields); err != nil {
			return nil, fmt.Errorf("failed to update genre: %w", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *genreService) Delete(ctx context.Context, id string) error {
	genre, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, genre.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to delete genre: %w", err)
	}
	return nil
}

func (s *genreService) checkName(ctx context.Context, name string, excludeID *uuid.UUID) error {
	taken, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if taken {
		return apperror.Conflict("genre %s already exists", name)
	}
	return nil
}
