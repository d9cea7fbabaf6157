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

type CreateAuthorRequest struct {
	FirstName   string `json:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" binding:"required,max=100"`
	Biography   string `json:"biography"`
	BirthDate   string `json:"birth_date"`
	Nationality string `json:"nationality" binding:"max=100"`
}

type UpdateAuthorRequest struct {
	FirstName   *string `json:"first_name" binding:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name" binding:"omitempty,min=1,max=100"`
	Biography   *string `json:"biography"`
	BirthDate   *string `json:"birth_date"`
	Nationality *string `json:"nationality" binding:"omitempty,max=100"`
}

type AuthorService interface {
	Create(ctx context.Context, req CreateAuthorRequest) (*model.Author, error)
	List(ctx context.Context, search string, p pagination.Params) (Page[model.Author], error)
	Get(ctx context.Context, id string) (*model.Author, error)
	Update(ctx context.Context, id string, req UpdateAuthorRequest) (*model.Author, error)
	Delete(ctx context.Context, id string) error
}

type authorService struct {
	repo repository.AuthorRepository
}

func NewAuthorService(repo repository.AuthorRepository) AuthorService {
	return &authorService{repo: repo}
}

func (s *authorService) Create(ctx context.Context, req CreateAuthorRequest) (*model.Author, error) {
	birth, err := parseDate("birth_date", req.BirthDate)
	if err != nil {
		return nil, err
	}
	author := &model.Author{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Biography:   req.Biography,
		BirthDate:   birth,
		Nationality: strings.TrimSpace(req.Nationality),
		IsActive:    true,
	}
	if err := s.checkName(ctx, author.FirstName, author.LastName, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, author); err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}
	return author, nil
}

func (s *authorService) List(ctx context.Context, search string, p pagination.Params) (Page[model.Author], error) {
	authors, total, err := s.repo.List(ctx, search, p)
	if err != nil {
		return Page[model.Author]{}, fmt.Errorf("failed to list authors: %w", err)
	}
	return newPage(authors, total, p), nil
}

func (s *authorService) Get(ctx context.Context, id string) (*model.Author, error) {
	authorID, err := parseID("author", id)
	if err != nil {
		return nil, err
	}
	author, err := s.repo.FindByID(ctx, authorID)
	if err != nil {
		return nil, lookupErr(err, "Author", id)
	}
	return author, nil
}

func (s *authorService) Update(ctx context.Context, id string, req UpdateAuthorRequest) (*model.Author, error) {
	author, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	first, last := author.FirstName, author.LastName
	if req.FirstName != nil {
		first = strings.TrimSpace(*req.FirstName)
		fields["first_name"] = first
	}
	if req.LastName != nil {
		last = strings.TrimSpace(*req.LastName)
		fields["last_name"] = last
	}
	if req.FirstName != nil || req.LastName != nil {
		if err := s.checkName(ctx, first, last, &author.ID); err != nil {
			return nil, err
		}
	}
	if req.Biography != nil {
		fields["biography"] = *req.Biography
	}
	if req.BirthDate != nil {
		birth, err := parseDate("birth_date", *req.BirthDate)
		if err != nil {
			return nil, err
		}
		fields["birth_date"] = birth
	}
	if req.Nationality != nil {
		fields["nationality"] = strings.TrimSpace(*req.Nationality)
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, author.ID, fields); err != nil {
			return nil, fmt.Errorf("failed to update author: %w", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *authorService) Delete(ctx context.Context, id string) error {
	author, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, author.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	return nil
}

func (s *authorService) checkName(ctx context.Context, first, last string, excludeID *uuid.UUID) error {
	taken, err := s.repo.ExistsByName(ctx, first, last, excludeID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if taken {
		return apperror.Conflict("author %s %s already exists", first, last)
	}
	return nil
}
