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

type CreatePublisherRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Address string `json:"address"`
	Phone   string `json:"phone" binding:"max=20"`
	Email   string `json:"email" binding:"omitempty,email"`
	Website string `json:"website" binding:"omitempty,url"`
}

type UpdatePublisherRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=200"`
	Address *string `json:"address"`
	Phone   *string `json:"phone" binding:"omitempty,max=20"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Website *string `json:"website" binding:"omitempty,url"`
}

type PublisherService interface {
	Create(ctx context.Context, req CreatePublisherRequest) (*model.Publisher, error)
	List(ctx context.Context, search string, p pagination.Params) (Page[model.Publisher], error)
	Get(ctx context.Context, id string) (*model.Publisher, error)
	Update(ctx context.Context, id string, req UpdatePublisherRequest) (*model.Publisher, error)
	Delete(ctx context.Context, id string) error
}

type publisherService struct {
	repo repository.PublisherRepository
}

func NewPublisherService(repo repository.PublisherRepository) PublisherService {
	return &publisherService{repo: repo}
}

func (s *publisherService) Create(ctx context.Context, req CreatePublisherRequest) (*model.Publisher, error) {
	publisher := &model.Publisher{
		Name:     strings.TrimSpace(req.Name),
		Address:  req.Address,
		Phone:    req.Phone,
		Email:    req.Email,
		Website:  req.Website,
		IsActive: true,
	}
	if err := s.checkName(ctx, publisher.Name, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, publisher); err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	return publisher, nil
}

func (s *publisherService) List(ctx context.Context, search string, p pagination.Params) (Page[model.Publisher], error) {
	publishers, total, err := s.repo.List(ctx, search, p)
	if err != nil {
		return Page[model.Publisher]{}, fmt.Errorf("failed to list publishers: %w", err)
	}
	return newPage(publishers, total, p), nil
}

func (s *publisherService) Get(ctx context.Context, id string) (*model.Publisher, error) {
	publisherID, err := parseID("publisher", id)
	if err != nil {
		return nil, err
	}
	publisher, err := s.repo.FindByID(ctx, publisherID)
	if err != nil {
		return nil, lookupErr(err, "Publisher", id)
	}
	return publisher, nil
}

func (s *publisherService) Update(ctx context.Context, id string, req UpdatePublisherRequest) (*model.Publisher, error) {
	publisher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.checkName(ctx, name, &publisher.ID); err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Website != nil {
		fields["website"] = *req.Website
	}

	if len(fields) > 0 {
		if err := s.repo.Update(ctx, publisher.ID, fields); err != nil {
			return nil, fmt.Errorf("failed to update publisher: %w", err)
		}
	}
	return s.Get(ctx, id)
}

func (s *publisherService) Delete(ctx context.Context, id string) error {
	publisher, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, publisher.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to delete publisher: %w", err)
	}
	return nil
}

func (s *publisherService) checkName(ctx context.Context, name string, excludeID *uuid.UUID) error {
	taken, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if taken {
		return apperror.Conflict("publisher %s already exists", name)
	}
	return nil
}
