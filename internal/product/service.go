package product

import (
	"context"
	"strings"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, params CreateParams) (*Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) error
	SetInStock(ctx context.Context, id uuid.UUID, inStock bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, params CreateParams) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateProduct"),
	)

	params.Name = strings.TrimSpace(params.Name)
	params.Category = strings.TrimSpace(params.Category)
	if params.Name == "" || params.Category == "" || params.Price <= 0 || params.Stock <= 0 {
		return nil, ErrInvalidProduct
	}
	if params.OfferPrice <= 0 || params.OfferPrice > params.Price {
		params.OfferPrice = params.Price
	}

	p := &Product{
		Name:        params.Name,
		Description: params.Description,
		Category:    params.Category,
		Price:       params.Price,
		OfferPrice:  params.OfferPrice,
		Stock:       params.Stock,
		Images:      params.Images,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	log.Info("product created", zap.String("product_id", p.ID.String()))
	return p, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]*Product, error) {
	return s.repo.List(ctx)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	if params.Stock != nil && *params.Stock < 0 {
		return ErrInvalidProduct
	}
	if params.OfferPrice != nil && *params.OfferPrice <= 0 {
		return ErrInvalidProduct
	}
	return s.repo.Update(ctx, id, params)
}

func (s *service) SetInStock(ctx context.Context, id uuid.UUID, inStock bool) error {
	return s.repo.SetInStock(ctx, id, inStock)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
