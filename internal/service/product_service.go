package service

import (
	"context"
	"strings"

	"bigman/internal/domain"
	"bigman/internal/models"
)

type ProductService struct {
	repo domain.ProductRepository
}

func NewProductService(repo domain.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) Create(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	return s.repo.CreateProduct(ctx, product)
}

func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *ProductService) List(ctx context.Context) ([]*models.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *ProductService) Update(ctx context.Context, product *models.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	return s.repo.UpdateProduct(ctx, product)
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func validateProduct(product *models.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return invalidField("name", "required")
	}
	if product.PriceCents < 0 {
		return invalidField("price_cents", "negative")
	}
	if product.Stock < 0 {
		return invalidField("stock", "negative")
	}
	return nil
}
