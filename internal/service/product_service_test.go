package service

import (
	"context"
	"testing"

	"bigman/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProductServiceCreate(t *testing.T) {
	repo := new(mockProductRepo)
	svc := NewProductService(repo)
	ctx := context.Background()

	p := &models.Product{Name: "Pomada", PriceCents: 2500, Stock: 5}
	repo.On("CreateProduct", ctx, p).Return(nil).Once()

	require.NoError(t, svc.Create(ctx, p))
	repo.AssertExpectations(t)
}

func TestProductServiceValidation(t *testing.T) {
	repo := new(mockProductRepo)
	svc := NewProductService(repo)
	ctx := context.Background()

	tests := []struct {
		name    string
		product *models.Product
		field   string
	}{
		{"empty name", &models.Product{Name: " ", PriceCents: 100}, "name"},
		{"negative price", &models.Product{Name: "x", PriceCents: -1}, "price_cents"},
		{"negative stock", &models.Product{Name: "x", PriceCents: 100, Stock: -2}, "stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Create(ctx, tt.product)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	repo.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestProductServiceList(t *testing.T) {
	repo := new(mockProductRepo)
	svc := NewProductService(repo)
	ctx := context.Background()

	products := []*models.Product{{ID: 1, Name: "Cera"}}
	repo.On("ListProducts", ctx).Return(products, nil).Once()

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	repo.AssertExpectations(t)
}
