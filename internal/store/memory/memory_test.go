package memory

import (
	"context"
	"errors"
	"testing"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

func noodleSale(id string) domain.Sale {
	return domain.Sale{
		ID:              id,
		PaymentMethodID: "pay-cash",
		Items: []domain.SaleItem{{
			SaleID:         id,
			ProductID:      "prod-mie-01",
			ProductName:    "Mie Instan Goreng",
			UnitPriceCents: 3500,
			Qty:            1,
			SubtotalCents:  3500,
		}},
	}
}

func TestCreateSaleRejectsMissingID(t *testing.T) {
	repo := NewSeeded()

	sale := noodleSale("")
	if _, err := repo.CreateSale(context.Background(), sale); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for missing id, got %v", err)
	}
	if _, err := repo.CreateSale(context.Background(), domain.Sale{ID: "sale-empty"}); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for empty items, got %v", err)
	}
}

func TestCreateSaleRejectsDuplicateID(t *testing.T) {
	repo := NewSeeded()

	if _, err := repo.CreateSale(context.Background(), noodleSale("sale-dup")); err != nil {
		t.Fatalf("first CreateSale returned %v", err)
	}
	if _, err := repo.CreateSale(context.Background(), noodleSale("sale-dup")); !errors.Is(err, store.ErrInvalidSale) {
		t.Fatalf("expected ErrInvalidSale for duplicate id, got %v", err)
	}

	// The rejected second attempt must not touch stock.
	product, err := repo.GetProductByID(context.Background(), "prod-mie-01")
	if err != nil {
		t.Fatalf("GetProductByID returned %v", err)
	}
	if product.Stock != 119 {
		t.Fatalf("expected stock 119 after a single sale, got %v", product.Stock)
	}
}
