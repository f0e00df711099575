package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warungpos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidSale        = errors.New("invalid sale input")
	ErrInvalidPromotion   = errors.New("invalid promotion")
	ErrInactivePromotion  = errors.New("promotion no longer active")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidCatalogItem = errors.New("invalid catalog item")
)

// InsufficientStockFor wraps ErrInsufficientStock with the product the
// conditional decrement failed on, so the boundary can surface it.
func InsufficientStockFor(productName string) error {
	return fmt.Errorf("%w for %s", ErrInsufficientStock, productName)
}

// Repository is the persistence contract shared by the PostgreSQL and
// in-memory stores. CreateSale and CancelSale are each a single atomic
// unit of work; everything else is plain reads and catalog upkeep.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListActiveProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListPromotions(ctx context.Context) ([]domain.Promotion, error)
	ListActivePromotions(ctx context.Context) ([]domain.Promotion, error)
	GetPromotionByID(ctx context.Context, id string) (*domain.Promotion, error)
	CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error)
	UpdatePromotionActive(ctx context.Context, promoID string, active bool) (*domain.Promotion, error)

	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	GetPaymentMethodByID(ctx context.Context, id string) (*domain.PaymentMethod, error)

	// CreateSale commits the sale, its items, its applied promotions
	// and the conditional stock decrements as one transaction. It
	// fails with ErrInvalidPromotion / ErrInactivePromotion when a
	// selected promotion no longer matches persisted state, and with
	// a wrapped ErrInsufficientStock when a decrement lands on a
	// depleted balance; nothing is persisted on any failure.
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)

	// CancelSale flips an active sale to cancelled and restores stock
	// for items whose product is currently stock-controlled. It
	// returns false without side effects when the sale is missing or
	// was already cancelled.
	CancelSale(ctx context.Context, id string, at time.Time) (bool, error)

	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSalesWithItems(ctx context.Context, from *time.Time, to *time.Time) ([]domain.Sale, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
