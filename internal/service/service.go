package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"warungpos/backend/internal/cache"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/metrics"
	"warungpos/backend/internal/promotion"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo           store.Repository
	eligibility    cache.EligibilityCache
	eligibilityTTL time.Duration
	log            *zap.Logger
}

func New(repo store.Repository, eligibilityCache cache.EligibilityCache, eligibilityTTL time.Duration, log *zap.Logger) *Service {
	if eligibilityCache == nil {
		eligibilityCache = cache.NoopEligibilityCache{}
	}
	if eligibilityTTL <= 0 {
		eligibilityTTL = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		repo:           repo,
		eligibility:    eligibilityCache,
		eligibilityTTL: eligibilityTTL,
		log:            log,
	}
}

// EligiblePromotions evaluates the promotion eligibility calculator
// over the current cart. The calculation itself is pure; a short-lived
// cache keyed by cart signature short-circuits repeated evaluations of
// an unchanged cart.
func (s *Service) EligiblePromotions(ctx context.Context, req domain.EligibilityRequest) (domain.EligibilityResponse, error) {
	cart := normalizeCartLines(req.CartItems)
	if len(cart) == 0 {
		return domain.EligibilityResponse{Promotions: []domain.EligiblePromotion{}}, nil
	}

	cacheKey := promotion.CacheKey(cart)
	if cached, ok, err := s.eligibility.Get(ctx, cacheKey); err == nil && ok {
		metrics.EligibilityCacheLookups.WithLabelValues("hit").Inc()
		return *cached, nil
	}
	metrics.EligibilityCacheLookups.WithLabelValues("miss").Inc()

	ids := make([]string, 0, len(cart))
	for _, line := range cart {
		ids = append(ids, line.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.EligibilityResponse{}, err
	}

	promos, err := s.repo.ListActivePromotions(ctx)
	if err != nil {
		return domain.EligibilityResponse{}, err
	}

	startedAt := time.Now()
	eligible := promotion.Eligible(cart, promos, products)
	metrics.EligibilityDuration.Observe(time.Since(startedAt).Seconds())

	resp := domain.EligibilityResponse{Promotions: eligible}
	_ = s.eligibility.Set(ctx, cacheKey, &resp, s.eligibilityTTL)
	return resp, nil
}

// CreateSale validates and commits a checkout. Input shape is rejected
// before any persisted state is touched; the total is recomputed from
// the cart lines server-side; promotion re-validation and the
// conditional stock decrements run inside the store's single
// transaction, so any failure leaves nothing behind.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if err := validateSaleRequest(req); err != nil {
		metrics.CheckoutFailures.WithLabelValues("validation").Inc()
		return domain.Sale{}, err
	}

	method, err := s.repo.GetPaymentMethodByID(ctx, req.PaymentMethodID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.CheckoutFailures.WithLabelValues("validation").Inc()
			return domain.Sale{}, fmt.Errorf("%w: unknown payment method", store.ErrInvalidSale)
		}
		return domain.Sale{}, err
	}
	if !method.Active {
		metrics.CheckoutFailures.WithLabelValues("validation").Inc()
		return domain.Sale{}, fmt.Errorf("%w: payment method is inactive", store.ErrInvalidSale)
	}

	source := req.Source
	if source == "" {
		source = domain.SaleSourceLocal
	}

	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		items = append(items, domain.SaleItem{
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Qty,
			SubtotalCents:  lineSubtotalCents(line.UnitPriceCents, line.Qty),
		})
	}

	sale := domain.Sale{
		ID:              xid.New("sale"),
		PaymentMethodID: req.PaymentMethodID,
		Source:          source,
		CreatedAt:       time.Now().UTC(),
		Items:           items,
		Promotions:      toSelections(req.Promotions),
	}
	if actor, ok := ActorFromContext(ctx); ok {
		sale.CreatedBy = actor.Username
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues(checkoutFailureReason(err)).Inc()
		return domain.Sale{}, err
	}

	metrics.SalesCommitted.WithLabelValues(created.Source).Inc()
	s.logAudit(ctx, "sale_create", "sale", created.ID,
		fmt.Sprintf("total=%d,discount=%d,final=%d,payment=%s", created.TotalCents, created.DiscountTotalCents, created.FinalTotalCents, created.PaymentMethodID))

	return *created, nil
}

// CancelSale reverses a committed sale. It is an idempotent no-op on
// missing or already-cancelled sales: false, no error, no stock change.
func (s *Service) CancelSale(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, store.ErrInvalidSale
	}

	cancelled, err := s.repo.CancelSale(ctx, id, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if !cancelled {
		return false, nil
	}

	metrics.SalesCancelled.Inc()
	s.logAudit(ctx, "sale_cancel", "sale", id, "stock restored for controlled items")
	return true, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ListSales(ctx context.Context, from *time.Time, to *time.Time) ([]domain.Sale, error) {
	return s.repo.ListSalesWithItems(ctx, from, to)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListActiveProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.ID == "" {
		req.ID = xid.New("prod")
	}
	if req.Name == "" || req.PriceCents < 1 || req.Stock < 0 || req.MinStock < 0 {
		return domain.Product{}, store.ErrInvalidCatalogItem
	}
	unitType := strings.ToUpper(strings.TrimSpace(req.UnitType))
	if unitType == "" {
		unitType = domain.UnitTypeUnit
	}
	if unitType != domain.UnitTypeUnit && unitType != domain.UnitTypeWeight {
		return domain.Product{}, store.ErrInvalidCatalogItem
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:              req.ID,
		Name:            req.Name,
		PriceCents:      req.PriceCents,
		Stock:           req.Stock,
		StockControlled: req.StockControlled,
		MinStock:        req.MinStock,
		UnitType:        unitType,
		Active:          true,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d", created.Name, created.PriceCents))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidCatalogItem
		}
		updated.Name = name
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidCatalogItem
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Product{}, store.ErrInvalidCatalogItem
		}
		updated.Stock = *req.Stock
	}
	if req.StockControlled != nil {
		updated.StockControlled = *req.StockControlled
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return domain.Product{}, store.ErrInvalidCatalogItem
		}
		updated.MinStock = *req.MinStock
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,price=%d,stock=%.3f", saved.Active, saved.PriceCents, saved.Stock))
	return *saved, nil
}

func (s *Service) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	return s.repo.ListPromotions(ctx)
}

func (s *Service) CreatePromotion(ctx context.Context, req domain.PromotionCreateRequest) (domain.Promotion, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Promotion{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Requirements) == 0 {
		return domain.Promotion{}, store.ErrInvalidCatalogItem
	}
	switch req.DiscountType {
	case domain.DiscountTypePercentage:
		if req.DiscountPercent <= 0 || req.DiscountPercent > 100 {
			return domain.Promotion{}, store.ErrInvalidCatalogItem
		}
	case domain.DiscountTypeFixed:
		if req.FlatDiscountCents < 1 {
			return domain.Promotion{}, store.ErrInvalidCatalogItem
		}
	default:
		return domain.Promotion{}, store.ErrInvalidCatalogItem
	}
	for _, line := range req.Requirements {
		if strings.TrimSpace(line.ProductID) == "" || line.RequiredQty < 1 {
			return domain.Promotion{}, store.ErrInvalidCatalogItem
		}
	}

	created, err := s.repo.CreatePromotion(ctx, domain.Promotion{
		ID:                xid.New("promo"),
		Name:              req.Name,
		DiscountType:      req.DiscountType,
		DiscountPercent:   req.DiscountPercent,
		FlatDiscountCents: req.FlatDiscountCents,
		Active:            true,
		Requirements:      req.Requirements,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		return domain.Promotion{}, err
	}

	s.logAudit(ctx, "promotion_create", "promotion", created.ID, created.Name)
	return *created, nil
}

func (s *Service) TogglePromotion(ctx context.Context, id string, active bool) (domain.Promotion, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Promotion{}, err
	}

	updated, err := s.repo.UpdatePromotionActive(ctx, id, active)
	if err != nil {
		return domain.Promotion{}, err
	}

	s.logAudit(ctx, "promotion_toggle", "promotion", id, fmt.Sprintf("active=%t", active))
	return *updated, nil
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

// logAudit records an entry best-effort; a failed audit write never
// fails the business operation.
func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	entry := domain.AuditLog{
		ID:         xid.New("audit"),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
	if actor, ok := ActorFromContext(ctx); ok {
		entry.ActorUsername = actor.Username
		entry.ActorRole = actor.Role
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.log.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

func validateSaleRequest(req domain.SaleCreateRequest) error {
	if strings.TrimSpace(req.PaymentMethodID) == "" {
		return fmt.Errorf("%w: payment method is required", store.ErrInvalidSale)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: cart is empty", store.ErrInvalidSale)
	}
	for _, line := range req.Items {
		if strings.TrimSpace(line.ProductID) == "" {
			return fmt.Errorf("%w: item without product", store.ErrInvalidSale)
		}
		if line.Qty <= 0 {
			return fmt.Errorf("%w: non-positive quantity for %s", store.ErrInvalidSale, line.ProductID)
		}
		if line.UnitPriceCents < 1 {
			return fmt.Errorf("%w: non-positive price for %s", store.ErrInvalidSale, line.ProductID)
		}
	}
	if req.Source != "" && req.Source != domain.SaleSourceLocal && req.Source != domain.SaleSourceOnline {
		return fmt.Errorf("%w: unsupported source %s", store.ErrInvalidSale, req.Source)
	}
	for _, selection := range req.Promotions {
		if strings.TrimSpace(selection.PromotionID) == "" {
			return fmt.Errorf("%w: promotion selection without id", store.ErrInvalidSale)
		}
		if selection.DiscountCents < 0 {
			return fmt.Errorf("%w: negative promotion discount", store.ErrInvalidSale)
		}
	}
	return nil
}

func checkoutFailureReason(err error) string {
	switch {
	case errors.Is(err, store.ErrInvalidPromotion):
		return "invalid_promotion"
	case errors.Is(err, store.ErrInactivePromotion):
		return "inactive_promotion"
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrInvalidSale):
		return "validation"
	default:
		return "internal"
	}
}

// lineSubtotalCents prices one cart line. WEIGHT quantities are
// fractional kilograms against a per-kilogram price, so the product is
// rounded to the nearest cent.
func lineSubtotalCents(unitPriceCents int64, qty float64) int64 {
	return int64(math.Round(float64(unitPriceCents) * qty))
}

func normalizeCartLines(lines []domain.CartLine) []domain.CartLine {
	result := make([]domain.CartLine, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" || line.Qty <= 0 {
			continue
		}
		result = append(result, line)
	}
	return result
}

func toSelections(selections []domain.PromotionSelection) []domain.AppliedPromotion {
	result := make([]domain.AppliedPromotion, 0, len(selections))
	for _, selection := range selections {
		result = append(result, domain.AppliedPromotion{
			PromotionID:   selection.PromotionID,
			PromotionName: selection.PromotionName,
			DiscountCents: selection.DiscountCents,
		})
	}
	return result
}
