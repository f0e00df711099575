package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

// Store is an in-memory Repository used in dev mode and by the service
// tests. Mutating operations take the write lock for their whole
// duration and stage every check before touching state, which gives the
// same all-or-nothing visibility as the PostgreSQL transactions.
type Store struct {
	mu             sync.RWMutex
	products       map[string]domain.Product
	promotions     map[string]domain.Promotion
	paymentMethods map[string]domain.PaymentMethod
	salesByID      map[string]*domain.Sale
	saleOrder      []string
	auditLogs      []domain.AuditLog
	users          map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:       make(map[string]domain.Product),
		promotions:     make(map[string]domain.Promotion),
		paymentMethods: make(map[string]domain.PaymentMethod),
		salesByID:      make(map[string]*domain.Sale),
		saleOrder:      make([]string, 0, 64),
		auditLogs:      make([]domain.AuditLog, 0, 128),
		users:          make(map[string]domain.UserAccount),
	}
}

// NewSeeded builds a store pre-loaded with a small demo catalog,
// payment methods and user accounts for running without PostgreSQL.
func NewSeeded() *Store {
	s := New()

	products := []domain.Product{
		{ID: "prod-mie-01", Name: "Mie Goreng Instan", PriceCents: 3500, Stock: 120, StockControlled: true, MinStock: 10, UnitType: domain.UnitTypeUnit, Active: true},
		{ID: "prod-telur-01", Name: "Telur 10 Butir", PriceCents: 26500, Stock: 60, StockControlled: true, MinStock: 5, UnitType: domain.UnitTypeUnit, Active: true},
		{ID: "prod-kopi-01", Name: "Kopi Sachet", PriceCents: 2600, Stock: 200, StockControlled: true, MinStock: 20, UnitType: domain.UnitTypeUnit, Active: true},
		{ID: "prod-gula-01", Name: "Gula Pasir", PriceCents: 1740, Stock: 80, StockControlled: true, MinStock: 8, UnitType: domain.UnitTypeWeight, Active: true},
		{ID: "prod-daging-01", Name: "Daging Sapi", PriceCents: 13500, Stock: 25, StockControlled: true, MinStock: 2, UnitType: domain.UnitTypeWeight, Active: true},
		{ID: "prod-kantong-01", Name: "Kantong Belanja", PriceCents: 200, StockControlled: false, UnitType: domain.UnitTypeUnit, Active: true},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	now := time.Now().UTC()
	promos := []domain.Promotion{
		{
			ID:              "promo-mie-telur",
			Name:            "Paket Sarapan 10%",
			DiscountType:    domain.DiscountTypePercentage,
			DiscountPercent: 10,
			Active:          true,
			Requirements: []domain.PromotionRequirement{
				{ProductID: "prod-mie-01", RequiredQty: 2},
				{ProductID: "prod-telur-01", RequiredQty: 1},
			},
			CreatedAt: now,
		},
		{
			ID:                "promo-daging-250",
			Name:              "Hemat Daging 250g",
			DiscountType:      domain.DiscountTypeFixed,
			FlatDiscountCents: 500,
			Active:            true,
			Requirements: []domain.PromotionRequirement{
				{ProductID: "prod-daging-01", RequiredQty: 250},
			},
			CreatedAt: now,
		},
	}
	for _, promo := range promos {
		s.promotions[promo.ID] = promo
	}

	for _, method := range []domain.PaymentMethod{
		{ID: "pay-cash", Name: "Tunai", Active: true},
		{ID: "pay-qris", Name: "QRIS", Active: true},
		{ID: "pay-card", Name: "Kartu Debit", Active: true},
	} {
		s.paymentMethods[method.ID] = method
	}

	s.users = seedUsers()
	return s
}

// seedUsers builds the initial in-memory user accounts for dev/demo
// mode. Credentials come from SEED_ADMIN_PASSWORD and
// SEED_CASHIER_PASSWORD; hardcoded dev defaults are used with a warning
// when unset. These never apply in production, where the backend runs
// against PostgreSQL.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Store) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	all, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if p.Active {
			active = append(active, p)
		}
	}
	return active, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := p
	return &found, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.Active {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidCatalogItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidCatalogItem
	}
	product.Active = true
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidCatalogItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) ListPromotions(_ context.Context) ([]domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	promos := make([]domain.Promotion, 0, len(s.promotions))
	for _, promo := range s.promotions {
		promos = append(promos, promo)
	}
	sort.Slice(promos, func(i, j int) bool { return promos[i].ID < promos[j].ID })
	return promos, nil
}

func (s *Store) ListActivePromotions(ctx context.Context) ([]domain.Promotion, error) {
	all, err := s.ListPromotions(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Promotion, 0, len(all))
	for _, promo := range all {
		if promo.Active && len(promo.Requirements) > 0 {
			active = append(active, promo)
		}
	}
	return active, nil
}

func (s *Store) GetPromotionByID(_ context.Context, id string) (*domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	promo, ok := s.promotions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := promo
	return &found, nil
}

func (s *Store) CreatePromotion(_ context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if promo.ID == "" || promo.Name == "" || len(promo.Requirements) == 0 {
		return nil, store.ErrInvalidCatalogItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.promotions[promo.ID]; exists {
		return nil, store.ErrInvalidCatalogItem
	}
	s.promotions[promo.ID] = promo
	created := promo
	return &created, nil
}

func (s *Store) UpdatePromotionActive(_ context.Context, promoID string, active bool) (*domain.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	promo, ok := s.promotions[promoID]
	if !ok {
		return nil, store.ErrNotFound
	}
	promo.Active = active
	s.promotions[promoID] = promo
	updated := promo
	return &updated, nil
}

func (s *Store) ListPaymentMethods(_ context.Context) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]domain.PaymentMethod, 0, len(s.paymentMethods))
	for _, m := range s.paymentMethods {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].ID < methods[j].ID })
	return methods, nil
}

func (s *Store) GetPaymentMethodByID(_ context.Context, id string) (*domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.paymentMethods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := m
	return &found, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, store.ErrInvalidSale
	}

	// Re-validate every selected promotion against current state and
	// snapshot its name before anything mutates.
	discountTotal := int64(0)
	applied := make([]domain.AppliedPromotion, 0, len(sale.Promotions))
	for _, selection := range sale.Promotions {
		promo, ok := s.promotions[selection.PromotionID]
		if !ok {
			return nil, store.ErrInvalidPromotion
		}
		if !promo.Active {
			return nil, store.ErrInactivePromotion
		}
		discountTotal += selection.DiscountCents
		applied = append(applied, domain.AppliedPromotion{
			SaleID:        sale.ID,
			PromotionID:   promo.ID,
			PromotionName: promo.Name,
			DiscountCents: selection.DiscountCents,
		})
	}

	// Stage the conditional decrements: every stock-controlled item
	// must land on a still-sufficient balance or the whole sale fails.
	decrements := make(map[string]float64, len(sale.Items))
	for _, item := range sale.Items {
		product, ok := s.products[item.ProductID]
		if !ok || !product.StockControlled {
			continue
		}
		pending := decrements[item.ProductID] + item.Qty
		if product.Stock < pending {
			return nil, store.InsufficientStockFor(product.Name)
		}
		decrements[item.ProductID] = pending
	}

	total := int64(0)
	for _, item := range sale.Items {
		total += item.SubtotalCents
	}

	sale.TotalCents = total
	sale.DiscountTotalCents = discountTotal
	sale.FinalTotalCents = total - discountTotal
	if sale.FinalTotalCents < 0 {
		sale.FinalTotalCents = 0
	}
	sale.Status = domain.SaleStatusActive
	sale.Promotions = applied
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	for productID, qty := range decrements {
		product := s.products[productID]
		product.Stock -= qty
		s.products[productID] = product
	}

	stored := sale
	s.salesByID[sale.ID] = &stored
	s.saleOrder = append(s.saleOrder, sale.ID)

	created := stored
	return &created, nil
}

func (s *Store) CancelSale(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByID[id]
	if !ok || sale.Status != domain.SaleStatusActive {
		return false, nil
	}

	// Restoration follows the product's current stock-control flag,
	// not the flag at sale time.
	for _, item := range sale.Items {
		product, ok := s.products[item.ProductID]
		if !ok || !product.StockControlled {
			continue
		}
		product.Stock += item.Qty
		s.products[item.ProductID] = product
	}

	cancelledAt := at.UTC()
	sale.Status = domain.SaleStatusCancelled
	sale.CancelledAt = &cancelledAt
	return true, nil
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.salesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := *sale
	return &found, nil
}

func (s *Store) ListSalesWithItems(_ context.Context, from *time.Time, to *time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.saleOrder))
	for i := len(s.saleOrder) - 1; i >= 0; i-- {
		sale := s.salesByID[s.saleOrder[i]]
		if from != nil && sale.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !sale.CreatedAt.Before(*to) {
			continue
		}
		sales = append(sales, *sale)
	}
	return sales, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, s.auditLogs[i])
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrInvalidCatalogItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return store.ErrInvalidCatalogItem
	}
	user.Username = username
	s.users[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}
