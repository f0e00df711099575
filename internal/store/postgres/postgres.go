package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listProducts(ctx, false)
}

func (s *Store) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listProducts(ctx, true)
}

func (s *Store) listProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	query := `
		SELECT id, name, price_cents, stock, is_stock_controlled, min_stock, unit_type, active
		FROM products
	`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.StockControlled, &p.MinStock, &p.UnitType, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, stock, is_stock_controlled, min_stock, unit_type, active
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.StockControlled, &p.MinStock, &p.UnitType, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price_cents, stock, is_stock_controlled, min_stock, unit_type, active
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Stock, &p.StockControlled, &p.MinStock, &p.UnitType, &p.Active); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidCatalogItem
	}

	product.Active = true
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price_cents, stock, is_stock_controlled, min_stock, unit_type, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now(),now())
	`, product.ID, product.Name, product.PriceCents, product.Stock, product.StockControlled, product.MinStock, product.UnitType, product.Active)
	if err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidCatalogItem
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price_cents = $3, stock = $4, is_stock_controlled = $5,
			min_stock = $6, unit_type = $7, active = $8, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.PriceCents, product.Stock, product.StockControlled, product.MinStock, product.UnitType, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	return s.listPromotions(ctx, false)
}

func (s *Store) ListActivePromotions(ctx context.Context) ([]domain.Promotion, error) {
	return s.listPromotions(ctx, true)
}

func (s *Store) listPromotions(ctx context.Context, activeOnly bool) ([]domain.Promotion, error) {
	query := `
		SELECT id, name, discount_type, discount_percent, flat_discount_cents, active, created_at
		FROM promotions
	`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make([]domain.Promotion, 0, 32)
	index := make(map[string]int, 32)
	for rows.Next() {
		var promo domain.Promotion
		if err := rows.Scan(&promo.ID, &promo.Name, &promo.DiscountType, &promo.DiscountPercent, &promo.FlatDiscountCents, &promo.Active, &promo.CreatedAt); err != nil {
			return nil, err
		}
		promo.CreatedAt = promo.CreatedAt.UTC()
		index[promo.ID] = len(promos)
		promos = append(promos, promo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(promos) == 0 {
		return promos, nil
	}

	ids := make([]string, 0, len(promos))
	for _, promo := range promos {
		ids = append(ids, promo.ID)
	}

	reqRows, err := s.db.QueryContext(ctx, `
		SELECT promotion_id, product_id, required_qty
		FROM promotion_requirements
		WHERE promotion_id = ANY($1)
		ORDER BY promotion_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer reqRows.Close()

	for reqRows.Next() {
		var promoID string
		var req domain.PromotionRequirement
		if err := reqRows.Scan(&promoID, &req.ProductID, &req.RequiredQty); err != nil {
			return nil, err
		}
		if i, ok := index[promoID]; ok {
			promos[i].Requirements = append(promos[i].Requirements, req)
		}
	}
	if err := reqRows.Err(); err != nil {
		return nil, err
	}

	if activeOnly {
		// A promotion without requirement lines can never match a cart.
		withReqs := promos[:0]
		for _, promo := range promos {
			if len(promo.Requirements) > 0 {
				withReqs = append(withReqs, promo)
			}
		}
		promos = withReqs
	}

	return promos, nil
}

func (s *Store) GetPromotionByID(ctx context.Context, id string) (*domain.Promotion, error) {
	var promo domain.Promotion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, discount_type, discount_percent, flat_discount_cents, active, created_at
		FROM promotions
		WHERE id = $1
	`, id).Scan(&promo.ID, &promo.Name, &promo.DiscountType, &promo.DiscountPercent, &promo.FlatDiscountCents, &promo.Active, &promo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	promo.CreatedAt = promo.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, required_qty
		FROM promotion_requirements
		WHERE promotion_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var req domain.PromotionRequirement
		if err := rows.Scan(&req.ProductID, &req.RequiredQty); err != nil {
			return nil, err
		}
		promo.Requirements = append(promo.Requirements, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &promo, nil
}

func (s *Store) CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if promo.ID == "" || promo.Name == "" || len(promo.Requirements) == 0 {
		return nil, store.ErrInvalidCatalogItem
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO promotions (id, name, discount_type, discount_percent, flat_discount_cents, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, promo.ID, promo.Name, promo.DiscountType, promo.DiscountPercent, promo.FlatDiscountCents, promo.Active, promo.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i, req := range promo.Requirements {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO promotion_requirements (promotion_id, product_id, required_qty, position)
			VALUES ($1,$2,$3,$4)
		`, promo.ID, req.ProductID, req.RequiredQty, i)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := promo
	return &created, nil
}

func (s *Store) UpdatePromotionActive(ctx context.Context, promoID string, active bool) (*domain.Promotion, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE promotions
		SET active = $2
		WHERE id = $1
	`, promoID, active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetPromotionByID(ctx, promoID)
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, active
		FROM payment_methods
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := make([]domain.PaymentMethod, 0, 8)
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Active); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

func (s *Store) GetPaymentMethodByID(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, active
		FROM payment_methods
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// CreateSale commits the whole sale as one serializable transaction:
// promotion re-validation happens-before the conditional stock
// decrements happen-before commit. The decrement is the atomicity
// primitive for oversell prevention: `stock = stock - qty WHERE stock
// >= qty` either lands on a still-sufficient balance or affects zero
// rows, and a zero-row decrement aborts everything.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidSale
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Re-fetch every selected promotion inside this transaction. This
	// closes the race between the operator seeing the promotion as
	// eligible and checkout committing.
	discountTotal := int64(0)
	applied := make([]domain.AppliedPromotion, 0, len(sale.Promotions))
	for _, selection := range sale.Promotions {
		var name string
		var active bool
		err := tx.QueryRowContext(ctx, `
			SELECT name, active
			FROM promotions
			WHERE id = $1
		`, selection.PromotionID).Scan(&name, &active)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrInvalidPromotion
			}
			return nil, err
		}
		if !active {
			return nil, store.ErrInactivePromotion
		}
		discountTotal += selection.DiscountCents
		applied = append(applied, domain.AppliedPromotion{
			SaleID:        sale.ID,
			PromotionID:   selection.PromotionID,
			PromotionName: name,
			DiscountCents: selection.DiscountCents,
		})
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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, total_cents, discount_total_cents, final_total_cents,
			payment_method_id, status, source, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sale.ID, sale.TotalCents, sale.DiscountTotalCents, sale.FinalTotalCents,
		sale.PaymentMethodID, sale.Status, sale.Source, nullIfEmpty(sale.CreatedBy), sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_name, unit_price_cents, qty, subtotal_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, item.SaleID, item.ProductID, item.ProductName, item.UnitPriceCents, item.Qty, item.SubtotalCents)
		if err != nil {
			return nil, err
		}

		var productName string
		var controlled bool
		err = tx.QueryRowContext(ctx, `
			SELECT name, is_stock_controlled
			FROM products
			WHERE id = $1
		`, item.ProductID).Scan(&productName, &controlled)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Products that left the catalog are not stock-controlled.
				continue
			}
			return nil, err
		}
		if !controlled {
			continue
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2 AND stock >= $1
		`, item.Qty, item.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.InsufficientStockFor(productName)
		}
	}

	for _, promo := range sale.Promotions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO applied_promotions (sale_id, promotion_id, promotion_name, discount_cents)
			VALUES ($1,$2,$3,$4)
		`, promo.SaleID, promo.PromotionID, promo.PromotionName, promo.DiscountCents)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &sale, nil
}

// CancelSale is idempotent: the one-way conditional status update is
// the guard, so a repeated cancel affects zero rows and returns false
// without touching stock.
func (s *Store) CancelSale(ctx context.Context, id string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, cancelled_at = $3
		WHERE id = $1 AND status = $4
	`, id, domain.SaleStatusCancelled, at.UTC(), domain.SaleStatusActive)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT product_id, qty
		FROM sale_items
		WHERE sale_id = $1
	`, id)
	if err != nil {
		return false, err
	}
	type restoreLine struct {
		productID string
		qty       float64
	}
	items := make([]restoreLine, 0, 8)
	for itemRows.Next() {
		var line restoreLine
		if err := itemRows.Scan(&line.productID, &line.qty); err != nil {
			_ = itemRows.Close()
			return false, err
		}
		items = append(items, line)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return false, err
	}
	_ = itemRows.Close()

	// Restore stock per the product's current stock-control flag; the
	// increment is unconditional because the matching decrement only
	// ever ran on a committed sale.
	for _, line := range items {
		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1, updated_at = now()
			WHERE id = $2 AND is_stock_controlled = true
		`, line.qty, line.productID)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	sales, err := s.querySales(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, store.ErrNotFound
	}
	sale := sales[0]
	return &sale, nil
}

func (s *Store) ListSalesWithItems(ctx context.Context, from *time.Time, to *time.Time) ([]domain.Sale, error) {
	switch {
	case from != nil && to != nil:
		return s.querySales(ctx, `WHERE created_at >= $1 AND created_at < $2`, *from, *to)
	case from != nil:
		return s.querySales(ctx, `WHERE created_at >= $1`, *from)
	case to != nil:
		return s.querySales(ctx, `WHERE created_at < $1`, *to)
	default:
		return s.querySales(ctx, ``)
	}
}

func (s *Store) querySales(ctx context.Context, where string, args ...any) ([]domain.Sale, error) {
	query := `
		SELECT id, total_cents, discount_total_cents, final_total_cents,
			payment_method_id, status, source, created_by, created_at, cancelled_at
		FROM sales
	`
	if where != "" {
		query += " " + where
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	index := make(map[string]int, 64)
	for rows.Next() {
		var sale domain.Sale
		var createdBy sql.NullString
		var cancelledAt sql.NullTime
		if err := rows.Scan(&sale.ID, &sale.TotalCents, &sale.DiscountTotalCents, &sale.FinalTotalCents,
			&sale.PaymentMethodID, &sale.Status, &sale.Source, &createdBy, &sale.CreatedAt, &cancelledAt); err != nil {
			return nil, err
		}
		if createdBy.Valid {
			sale.CreatedBy = createdBy.String
		}
		if cancelledAt.Valid {
			at := cancelledAt.Time.UTC()
			sale.CancelledAt = &at
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sale.Items = make([]domain.SaleItem, 0, 4)
		sale.Promotions = make([]domain.AppliedPromotion, 0, 2)
		index[sale.ID] = len(sales)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(sales) == 0 {
		return sales, nil
	}

	ids := make([]string, 0, len(sales))
	for _, sale := range sales {
		ids = append(ids, sale.ID)
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, product_name, unit_price_cents, qty, subtotal_cents
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.SaleItem
		if err := itemRows.Scan(&item.SaleID, &item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Qty, &item.SubtotalCents); err != nil {
			return nil, err
		}
		if i, ok := index[item.SaleID]; ok {
			sales[i].Items = append(sales[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	promoRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, promotion_id, promotion_name, discount_cents
		FROM applied_promotions
		WHERE sale_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer promoRows.Close()

	for promoRows.Next() {
		var promo domain.AppliedPromotion
		if err := promoRows.Scan(&promo.SaleID, &promo.PromotionID, &promo.PromotionName, &promo.DiscountCents); err != nil {
			return nil, err
		}
		if i, ok := index[promo.SaleID]; ok {
			sales[i].Promotions = append(sales[i].Promotions, promo)
		}
	}
	if err := promoRows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
