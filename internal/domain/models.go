package domain

import "time"

const (
	UnitTypeUnit   = "UNIT"
	UnitTypeWeight = "WEIGHT"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED"
)

const (
	SaleStatusActive    = "active"
	SaleStatusCancelled = "cancelled"
)

const (
	SaleSourceLocal  = "LOCAL"
	SaleSourceOnline = "ONLINE"
)

// Product is the catalog view the pricing core reads. PriceCents is per
// unit for UNIT products and per kilogram for WEIGHT products. Stock is
// held as a decimal so WEIGHT products can carry fractional kilograms;
// UNIT products only ever hold whole values in it.
type Product struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	PriceCents      int64   `json:"price_cents"`
	Stock           float64 `json:"stock"`
	StockControlled bool    `json:"stock_controlled"`
	MinStock        float64 `json:"min_stock"`
	UnitType        string  `json:"unit_type"`
	Active          bool    `json:"active"`
}

type ProductCreateRequest struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	PriceCents      int64   `json:"price_cents"`
	Stock           float64 `json:"stock"`
	StockControlled bool    `json:"stock_controlled"`
	MinStock        float64 `json:"min_stock"`
	UnitType        string  `json:"unit_type"`
}

type ProductUpdateRequest struct {
	Name            *string  `json:"name,omitempty"`
	PriceCents      *int64   `json:"price_cents,omitempty"`
	Stock           *float64 `json:"stock,omitempty"`
	StockControlled *bool    `json:"stock_controlled,omitempty"`
	MinStock        *float64 `json:"min_stock,omitempty"`
	Active          *bool    `json:"active,omitempty"`
}

// PromotionRequirement is one line of a bundle promotion's requirement
// set. RequiredQty is expressed in grams for WEIGHT products and in
// whole units for UNIT products.
type PromotionRequirement struct {
	ProductID   string `json:"product_id"`
	RequiredQty int64  `json:"required_qty"`
}

type Promotion struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	DiscountType      string                 `json:"discount_type"`
	DiscountPercent   float64                `json:"discount_percent"`
	FlatDiscountCents int64                  `json:"flat_discount_cents"`
	Active            bool                   `json:"active"`
	Requirements      []PromotionRequirement `json:"requirements"`
	CreatedAt         time.Time              `json:"created_at"`
}

type PromotionCreateRequest struct {
	Name              string                 `json:"name"`
	DiscountType      string                 `json:"discount_type"`
	DiscountPercent   float64                `json:"discount_percent"`
	FlatDiscountCents int64                  `json:"flat_discount_cents"`
	Requirements      []PromotionRequirement `json:"requirements"`
}

type PromotionToggleRequest struct {
	Active bool `json:"active"`
}

// CartLine is an ephemeral, client-held cart entry. Qty is a whole
// number for UNIT products and kilograms for WEIGHT products.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Qty       float64 `json:"qty"`
}

// EligiblePromotion is one entry of the eligibility calculator's
// output: a promotion whose requirement set the cart satisfies, with
// the discount it would grant.
type EligiblePromotion struct {
	PromotionID           string `json:"promotion_id"`
	PromotionName         string `json:"promotion_name"`
	DiscountType          string `json:"discount_type"`
	BlockCount            int64  `json:"block_count"`
	EligibleSubtotalCents int64  `json:"eligible_subtotal_cents"`
	DiscountCents         int64  `json:"discount_cents"`
}

type EligibilityRequest struct {
	CartItems []CartLine `json:"cart_items"`
}

type EligibilityResponse struct {
	Promotions []EligiblePromotion `json:"promotions"`
}

type PaymentMethod struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// SaleLineInput carries a cart line into checkout with its snapshot
// name and price as shown to the operator. The server recomputes the
// sale total from these lines, never from a client-supplied sum.
type SaleLineInput struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	Qty            float64 `json:"qty"`
}

// PromotionSelection is one promotion the operator confirmed at
// checkout, with the discount snapshot computed by the eligibility
// calculator. The promotion itself is re-validated inside the commit
// transaction.
type PromotionSelection struct {
	PromotionID   string `json:"promotion_id"`
	PromotionName string `json:"promotion_name"`
	DiscountCents int64  `json:"discount_cents"`
}

type SaleCreateRequest struct {
	PaymentMethodID string               `json:"payment_method_id"`
	Source          string               `json:"source"`
	Items           []SaleLineInput      `json:"items"`
	Promotions      []PromotionSelection `json:"promotions"`
}

type SaleItem struct {
	SaleID         string  `json:"sale_id"`
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	Qty            float64 `json:"qty"`
	SubtotalCents  int64   `json:"subtotal_cents"`
}

type AppliedPromotion struct {
	SaleID        string `json:"sale_id"`
	PromotionID   string `json:"promotion_id"`
	PromotionName string `json:"promotion_name"`
	DiscountCents int64  `json:"discount_cents"`
}

type Sale struct {
	ID                 string             `json:"id"`
	TotalCents         int64              `json:"total_cents"`
	DiscountTotalCents int64              `json:"discount_total_cents"`
	FinalTotalCents    int64              `json:"final_total_cents"`
	PaymentMethodID    string             `json:"payment_method_id"`
	Status             string             `json:"status"`
	Source             string             `json:"source"`
	CreatedBy          string             `json:"created_by,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	Items              []SaleItem         `json:"items"`
	Promotions         []AppliedPromotion `json:"promotions"`
}

type SaleCancelResponse struct {
	SaleID    string `json:"sale_id"`
	Cancelled bool   `json:"cancelled"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
