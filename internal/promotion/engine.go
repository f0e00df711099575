package promotion

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	"warungpos/backend/internal/domain"
)

// gramsPerKilogram converts WEIGHT cart quantities (kilograms) into the
// grams that promotion requirements are expressed in.
const gramsPerKilogram = 1000

// Eligible computes, for the current cart, every active bundle
// promotion whose requirement set the cart satisfies, together with the
// discount each would grant. It is pure: no side effects, no retained
// state, safe to call on every cart mutation.
//
// Per promotion, the applicable block count is the minimum over its
// requirement lines of floor(availableQty / requiredQty); a single
// requirement line with zero availability disqualifies the promotion.
// The discount is computed over the eligible subtotal (the value of
// exactly the goods consumed by the applicable blocks, not the whole
// cart) and is capped at that subtotal.
func Eligible(cart []domain.CartLine, promos []domain.Promotion, products map[string]domain.Product) []domain.EligiblePromotion {
	normalized := normalizeCart(cart, products)
	eligible := make([]domain.EligiblePromotion, 0, len(promos))

	for _, promo := range promos {
		if !promo.Active || len(promo.Requirements) == 0 {
			continue
		}

		blocks := blockCount(promo, normalized)
		if blocks < 1 {
			continue
		}

		subtotal := eligibleSubtotalCents(promo, blocks, products)
		if subtotal < 1 {
			continue
		}

		discount := discountCents(promo, blocks, subtotal)
		if discount < 1 {
			continue
		}

		eligible = append(eligible, domain.EligiblePromotion{
			PromotionID:           promo.ID,
			PromotionName:         promo.Name,
			DiscountType:          promo.DiscountType,
			BlockCount:            blocks,
			EligibleSubtotalCents: subtotal,
			DiscountCents:         discount,
		})
	}

	return eligible
}

// blockCount returns how many times the promotion's full requirement
// set fits into the normalized cart, or 0 when any line is short.
func blockCount(promo domain.Promotion, normalized map[string]int64) int64 {
	blocks := int64(math.MaxInt64)
	for _, req := range promo.Requirements {
		if req.RequiredQty < 1 {
			return 0
		}
		available := normalized[req.ProductID]
		lineBlocks := available / req.RequiredQty
		if lineBlocks < 1 {
			return 0
		}
		if lineBlocks < blocks {
			blocks = lineBlocks
		}
	}
	return blocks
}

// eligibleSubtotalCents prices exactly the quantities the applicable
// blocks consume: requiredQty x blocks per line, converted back to
// kilograms for WEIGHT products before multiplying by the per-kilogram
// price.
func eligibleSubtotalCents(promo domain.Promotion, blocks int64, products map[string]domain.Product) int64 {
	subtotal := int64(0)
	for _, req := range promo.Requirements {
		product, ok := products[req.ProductID]
		if !ok {
			return 0
		}
		consumed := req.RequiredQty * blocks
		if product.UnitType == domain.UnitTypeWeight {
			kg := float64(consumed) / gramsPerKilogram
			subtotal += int64(math.Round(float64(product.PriceCents) * kg))
		} else {
			subtotal += product.PriceCents * consumed
		}
	}
	return subtotal
}

func discountCents(promo domain.Promotion, blocks int64, subtotal int64) int64 {
	switch promo.DiscountType {
	case domain.DiscountTypePercentage:
		discount := int64(math.Round(float64(subtotal) * promo.DiscountPercent / 100))
		if discount > subtotal {
			discount = subtotal
		}
		return discount
	case domain.DiscountTypeFixed:
		// A fixed discount applies once per satisfied block.
		discount := promo.FlatDiscountCents * blocks
		if discount > subtotal {
			discount = subtotal
		}
		return discount
	default:
		return 0
	}
}

// normalizeCart aggregates duplicate cart lines and converts every
// quantity into the promotion requirement's own unit: grams for WEIGHT
// products (kilograms x 1000, rounded to the nearest gram), whole units
// otherwise. UNIT quantities truncate rather than round so that a
// fractional line never counts for more than the cart actually holds.
// Products that are missing from the catalog snapshot normalize to
// zero availability.
func normalizeCart(cart []domain.CartLine, products map[string]domain.Product) map[string]int64 {
	normalized := make(map[string]int64, len(cart))
	for _, line := range cart {
		if line.ProductID == "" || line.Qty <= 0 {
			continue
		}
		product, ok := products[line.ProductID]
		if !ok {
			continue
		}
		if product.UnitType == domain.UnitTypeWeight {
			normalized[line.ProductID] += int64(math.Round(line.Qty * gramsPerKilogram))
		} else {
			normalized[line.ProductID] += int64(line.Qty)
		}
	}
	return normalized
}

// CacheKey derives a stable signature for a cart so that eligibility
// results can be cached between identical evaluations. Line order does
// not affect the key.
func CacheKey(cart []domain.CartLine) string {
	parts := make([]string, 0, len(cart))
	for _, line := range cart {
		if line.ProductID == "" || line.Qty <= 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%.3f", line.ProductID, line.Qty))
	}
	sort.Strings(parts)

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "pos:eligibility:" + hex.EncodeToString(hash[:])
}
