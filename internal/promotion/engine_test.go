package promotion

import (
	"testing"

	"warungpos/backend/internal/domain"
)

func productMap(products ...domain.Product) map[string]domain.Product {
	result := make(map[string]domain.Product, len(products))
	for _, p := range products {
		result[p.ID] = p
	}
	return result
}

func TestPercentageDiscountOnExactBundle(t *testing.T) {
	products := productMap(domain.Product{
		ID: "prod-1", Name: "Instant Noodles", PriceCents: 1000, UnitType: domain.UnitTypeUnit, Active: true,
	})
	promos := []domain.Promotion{{
		ID:              "promo-1",
		Name:            "Buy 2 Noodles 10% Off",
		DiscountType:    domain.DiscountTypePercentage,
		DiscountPercent: 10,
		Active:          true,
		Requirements:    []domain.PromotionRequirement{{ProductID: "prod-1", RequiredQty: 2}},
	}}

	eligible := Eligible([]domain.CartLine{{ProductID: "prod-1", Qty: 2}}, promos, products)
	if len(eligible) != 1 {
		t.Fatalf("expected 1 eligible promotion, got %d", len(eligible))
	}
	if eligible[0].BlockCount != 1 {
		t.Fatalf("expected block count 1, got %d", eligible[0].BlockCount)
	}
	if eligible[0].EligibleSubtotalCents != 2000 {
		t.Fatalf("expected eligible subtotal 2000, got %d", eligible[0].EligibleSubtotalCents)
	}
	if eligible[0].DiscountCents != 200 {
		t.Fatalf("expected discount 200, got %d", eligible[0].DiscountCents)
	}
}

func TestWeightRequirementNormalizesToGrams(t *testing.T) {
	// Price is per kilogram; the requirement is 250 g and the cart
	// holds 0.5 kg, so the bundle applies twice over exactly 0.5 kg.
	products := productMap(domain.Product{
		ID: "prod-beef", Name: "Beef", PriceCents: 100000, UnitType: domain.UnitTypeWeight, Active: true,
	})
	promos := []domain.Promotion{{
		ID:              "promo-beef",
		Name:            "Beef per 250g",
		DiscountType:    domain.DiscountTypePercentage,
		DiscountPercent: 10,
		Active:          true,
		Requirements:    []domain.PromotionRequirement{{ProductID: "prod-beef", RequiredQty: 250}},
	}}

	eligible := Eligible([]domain.CartLine{{ProductID: "prod-beef", Qty: 0.5}}, promos, products)
	if len(eligible) != 1 {
		t.Fatalf("expected 1 eligible promotion, got %d", len(eligible))
	}
	if eligible[0].BlockCount != 2 {
		t.Fatalf("expected block count 2, got %d", eligible[0].BlockCount)
	}
	if eligible[0].EligibleSubtotalCents != 50000 {
		t.Fatalf("expected eligible subtotal 50000, got %d", eligible[0].EligibleSubtotalCents)
	}
}

func TestBlockCountIsScarcestIngredient(t *testing.T) {
	products := productMap(
		domain.Product{ID: "prod-a", Name: "A", PriceCents: 500, UnitType: domain.UnitTypeUnit, Active: true},
		domain.Product{ID: "prod-b", Name: "B", PriceCents: 800, UnitType: domain.UnitTypeUnit, Active: true},
	)
	promos := []domain.Promotion{{
		ID:                "promo-bundle",
		Name:              "2A + 1B",
		DiscountType:      domain.DiscountTypeFixed,
		FlatDiscountCents: 100,
		Active:            true,
		Requirements: []domain.PromotionRequirement{
			{ProductID: "prod-a", RequiredQty: 2},
			{ProductID: "prod-b", RequiredQty: 1},
		},
	}}

	// 5 of A allows 2 blocks, 3 of B allows 3; the minimum wins.
	eligible := Eligible([]domain.CartLine{
		{ProductID: "prod-a", Qty: 5},
		{ProductID: "prod-b", Qty: 3},
	}, promos, products)
	if len(eligible) != 1 {
		t.Fatalf("expected 1 eligible promotion, got %d", len(eligible))
	}
	if eligible[0].BlockCount != 2 {
		t.Fatalf("expected block count 2, got %d", eligible[0].BlockCount)
	}
	// 2 blocks consume 4xA and 2xB: 4*500 + 2*800 = 3600.
	if eligible[0].EligibleSubtotalCents != 3600 {
		t.Fatalf("expected eligible subtotal 3600, got %d", eligible[0].EligibleSubtotalCents)
	}
	// Fixed discount applies once per block.
	if eligible[0].DiscountCents != 200 {
		t.Fatalf("expected discount 200, got %d", eligible[0].DiscountCents)
	}
}

func TestZeroAvailabilityDisqualifies(t *testing.T) {
	products := productMap(
		domain.Product{ID: "prod-a", Name: "A", PriceCents: 500, UnitType: domain.UnitTypeUnit, Active: true},
		domain.Product{ID: "prod-b", Name: "B", PriceCents: 800, UnitType: domain.UnitTypeUnit, Active: true},
	)
	promos := []domain.Promotion{{
		ID:              "promo-bundle",
		Name:            "A + B",
		DiscountType:    domain.DiscountTypePercentage,
		DiscountPercent: 25,
		Active:          true,
		Requirements: []domain.PromotionRequirement{
			{ProductID: "prod-a", RequiredQty: 1},
			{ProductID: "prod-b", RequiredQty: 1},
		},
	}}

	eligible := Eligible([]domain.CartLine{{ProductID: "prod-a", Qty: 4}}, promos, products)
	if len(eligible) != 0 {
		t.Fatalf("expected no eligible promotions, got %d", len(eligible))
	}
}

func TestFixedDiscountCappedAtEligibleSubtotal(t *testing.T) {
	products := productMap(domain.Product{
		ID: "prod-gum", Name: "Gum", PriceCents: 300, UnitType: domain.UnitTypeUnit, Active: true,
	})
	promos := []domain.Promotion{{
		ID:                "promo-gum",
		Name:              "Gum Deal",
		DiscountType:      domain.DiscountTypeFixed,
		FlatDiscountCents: 1000,
		Active:            true,
		Requirements:      []domain.PromotionRequirement{{ProductID: "prod-gum", RequiredQty: 1}},
	}}

	eligible := Eligible([]domain.CartLine{{ProductID: "prod-gum", Qty: 2}}, promos, products)
	if len(eligible) != 1 {
		t.Fatalf("expected 1 eligible promotion, got %d", len(eligible))
	}
	if eligible[0].DiscountCents != eligible[0].EligibleSubtotalCents {
		t.Fatalf("expected discount capped at subtotal %d, got %d", eligible[0].EligibleSubtotalCents, eligible[0].DiscountCents)
	}
}

func TestPercentageDiscountCappedAtEligibleSubtotal(t *testing.T) {
	products := productMap(domain.Product{
		ID: "prod-1", Name: "A", PriceCents: 1000, UnitType: domain.UnitTypeUnit, Active: true,
	})
	promos := []domain.Promotion{{
		ID:              "promo-1",
		Name:            "Everything Free And Then Some",
		DiscountType:    domain.DiscountTypePercentage,
		DiscountPercent: 250,
		Active:          true,
		Requirements:    []domain.PromotionRequirement{{ProductID: "prod-1", RequiredQty: 1}},
	}}

	eligible := Eligible([]domain.CartLine{{ProductID: "prod-1", Qty: 1}}, promos, products)
	if len(eligible) != 1 {
		t.Fatalf("expected 1 eligible promotion, got %d", len(eligible))
	}
	if eligible[0].DiscountCents != 1000 {
		t.Fatalf("expected discount capped at 1000, got %d", eligible[0].DiscountCents)
	}
}

func TestInactiveAndEmptyPromotionsAreSkipped(t *testing.T) {
	products := productMap(domain.Product{
		ID: "prod-1", Name: "A", PriceCents: 1000, UnitType: domain.UnitTypeUnit, Active: true,
	})
	promos := []domain.Promotion{
		{
			ID:              "promo-inactive",
			DiscountType:    domain.DiscountTypePercentage,
			DiscountPercent: 10,
			Active:          false,
			Requirements:    []domain.PromotionRequirement{{ProductID: "prod-1", RequiredQty: 1}},
		},
		{
			ID:              "promo-empty",
			DiscountType:    domain.DiscountTypePercentage,
			DiscountPercent: 10,
			Active:          true,
		},
	}

	eligible := Eligible([]domain.CartLine{{ProductID: "prod-1", Qty: 3}}, promos, products)
	if len(eligible) != 0 {
		t.Fatalf("expected no eligible promotions, got %d", len(eligible))
	}
}

func TestDuplicateCartLinesAggregate(t *testing.T) {
	products := productMap(domain.Product{
		ID: "prod-1", Name: "A", PriceCents: 1000, UnitType: domain.UnitTypeUnit, Active: true,
	})
	promos := []domain.Promotion{{
		ID:              "promo-1",
		Name:            "Buy 4",
		DiscountType:    domain.DiscountTypePercentage,
		DiscountPercent: 10,
		Active:          true,
		Requirements:    []domain.PromotionRequirement{{ProductID: "prod-1", RequiredQty: 4}},
	}}

	eligible := Eligible([]domain.CartLine{
		{ProductID: "prod-1", Qty: 2},
		{ProductID: "prod-1", Qty: 2},
	}, promos, products)
	if len(eligible) != 1 || eligible[0].BlockCount != 1 {
		t.Fatalf("expected aggregated lines to satisfy one block, got %+v", eligible)
	}
}

func TestFractionalUnitQuantityTruncates(t *testing.T) {
	products := productMap(domain.Product{
		ID: "prod-1", Name: "A", PriceCents: 1000, UnitType: domain.UnitTypeUnit, Active: true,
	})
	promos := []domain.Promotion{{
		ID:              "promo-1",
		Name:            "Buy 2",
		DiscountType:    domain.DiscountTypePercentage,
		DiscountPercent: 10,
		Active:          true,
		Requirements:    []domain.PromotionRequirement{{ProductID: "prod-1", RequiredQty: 2}},
	}}

	// 1.6 units must not round up to a satisfied pair.
	eligible := Eligible([]domain.CartLine{{ProductID: "prod-1", Qty: 1.6}}, promos, products)
	if len(eligible) != 0 {
		t.Fatalf("expected fractional quantity to truncate below requirement, got %+v", eligible)
	}

	// 2.4 units hold exactly one full pair.
	eligible = Eligible([]domain.CartLine{{ProductID: "prod-1", Qty: 2.4}}, promos, products)
	if len(eligible) != 1 || eligible[0].BlockCount != 1 {
		t.Fatalf("expected one block from 2.4 units, got %+v", eligible)
	}
}

func TestCacheKeyIgnoresLineOrder(t *testing.T) {
	a := CacheKey([]domain.CartLine{{ProductID: "p1", Qty: 1}, {ProductID: "p2", Qty: 0.25}})
	b := CacheKey([]domain.CartLine{{ProductID: "p2", Qty: 0.25}, {ProductID: "p1", Qty: 1}})
	if a != b {
		t.Fatalf("expected identical keys for reordered carts")
	}

	c := CacheKey([]domain.CartLine{{ProductID: "p1", Qty: 2}, {ProductID: "p2", Qty: 0.25}})
	if a == c {
		t.Fatalf("expected different keys for different quantities")
	}
}
