package service

import (
	"testing"

	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() PricingRules {
	return PricingRules{}
}

func cartItem(productID uint, quantity int, price float64, category model.Category) model.CartItem {
	return model.CartItem{
		ProductID: productID,
		Quantity:  quantity,
		Product: model.Product{
			ID:         productID,
			Name:       "Product",
			Price:      price,
			CategoryID: category.ID,
			Active:     true,
			Category:   category,
		},
	}
}

func membershipWith(allocations ...model.MembershipAllocation) *model.Membership {
	return &model.Membership{
		Status:      model.MembershipActive,
		Plan:        model.MembershipPlan{Name: "Basic"},
		Allocations: allocations,
	}
}

func TestPriceCart_EmptyCart(t *testing.T) {
	cart := PriceCart(nil, nil, nil, testRules())

	assert.Len(t, cart.Items, 0)
	assert.Equal(t, 0.0, cart.Subtotal)
	assert.Equal(t, 0.0, cart.FinalTotal)
	assert.False(t, cart.HasMembershipApplied)
	assert.False(t, cart.HasPromotionApplied)
	assert.False(t, cart.CanApplyPromotion)
}

func TestPriceCart_NoDiscounts(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks"}
	items := []model.CartItem{cartItem(1, 2, 10.00, category)}

	cart := PriceCart(items, nil, nil, testRules())

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 20.00, cart.Subtotal)
	assert.Equal(t, 20.00, cart.FinalTotal)
	assert.Equal(t, 2, cart.TotalItems)
	assert.Equal(t, 0, cart.FreeItems)
	assert.Equal(t, 2, cart.PaidItems)
	assert.True(t, cart.CanApplyPromotion)
	assert.Equal(t, 10.00, cart.Items[0].FinalPrice)
}

func TestPriceCart_MembershipFreeUnit(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks", AllocationEligible: true}
	items := []model.CartItem{cartItem(1, 2, 10.00, category)}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        1,
		Category:          category,
		AllocatedQuantity: 1,
		UsedQuantity:      0,
	})

	cart := PriceCart(items, membership, nil, testRules())

	require.Len(t, cart.Items, 1)
	item := cart.Items[0]
	assert.Equal(t, 1, item.FreeFromMembership)
	assert.Equal(t, 1, item.PaidQuantity)
	assert.Equal(t, 10.00, item.MembershipSavings)

	assert.Equal(t, 20.00, cart.Subtotal)
	assert.Equal(t, 10.00, cart.MembershipDiscount)
	assert.Equal(t, 10.00, cart.FinalTotal)
	assert.True(t, cart.HasMembershipApplied)

	require.NotNil(t, cart.MembershipInfo)
	require.Len(t, cart.MembershipInfo.AllocationsUsed, 1)
	assert.Equal(t, 1, cart.MembershipInfo.AllocationsUsed[0].Used)
	assert.Equal(t, 0, cart.MembershipInfo.AllocationsUsed[0].Remaining)
}

func TestPriceCart_FreeFromMembershipNeverExceedsQuantityOrAllocation(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks", AllocationEligible: true}
	items := []model.CartItem{cartItem(1, 2, 5.00, category)}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        1,
		Category:          category,
		AllocatedQuantity: 10,
		UsedQuantity:      0,
	})

	cart := PriceCart(items, membership, nil, testRules())

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].FreeFromMembership)
	assert.Equal(t, 0, cart.Items[0].PaidQuantity)
	assert.Equal(t, 8, cart.MembershipInfo.AllocationsUsed[0].Remaining)
}

func TestPriceCart_AllocationConsumedInItemOrder(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks", AllocationEligible: true}
	items := []model.CartItem{
		cartItem(1, 2, 10.00, category),
		cartItem(2, 2, 20.00, category),
	}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        1,
		Category:          category,
		AllocatedQuantity: 3,
		UsedQuantity:      0,
	})

	cart := PriceCart(items, membership, nil, testRules())

	require.Len(t, cart.Items, 2)
	// First-come-first-served: the earlier line drains the allocation first.
	assert.Equal(t, 2, cart.Items[0].FreeFromMembership)
	assert.Equal(t, 1, cart.Items[1].FreeFromMembership)
	assert.Equal(t, 1, cart.Items[1].PaidQuantity)
	assert.Equal(t, 40.00, cart.MembershipDiscount)
}

func TestPriceCart_AllocationExhaustedFallsBackToRegularPrice(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks", AllocationEligible: true}
	items := []model.CartItem{cartItem(1, 5, 10.00, category)}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        1,
		Category:          category,
		AllocatedQuantity: 3,
		UsedQuantity:      2,
	})

	cart := PriceCart(items, membership, nil, testRules())

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].FreeFromMembership)
	assert.Equal(t, 4, cart.Items[0].PaidQuantity)
	assert.Equal(t, 40.00, cart.FinalTotal)
}

func TestPriceCart_IneligibleCategoryGetsNoFreeUnits(t *testing.T) {
	category := model.Category{ID: 2, Name: "Electronics"}
	items := []model.CartItem{cartItem(1, 3, 10.00, category)}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        2,
		AllocatedQuantity: 5,
		UsedQuantity:      0,
	})

	cart := PriceCart(items, membership, nil, testRules())

	require.Len(t, cart.Items, 1)
	assert.False(t, cart.Items[0].UsesAllocation)
	assert.Equal(t, 0, cart.Items[0].FreeFromMembership)
	assert.Equal(t, 30.00, cart.FinalTotal)
}

func TestPriceCart_PromotionAppliesOnlyToPaidUnits(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks", AllocationEligible: true}
	items := []model.CartItem{cartItem(1, 5, 10.00, category)}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        1,
		Category:          category,
		AllocatedQuantity: 2,
		UsedQuantity:      0,
	})
	promotion := &model.Promotion{
		Code:  "TEN",
		Name:  "Ten Percent",
		Type:  model.DiscountPercentage,
		Value: 10,
	}

	cart := PriceCart(items, membership, promotion, testRules())

	require.Len(t, cart.Items, 1)
	item := cart.Items[0]
	assert.Equal(t, 2, item.FreeFromMembership)
	assert.Equal(t, 3, item.PaidQuantity)
	// 10% of the 3 paid units at $10, never of the 2 free units.
	assert.Equal(t, 3.00, item.PromotionSavings)
	assert.Equal(t, 20.00, cart.MembershipDiscount)
	assert.Equal(t, 3.00, cart.PromotionDiscount)
	assert.Equal(t, 27.00, cart.FinalTotal)
	assert.True(t, cart.HasPromotionApplied)
	assert.False(t, cart.CanApplyPromotion)
	assert.Equal(t, "TEN", cart.PromotionCode)
}

func TestPriceCart_FixedPromotionCappedAtEligibleSubtotal(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks"}
	items := []model.CartItem{cartItem(1, 1, 8.00, category)}
	promotion := &model.Promotion{
		Code:  "BIG",
		Type:  model.DiscountFixed,
		Value: 50,
	}

	cart := PriceCart(items, nil, promotion, testRules())

	assert.Equal(t, 8.00, cart.PromotionDiscount)
	assert.Equal(t, 0.00, cart.FinalTotal)
}

func TestPriceCart_FixedPromotionDistributedAcrossLines(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks"}
	items := []model.CartItem{
		cartItem(1, 1, 10.00, category),
		cartItem(2, 1, 30.00, category),
	}
	promotion := &model.Promotion{
		Code:  "FOUR",
		Type:  model.DiscountFixed,
		Value: 4,
	}

	cart := PriceCart(items, nil, promotion, testRules())

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 1.00, cart.Items[0].PromotionSavings)
	assert.Equal(t, 3.00, cart.Items[1].PromotionSavings)
	assert.Equal(t, 4.00, cart.PromotionDiscount)
	assert.Equal(t, 36.00, cart.FinalTotal)
}

func TestPriceCart_UnknownProductDroppedWithWarning(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks"}
	items := []model.CartItem{
		cartItem(1, 1, 10.00, category),
		{ProductID: 99, Quantity: 2}, // no catalog row joined
	}

	cart := PriceCart(items, nil, nil, testRules())

	require.Len(t, cart.Items, 1)
	assert.Equal(t, uint(1), cart.Items[0].ProductID)
	require.Len(t, cart.Warnings, 1)
	assert.Contains(t, cart.Warnings[0], "no longer available")
	assert.Equal(t, 10.00, cart.FinalTotal)
}

func TestPriceCart_InactiveProductDroppedWithWarning(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks"}
	inactive := cartItem(2, 1, 10.00, category)
	inactive.Product.Active = false
	items := []model.CartItem{cartItem(1, 1, 5.00, category), inactive}

	cart := PriceCart(items, nil, nil, testRules())

	require.Len(t, cart.Items, 1)
	require.Len(t, cart.Warnings, 1)
	assert.Contains(t, cart.Warnings[0], "no longer sold")
}

func TestPriceCart_ShippingAndTax(t *testing.T) {
	rules := PricingRules{
		ShippingFlatRate:      5.00,
		FreeShippingThreshold: 50.00,
		TaxRate:               0.10,
	}
	category := model.Category{ID: 1, Name: "Snacks"}

	below := PriceCart([]model.CartItem{cartItem(1, 2, 10.00, category)}, nil, nil, rules)
	assert.Equal(t, 5.00, below.ShippingAmount)
	assert.Equal(t, 2.00, below.TaxAmount)
	assert.Equal(t, 27.00, below.FinalTotal)

	above := PriceCart([]model.CartItem{cartItem(1, 6, 10.00, category)}, nil, nil, rules)
	assert.Equal(t, 0.00, above.ShippingAmount)
	assert.Equal(t, 6.00, above.TaxAmount)
	assert.Equal(t, 66.00, above.FinalTotal)

	// Shipping only applies when something is in the cart.
	empty := PriceCart(nil, nil, nil, rules)
	assert.Equal(t, 0.00, empty.ShippingAmount)
}

func TestPriceCart_Idempotent(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks", AllocationEligible: true}
	items := []model.CartItem{
		cartItem(1, 3, 12.50, category),
		cartItem(2, 1, 7.25, category),
	}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        1,
		Category:          category,
		AllocatedQuantity: 2,
		UsedQuantity:      0,
	})
	promotion := &model.Promotion{Code: "P", Type: model.DiscountPercentage, Value: 15}
	rules := PricingRules{ShippingFlatRate: 4.00, FreeShippingThreshold: 100, TaxRate: 0.07}

	first := PriceCart(items, membership, promotion, rules)
	second := PriceCart(items, membership, promotion, rules)

	assert.Equal(t, first, second)
}

func TestPriceCart_DoesNotMutateAllocations(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks", AllocationEligible: true}
	items := []model.CartItem{cartItem(1, 2, 10.00, category)}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        1,
		Category:          category,
		AllocatedQuantity: 5,
		UsedQuantity:      1,
	})

	PriceCart(items, membership, nil, testRules())

	assert.Equal(t, 1, membership.Allocations[0].UsedQuantity)
	assert.Equal(t, 5, membership.Allocations[0].AllocatedQuantity)
}

func TestPriceCart_FinalTotalMatchesRecompute(t *testing.T) {
	category := model.Category{ID: 1, Name: "Snacks", AllocationEligible: true}
	items := []model.CartItem{
		cartItem(1, 4, 9.99, category),
		cartItem(2, 2, 25.50, category),
	}
	membership := membershipWith(model.MembershipAllocation{
		CategoryID:        1,
		Category:          category,
		AllocatedQuantity: 3,
		UsedQuantity:      0,
	})
	promotion := &model.Promotion{Code: "P", Type: model.DiscountFixed, Value: 10}
	rules := PricingRules{ShippingFlatRate: 5, FreeShippingThreshold: 200, TaxRate: 0.05}

	cart := PriceCart(items, membership, promotion, rules)

	goods := cart.Subtotal - cart.MembershipDiscount - cart.PromotionDiscount
	expected := goods + cart.ShippingAmount + cart.TaxAmount
	assert.InDelta(t, expected, cart.FinalTotal, 0.001)

	var fromItems float64
	for _, item := range cart.Items {
		fromItems += item.LineTotal()
	}
	assert.InDelta(t, goods, fromItems, 0.001)
}
