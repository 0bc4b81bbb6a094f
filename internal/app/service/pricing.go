package service

import (
	"fmt"
	"math"

	"github.com/hyerin/maplecart-backend/internal/app/model"
)

// PricingRules carries the shipping and tax policy applied on every
// recomputation.
type PricingRules struct {
	ShippingFlatRate      float64
	FreeShippingThreshold float64
	TaxRate               float64
}

// PriceCart computes the complete priced view of a cart from scratch.
//
// Membership free quantity is consumed greedily per category in the order
// items were added. The promotion discounts only paid units at the regular
// price; free units are never discounted twice. The function is pure: it
// never mutates allocation records, so it can be called repeatedly for
// preview. A nil membership means no active membership; a nil promotion
// means no promotion applied. Lines referencing an unknown or inactive
// product are dropped with a warning rather than failing the whole cart.
func PriceCart(items []model.CartItem, membership *model.Membership, promotion *model.Promotion, rules PricingRules) *model.PricedCart {
	cart := &model.PricedCart{
		Items: make([]model.PricedItem, 0, len(items)),
	}

	// Remaining free units per category for this computation.
	remaining := make(map[uint]int)
	granted := make(map[uint]int)
	if membership != nil {
		for _, alloc := range membership.Allocations {
			remaining[alloc.CategoryID] = alloc.AvailableQuantity()
		}
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if item.Product.ID == 0 {
			cart.Warnings = append(cart.Warnings,
				fmt.Sprintf("product %d is no longer available and was removed", item.ProductID))
			continue
		}
		if !item.Product.Active {
			cart.Warnings = append(cart.Warnings,
				fmt.Sprintf("product %q is no longer sold and was removed", item.Product.Name))
			continue
		}

		regular := item.Product.Price
		original := item.Product.CompareAtPrice
		if original == 0 {
			original = regular
		}

		priced := model.PricedItem{
			ProductID:      item.ProductID,
			ProductName:    item.Product.Name,
			Quantity:       item.Quantity,
			OriginalPrice:  original,
			RegularPrice:   regular,
			CategoryID:     item.Product.CategoryID,
			CategoryName:   item.Product.Category.Name,
			UsesAllocation: item.Product.Category.AllocationEligible,
		}

		if priced.UsesAllocation {
			free := item.Quantity
			if avail := remaining[priced.CategoryID]; free > avail {
				free = avail
			}
			priced.FreeFromMembership = free
			remaining[priced.CategoryID] -= free
			granted[priced.CategoryID] += free
		}
		priced.PaidQuantity = priced.Quantity - priced.FreeFromMembership
		priced.MembershipSavings = round2(float64(priced.FreeFromMembership) * regular)

		cart.Items = append(cart.Items, priced)
	}

	applyPromotion(cart, promotion)

	// Per-item derived prices and totals. Everything is recomputed from the
	// item set; nothing is patched incrementally.
	for i := range cart.Items {
		item := &cart.Items[i]
		lineRegular := item.RegularPrice * float64(item.Quantity)
		qty := float64(item.Quantity)

		item.TotalSavings = round2(item.MembershipSavings + item.PromotionSavings)
		item.MembershipPrice = round2((lineRegular - item.MembershipSavings) / qty)
		item.PromotionPrice = round2((lineRegular - item.MembershipSavings - item.PromotionSavings) / qty)
		item.FinalPrice = item.PromotionPrice

		cart.Subtotal += lineRegular
		cart.MembershipDiscount += item.MembershipSavings
		cart.PromotionDiscount += item.PromotionSavings
		cart.TotalItems += item.Quantity
		cart.FreeItems += item.FreeFromMembership
		cart.PaidItems += item.PaidQuantity
	}

	cart.Subtotal = round2(cart.Subtotal)
	cart.MembershipDiscount = round2(cart.MembershipDiscount)
	cart.PromotionDiscount = round2(cart.PromotionDiscount)

	goods := cart.Subtotal - cart.MembershipDiscount - cart.PromotionDiscount
	if goods < 0 {
		goods = 0
	}
	if len(cart.Items) > 0 && goods < rules.FreeShippingThreshold {
		cart.ShippingAmount = rules.ShippingFlatRate
	}
	cart.TaxAmount = round2(goods * rules.TaxRate)

	cart.FinalTotal = round2(goods + cart.ShippingAmount + cart.TaxAmount)
	if cart.FinalTotal < 0 {
		cart.FinalTotal = 0
	}

	cart.HasMembershipApplied = cart.FreeItems > 0
	cart.HasPromotionApplied = promotion != nil
	cart.CanApplyPromotion = promotion == nil && len(cart.Items) > 0
	if promotion != nil {
		cart.PromotionCode = promotion.Code
		cart.PromotionName = promotion.Name
	}

	if membership != nil {
		info := &model.CartMembershipInfo{PlanName: membership.Plan.Name}
		for _, alloc := range membership.Allocations {
			used := granted[alloc.CategoryID]
			info.AllocationsUsed = append(info.AllocationsUsed, model.AllocationUsage{
				CategoryID:   alloc.CategoryID,
				CategoryName: alloc.Category.Name,
				Used:         alloc.UsedQuantity + used,
				Remaining:    alloc.AvailableQuantity() - used,
			})
		}
		cart.MembershipInfo = info
	}

	return cart
}

// applyPromotion distributes the promotion discount over the paid units of
// the cart. Free units are excluded from the eligible base entirely.
func applyPromotion(cart *model.PricedCart, promotion *model.Promotion) {
	if promotion == nil || len(cart.Items) == 0 {
		return
	}

	var eligible float64
	for i := range cart.Items {
		eligible += cart.Items[i].RegularPrice * float64(cart.Items[i].PaidQuantity)
	}
	if eligible <= 0 {
		return
	}

	switch promotion.Type {
	case model.DiscountPercentage:
		pct := promotion.Value / 100
		if pct > 1 {
			pct = 1
		}
		if pct < 0 {
			pct = 0
		}
		for i := range cart.Items {
			item := &cart.Items[i]
			paidSub := item.RegularPrice * float64(item.PaidQuantity)
			item.PromotionSavings = round2(paidSub * pct)
		}

	case model.DiscountFixed:
		total := promotion.Value
		if total > eligible {
			total = eligible
		}
		if total <= 0 {
			return
		}
		// Distribute proportionally to each line's paid subtotal; the last
		// paid line absorbs the rounding remainder.
		lastPaid := -1
		for i := range cart.Items {
			if cart.Items[i].PaidQuantity > 0 {
				lastPaid = i
			}
		}
		var distributed float64
		for i := range cart.Items {
			item := &cart.Items[i]
			if item.PaidQuantity == 0 {
				continue
			}
			paidSub := item.RegularPrice * float64(item.PaidQuantity)
			if i == lastPaid {
				share := round2(total - distributed)
				if share > paidSub {
					share = round2(paidSub)
				}
				item.PromotionSavings = share
				continue
			}
			share := round2(total * paidSub / eligible)
			if share > paidSub {
				share = round2(paidSub)
			}
			item.PromotionSavings = share
			distributed += share
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
