package model

import (
	"time"

	"gorm.io/gorm"
)

// CartItem is the persisted cart row. Prices are never stored here; every
// read recomputes them from the catalog, membership and promotion state.
type CartItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	UserID    uint           `gorm:"not null;index:idx_cart_user_product" json:"user_id"`
	ProductID uint           `gorm:"not null;index:idx_cart_user_product" json:"product_id"`
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// CartPromotion records the promotion code currently applied to a user's
// cart. One row per user.
type CartPromotion struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	UserID      uint           `gorm:"not null;uniqueIndex" json:"user_id"`
	PromotionID uint           `gorm:"not null;index" json:"promotion_id"`
	Code        string         `gorm:"not null" json:"code"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Promotion Promotion `gorm:"foreignKey:PromotionID" json:"promotion,omitempty"`
}

func (CartPromotion) TableName() string {
	return "cart_promotions"
}

// PricedItem is the server-computed view of one cart line after the
// membership and promotion discount layers have been applied. It is never
// persisted.
type PricedItem struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`

	// Reference prices per unit
	OriginalPrice float64 `json:"original_price"` // catalog compare-at price
	RegularPrice  float64 `json:"regular_price"`  // catalog price actually charged

	// Effective prices per unit after each discount layer
	MembershipPrice float64 `json:"membership_price"`
	PromotionPrice  float64 `json:"promotion_price"`
	FinalPrice      float64 `json:"final_price"`

	FreeFromMembership int `json:"free_from_membership"`
	PaidQuantity       int `json:"paid_quantity"`

	MembershipSavings float64 `json:"membership_savings"`
	PromotionSavings  float64 `json:"promotion_savings"`
	TotalSavings      float64 `json:"total_savings"`

	CategoryID     uint   `json:"category_id"`
	CategoryName   string `json:"category_name"`
	UsesAllocation bool   `json:"uses_allocation"`
}

// LineTotal returns the amount actually charged for this line.
func (i *PricedItem) LineTotal() float64 {
	return i.RegularPrice*float64(i.Quantity) - i.MembershipSavings - i.PromotionSavings
}

// AllocationUsage is the per-category allocation snapshot carried on a
// priced cart.
type AllocationUsage struct {
	CategoryID   uint   `json:"category_id"`
	CategoryName string `json:"category_name"`
	Used         int    `json:"used"`
	Remaining    int    `json:"remaining"`
}

// CartMembershipInfo summarizes the membership state that produced the
// free-quantity grants on a priced cart.
type CartMembershipInfo struct {
	PlanName        string            `json:"plan_name"`
	AllocationsUsed []AllocationUsage `json:"allocations_used"`
}

// PricedCart is the complete, internally consistent cart produced by the
// pricing engine. Clients replace their local cache with it wholesale.
type PricedCart struct {
	Items []PricedItem `json:"items"`

	Subtotal           float64 `json:"subtotal"`
	MembershipDiscount float64 `json:"membership_discount"`
	PromotionDiscount  float64 `json:"promotion_discount"`
	ShippingAmount     float64 `json:"shipping_amount"`
	TaxAmount          float64 `json:"tax_amount"`
	FinalTotal         float64 `json:"final_total"`

	TotalItems int `json:"total_items"`
	FreeItems  int `json:"free_items"`
	PaidItems  int `json:"paid_items"`

	HasMembershipApplied bool `json:"has_membership_applied"`
	HasPromotionApplied  bool `json:"has_promotion_applied"`
	CanApplyPromotion    bool `json:"can_apply_promotion"`

	PromotionCode string `json:"promotion_code,omitempty"`
	PromotionName string `json:"promotion_name,omitempty"`

	MembershipInfo *CartMembershipInfo `json:"membership_info,omitempty"`

	// Warnings carries non-fatal issues such as dropped unknown products.
	Warnings []string `json:"warnings,omitempty"`
}

// Clone returns a deep copy of the cart. The optimistic client store uses
// it to capture immutable pre-mutation snapshots.
func (c *PricedCart) Clone() *PricedCart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = make([]PricedItem, len(c.Items))
	copy(cp.Items, c.Items)
	if c.Warnings != nil {
		cp.Warnings = make([]string, len(c.Warnings))
		copy(cp.Warnings, c.Warnings)
	}
	if c.MembershipInfo != nil {
		mi := *c.MembershipInfo
		mi.AllocationsUsed = make([]AllocationUsage, len(c.MembershipInfo.AllocationsUsed))
		copy(mi.AllocationsUsed, c.MembershipInfo.AllocationsUsed)
		cp.MembershipInfo = &mi
	}
	return &cp
}

// FindItem returns the line for productID, or nil.
func (c *PricedCart) FindItem(productID uint) *PricedItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
