package cartsync

// Item is one cart line as priced by the server. The field set mirrors the
// API response so programs outside the backend can consume this package.
type Item struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`

	OriginalPrice float64 `json:"original_price"`
	RegularPrice  float64 `json:"regular_price"`

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

// AllocationUsage is the per-category allocation snapshot carried on a cart.
type AllocationUsage struct {
	CategoryID   uint   `json:"category_id"`
	CategoryName string `json:"category_name"`
	Used         int    `json:"used"`
	Remaining    int    `json:"remaining"`
}

// MembershipInfo summarizes the membership state that produced the
// free-quantity grants on a cart.
type MembershipInfo struct {
	PlanName        string            `json:"plan_name"`
	AllocationsUsed []AllocationUsage `json:"allocations_used"`
}

// Cart is the complete authoritative cart returned by every cart endpoint.
// Clients replace their local cache with it wholesale.
type Cart struct {
	Items []Item `json:"items"`

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

	MembershipInfo *MembershipInfo `json:"membership_info,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// Clone returns a deep copy of the cart. The optimistic store uses it to
// capture immutable pre-mutation snapshots.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = make([]Item, len(c.Items))
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
func (c *Cart) FindItem(productID uint) *Item {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
