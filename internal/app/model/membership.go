package model

import (
	"time"

	"gorm.io/gorm"
)

type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipCancelled MembershipStatus = "cancelled"
	MembershipExpired   MembershipStatus = "expired"
)

// MembershipPlan defines a subscription tier and the monthly free-quantity
// entitlements it grants per category.
type MembershipPlan struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	Name          string         `gorm:"uniqueIndex;not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	PricePerMonth float64        `gorm:"not null" json:"price_per_month"`
	Active        bool           `gorm:"default:true" json:"active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Entitlements []PlanEntitlement `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"entitlements,omitempty"`
}

func (MembershipPlan) TableName() string {
	return "membership_plans"
}

// PlanEntitlement is the per-category monthly free quantity granted by a
// plan.
type PlanEntitlement struct {
	ID              uint `gorm:"primarykey" json:"id"`
	PlanID          uint `gorm:"not null;index" json:"plan_id"`
	CategoryID      uint `gorm:"not null;index" json:"category_id"`
	MonthlyQuantity int  `gorm:"not null" json:"monthly_quantity"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (PlanEntitlement) TableName() string {
	return "plan_entitlements"
}

type Membership struct {
	ID          uint             `gorm:"primarykey" json:"id"`
	UserID      uint             `gorm:"not null;index" json:"user_id"`
	PlanID      uint             `gorm:"not null;index" json:"plan_id"`
	Status      MembershipStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	PeriodStart time.Time        `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time        `gorm:"not null" json:"period_end"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`

	User        User                   `gorm:"foreignKey:UserID" json:"-"`
	Plan        MembershipPlan         `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Allocations []MembershipAllocation `gorm:"foreignKey:MembershipID;constraint:OnDelete:CASCADE" json:"allocations,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}

// IsActive reports whether the membership covers the given instant.
func (m *Membership) IsActive(now time.Time) bool {
	return m.Status == MembershipActive &&
		!now.Before(m.PeriodStart) && now.Before(m.PeriodEnd)
}

// MembershipAllocation tracks free-quantity consumption for one category in
// the current billing period. UsedQuantity is mutated only by checkout;
// pricing preview reads it and never writes.
// Invariant: 0 <= UsedQuantity <= AllocatedQuantity.
type MembershipAllocation struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	MembershipID      uint           `gorm:"not null;index:idx_alloc_membership_category" json:"membership_id"`
	CategoryID        uint           `gorm:"not null;index:idx_alloc_membership_category" json:"category_id"`
	AllocatedQuantity int            `gorm:"not null" json:"allocated_quantity"`
	UsedQuantity      int            `gorm:"not null;default:0" json:"used_quantity"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (MembershipAllocation) TableName() string {
	return "membership_allocations"
}

// AvailableQuantity returns the free units still unconsumed this period.
func (a *MembershipAllocation) AvailableQuantity() int {
	available := a.AllocatedQuantity - a.UsedQuantity
	if available < 0 {
		return 0
	}
	return available
}
