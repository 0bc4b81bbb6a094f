package model

import (
	"time"

	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Promotion is a code-activated discount over the paid units of a cart.
type Promotion struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Code        string         `gorm:"uniqueIndex;not null" json:"code"`
	Name        string         `gorm:"not null" json:"name"`
	Type        DiscountType   `gorm:"type:varchar(20);not null" json:"type"`
	Value       float64        `gorm:"not null" json:"value"`
	MinSubtotal float64        `gorm:"default:0" json:"min_subtotal"`
	StartsAt    time.Time      `json:"starts_at"`
	EndsAt      time.Time      `json:"ends_at"`
	MaxUsage    int            `gorm:"default:0" json:"max_usage"` // 0 means unlimited
	UsageCount  int            `gorm:"default:0" json:"usage_count"`
	Active      bool           `gorm:"default:true" json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Promotion) TableName() string {
	return "promotions"
}

// IsCurrent reports whether the promotion window covers the given instant.
func (p *Promotion) IsCurrent(now time.Time) bool {
	return !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// UsageExhausted reports whether the promotion hit its usage cap.
func (p *Promotion) UsageExhausted() bool {
	return p.MaxUsage > 0 && p.UsageCount >= p.MaxUsage
}
