package model

import (
	"time"

	"gorm.io/gorm"
)

// Category groups products for membership allocation accounting. Only
// allocation-eligible categories participate in free-quantity grants.
type Category struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	Name               string         `gorm:"uniqueIndex;not null" json:"name"`
	AllocationEligible bool           `gorm:"default:false" json:"allocation_eligible"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"-"`
}

func (Category) TableName() string {
	return "categories"
}

type Product struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	// Price is the regular catalog price charged before discounts.
	Price float64 `gorm:"not null" json:"price"`
	// CompareAtPrice is the reference "compare at" price. It may exceed
	// Price and is never charged.
	CompareAtPrice float64        `json:"compare_at_price"`
	CategoryID     uint           `gorm:"not null;index" json:"category_id"`
	StockQuantity  int            `gorm:"default:0" json:"stock_quantity"`
	ImageURL       string         `json:"image_url"`
	Active         bool           `gorm:"default:true" json:"active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category   Category    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	CartItems  []CartItem  `gorm:"foreignKey:ProductID" json:"-"`
	OrderItems []OrderItem `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
