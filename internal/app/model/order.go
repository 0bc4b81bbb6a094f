package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is the committed snapshot of a priced cart. Creating one is the
// only operation that consumes membership allocations.
type Order struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	UserID             uint           `gorm:"not null;index" json:"user_id"`
	Subtotal           float64        `gorm:"not null" json:"subtotal"`
	MembershipDiscount float64        `gorm:"default:0" json:"membership_discount"`
	PromotionDiscount  float64        `gorm:"default:0" json:"promotion_discount"`
	ShippingAmount     float64        `gorm:"default:0" json:"shipping_amount"`
	TaxAmount          float64        `gorm:"default:0" json:"tax_amount"`
	TotalAmount        float64        `gorm:"not null" json:"total_amount"`
	PromotionCode      string         `gorm:"type:varchar(50)" json:"promotion_code,omitempty"`
	Status             OrderStatus    `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	User       User        `gorm:"foreignKey:UserID" json:"-"`
	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	OrderID      uint           `gorm:"not null;index" json:"order_id"`
	ProductID    uint           `gorm:"not null;index" json:"product_id"`
	Quantity     int            `gorm:"not null" json:"quantity"`
	FreeQuantity int            `gorm:"default:0" json:"free_quantity"`
	PaidQuantity int            `gorm:"not null" json:"paid_quantity"`
	UnitPrice    float64        `gorm:"not null" json:"unit_price"`
	LineTotal    float64        `gorm:"not null" json:"line_total"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
