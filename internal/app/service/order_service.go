package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/repository"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

type OrderService interface {
	// Checkout prices the cart one final time, persists the order, consumes
	// membership allocations and promotion usage, and clears the cart. It
	// is the only writer of allocation counters.
	Checkout(userID uint) (*model.Order, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrderByID(userID, orderID uint) (*model.Order, error)
}

type orderService struct {
	orderRepo      repository.OrderRepository
	cartRepo       repository.CartRepository
	membershipRepo repository.MembershipRepository
	promotions     PromotionService
	rules          PricingRules
	cache          CartCache
	db             *gorm.DB
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	membershipRepo repository.MembershipRepository,
	promotions PromotionService,
	rules PricingRules,
	cache CartCache,
	db *gorm.DB,
) OrderService {
	return &orderService{
		orderRepo:      orderRepo,
		cartRepo:       cartRepo,
		membershipRepo: membershipRepo,
		promotions:     promotions,
		rules:          rules,
		cache:          cache,
		db:             db,
	}
}

func (s *orderService) Checkout(userID uint) (*model.Order, error) {
	logger.Info("Creating order from cart", map[string]interface{}{
		"user_id": userID,
	})

	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		logger.Warn("Cannot create order: cart is empty", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrEmptyCart
	}

	now := time.Now()

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during checkout, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"user_id": userID,
			})
		}
	}()

	// Membership allocations are re-read with the rows locked: this is the
	// single point where preview-time figures are allowed to go stale and
	// the committed figures win.
	var membership *model.Membership
	{
		var m model.Membership
		err := tx.Where("user_id = ? AND status = ? AND period_start <= ? AND period_end > ?",
			userID, model.MembershipActive, now, now).
			Preload("Plan").
			Preload("Allocations").
			Preload("Allocations.Category").
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&m).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			tx.Rollback()
			return nil, err
		}
		if err == nil {
			membership = &m
		}
	}

	var promotion *model.Promotion
	if applied, err := s.cartRepo.FindPromotion(userID); err == nil {
		if verr := s.promotions.Revalidate(&applied.Promotion, now); verr != nil {
			tx.Rollback()
			return nil, verr
		}
		var p model.Promotion
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, applied.PromotionID).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		promotion = &p
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, err
	}

	// Stock is verified with locked product rows before committing.
	for _, cartItem := range cartItems {
		var product model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, cartItem.ProductID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		if product.StockQuantity < cartItem.Quantity {
			tx.Rollback()
			logger.Warn("Checkout failed: insufficient stock", map[string]interface{}{
				"user_id":    userID,
				"product_id": cartItem.ProductID,
				"requested":  cartItem.Quantity,
				"available":  product.StockQuantity,
			})
			return nil, ErrInsufficientStock
		}
		product.StockQuantity -= cartItem.Quantity
		if err := tx.Save(&product).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	cart := PriceCart(cartItems, membership, promotion, s.rules)
	if len(cart.Items) == 0 {
		tx.Rollback()
		return nil, ErrEmptyCart
	}

	order := &model.Order{
		UserID:             userID,
		Subtotal:           cart.Subtotal,
		MembershipDiscount: cart.MembershipDiscount,
		PromotionDiscount:  cart.PromotionDiscount,
		ShippingAmount:     cart.ShippingAmount,
		TaxAmount:          cart.TaxAmount,
		TotalAmount:        cart.FinalTotal,
		PromotionCode:      cart.PromotionCode,
		Status:             model.OrderStatusPending,
	}
	for _, item := range cart.Items {
		order.OrderItems = append(order.OrderItems, model.OrderItem{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			FreeQuantity: item.FreeFromMembership,
			PaidQuantity: item.PaidQuantity,
			UnitPrice:    item.RegularPrice,
			LineTotal:    item.LineTotal(),
		})
	}

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to persist order", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	// Commit allocation consumption for the free units actually granted.
	if membership != nil && cart.FreeItems > 0 {
		consumed := make(map[uint]int)
		for _, item := range cart.Items {
			if item.FreeFromMembership > 0 {
				consumed[item.CategoryID] += item.FreeFromMembership
			}
		}
		for i := range membership.Allocations {
			alloc := &membership.Allocations[i]
			used, ok := consumed[alloc.CategoryID]
			if !ok {
				continue
			}
			alloc.UsedQuantity += used
			if alloc.UsedQuantity > alloc.AllocatedQuantity {
				tx.Rollback()
				logger.Warn("Checkout failed: allocation exhausted concurrently", map[string]interface{}{
					"user_id":     userID,
					"category_id": alloc.CategoryID,
				})
				return nil, errors.New("membership allocation exhausted")
			}
			if err := tx.Save(alloc).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if promotion != nil {
		promotion.UsageCount++
		if err := tx.Save(promotion).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).Unscoped().Delete(&model.CartPromotion{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit checkout transaction", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(context.Background(), userID)
	}

	logger.Info("Order created successfully", map[string]interface{}{
		"order_id":     order.ID,
		"user_id":      userID,
		"total_amount": order.TotalAmount,
		"free_items":   cart.FreeItems,
	})
	return order, nil
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	return s.orderRepo.FindByUserID(userID)
}

func (s *orderService) GetOrderByID(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		logger.Warn("Order access denied: ownership mismatch", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"owner_id": order.UserID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}
