package service

import (
	"context"
	"errors"
	"time"

	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/repository"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is not for sale")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrEmptyCart         = errors.New("cart is empty")
)

// PromotionInfo reports the outcome of applying a promotion code.
type PromotionInfo struct {
	WasApplied bool    `json:"was_applied"`
	Savings    float64 `json:"savings"`
}

// CartCache holds the last authoritative priced cart per user. A nil cache
// is valid and disables caching.
type CartCache interface {
	Get(ctx context.Context, userID uint) (*model.PricedCart, error)
	Set(ctx context.Context, userID uint, cart *model.PricedCart) error
	Invalidate(ctx context.Context, userID uint) error
}

type CartService interface {
	GetCart(userID uint) (*model.PricedCart, error)
	AddToCart(userID, productID uint, quantity int) (*model.PricedCart, error)
	UpdateItem(userID, productID uint, quantity int) (*model.PricedCart, error)
	RemoveItem(userID, productID uint) (*model.PricedCart, error)
	ClearCart(userID uint) error
	RefreshPrices(userID uint) (*model.PricedCart, error)
	ApplyPromotion(userID uint, code string) (*model.PricedCart, *PromotionInfo, error)
	RemovePromotion(userID uint) (*model.PricedCart, error)
}

type cartService struct {
	cartRepo       repository.CartRepository
	productRepo    repository.ProductRepository
	membershipRepo repository.MembershipRepository
	promotions     PromotionService
	rules          PricingRules
	cache          CartCache
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	membershipRepo repository.MembershipRepository,
	promotions PromotionService,
	rules PricingRules,
	cache CartCache,
) CartService {
	return &cartService{
		cartRepo:       cartRepo,
		productRepo:    productRepo,
		membershipRepo: membershipRepo,
		promotions:     promotions,
		rules:          rules,
		cache:          cache,
	}
}

func (s *cartService) GetCart(userID uint) (*model.PricedCart, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(context.Background(), userID); err == nil && cached != nil {
			logger.Debug("Serving cart from cache", map[string]interface{}{
				"user_id": userID,
			})
			return cached, nil
		}
	}

	cart, err := s.priceCurrentCart(userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(context.Background(), userID, cart); err != nil {
			logger.Warn("Failed to cache priced cart", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	return cart, nil
}

func (s *cartService) AddToCart(userID, productID uint, quantity int) (*model.PricedCart, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	if !product.Active {
		return nil, ErrProductInactive
	}

	existingItem, err := s.cartRepo.FindByUserAndProduct(userID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	requestedQuantity := quantity
	if existingItem != nil {
		requestedQuantity = existingItem.Quantity + quantity
	}

	if product.StockQuantity < requestedQuantity {
		logger.Warn("Cannot add to cart: insufficient stock", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"requested":  requestedQuantity,
			"available":  product.StockQuantity,
		})
		return nil, ErrInsufficientStock
	}

	if existingItem != nil {
		existingItem.Quantity = requestedQuantity
		if err := s.cartRepo.Update(existingItem); err != nil {
			return nil, err
		}
	} else {
		cartItem := &model.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
		}
		if err := s.cartRepo.Create(cartItem); err != nil {
			return nil, err
		}
	}

	return s.commitAndPrice(userID)
}

func (s *cartService) UpdateItem(userID, productID uint, quantity int) (*model.PricedCart, error) {
	logger.Info("Updating cart item", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	// A quantity of zero removes the line.
	if quantity == 0 {
		return s.RemoveItem(userID, productID)
	}

	cartItem, err := s.cartRepo.FindByUserAndProduct(userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cart item not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		logger.Error("Failed to fetch product for stock check", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}

	if product.StockQuantity < quantity {
		logger.Warn("Cannot update cart item: insufficient stock", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"requested":  quantity,
			"available":  product.StockQuantity,
		})
		return nil, ErrInsufficientStock
	}

	cartItem.Quantity = quantity
	if err := s.cartRepo.Update(cartItem); err != nil {
		return nil, err
	}

	return s.commitAndPrice(userID)
}

func (s *cartService) RemoveItem(userID, productID uint) (*model.PricedCart, error) {
	logger.Info("Removing cart item", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	cartItem, err := s.cartRepo.FindByUserAndProduct(userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	if err := s.cartRepo.Delete(cartItem.ID); err != nil {
		return nil, err
	}

	cart, err := s.commitAndPrice(userID)
	if err != nil {
		return nil, err
	}

	// An emptied cart sheds its promotion.
	if len(cart.Items) == 0 && cart.HasPromotionApplied {
		if err := s.cartRepo.ClearPromotion(userID); err != nil {
			return nil, err
		}
		return s.commitAndPrice(userID)
	}
	return cart, nil
}

func (s *cartService) ClearCart(userID uint) error {
	logger.Info("Clearing user cart", map[string]interface{}{
		"user_id": userID,
	})

	if err := s.cartRepo.DeleteByUserID(userID); err != nil {
		return err
	}
	if err := s.cartRepo.ClearPromotion(userID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(context.Background(), userID)
	}
	return nil
}

// RefreshPrices re-derives the cart against current catalog prices. Prices
// are never stored on cart rows, so this is a cache drop plus a recompute.
func (s *cartService) RefreshPrices(userID uint) (*model.PricedCart, error) {
	logger.Info("Refreshing cart prices", map[string]interface{}{
		"user_id": userID,
	})
	return s.commitAndPrice(userID)
}

func (s *cartService) ApplyPromotion(userID uint, code string) (*model.PricedCart, *PromotionInfo, error) {
	logger.Info("Applying promotion to cart", map[string]interface{}{
		"user_id": userID,
		"code":    code,
	})

	items, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, ErrEmptyCart
	}

	if _, err := s.cartRepo.FindPromotion(userID); err == nil {
		return nil, nil, ErrPromotionAlreadyApplied
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	var subtotal float64
	for _, item := range items {
		subtotal += item.Product.Price * float64(item.Quantity)
	}

	promotion, err := s.promotions.ValidateCode(code, subtotal)
	if err != nil {
		// Validation failure leaves the cart untouched.
		logger.Warn("Promotion code rejected", map[string]interface{}{
			"user_id": userID,
			"code":    code,
			"error":   err.Error(),
		})
		return nil, nil, err
	}

	if err := s.cartRepo.SetPromotion(&model.CartPromotion{
		UserID:      userID,
		PromotionID: promotion.ID,
		Code:        promotion.Code,
	}); err != nil {
		return nil, nil, err
	}

	cart, err := s.commitAndPrice(userID)
	if err != nil {
		return nil, nil, err
	}

	info := &PromotionInfo{
		WasApplied: true,
		Savings:    cart.PromotionDiscount,
	}
	return cart, info, nil
}

func (s *cartService) RemovePromotion(userID uint) (*model.PricedCart, error) {
	logger.Info("Removing promotion from cart", map[string]interface{}{
		"user_id": userID,
	})

	if _, err := s.cartRepo.FindPromotion(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromotionNotApplied
		}
		return nil, err
	}

	if err := s.cartRepo.ClearPromotion(userID); err != nil {
		return nil, err
	}
	return s.commitAndPrice(userID)
}

// commitAndPrice recomputes the authoritative cart after a mutation and
// refreshes the cache. Every mutation goes through here so the cache never
// outlives a stale computation.
func (s *cartService) commitAndPrice(userID uint) (*model.PricedCart, error) {
	if s.cache != nil {
		s.cache.Invalidate(context.Background(), userID)
	}

	cart, err := s.priceCurrentCart(userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(context.Background(), userID, cart); err != nil {
			logger.Warn("Failed to cache priced cart", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	return cart, nil
}

// priceCurrentCart loads the full item set, membership and promotion state
// and runs the pricing engine over them. It is the single entry point for
// authoritative cart computation.
func (s *cartService) priceCurrentCart(userID uint) (*model.PricedCart, error) {
	items, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	membership, err := s.membershipRepo.FindActiveByUserID(userID, now)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to fetch membership for pricing", err, map[string]interface{}{
				"user_id": userID,
			})
			return nil, err
		}
		membership = nil
	}

	var promotion *model.Promotion
	var promoWarning string
	if applied, err := s.cartRepo.FindPromotion(userID); err == nil {
		// Revalidate on every computation: a promotion can expire between
		// apply and the next read.
		if verr := s.promotions.Revalidate(&applied.Promotion, now); verr != nil {
			logger.Warn("Applied promotion no longer valid, removing", map[string]interface{}{
				"user_id": userID,
				"code":    applied.Code,
				"error":   verr.Error(),
			})
			if err := s.cartRepo.ClearPromotion(userID); err != nil {
				return nil, err
			}
			promoWarning = "promotion " + applied.Code + " is no longer valid and was removed"
		} else {
			p := applied.Promotion
			promotion = &p
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart := PriceCart(items, membership, promotion, s.rules)
	if promoWarning != "" {
		cart.Warnings = append(cart.Warnings, promoWarning)
	}
	return cart, nil
}
