package controller

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/internal/errors"
	"github.com/hyerin/maplecart-backend/internal/middleware"
	"github.com/hyerin/maplecart-backend/internal/websocket"
	"github.com/hyerin/maplecart-backend/pkg/logger"
)

type CartController struct {
	cartService service.CartService
	hub         *websocket.Hub
}

// NewCartController creates the cart controller. hub may be nil; pushes
// are then skipped.
func NewCartController(cartService service.CartService, hub *websocket.Hub) *CartController {
	return &CartController{
		cartService: cartService,
		hub:         hub,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	// Zero removes the line, so no gt=0 binding here.
	Quantity *int `json:"quantity" binding:"required"`
}

type ApplyPromotionRequest struct {
	Code string `json:"code" binding:"required"`
}

// pushCart notifies the user's other sessions about the committed cart.
// The originating session identifies itself with the X-Session-ID header.
func (ctrl *CartController) pushCart(c *gin.Context, userID uint, cart *model.PricedCart) {
	if ctrl.hub == nil || cart == nil {
		return
	}
	ctrl.hub.BroadcastCartToUser(userID, cart, c.GetHeader("X-Session-ID"))
}

// respondCartError maps service sentinel errors to API error codes.
func respondCartError(c *gin.Context, err error, log *logger.Logger) {
	switch {
	case stderrors.Is(err, service.ErrProductNotFound):
		errors.NotFound(c, errors.ProductNotFound, "Product not found")
	case stderrors.Is(err, service.ErrProductInactive):
		errors.BadRequest(c, errors.ProductInactive, "Product is no longer available")
	case stderrors.Is(err, service.ErrInsufficientStock):
		errors.BadRequest(c, errors.ProductOutOfStock, "Insufficient stock")
	case stderrors.Is(err, service.ErrCartItemNotFound):
		errors.NotFound(c, errors.CartItemNotFound, "Item is not in the cart")
	case stderrors.Is(err, service.ErrInvalidQuantity):
		errors.BadRequest(c, errors.CartInvalidQuantity, "Quantity must be positive")
	case stderrors.Is(err, service.ErrEmptyCart):
		errors.BadRequest(c, errors.CartEmpty, "Cart is empty")
	case stderrors.Is(err, service.ErrPromotionNotFound):
		errors.NotFound(c, errors.PromotionNotFound, "Promotion code not found")
	case stderrors.Is(err, service.ErrPromotionExpired):
		errors.BadRequest(c, errors.PromotionExpired, "Promotion has expired")
	case stderrors.Is(err, service.ErrPromotionNotStarted):
		errors.BadRequest(c, errors.PromotionNotStarted, "Promotion has not started yet")
	case stderrors.Is(err, service.ErrPromotionInactive):
		errors.BadRequest(c, errors.PromotionInactive, "Promotion is not active")
	case stderrors.Is(err, service.ErrPromotionUsageExceeded):
		errors.BadRequest(c, errors.PromotionUsageExceeded, "Promotion usage limit reached")
	case stderrors.Is(err, service.ErrPromotionMinSubtotal):
		errors.BadRequest(c, errors.PromotionMinSubtotal, "Cart subtotal is below the promotion minimum")
	case stderrors.Is(err, service.ErrPromotionAlreadyApplied):
		errors.Conflict(c, errors.PromotionAlreadyApplied, "A promotion is already applied")
	case stderrors.Is(err, service.ErrPromotionNotApplied):
		errors.BadRequest(c, errors.PromotionNotApplied, "No promotion is applied")
	default:
		log.Error("Cart operation failed", err, nil)
		errors.InternalError(c, "Cart operation failed")
	}
}

// GetCart returns the user's priced cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	cart, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "Failed to fetch cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cart":    cart,
	})
}

// AddToCart adds an item and returns the repriced cart
// POST /api/v1/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	cart, err := ctrl.cartService.AddToCart(userID, req.ProductID, req.Quantity)
	if err != nil {
		log.Warn("Add to cart rejected", map[string]interface{}{
			"user_id":    userID,
			"product_id": req.ProductID,
			"quantity":   req.Quantity,
			"error":      err.Error(),
		})
		respondCartError(c, err, log)
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"user_id":     userID,
		"product_id":  req.ProductID,
		"quantity":    req.Quantity,
		"final_total": cart.FinalTotal,
	})

	ctrl.pushCart(c, userID, cart)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"cart":    cart,
	})
}

// UpdateCartItem sets an item quantity and returns the repriced cart.
// Quantity zero removes the line.
// PUT /api/v1/cart/items/:productId
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update cart request", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid request data")
		return
	}

	cart, err := ctrl.cartService.UpdateItem(userID, productID, *req.Quantity)
	if err != nil {
		log.Warn("Cart item update rejected", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"quantity":   *req.Quantity,
			"error":      err.Error(),
		})
		respondCartError(c, err, log)
		return
	}

	log.Info("Cart item updated", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   *req.Quantity,
	})

	ctrl.pushCart(c, userID, cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cart":    cart,
	})
}

// RemoveFromCart removes an item and returns the repriced cart
// DELETE /api/v1/cart/items/:productId
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}

	cart, err := ctrl.cartService.RemoveItem(userID, productID)
	if err != nil {
		log.Warn("Cart item removal rejected", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		})
		respondCartError(c, err, log)
		return
	}

	log.Info("Cart item removed", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	ctrl.pushCart(c, userID, cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cart":    cart,
	})
}

// ClearCart removes all items and any applied promotion
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	if err := ctrl.cartService.ClearCart(userID); err != nil {
		log.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "Failed to clear cart")
		return
	}

	log.Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
	})

	cart, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		log.Error("Failed to reprice cleared cart", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "Failed to fetch cart")
		return
	}

	ctrl.pushCart(c, userID, cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cart":    cart,
	})
}

// RefreshPrices recomputes the cart against current catalog and
// membership state
// POST /api/v1/cart/refresh
func (ctrl *CartController) RefreshPrices(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	cart, err := ctrl.cartService.RefreshPrices(userID)
	if err != nil {
		log.Error("Failed to refresh cart prices", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "Failed to refresh cart")
		return
	}

	ctrl.pushCart(c, userID, cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cart":    cart,
	})
}

// ApplyPromotion applies a promotion code to the cart
// POST /api/v1/cart/promotion
func (ctrl *CartController) ApplyPromotion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	var req ApplyPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "Promotion code is required")
		return
	}

	cart, info, err := ctrl.cartService.ApplyPromotion(userID, req.Code)
	if err != nil {
		log.Warn("Promotion application rejected", map[string]interface{}{
			"user_id": userID,
			"code":    req.Code,
			"error":   err.Error(),
		})
		respondCartError(c, err, log)
		return
	}

	log.Info("Promotion applied", map[string]interface{}{
		"user_id": userID,
		"code":    req.Code,
		"savings": info.Savings,
	})

	ctrl.pushCart(c, userID, cart)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"cart":      cart,
		"promotion": info,
	})
}

// RemovePromotion removes the applied promotion from the cart
// DELETE /api/v1/cart/promotion
func (ctrl *CartController) RemovePromotion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	cart, err := ctrl.cartService.RemovePromotion(userID)
	if err != nil {
		log.Warn("Promotion removal rejected", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		respondCartError(c, err, log)
		return
	}

	log.Info("Promotion removed", map[string]interface{}{
		"user_id": userID,
	})

	ctrl.pushCart(c, userID, cart)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cart":    cart,
	})
}

// parseIDParam parses a positive uint path parameter and responds with a
// validation error when it is malformed.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		errors.BadRequest(c, errors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
