package controller

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/internal/errors"
	"github.com/hyerin/maplecart-backend/internal/middleware"
	"github.com/hyerin/maplecart-backend/internal/websocket"
)

type OrderController struct {
	orderService service.OrderService
	cartService  service.CartService
	hub          *websocket.Hub
}

func NewOrderController(orderService service.OrderService, cartService service.CartService, hub *websocket.Hub) *OrderController {
	return &OrderController{
		orderService: orderService,
		cartService:  cartService,
		hub:          hub,
	}
}

// Checkout converts the cart into an order
// POST /api/v1/orders
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	order, err := ctrl.orderService.Checkout(userID)
	if err != nil {
		switch {
		case stderrors.Is(err, service.ErrEmptyCart):
			errors.BadRequest(c, errors.CartEmpty, "Cart is empty")
		case stderrors.Is(err, service.ErrInsufficientStock):
			errors.Conflict(c, errors.ProductOutOfStock, "Insufficient stock")
		case stderrors.Is(err, service.ErrProductNotFound):
			errors.Conflict(c, errors.ProductNotFound, "A cart item is no longer available")
		case stderrors.Is(err, service.ErrPromotionExpired),
			stderrors.Is(err, service.ErrPromotionInactive),
			stderrors.Is(err, service.ErrPromotionUsageExceeded):
			respondCartError(c, err, log)
		default:
			log.Error("Checkout failed", err, map[string]interface{}{
				"user_id": userID,
			})
			errors.InternalError(c, "Checkout failed")
		}
		return
	}

	log.Info("Checkout completed", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
	})

	// Other sessions now see an empty cart.
	if cart, cerr := ctrl.cartService.GetCart(userID); cerr == nil && ctrl.hub != nil {
		ctrl.hub.BroadcastCartToUser(userID, cart, c.GetHeader("X-Session-ID"))
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order":   order,
	})
}

// ListOrders returns the user's orders
// GET /api/v1/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		log.Error("Failed to fetch orders", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "Failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

// GetOrder returns a single order owned by the user
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(userID, orderID)
	if err != nil {
		if stderrors.Is(err, service.ErrOrderNotFound) {
			errors.NotFound(c, errors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to fetch order", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		errors.InternalError(c, "Failed to fetch order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}
