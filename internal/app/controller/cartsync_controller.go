package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/internal/errors"
	"github.com/hyerin/maplecart-backend/internal/middleware"
	ws "github.com/hyerin/maplecart-backend/internal/websocket"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return allowed[r.Header.Get("Origin")]
		},
	}
}

// CartSyncController upgrades authenticated connections and keeps every
// session of a user converged on the committed cart.
type CartSyncController struct {
	cartService service.CartService
	hub         *ws.Hub
	upgrader    websocket.Upgrader
}

func NewCartSyncController(cartService service.CartService, hub *ws.Hub, allowedOrigins []string) *CartSyncController {
	return &CartSyncController{
		cartService: cartService,
		hub:         hub,
		upgrader:    newUpgrader(allowedOrigins),
	}
}

// WebSocketHandler handles cart sync connections. The token arrives via
// query parameter and is validated by the auth middleware.
// GET /api/v1/cart/ws
func (ctrl *CartSyncController) WebSocketHandler(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	client := &ws.Client{
		Hub:           ctrl.hub,
		Conn:          &ws.Conn{Conn: conn},
		UserID:        userID,
		SessionID:     sessionID,
		Send:          make(chan []byte, 2048),
		LastResetTime: time.Now(),
	}

	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(ctrl.pushCurrentCart)

	log.Info("Cart sync connection established", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	})
}

// pushCurrentCart answers a client refresh_request with the authoritative
// cart.
func (ctrl *CartSyncController) pushCurrentCart(userID uint) {
	cart, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		return
	}
	ctrl.hub.BroadcastCartToUser(userID, cart, "")
}
