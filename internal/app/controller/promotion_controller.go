package controller

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/internal/errors"
	"github.com/hyerin/maplecart-backend/internal/middleware"
	"github.com/hyerin/maplecart-backend/pkg/util"
)

// PromotionController exposes the admin surface for promotion codes.
type PromotionController struct {
	promotionService service.PromotionService
}

func NewPromotionController(promotionService service.PromotionService) *PromotionController {
	return &PromotionController{
		promotionService: promotionService,
	}
}

type CreatePromotionRequest struct {
	Code        string    `json:"code"`
	Name        string    `json:"name" binding:"required"`
	Type        string    `json:"type" binding:"required,oneof=percentage fixed"`
	Value       float64   `json:"value" binding:"required,gt=0"`
	MinSubtotal float64   `json:"min_subtotal" binding:"gte=0"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
	MaxUsage    int       `json:"max_usage" binding:"gte=0"`
}

// CreatePromotion registers a promotion code (admin). An omitted code is
// generated.
// POST /api/v1/promotions
func (ctrl *PromotionController) CreatePromotion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid promotion data")
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		errors.BadRequest(c, errors.ValidationInvalidRange, "Promotion must end after it starts")
		return
	}
	if req.Type == string(model.DiscountPercentage) && req.Value > 100 {
		errors.BadRequest(c, errors.ValidationInvalidRange, "Percentage discount cannot exceed 100")
		return
	}

	code := req.Code
	if code == "" {
		code = util.GeneratePromotionCode(8)
	}

	promotion := &model.Promotion{
		Code:        code,
		Name:        req.Name,
		Type:        model.DiscountType(req.Type),
		Value:       req.Value,
		MinSubtotal: req.MinSubtotal,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		MaxUsage:    req.MaxUsage,
		Active:      true,
	}

	if err := ctrl.promotionService.Create(promotion); err != nil {
		log.Error("Failed to create promotion", err, map[string]interface{}{
			"code": code,
		})
		errors.InternalError(c, "Failed to create promotion")
		return
	}

	log.Info("Promotion created", map[string]interface{}{
		"promotion_id": promotion.ID,
		"code":         promotion.Code,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"promotion": promotion,
	})
}

// ListPromotions returns all promotions (admin)
// GET /api/v1/promotions
func (ctrl *PromotionController) ListPromotions(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	promotions, err := ctrl.promotionService.List()
	if err != nil {
		log.Error("Failed to fetch promotions", err)
		errors.InternalError(c, "Failed to fetch promotions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"promotions": promotions,
	})
}

// DeactivatePromotion disables a promotion (admin)
// DELETE /api/v1/promotions/:id
func (ctrl *PromotionController) DeactivatePromotion(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.promotionService.Deactivate(id); err != nil {
		if stderrors.Is(err, service.ErrPromotionNotFound) {
			errors.NotFound(c, errors.PromotionNotFound, "Promotion not found")
			return
		}
		log.Error("Failed to deactivate promotion", err, map[string]interface{}{
			"promotion_id": id,
		})
		errors.InternalError(c, "Failed to deactivate promotion")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Promotion deactivated",
	})
}
