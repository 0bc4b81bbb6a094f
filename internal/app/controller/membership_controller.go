package controller

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/internal/errors"
	"github.com/hyerin/maplecart-backend/internal/middleware"
)

type MembershipController struct {
	membershipService service.MembershipService
}

func NewMembershipController(membershipService service.MembershipService) *MembershipController {
	return &MembershipController{
		membershipService: membershipService,
	}
}

type SubscribeRequest struct {
	PlanID uint `json:"plan_id" binding:"required"`
}

// ListPlans returns the available membership plans
// GET /api/v1/memberships/plans
func (ctrl *MembershipController) ListPlans(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	plans, err := ctrl.membershipService.ListPlans()
	if err != nil {
		log.Error("Failed to fetch membership plans", err)
		errors.InternalError(c, "Failed to fetch membership plans")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"plans":   plans,
	})
}

// GetMembership returns the user's active membership with allocation usage
// GET /api/v1/memberships/me
func (ctrl *MembershipController) GetMembership(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	membership, err := ctrl.membershipService.GetActiveMembership(userID)
	if err != nil {
		if stderrors.Is(err, service.ErrMembershipNotFound) {
			errors.NotFound(c, errors.MembershipNotFound, "No active membership")
			return
		}
		log.Error("Failed to fetch membership", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "Failed to fetch membership")
		return
	}

	allocations, err := ctrl.membershipService.GetAllocationSummary(userID)
	if err != nil {
		log.Error("Failed to fetch allocation summary", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "Failed to fetch membership")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"membership":  membership,
		"allocations": allocations,
	})
}

// Subscribe starts a membership for the user
// POST /api/v1/memberships
func (ctrl *MembershipController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "Plan ID is required")
		return
	}

	membership, err := ctrl.membershipService.Subscribe(userID, req.PlanID)
	if err != nil {
		if stderrors.Is(err, service.ErrMembershipPlanNotFound) {
			errors.NotFound(c, errors.MembershipPlanNotFound, "Membership plan not found")
			return
		}
		if stderrors.Is(err, service.ErrMembershipAlreadyActive) {
			errors.Conflict(c, errors.MembershipAlreadyActive, "An active membership already exists")
			return
		}
		log.Error("Failed to subscribe", err, map[string]interface{}{
			"user_id": userID,
			"plan_id": req.PlanID,
		})
		errors.InternalError(c, "Failed to subscribe")
		return
	}

	log.Info("Membership subscription created", map[string]interface{}{
		"user_id": userID,
		"plan_id": req.PlanID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"membership": membership,
	})
}

// Cancel ends the user's active membership
// DELETE /api/v1/memberships/me
func (ctrl *MembershipController) Cancel(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		errors.Unauthorized(c, "Authentication required")
		return
	}

	if err := ctrl.membershipService.Cancel(userID); err != nil {
		if stderrors.Is(err, service.ErrMembershipNotFound) {
			errors.NotFound(c, errors.MembershipNotFound, "No active membership")
			return
		}
		log.Error("Failed to cancel membership", err, map[string]interface{}{
			"user_id": userID,
		})
		errors.InternalError(c, "Failed to cancel membership")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Membership cancelled",
	})
}
