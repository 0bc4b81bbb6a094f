package service

import (
	"errors"
	"time"

	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/repository"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrMembershipNotFound      = errors.New("membership not found")
	ErrMembershipPlanNotFound  = errors.New("membership plan not found")
	ErrMembershipAlreadyActive = errors.New("an active membership already exists")
)

type MembershipService interface {
	GetActiveMembership(userID uint) (*model.Membership, error)
	GetAllocationSummary(userID uint) ([]model.AllocationUsage, error)
	Subscribe(userID, planID uint) (*model.Membership, error)
	Cancel(userID uint) error
	ListPlans() ([]model.MembershipPlan, error)
	// RolloverExpiredPeriods advances every membership whose billing period
	// has ended into a fresh period with reset allocations.
	RolloverExpiredPeriods() (int, error)
}

type membershipService struct {
	membershipRepo repository.MembershipRepository
}

func NewMembershipService(membershipRepo repository.MembershipRepository) MembershipService {
	return &membershipService{membershipRepo: membershipRepo}
}

func (s *membershipService) GetActiveMembership(userID uint) (*model.Membership, error) {
	membership, err := s.membershipRepo.FindActiveByUserID(userID, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	return membership, nil
}

func (s *membershipService) GetAllocationSummary(userID uint) ([]model.AllocationUsage, error) {
	membership, err := s.GetActiveMembership(userID)
	if err != nil {
		return nil, err
	}

	summary := make([]model.AllocationUsage, 0, len(membership.Allocations))
	for _, alloc := range membership.Allocations {
		summary = append(summary, model.AllocationUsage{
			CategoryID:   alloc.CategoryID,
			CategoryName: alloc.Category.Name,
			Used:         alloc.UsedQuantity,
			Remaining:    alloc.AvailableQuantity(),
		})
	}
	return summary, nil
}

func (s *membershipService) Subscribe(userID, planID uint) (*model.Membership, error) {
	logger.Info("Subscribing user to membership plan", map[string]interface{}{
		"user_id": userID,
		"plan_id": planID,
	})

	if _, err := s.membershipRepo.FindActiveByUserID(userID, time.Now()); err == nil {
		return nil, ErrMembershipAlreadyActive
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	plan, err := s.membershipRepo.FindPlanByID(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipPlanNotFound
		}
		return nil, err
	}

	now := time.Now()
	membership := &model.Membership{
		UserID:      userID,
		PlanID:      plan.ID,
		Status:      model.MembershipActive,
		PeriodStart: now,
		PeriodEnd:   now.AddDate(0, 1, 0),
		Allocations: allocationsFromPlan(plan),
	}

	if err := s.membershipRepo.Create(membership); err != nil {
		return nil, err
	}

	logger.Info("Membership created", map[string]interface{}{
		"membership_id": membership.ID,
		"user_id":       userID,
		"plan":          plan.Name,
	})
	return membership, nil
}

func (s *membershipService) Cancel(userID uint) error {
	logger.Info("Cancelling membership", map[string]interface{}{
		"user_id": userID,
	})

	membership, err := s.membershipRepo.FindActiveByUserID(userID, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}
		return err
	}

	membership.Status = model.MembershipCancelled
	return s.membershipRepo.Update(membership)
}

func (s *membershipService) ListPlans() ([]model.MembershipPlan, error) {
	return s.membershipRepo.FindActivePlans()
}

func (s *membershipService) RolloverExpiredPeriods() (int, error) {
	now := time.Now()

	expired, err := s.membershipRepo.FindExpired(now)
	if err != nil {
		return 0, err
	}

	rolled := 0
	for i := range expired {
		membership := &expired[i]

		membership.PeriodStart = membership.PeriodEnd
		membership.PeriodEnd = membership.PeriodEnd.AddDate(0, 1, 0)
		// A membership that lapsed more than a full period ago restarts
		// its period at now instead of backfilling.
		if !membership.PeriodEnd.After(now) {
			membership.PeriodStart = now
			membership.PeriodEnd = now.AddDate(0, 1, 0)
		}

		if err := s.membershipRepo.Update(membership); err != nil {
			logger.Error("Failed to roll membership period", err, map[string]interface{}{
				"membership_id": membership.ID,
			})
			continue
		}
		if err := s.membershipRepo.ReplaceAllocations(membership.ID, allocationsFromPlan(&membership.Plan)); err != nil {
			logger.Error("Failed to reset membership allocations", err, map[string]interface{}{
				"membership_id": membership.ID,
			})
			continue
		}
		rolled++
	}

	if rolled > 0 {
		logger.Info("Rolled over membership billing periods", map[string]interface{}{
			"count": rolled,
		})
	}
	return rolled, nil
}

func allocationsFromPlan(plan *model.MembershipPlan) []model.MembershipAllocation {
	allocations := make([]model.MembershipAllocation, 0, len(plan.Entitlements))
	for _, ent := range plan.Entitlements {
		allocations = append(allocations, model.MembershipAllocation{
			CategoryID:        ent.CategoryID,
			AllocatedQuantity: ent.MonthlyQuantity,
		})
	}
	return allocations
}
