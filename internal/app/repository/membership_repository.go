package repository

import (
	"time"

	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"gorm.io/gorm"
)

type MembershipRepository interface {
	Create(membership *model.Membership) error
	Update(membership *model.Membership) error
	FindActiveByUserID(userID uint, now time.Time) (*model.Membership, error)
	FindExpired(now time.Time) ([]model.Membership, error)
	FindPlanByID(planID uint) (*model.MembershipPlan, error)
	FindActivePlans() ([]model.MembershipPlan, error)
	CreatePlan(plan *model.MembershipPlan) error
	ReplaceAllocations(membershipID uint, allocations []model.MembershipAllocation) error
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Create(membership *model.Membership) error {
	if err := r.db.Create(membership).Error; err != nil {
		logger.Error("Failed to create membership in database", err, map[string]interface{}{
			"user_id": membership.UserID,
			"plan_id": membership.PlanID,
		})
		return err
	}
	return nil
}

func (r *membershipRepository) Update(membership *model.Membership) error {
	if err := r.db.Save(membership).Error; err != nil {
		logger.Error("Failed to update membership in database", err, map[string]interface{}{
			"membership_id": membership.ID,
		})
		return err
	}
	return nil
}

// FindActiveByUserID returns the user's membership covering now, with plan
// entitlements and current-period allocations loaded.
func (r *membershipRepository) FindActiveByUserID(userID uint, now time.Time) (*model.Membership, error) {
	var membership model.Membership
	err := r.db.Where("user_id = ? AND status = ? AND period_start <= ? AND period_end > ?",
		userID, model.MembershipActive, now, now).
		Preload("Plan").
		Preload("Plan.Entitlements").
		Preload("Allocations").
		Preload("Allocations.Category").
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *membershipRepository) FindExpired(now time.Time) ([]model.Membership, error) {
	var memberships []model.Membership
	err := r.db.Where("status = ? AND period_end <= ?", model.MembershipActive, now).
		Preload("Plan").
		Preload("Plan.Entitlements").
		Find(&memberships).Error
	if err != nil {
		logger.Error("Failed to find expired memberships in database", err, nil)
		return nil, err
	}
	return memberships, nil
}

func (r *membershipRepository) FindPlanByID(planID uint) (*model.MembershipPlan, error) {
	var plan model.MembershipPlan
	err := r.db.Preload("Entitlements").First(&plan, planID).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *membershipRepository) FindActivePlans() ([]model.MembershipPlan, error) {
	var plans []model.MembershipPlan
	err := r.db.Where("active = ?", true).
		Preload("Entitlements").
		Preload("Entitlements.Category").
		Order("price_per_month ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *membershipRepository) CreatePlan(plan *model.MembershipPlan) error {
	return r.db.Create(plan).Error
}

// ReplaceAllocations drops the membership's allocation rows and writes the
// given set, used when a billing period rolls over.
func (r *membershipRepository) ReplaceAllocations(membershipID uint, allocations []model.MembershipAllocation) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("membership_id = ?", membershipID).
			Unscoped().Delete(&model.MembershipAllocation{}).Error; err != nil {
			return err
		}
		if len(allocations) == 0 {
			return nil
		}
		for i := range allocations {
			allocations[i].MembershipID = membershipID
		}
		return tx.Create(&allocations).Error
	})
}
