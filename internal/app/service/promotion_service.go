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
	ErrPromotionNotFound       = errors.New("promotion code not found")
	ErrPromotionExpired        = errors.New("promotion has expired")
	ErrPromotionNotStarted     = errors.New("promotion has not started yet")
	ErrPromotionInactive       = errors.New("promotion is not active")
	ErrPromotionUsageExceeded  = errors.New("promotion usage limit reached")
	ErrPromotionMinSubtotal    = errors.New("cart subtotal below promotion minimum")
	ErrPromotionAlreadyApplied = errors.New("a promotion is already applied")
	ErrPromotionNotApplied     = errors.New("no promotion applied")
)

type PromotionService interface {
	// ValidateCode resolves a code and checks it against the cart subtotal.
	ValidateCode(code string, subtotal float64) (*model.Promotion, error)
	// Revalidate rechecks an already-applied promotion without the
	// subtotal condition. Used on every cart recomputation.
	Revalidate(promotion *model.Promotion, now time.Time) error

	Create(promotion *model.Promotion) error
	List() ([]model.Promotion, error)
	Deactivate(id uint) error
}

type promotionService struct {
	promotionRepo repository.PromotionRepository
}

func NewPromotionService(promotionRepo repository.PromotionRepository) PromotionService {
	return &promotionService{promotionRepo: promotionRepo}
}

func (s *promotionService) ValidateCode(code string, subtotal float64) (*model.Promotion, error) {
	promotion, err := s.promotionRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromotionNotFound
		}
		logger.Error("Failed to fetch promotion", err, map[string]interface{}{
			"code": code,
		})
		return nil, err
	}

	if err := s.Revalidate(promotion, time.Now()); err != nil {
		return nil, err
	}
	if subtotal < promotion.MinSubtotal {
		return nil, ErrPromotionMinSubtotal
	}
	return promotion, nil
}

func (s *promotionService) Revalidate(promotion *model.Promotion, now time.Time) error {
	if !promotion.Active {
		return ErrPromotionInactive
	}
	if now.Before(promotion.StartsAt) {
		return ErrPromotionNotStarted
	}
	if !now.Before(promotion.EndsAt) {
		return ErrPromotionExpired
	}
	if promotion.UsageExhausted() {
		return ErrPromotionUsageExceeded
	}
	return nil
}

func (s *promotionService) Create(promotion *model.Promotion) error {
	logger.Info("Creating promotion", map[string]interface{}{
		"code": promotion.Code,
		"type": promotion.Type,
	})

	if promotion.Type != model.DiscountPercentage && promotion.Type != model.DiscountFixed {
		return errors.New("unknown discount type")
	}
	return s.promotionRepo.Create(promotion)
}

func (s *promotionService) List() ([]model.Promotion, error) {
	return s.promotionRepo.FindAll()
}

func (s *promotionService) Deactivate(id uint) error {
	promotion, err := s.promotionRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPromotionNotFound
		}
		return err
	}
	promotion.Active = false
	return s.promotionRepo.Update(promotion)
}
