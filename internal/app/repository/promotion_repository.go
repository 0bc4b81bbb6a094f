package repository

import (
	"strings"

	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"gorm.io/gorm"
)

type PromotionRepository interface {
	Create(promotion *model.Promotion) error
	FindByID(id uint) (*model.Promotion, error)
	FindByCode(code string) (*model.Promotion, error)
	FindAll() ([]model.Promotion, error)
	Update(promotion *model.Promotion) error
	Delete(id uint) error
}

type promotionRepository struct {
	db *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) PromotionRepository {
	return &promotionRepository{db: db}
}

func (r *promotionRepository) Create(promotion *model.Promotion) error {
	promotion.Code = strings.ToUpper(strings.TrimSpace(promotion.Code))
	if err := r.db.Create(promotion).Error; err != nil {
		logger.Error("Failed to create promotion in database", err, map[string]interface{}{
			"code": promotion.Code,
		})
		return err
	}
	return nil
}

func (r *promotionRepository) FindByID(id uint) (*model.Promotion, error) {
	var promotion model.Promotion
	if err := r.db.First(&promotion, id).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

// FindByCode looks a promotion up case-insensitively.
func (r *promotionRepository) FindByCode(code string) (*model.Promotion, error) {
	var promotion model.Promotion
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := r.db.Where("code = ?", code).First(&promotion).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *promotionRepository) FindAll() ([]model.Promotion, error) {
	var promotions []model.Promotion
	if err := r.db.Order("created_at DESC").Find(&promotions).Error; err != nil {
		logger.Error("Failed to list promotions from database", err, nil)
		return nil, err
	}
	return promotions, nil
}

func (r *promotionRepository) Update(promotion *model.Promotion) error {
	if err := r.db.Save(promotion).Error; err != nil {
		logger.Error("Failed to update promotion in database", err, map[string]interface{}{
			"promotion_id": promotion.ID,
		})
		return err
	}
	return nil
}

func (r *promotionRepository) Delete(id uint) error {
	return r.db.Delete(&model.Promotion{}, id).Error
}
