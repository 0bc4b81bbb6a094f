package service

import (
	"testing"
	"time"

	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/repository"
	"github.com/hyerin/maplecart-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPromotionServiceTest(t *testing.T) (PromotionService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	promotionRepo := repository.NewPromotionRepository(testDB)
	return NewPromotionService(promotionRepo), testDB
}

func TestPromotionService_ValidateCode_Success(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)
	createTestPromotion(t, testDB, "SAVE10", model.DiscountPercentage, 10)

	promotion, err := promotionService.ValidateCode("SAVE10", 50.00)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", promotion.Code)
	assert.Equal(t, model.DiscountPercentage, promotion.Type)
}

func TestPromotionService_ValidateCode_CaseInsensitive(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)
	createTestPromotion(t, testDB, "SAVE10", model.DiscountPercentage, 10)

	promotion, err := promotionService.ValidateCode("save10", 50.00)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", promotion.Code)
}

func TestPromotionService_ValidateCode_NotFound(t *testing.T) {
	promotionService, _ := setupPromotionServiceTest(t)

	_, err := promotionService.ValidateCode("NOPE", 50.00)
	assert.ErrorIs(t, err, ErrPromotionNotFound)
}

func TestPromotionService_ValidateCode_Windows(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)

	future := createTestPromotion(t, testDB, "FUTURE", model.DiscountPercentage, 10)
	testDB.Model(future).Update("starts_at", time.Now().Add(time.Hour))

	past := createTestPromotion(t, testDB, "PAST", model.DiscountPercentage, 10)
	testDB.Model(past).Updates(map[string]interface{}{
		"starts_at": time.Now().Add(-2 * time.Hour),
		"ends_at":   time.Now().Add(-time.Hour),
	})

	_, err := promotionService.ValidateCode("FUTURE", 50.00)
	assert.ErrorIs(t, err, ErrPromotionNotStarted)

	_, err = promotionService.ValidateCode("PAST", 50.00)
	assert.ErrorIs(t, err, ErrPromotionExpired)
}

func TestPromotionService_ValidateCode_Inactive(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)
	promotion := createTestPromotion(t, testDB, "OFF", model.DiscountPercentage, 10)
	testDB.Model(promotion).Update("active", false)

	_, err := promotionService.ValidateCode("OFF", 50.00)
	assert.ErrorIs(t, err, ErrPromotionInactive)
}

func TestPromotionService_ValidateCode_UsageExceeded(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)
	promotion := createTestPromotion(t, testDB, "CAPPED", model.DiscountPercentage, 10)
	testDB.Model(promotion).Updates(map[string]interface{}{
		"max_usage":   3,
		"usage_count": 3,
	})

	_, err := promotionService.ValidateCode("CAPPED", 50.00)
	assert.ErrorIs(t, err, ErrPromotionUsageExceeded)
}

func TestPromotionService_ValidateCode_UnlimitedUsage(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)
	promotion := createTestPromotion(t, testDB, "OPEN", model.DiscountPercentage, 10)
	// MaxUsage zero means no cap regardless of the count.
	testDB.Model(promotion).Update("usage_count", 1000)

	_, err := promotionService.ValidateCode("OPEN", 50.00)
	assert.NoError(t, err)
}

func TestPromotionService_ValidateCode_MinSubtotal(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)
	promotion := createTestPromotion(t, testDB, "MIN", model.DiscountFixed, 5)
	testDB.Model(promotion).Update("min_subtotal", 30.00)

	_, err := promotionService.ValidateCode("MIN", 29.99)
	assert.ErrorIs(t, err, ErrPromotionMinSubtotal)

	_, err = promotionService.ValidateCode("MIN", 30.00)
	assert.NoError(t, err)
}

func TestPromotionService_Revalidate_SkipsSubtotalCheck(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)
	promotion := createTestPromotion(t, testDB, "MIN", model.DiscountFixed, 5)
	promotion.MinSubtotal = 100.00

	// An already-applied promotion stays valid even if the cart shrinks
	// below the minimum afterwards.
	err := promotionService.Revalidate(promotion, time.Now())
	assert.NoError(t, err)
}

func TestPromotionService_Create_RejectsUnknownType(t *testing.T) {
	promotionService, _ := setupPromotionServiceTest(t)

	err := promotionService.Create(&model.Promotion{
		Code:     "WEIRD",
		Name:     "Weird",
		Type:     "bogo",
		Value:    1,
		StartsAt: time.Now(),
		EndsAt:   time.Now().Add(time.Hour),
		Active:   true,
	})
	assert.Error(t, err)
}

func TestPromotionService_Deactivate(t *testing.T) {
	promotionService, testDB := setupPromotionServiceTest(t)
	promotion := createTestPromotion(t, testDB, "SAVE10", model.DiscountPercentage, 10)

	err := promotionService.Deactivate(promotion.ID)
	require.NoError(t, err)

	_, err = promotionService.ValidateCode("SAVE10", 50.00)
	assert.ErrorIs(t, err, ErrPromotionInactive)

	err = promotionService.Deactivate(9999)
	assert.ErrorIs(t, err, ErrPromotionNotFound)
}
