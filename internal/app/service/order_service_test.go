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

type orderServiceFixture struct {
	orderService OrderService
	cartService  CartService
	user         *model.User
	product      *model.Product
	testDB       *gorm.DB
}

func setupOrderServiceTest(t *testing.T) *orderServiceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	membershipRepo := repository.NewMembershipRepository(testDB)
	promotionRepo := repository.NewPromotionRepository(testDB)
	promotionService := NewPromotionService(promotionRepo)

	rules := PricingRules{}
	cartService := NewCartService(cartRepo, productRepo, membershipRepo, promotionService, rules, nil)
	orderService := NewOrderService(orderRepo, cartRepo, membershipRepo, promotionService, rules, nil, testDB)

	user := &model.User{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		Name:         "Buyer",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	category := &model.Category{
		Name:               "Snacks",
		AllocationEligible: true,
	}
	testDB.Create(category)

	product := &model.Product{
		Name:          "Maple Cookies",
		Price:         10.00,
		CategoryID:    category.ID,
		StockQuantity: 10,
		Active:        true,
	}
	testDB.Create(product)

	return &orderServiceFixture{
		orderService: orderService,
		cartService:  cartService,
		user:         user,
		product:      product,
		testDB:       testDB,
	}
}

func (f *orderServiceFixture) subscribe(t *testing.T, allocated int) *model.Membership {
	t.Helper()
	plan := &model.MembershipPlan{
		Name:          "Basic",
		PricePerMonth: 9.99,
		Active:        true,
	}
	require.NoError(t, f.testDB.Create(plan).Error)

	now := time.Now()
	membership := &model.Membership{
		UserID:      f.user.ID,
		PlanID:      plan.ID,
		Status:      model.MembershipActive,
		PeriodStart: now.Add(-time.Hour),
		PeriodEnd:   now.AddDate(0, 1, 0),
		Allocations: []model.MembershipAllocation{
			{CategoryID: f.product.CategoryID, AllocatedQuantity: allocated},
		},
	}
	require.NoError(t, f.testDB.Create(membership).Error)
	return membership
}

func TestOrderService_Checkout_EmptyCart(t *testing.T) {
	f := setupOrderServiceTest(t)

	_, err := f.orderService.Checkout(f.user.ID)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_Checkout_Success(t *testing.T) {
	f := setupOrderServiceTest(t)

	_, err := f.cartService.AddToCart(f.user.ID, f.product.ID, 3)
	require.NoError(t, err)

	order, err := f.orderService.Checkout(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, 30.00, order.Subtotal)
	assert.Equal(t, 30.00, order.TotalAmount)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, 3, order.OrderItems[0].Quantity)
	assert.Equal(t, 3, order.OrderItems[0].PaidQuantity)

	// Stock is decremented and the cart is cleared.
	var product model.Product
	f.testDB.First(&product, f.product.ID)
	assert.Equal(t, 7, product.StockQuantity)

	cart, err := f.cartService.GetCart(f.user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 0)
}

func TestOrderService_Checkout_InsufficientStock(t *testing.T) {
	f := setupOrderServiceTest(t)

	_, err := f.cartService.AddToCart(f.user.ID, f.product.ID, 5)
	require.NoError(t, err)

	// Stock shrinks between the add and the checkout.
	f.testDB.Model(f.product).Update("stock_quantity", 2)

	_, err = f.orderService.Checkout(f.user.ID)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Nothing was committed: cart intact, stock untouched.
	cart, err := f.cartService.GetCart(f.user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	var product model.Product
	f.testDB.First(&product, f.product.ID)
	assert.Equal(t, 2, product.StockQuantity)
}

func TestOrderService_Checkout_ConsumesAllocations(t *testing.T) {
	f := setupOrderServiceTest(t)
	membership := f.subscribe(t, 2)

	_, err := f.cartService.AddToCart(f.user.ID, f.product.ID, 5)
	require.NoError(t, err)

	order, err := f.orderService.Checkout(f.user.ID)
	require.NoError(t, err)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, 2, order.OrderItems[0].FreeQuantity)
	assert.Equal(t, 3, order.OrderItems[0].PaidQuantity)
	assert.Equal(t, 20.00, order.MembershipDiscount)
	assert.Equal(t, 30.00, order.TotalAmount)

	var alloc model.MembershipAllocation
	f.testDB.Where("membership_id = ?", membership.ID).First(&alloc)
	assert.Equal(t, 2, alloc.UsedQuantity)
}

func TestOrderService_Checkout_SecondOrderGetsNoFreeUnits(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.subscribe(t, 2)

	_, err := f.cartService.AddToCart(f.user.ID, f.product.ID, 2)
	require.NoError(t, err)
	first, err := f.orderService.Checkout(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.00, first.TotalAmount)

	_, err = f.cartService.AddToCart(f.user.ID, f.product.ID, 2)
	require.NoError(t, err)
	second, err := f.orderService.Checkout(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.00, second.TotalAmount)
	assert.Equal(t, 0, second.OrderItems[0].FreeQuantity)
}

func TestOrderService_Checkout_ConsumesPromotionUsage(t *testing.T) {
	f := setupOrderServiceTest(t)
	promotion := createTestPromotion(t, f.testDB, "SAVE10", model.DiscountPercentage, 10)

	_, err := f.cartService.AddToCart(f.user.ID, f.product.ID, 2)
	require.NoError(t, err)
	_, _, err = f.cartService.ApplyPromotion(f.user.ID, "SAVE10")
	require.NoError(t, err)

	order, err := f.orderService.Checkout(f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.00, order.PromotionDiscount)
	assert.Equal(t, 18.00, order.TotalAmount)
	assert.Equal(t, "SAVE10", order.PromotionCode)

	var refreshed model.Promotion
	f.testDB.First(&refreshed, promotion.ID)
	assert.Equal(t, 1, refreshed.UsageCount)

	// The applied-promotion row does not survive the checkout.
	var count int64
	f.testDB.Model(&model.CartPromotion{}).Where("user_id = ?", f.user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestOrderService_Checkout_RejectsExpiredPromotion(t *testing.T) {
	f := setupOrderServiceTest(t)
	promotion := createTestPromotion(t, f.testDB, "SOON", model.DiscountPercentage, 10)

	_, err := f.cartService.AddToCart(f.user.ID, f.product.ID, 2)
	require.NoError(t, err)
	_, _, err = f.cartService.ApplyPromotion(f.user.ID, "SOON")
	require.NoError(t, err)

	f.testDB.Model(promotion).Update("ends_at", time.Now().Add(-time.Minute))

	_, err = f.orderService.Checkout(f.user.ID)
	assert.ErrorIs(t, err, ErrPromotionExpired)
}

func TestOrderService_GetUserOrders(t *testing.T) {
	f := setupOrderServiceTest(t)

	orders, err := f.orderService.GetUserOrders(f.user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 0)

	_, err = f.cartService.AddToCart(f.user.ID, f.product.ID, 1)
	require.NoError(t, err)
	_, err = f.orderService.Checkout(f.user.ID)
	require.NoError(t, err)

	orders, err = f.orderService.GetUserOrders(f.user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 10.00, orders[0].TotalAmount)
}

func TestOrderService_GetOrderByID_OwnershipEnforced(t *testing.T) {
	f := setupOrderServiceTest(t)

	_, err := f.cartService.AddToCart(f.user.ID, f.product.ID, 1)
	require.NoError(t, err)
	order, err := f.orderService.Checkout(f.user.ID)
	require.NoError(t, err)

	found, err := f.orderService.GetOrderByID(f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	other := &model.User{
		Email:        "other@example.com",
		PasswordHash: "hash",
		Name:         "Other",
		Role:         model.RoleUser,
	}
	f.testDB.Create(other)

	_, err = f.orderService.GetOrderByID(other.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.orderService.GetOrderByID(f.user.ID, 9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
