package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hyerin/maplecart-backend/config"
	"github.com/hyerin/maplecart-backend/internal/app/controller"
	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/repository"
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/internal/db"
	"github.com/hyerin/maplecart-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type TestServer struct {
	Router      *gin.Engine
	DB          *gorm.DB
	AuthService service.AuthService
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	// Setup database
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	// Setup repositories
	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	membershipRepo := repository.NewMembershipRepository(testDB)
	promotionRepo := repository.NewPromotionRepository(testDB)

	// Setup services
	jwtCfg := config.JWTConfig{
		Secret:             "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
	authService := service.NewAuthService(userRepo, jwtCfg)
	productService := service.NewProductService(productRepo)
	promotionService := service.NewPromotionService(promotionRepo)
	membershipService := service.NewMembershipService(membershipRepo)
	cartService := service.NewCartService(cartRepo, productRepo, membershipRepo, promotionService, service.PricingRules{}, nil)
	orderService := service.NewOrderService(orderRepo, cartRepo, membershipRepo, promotionService, service.PricingRules{}, nil, testDB)

	// Setup controllers
	authController := controller.NewAuthController(authService, jwtCfg.AccessTokenExpiry)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService, nil)
	orderController := controller.NewOrderController(orderService, cartService, nil)
	membershipController := controller.NewMembershipController(membershipService)
	promotionController := controller.NewPromotionController(promotionService)

	// Setup middleware
	authMiddleware := middleware.NewAuthMiddleware("test-secret")

	// Setup router
	router := gin.New()

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.Refresh)
		auth.GET("/me", authMiddleware.Authenticate(), authController.Profile)
	}

	products := router.Group("/api/v1/products")
	{
		products.GET("", authMiddleware.OptionalAuthenticate(), productController.ListProducts)
		products.GET("/:id", productController.GetProduct)
		products.POST("", authMiddleware.Authenticate(), authMiddleware.RequireRole("admin"), productController.CreateProduct)
	}

	cart := router.Group("/api/v1/cart")
	cart.Use(authMiddleware.Authenticate())
	{
		cart.GET("", cartController.GetCart)
		cart.POST("", cartController.AddToCart)
		cart.DELETE("", cartController.ClearCart)
		cart.PUT("/items/:productId", cartController.UpdateCartItem)
		cart.DELETE("/items/:productId", cartController.RemoveFromCart)
		cart.POST("/promotion", cartController.ApplyPromotion)
		cart.DELETE("/promotion", cartController.RemovePromotion)
	}

	orders := router.Group("/api/v1/orders")
	orders.Use(authMiddleware.Authenticate())
	{
		orders.GET("", orderController.ListOrders)
		orders.GET("/:id", orderController.GetOrder)
		orders.POST("", orderController.Checkout)
	}

	memberships := router.Group("/api/v1/memberships")
	{
		memberships.GET("/plans", membershipController.ListPlans)
		memberships.GET("/me", authMiddleware.Authenticate(), membershipController.GetMembership)
		memberships.POST("", authMiddleware.Authenticate(), membershipController.Subscribe)
		memberships.DELETE("/me", authMiddleware.Authenticate(), membershipController.Cancel)
	}

	promotions := router.Group("/api/v1/promotions")
	promotions.Use(authMiddleware.Authenticate(), authMiddleware.RequireRole("admin"))
	{
		promotions.GET("", promotionController.ListPromotions)
		promotions.POST("", promotionController.CreatePromotion)
	}

	return &TestServer{
		Router:      router,
		DB:          testDB,
		AuthService: authService,
	}
}

// registerAndLogin creates an account through the API and returns its access token.
func registerAndLogin(t *testing.T, ts *TestServer, email string) string {
	t.Helper()

	registerReq := map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
	}
	body, _ := json.Marshal(registerReq)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	loginReq := map[string]string{
		"email":    email,
		"password": "password123",
	}
	body, _ = json.Marshal(loginReq)
	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	return loginResp["access_token"].(string)
}

func TestCompleteShoppingJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	defer db.CleanupTestDB(ts.DB)

	// 1. Register and log in
	t.Log("Step 1: Register and log in")
	accessToken := registerAndLogin(t, ts, "buyer@example.com")

	// 2. Seed catalog and promotion directly in DB
	t.Log("Step 2: Seed catalog")
	category := &model.Category{Name: "Snacks", AllocationEligible: true}
	ts.DB.Create(category)

	product := &model.Product{
		Name:          "Maple Cookies",
		Description:   "A dozen maple leaf cookies",
		Price:         10.00,
		CategoryID:    category.ID,
		StockQuantity: 10,
		Active:        true,
	}
	ts.DB.Create(product)

	promotion := &model.Promotion{
		Code:     "SAVE10",
		Name:     "10% off",
		Type:     model.DiscountPercentage,
		Value:    10,
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
		Active:   true,
	}
	ts.DB.Create(promotion)

	// 3. Browse products
	t.Log("Step 3: Browse products")
	req := httptest.NewRequest("GET", "/api/v1/products", nil)
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var productsResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &productsResp)
	assert.Equal(t, float64(1), productsResp["count"])

	// 4. Add product to cart
	t.Log("Step 4: Add to cart")
	addReq := map[string]interface{}{
		"product_id": product.ID,
		"quantity":   3,
	}
	body, _ := json.Marshal(addReq)
	req = httptest.NewRequest("POST", "/api/v1/cart", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	// 5. View cart
	t.Log("Step 5: View cart")
	req = httptest.NewRequest("GET", "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var cartResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &cartResp)
	cart := cartResp["cart"].(map[string]interface{})
	assert.Len(t, cart["items"], 1)
	assert.Equal(t, 30.0, cart["subtotal"])

	// 6. Apply promotion code
	t.Log("Step 6: Apply promotion")
	promoReq := map[string]string{"code": "SAVE10"}
	body, _ = json.Marshal(promoReq)
	req = httptest.NewRequest("POST", "/api/v1/cart/promotion", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	json.Unmarshal(w.Body.Bytes(), &cartResp)
	cart = cartResp["cart"].(map[string]interface{})
	assert.Equal(t, 3.0, cart["promotion_discount"])
	assert.Equal(t, 27.0, cart["final_total"])

	// 7. Checkout
	t.Log("Step 7: Checkout")
	req = httptest.NewRequest("POST", "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var orderResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &orderResp)
	order := orderResp["order"].(map[string]interface{})
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, 30.0, order["subtotal"])
	assert.Equal(t, 3.0, order["promotion_discount"])
	assert.Equal(t, 27.0, order["total_amount"])

	// 8. View order history
	t.Log("Step 8: View order history")
	req = httptest.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var ordersResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &ordersResp)
	orders := ordersResp["orders"].([]interface{})
	assert.Len(t, orders, 1)

	// 9. Cart is empty after checkout
	t.Log("Step 9: Verify cart is empty")
	req = httptest.NewRequest("GET", "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	json.Unmarshal(w.Body.Bytes(), &cartResp)
	cart = cartResp["cart"].(map[string]interface{})
	assert.Len(t, cart["items"], 0)

	// 10. Stock decreased and promotion usage recorded
	t.Log("Step 10: Verify stock and promotion usage")
	var updatedProduct model.Product
	ts.DB.First(&updatedProduct, product.ID)
	assert.Equal(t, 7, updatedProduct.StockQuantity)

	var updatedPromotion model.Promotion
	ts.DB.First(&updatedPromotion, promotion.ID)
	assert.Equal(t, 1, updatedPromotion.UsageCount)
}

func TestMembershipJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	defer db.CleanupTestDB(ts.DB)

	accessToken := registerAndLogin(t, ts, "member@example.com")

	category := &model.Category{Name: "Coffee", AllocationEligible: true}
	ts.DB.Create(category)

	product := &model.Product{
		Name:          "Dark Roast Beans",
		Price:         15.00,
		CategoryID:    category.ID,
		StockQuantity: 20,
		Active:        true,
	}
	ts.DB.Create(product)

	plan := &model.MembershipPlan{
		Name:          "Coffee Club",
		PricePerMonth: 9.99,
		Active:        true,
		Entitlements: []model.PlanEntitlement{
			{CategoryID: category.ID, MonthlyQuantity: 2},
		},
	}
	ts.DB.Create(plan)

	// 1. Browse plans
	t.Log("Step 1: Browse plans")
	req := httptest.NewRequest("GET", "/api/v1/memberships/plans", nil)
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var plansResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &plansResp)
	assert.Len(t, plansResp["plans"], 1)

	// 2. Subscribe
	t.Log("Step 2: Subscribe")
	subscribeReq := map[string]interface{}{"plan_id": plan.ID}
	body, _ := json.Marshal(subscribeReq)
	req = httptest.NewRequest("POST", "/api/v1/memberships", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var subscribeResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &subscribeResp)
	membership := subscribeResp["membership"].(map[string]interface{})
	assert.Equal(t, "active", membership["status"])

	// 3. Add eligible product, free units applied in cart
	t.Log("Step 3: Cart applies free units")
	addReq := map[string]interface{}{
		"product_id": product.ID,
		"quantity":   3,
	}
	body, _ = json.Marshal(addReq)
	req = httptest.NewRequest("POST", "/api/v1/cart", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var cartResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &cartResp)
	cart := cartResp["cart"].(map[string]interface{})
	assert.Equal(t, 45.0, cart["subtotal"])
	assert.Equal(t, 30.0, cart["membership_discount"])
	assert.Equal(t, 15.0, cart["final_total"])

	// 4. Checkout consumes the allocation
	t.Log("Step 4: Checkout consumes allocation")
	req = httptest.NewRequest("POST", "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var orderResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &orderResp)
	order := orderResp["order"].(map[string]interface{})
	assert.Equal(t, 30.0, order["membership_discount"])
	assert.Equal(t, 15.0, order["total_amount"])

	// 5. Membership summary reflects usage
	t.Log("Step 5: Allocation usage visible")
	req = httptest.NewRequest("GET", "/api/v1/memberships/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var meResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &meResp)
	allocations := meResp["allocations"].([]interface{})
	require.Len(t, allocations, 1)
	alloc := allocations[0].(map[string]interface{})
	assert.Equal(t, 2.0, alloc["used"])
	assert.Equal(t, 0.0, alloc["remaining"])

	// 6. Cancel
	t.Log("Step 6: Cancel membership")
	req = httptest.NewRequest("DELETE", "/api/v1/memberships/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/memberships/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthenticationFlow(t *testing.T) {
	ts := setupIntegrationTest(t)
	defer db.CleanupTestDB(ts.DB)

	accessToken := registerAndLogin(t, ts, "test@example.com")

	// Get profile
	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var meResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &meResp)
	user := meResp["user"].(map[string]interface{})
	assert.Equal(t, "test@example.com", user["email"])
	assert.Equal(t, "Test User", user["name"])

	// Refresh tokens
	loginReq := map[string]string{
		"email":    "test@example.com",
		"password": "password123",
	}
	body, _ := json.Marshal(loginReq)
	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &loginResp)
	refreshToken := loginResp["refresh_token"].(string)

	refreshReq := map[string]string{"refresh_token": refreshToken}
	body, _ = json.Marshal(refreshReq)
	req = httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var refreshResp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &refreshResp)
	assert.NotEmpty(t, refreshResp["access_token"])
	assert.NotEmpty(t, refreshResp["refresh_token"])
}

func TestAdminAccess(t *testing.T) {
	ts := setupIntegrationTest(t)
	defer db.CleanupTestDB(ts.DB)

	userToken := registerAndLogin(t, ts, "user@example.com")
	registerAndLogin(t, ts, "admin@example.com")
	ts.DB.Model(&model.User{}).Where("email = ?", "admin@example.com").Update("role", model.RoleAdmin)
	// Role is baked into the token at login time, so log in again after the promotion
	adminToken := loginExisting(t, ts, "admin@example.com")

	category := &model.Category{Name: "Tea"}
	ts.DB.Create(category)

	createReq := map[string]interface{}{
		"name":           "Green Tea Sampler",
		"price":          12.50,
		"category_id":    category.ID,
		"stock_quantity": 5,
	}
	body, _ := json.Marshal(createReq)

	// Regular user is rejected
	req := httptest.NewRequest("POST", "/api/v1/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admin succeeds
	req = httptest.NewRequest("POST", "/api/v1/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	// Admin can create promotions
	promoReq := map[string]interface{}{
		"code":      "LAUNCH20",
		"name":      "Launch promo",
		"type":      "percentage",
		"value":     20,
		"starts_at": time.Now().Add(-time.Hour).Format(time.RFC3339),
		"ends_at":   time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	}
	body, _ = json.Marshal(promoReq)
	req = httptest.NewRequest("POST", "/api/v1/promotions", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

// loginExisting logs an already registered account back in.
func loginExisting(t *testing.T, ts *TestServer, email string) string {
	t.Helper()

	loginReq := map[string]string{
		"email":    email,
		"password": "password123",
	}
	body, _ := json.Marshal(loginReq)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	return loginResp["access_token"].(string)
}

func TestUnauthorizedAccess(t *testing.T) {
	ts := setupIntegrationTest(t)
	defer db.CleanupTestDB(ts.DB)

	protectedRoutes := []string{
		"/api/v1/auth/me",
		"/api/v1/cart",
		"/api/v1/orders",
		"/api/v1/memberships/me",
	}

	for _, route := range protectedRoutes {
		t.Run(route, func(t *testing.T) {
			req := httptest.NewRequest("GET", route, nil)
			w := httptest.NewRecorder()

			ts.Router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestCheckoutWithEmptyCart(t *testing.T) {
	ts := setupIntegrationTest(t)
	defer db.CleanupTestDB(ts.DB)

	accessToken := registerAndLogin(t, ts, "empty@example.com")

	req := httptest.NewRequest("POST", "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "CART_EMPTY", resp["error"])
}
