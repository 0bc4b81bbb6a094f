package controller

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/service"
	"github.com/hyerin/maplecart-backend/internal/errors"
	"github.com/hyerin/maplecart-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type CreateProductRequest struct {
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	Price          float64 `json:"price" binding:"required,gt=0"`
	CompareAtPrice float64 `json:"compare_at_price"`
	CategoryID     uint    `json:"category_id" binding:"required"`
	StockQuantity  int     `json:"stock_quantity" binding:"gte=0"`
	ImageURL       string  `json:"image_url"`
}

// ListProducts returns the catalog
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	// Admins can view inactive products too
	activeOnly := true
	if role, ok := middleware.GetUserRole(c); ok && role == model.RoleAdmin {
		activeOnly = c.Query("include_inactive") != "true"
	}

	products, err := ctrl.productService.GetProducts(activeOnly)
	if err != nil {
		log.Error("Failed to fetch products", err)
		errors.InternalError(c, "Failed to fetch products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": products,
		"count":    len(products),
	})
}

// GetProduct returns a single product
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		if stderrors.Is(err, service.ErrProductNotFound) {
			errors.NotFound(c, errors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		errors.InternalError(c, "Failed to fetch product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": product,
	})
}

// CreateProduct adds a product to the catalog (admin)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid product data")
		return
	}

	product := &model.Product{
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		CompareAtPrice: req.CompareAtPrice,
		CategoryID:     req.CategoryID,
		StockQuantity:  req.StockQuantity,
		ImageURL:       req.ImageURL,
		Active:         true,
	}

	if err := ctrl.productService.CreateProduct(product); err != nil {
		if stderrors.Is(err, service.ErrCategoryNotFound) {
			errors.BadRequest(c, errors.CategoryNotFound, "Category not found")
			return
		}
		if stderrors.Is(err, service.ErrInvalidPrice) {
			errors.BadRequest(c, errors.ValidationInvalidRange, "Price must be greater than zero")
			return
		}
		log.Error("Failed to create product", err)
		errors.InternalError(c, "Failed to create product")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"product": product,
	})
}

// UpdateProduct updates a catalog product (admin)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Invalid product data")
		return
	}

	product := &model.Product{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		CompareAtPrice: req.CompareAtPrice,
		CategoryID:     req.CategoryID,
		StockQuantity:  req.StockQuantity,
		ImageURL:       req.ImageURL,
		Active:         true,
	}

	if err := ctrl.productService.UpdateProduct(product); err != nil {
		if stderrors.Is(err, service.ErrProductNotFound) {
			errors.NotFound(c, errors.ProductNotFound, "Product not found")
			return
		}
		if stderrors.Is(err, service.ErrCategoryNotFound) {
			errors.BadRequest(c, errors.CategoryNotFound, "Category not found")
			return
		}
		log.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		errors.InternalError(c, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": product,
	})
}

// DeactivateProduct hides a product from the catalog (admin)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeactivateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeactivateProduct(id); err != nil {
		if stderrors.Is(err, service.ErrProductNotFound) {
			errors.NotFound(c, errors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to deactivate product", err, map[string]interface{}{
			"product_id": id,
		})
		errors.InternalError(c, "Failed to deactivate product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deactivated",
	})
}

// ListCategories returns all categories
// GET /api/v1/categories
func (ctrl *ProductController) ListCategories(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	categories, err := ctrl.productService.GetCategories()
	if err != nil {
		log.Error("Failed to fetch categories", err)
		errors.InternalError(c, "Failed to fetch categories")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"categories": categories,
	})
}
