package service

import (
	"errors"

	"github.com/hyerin/maplecart-backend/internal/app/model"
	"github.com/hyerin/maplecart-backend/internal/app/repository"
	"github.com/hyerin/maplecart-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidPrice     = errors.New("price must be greater than zero")
)

type ProductService interface {
	GetProducts(activeOnly bool) ([]model.Product, error)
	GetProductByID(id uint) (*model.Product, error)
	CreateProduct(product *model.Product) error
	UpdateProduct(product *model.Product) error
	DeactivateProduct(id uint) error
	GetCategories() ([]model.Category, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) GetProducts(activeOnly bool) ([]model.Product, error) {
	return s.productRepo.FindAll(activeOnly)
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(product *model.Product) error {
	if product.Price <= 0 {
		return ErrInvalidPrice
	}
	if _, err := s.productRepo.FindCategoryByID(product.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	if product.CompareAtPrice < product.Price {
		product.CompareAtPrice = product.Price
	}

	if err := s.productRepo.Create(product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (s *productService) UpdateProduct(product *model.Product) error {
	if product.Price <= 0 {
		return ErrInvalidPrice
	}
	existing, err := s.productRepo.FindByID(product.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if product.CategoryID != existing.CategoryID {
		if _, err := s.productRepo.FindCategoryByID(product.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}
	}
	return s.productRepo.Update(product)
}

func (s *productService) DeactivateProduct(id uint) error {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	product.Active = false
	if err := s.productRepo.Update(product); err != nil {
		return err
	}

	logger.Info("Product deactivated", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (s *productService) GetCategories() ([]model.Category, error) {
	return s.productRepo.FindAllCategories()
}
