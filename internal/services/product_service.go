package services

import (
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// DefaultPageSize is the number of products on one carousel slide.
const DefaultPageSize = 4

// ProductService handles business logic related to products and catalog pages.
type ProductService struct {
	repo     repositories.ProductRepository
	pageSize int
}

// NewProductService creates a new ProductService. pageSize <= 0 selects DefaultPageSize.
func NewProductService(repo repositories.ProductRepository, pageSize int) *ProductService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ProductService{
		repo:     repo,
		pageSize: pageSize,
	}
}

// CategoryPage is one category of the catalog split into carousel slides.
type CategoryPage struct {
	Category   string             `json:"category"`
	Slides     [][]models.Product `json:"slides"`
	SlideCount int                `json:"slide_count"`
}

// SlideCount is ceil(n / size).
func SlideCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Chunk splits items into consecutive slices of at most size elements.
// A non-positive size yields nil.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		return nil
	}
	chunks := make([][]T, 0, SlideCount(len(items), size))
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func (s *ProductService) page(category string, products []models.Product) CategoryPage {
	return CategoryPage{
		Category:   category,
		Slides:     Chunk(products, s.pageSize),
		SlideCount: SlideCount(len(products), s.pageSize),
	}
}

// Catalog groups every product by its category. Categories are computed on each call.
func (s *ProductService) Catalog() ([]CategoryPage, error) {
	categories, err := s.repo.Categories()
	if err != nil {
		return nil, err
	}
	pages := make([]CategoryPage, 0, len(categories))
	for _, cat := range categories {
		products, err := s.repo.GetByCategory(cat)
		if err != nil {
			return nil, err
		}
		pages = append(pages, s.page(cat, products))
	}
	return pages, nil
}

// ByCategory returns the slides of one category. An unknown category yields no slides.
func (s *ProductService) ByCategory(category string) (*CategoryPage, error) {
	products, err := s.repo.GetByCategory(category)
	if err != nil {
		return nil, err
	}
	page := s.page(category, products)
	return &page, nil
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(id uint) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct creates a new product. A missing publish date defaults to today.
func (s *ProductService) CreateProduct(product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	if product.PubDate.IsZero() {
		product.PubDate = time.Now()
	}
	if err := s.repo.Create(product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(product *models.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	return s.repo.Update(product)
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(id uint) error {
	return s.repo.Delete(id)
}
