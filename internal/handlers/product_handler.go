package handlers

import (
	"errors"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// ProductHandler handles catalog browsing and product administration.
type ProductHandler struct {
	service  *services.ProductService
	search   *services.SearchService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, search *services.SearchService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		search:   search,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the public catalog routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/products", h.HandleCatalog)
	router.Get("/products/:id", h.HandleGetProduct)
	router.Get("/categories/:category", h.HandleCategory)
	router.Get("/search", h.HandleSearch)
}

// RegisterAdminRoutes registers product management. router must be behind AdminRequired.
func (h *ProductHandler) RegisterAdminRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleCatalog returns every category split into slides.
func (h *ProductHandler) HandleCatalog(c *fiber.Ctx) error {
	pages, err := h.service.Catalog()
	if err != nil {
		log.Errorf("Error building catalog: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not retrieve products", err)
	}
	return c.JSON(fiber.Map{"categories": pages})
}

// HandleCategory returns one category split into slides.
func (h *ProductHandler) HandleCategory(c *fiber.Ctx) error {
	page, err := h.service.ByCategory(c.Params("category"))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not retrieve products", err)
	}
	return c.JSON(page)
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid product id", err)
	}
	product, err := h.service.GetProductByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "Product not found", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

// HandleSearch searches products, blog posts and categories.
func (h *ProductHandler) HandleSearch(c *fiber.Ctx) error {
	res, err := h.search.Search(c.Query("search"))
	if err != nil {
		if errors.Is(err, services.ErrQueryTooShort) {
			return fail(c, fiber.StatusBadRequest, "Please make sure to enter a relevant search query", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Search failed", err)
	}
	return c.JSON(res)
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if ok, err := parseBody(c, h.validate, &product); !ok {
		return err
	}
	product.ID = 0
	if err := h.service.CreateProduct(&product); err != nil {
		log.Errorf("Error creating product: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid product id", err)
	}
	var product models.Product
	if ok, err := parseBody(c, h.validate, &product); !ok {
		return err
	}
	product.ID = id
	if err := h.service.UpdateProduct(&product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "Product not found", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not update product", err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid product id", err)
	}
	if err := h.service.DeleteProduct(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "Product not found", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not delete product", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
