package handlers

import (
	"errors"

	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// ContentHandler serves the blog and the contact form.
type ContentHandler struct {
	blog     *services.BlogService
	contact  *services.ContactService
	validate *validator.Validate
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(blog *services.BlogService, contact *services.ContactService) *ContentHandler {
	return &ContentHandler{blog: blog, contact: contact, validate: validator.New()}
}

// RegisterRoutes registers the blog and contact routes.
func (h *ContentHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/blog", h.HandleBlogIndex)
	router.Get("/blog/:id", h.HandleBlogPost)
	router.Post("/contact", h.HandleContact)
}

func (h *ContentHandler) HandleBlogIndex(c *fiber.Ctx) error {
	index, err := h.blog.Index()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not retrieve posts", err)
	}
	return c.JSON(index)
}

func (h *ContentHandler) HandleBlogPost(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid post id", err)
	}
	post, err := h.blog.Post(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "Post not found", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not retrieve post", err)
	}
	return c.JSON(post)
}

// HandleContact stores a contact form message.
func (h *ContentHandler) HandleContact(c *fiber.Ctx) error {
	var req services.ContactRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	contact, err := h.contact.Submit(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"errors":  map[string]string{"Email": err.Error()},
			})
		case errors.Is(err, services.ErrInvalidPhone):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"errors":  map[string]string{"Phone": err.Error()},
			})
		}
		log.Errorf("Error saving contact message: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not send message", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Your message has been sent. We will get back to you soon.",
		"contact": contact,
	})
}
