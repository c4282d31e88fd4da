package handlers

import (
	"errors"
	"strconv"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// OrderHandler handles checkout, payment callbacks and order tracking.
type OrderHandler struct {
	service  *services.OrderService
	users    *services.UserService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, users *services.UserService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		users:    users,
		validate: validator.New(),
	}
}

// RegisterPublicRoutes registers the routes that need no token.
func (h *OrderHandler) RegisterPublicRoutes(router fiber.Router) {
	router.Post("/cart", h.HandleGuestOrder)
	router.Post("/tracker", h.HandleTracker)
}

// RegisterRoutes registers the customer routes. router must be behind AuthRequired.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/checkout", h.HandleCheckout)
	router.Post("/payments/upi/success", h.paymentSuccess(models.PaymentMethodUPI))
	router.Post("/payments/card/success", h.paymentSuccess(models.PaymentMethodCard))
	router.Get("/orders/:id/success", h.HandleOrderSuccess)
	router.Get("/tracker", h.HandleMyTracker)
	router.Get("/account/orders", h.HandleMyOrders)
	router.Get("/account/profile", h.HandleProfile)
}

func checkoutError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrInvalidItems) || errors.Is(err, services.ErrInvalidPaymentMethod) {
		return fail(c, fiber.StatusBadRequest, "Invalid order", err)
	}
	log.Errorf("Error creating order: %v", err)
	return fail(c, fiber.StatusInternalServerError, "Could not create order", err)
}

// HandleCheckout stores the order and names the payment step to take next.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	// Orders belong to accounts by email, so the session email wins over the form.
	if email := middleware.Email(c); email != "" {
		req.Email = email
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationFailed(c, err)
	}

	result, err := h.service.Checkout(req)
	if err != nil {
		return checkoutError(c, err)
	}
	message := "Order placed. Complete the payment to confirm it."
	if result.NextStep == services.StepCODConfirmation {
		message = "Order placed successfully. Pay in cash on delivery."
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   message,
		"order":     result.Order,
		"next_step": result.NextStep,
	})
}

// HandleGuestOrder places an order from the cart page without a payment step.
func (h *OrderHandler) HandleGuestOrder(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	order, err := h.service.PlaceGuestOrder(req)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"thank": true,
		"id":    order.ID,
	})
}

type paymentRequest struct {
	OrderID   uint   `json:"order_id" validate:"required"`
	CardLast4 string `json:"card_last4" validate:"omitempty,len=4,numeric"`
}

func (h *OrderHandler) paymentSuccess(method models.PaymentMethod) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req paymentRequest
		if ok, err := parseBody(c, h.validate, &req); !ok {
			return err
		}
		order, err := h.service.ConfirmPayment(req.OrderID, method, req.CardLast4)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fail(c, fiber.StatusNotFound, "Order not found", nil)
			}
			log.Errorf("Error confirming payment for order %d: %v", req.OrderID, err)
			return fail(c, fiber.StatusInternalServerError, "Could not confirm payment", err)
		}
		return c.JSON(fiber.Map{
			"message": "Payment successful! Your order has been confirmed.",
			"order":   order,
		})
	}
}

// HandleOrderSuccess shows an order to its owner.
func (h *OrderHandler) HandleOrderSuccess(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid order id", err)
	}
	order, err := h.service.OrderForUser(id, middleware.Email(c))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "Order not found", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not retrieve order", err)
	}
	items, _ := models.ParseLineItems(order.ItemsJSON)
	return c.JSON(fiber.Map{
		"order":       order,
		"items":       items,
		"total_items": order.TotalItems(),
		"payment":     order.PaymentMethod.Label(),
	})
}

type trackerRequest struct {
	OrderID string `json:"orderId" form:"orderId"`
	Email   string `json:"email" form:"email"`
}

type trackerUpdate struct {
	Text string `json:"text"`
	Time string `json:"time"`
}

func (h *OrderHandler) track(c *fiber.Ctx, rawID, email string) error {
	id, err := strconv.ParseUint(strings.TrimSpace(rawID), 10, 64)
	if err != nil || strings.TrimSpace(email) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error"})
	}

	tracking, err := h.service.Track(uint(id), email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(fiber.Map{"status": "noitem"})
		}
		log.Errorf("Tracker lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error"})
	}

	updates := make([]trackerUpdate, 0, len(tracking.Updates))
	for _, u := range tracking.Updates {
		updates = append(updates, trackerUpdate{Text: u.Description, Time: u.CreatedAt.Format("2006-01-02 15:04:05")})
	}
	return c.JSON(fiber.Map{
		"status":    "success",
		"updates":   updates,
		"itemsJson": tracking.Order.ItemsJSON,
		"order":     tracking.Order,
		"timeline":  tracking.Updates,
	})
}

// HandleTracker looks an order up by id and email.
func (h *OrderHandler) HandleTracker(c *fiber.Ctx) error {
	var req trackerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error"})
	}
	return h.track(c, req.OrderID, req.Email)
}

// HandleMyTracker tracks one of the caller's own orders.
func (h *OrderHandler) HandleMyTracker(c *fiber.Ctx) error {
	return h.track(c, c.Query("order_id"), middleware.Email(c))
}

// HandleMyOrders lists the caller's orders.
func (h *OrderHandler) HandleMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.OrdersForUser(middleware.Email(c), 0)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// HandleProfile returns the caller's account and recent orders.
func (h *OrderHandler) HandleProfile(c *fiber.Ctx) error {
	profile, err := h.users.GetProfile(middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "User not found", nil)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not load profile", err)
	}
	return c.JSON(profile)
}
