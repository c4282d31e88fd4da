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

// AdminHandler serves the order dashboard and user administration.
type AdminHandler struct {
	orders   *services.OrderService
	users    *services.UserService
	pageSize int
	validate *validator.Validate
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(orders *services.OrderService, users *services.UserService, pageSize int) *AdminHandler {
	return &AdminHandler{
		orders:   orders,
		users:    users,
		pageSize: pageSize,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the admin routes. router must be behind AdminRequired.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	orders := router.Group("/orders")
	orders.Get("/", h.HandleListOrders)
	orders.Post("/actions", h.HandleOrderAction)
	orders.Get("/:id", h.HandleGetOrder)
	orders.Patch("/:id", h.HandleUpdateOrder)
	orders.Post("/:id/updates", h.HandleAddUpdate)

	router.Post("/users/actions", h.HandleUserAction)
}

// HandleListOrders lists orders with optional filters, one page at a time.
func (h *AdminHandler) HandleListOrders(c *fiber.Ctx) error {
	filter := repositories.OrderFilter{
		OrderStatus:   models.OrderStatus(c.Query("order_status")),
		PaymentStatus: models.PaymentStatus(c.Query("payment_status")),
		PaymentMethod: models.PaymentMethod(c.Query("payment_method")),
		City:          c.Query("city"),
		Query:         c.Query("q"),
		Page:          c.QueryInt("page", 1),
		PageSize:      h.pageSize,
	}
	orders, total, err := h.orders.ListOrders(filter)
	if err != nil {
		log.Errorf("Error listing orders: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{
		"orders":    orders,
		"total":     total,
		"page":      filter.Page,
		"page_size": h.pageSize,
	})
}

func orderLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "Order not found", nil)
	}
	if errors.Is(err, services.ErrInvalidStatus) {
		return fail(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	log.Errorf("Admin order request failed: %v", err)
	return fail(c, fiber.StatusInternalServerError, "Could not process order", err)
}

// HandleGetOrder returns the order detail with items and timeline.
func (h *AdminHandler) HandleGetOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid order id", err)
	}
	detail, err := h.orders.GetOrderDetail(id)
	if err != nil {
		return orderLookupError(c, err)
	}
	return c.JSON(detail)
}

// HandleUpdateOrder applies an admin edit and reports the timeline entries it produced.
func (h *AdminHandler) HandleUpdateOrder(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid order id", err)
	}
	var patch services.OrderPatch
	if ok, err := parseBody(c, h.validate, &patch); !ok {
		return err
	}
	order, created, err := h.orders.UpdateOrder(id, patch)
	if err != nil {
		return orderLookupError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Order updated",
		"order":   order,
		"updates": created,
	})
}

// HandleAddUpdate appends a manual timeline entry.
func (h *AdminHandler) HandleAddUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid order id", err)
	}
	var entry services.TimelineEntry
	if ok, err := parseBody(c, h.validate, &entry); !ok {
		return err
	}
	update, err := h.orders.AddTimelineEntry(id, entry)
	if err != nil {
		return orderLookupError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(update)
}

func bulkResponse(c *fiber.Ctx, res *services.BulkResult) error {
	return c.JSON(fiber.Map{
		"updated":  res.Updated,
		"failed":   res.Failed,
		"warnings": res.Warnings,
	})
}

// HandleOrderAction runs a bulk status action.
func (h *AdminHandler) HandleOrderAction(c *fiber.Ctx) error {
	var req idList
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	status, err := services.BulkOrderAction(req.Action)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Unknown action", err)
	}
	res, err := h.orders.BulkSetStatus(req.IDs, status)
	if err != nil {
		return orderLookupError(c, err)
	}
	return bulkResponse(c, res)
}

// HandleUserAction runs a bulk account action.
func (h *AdminHandler) HandleUserAction(c *fiber.Ctx) error {
	var req idList
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	res, err := h.users.ApplyAction(req.IDs, req.Action)
	if err != nil {
		if errors.Is(err, services.ErrUnknownAction) || errors.Is(err, services.ErrNothingSelected) {
			return fail(c, fiber.StatusBadRequest, "Invalid action", err)
		}
		return fail(c, fiber.StatusInternalServerError, "Could not update users", err)
	}
	return bulkResponse(c, res)
}
