package repositories

import (
	"storefront/internal/models"
)

// OrderFilter narrows the admin order listing. Zero values mean "any".
type OrderFilter struct {
	OrderStatus   models.OrderStatus
	PaymentStatus models.PaymentStatus
	PaymentMethod models.PaymentMethod
	City          string
	Query         string
	Page          int
	PageSize      int
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	List(filter OrderFilter) ([]models.Order, int64, error)
	GetByID(id uint) (*models.Order, error)
	GetByIDAndEmail(id uint, email string) (*models.Order, error)
	ListByEmail(email string, limit int) ([]models.Order, error)
	Create(order *models.Order) error
	Update(order *models.Order) error
	// SaveAll writes every order in a single transaction.
	SaveAll(orders []models.Order) error
}

// OrderUpdateRepository defines the interface for the order timeline.
type OrderUpdateRepository interface {
	Create(update *models.OrderUpdate) error
	GetByID(id uint) (*models.OrderUpdate, error)
	ListByOrder(orderID uint, oldestFirst bool) ([]models.OrderUpdate, error)
	MarkNotified(id uint) error
}
