package repositories

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// List returns one page of orders matching the filter together with the total match count.
func (r *GORMOrderRepository) List(filter OrderFilter) ([]models.Order, int64, error) {
	q := r.db.Model(&models.Order{})
	if filter.OrderStatus != "" {
		q = q.Where("order_status = ?", filter.OrderStatus)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.PaymentMethod != "" {
		q = q.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.City != "" {
		q = q.Where("LOWER(city) = LOWER(?)", filter.City)
	}
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ? OR LOWER(tracking_number) LIKE ? OR LOWER(city) LIKE ?",
			like, like, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	var orders []models.Order
	err := q.Order("created_at DESC, id DESC").Limit(size).Offset((page - 1) * size).Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %d: %w", id, err)
	}
	return &order, nil
}

// GetByIDAndEmail retrieves an order only when the email matches, ignoring case.
func (r *GORMOrderRepository) GetByIDAndEmail(id uint, email string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("id = ? AND LOWER(email) = LOWER(?)", id, strings.TrimSpace(email)).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %d for %s: %w", id, email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %d by email: %w", id, err)
	}
	return &order, nil
}

// ListByEmail returns the orders placed under email, newest first. limit <= 0 means no limit.
func (r *GORMOrderRepository) ListByEmail(email string, limit int) ([]models.Order, error) {
	q := r.db.Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders for %s: %w", email, err)
	}
	return orders, nil
}

// Create creates a new order in the database.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	if err := r.db.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Update writes every column of an existing order.
func (r *GORMOrderRepository) Update(order *models.Order) error {
	res := r.db.Model(&models.Order{}).Where("id = ?", order.ID).Select("*").Omit("id", "created_at").Updates(order)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %d: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %d for update: %w", order.ID, ErrNotFound)
	}
	return nil
}

// SaveAll writes every order in one transaction; any failure rolls back the batch.
func (r *GORMOrderRepository) SaveAll(orders []models.Order) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		txRepo := &GORMOrderRepository{db: tx}
		for i := range orders {
			if err := txRepo.Update(&orders[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GORMOrderUpdateRepository is a GORM implementation of OrderUpdateRepository.
type GORMOrderUpdateRepository struct {
	db *gorm.DB
}

// NewGORMOrderUpdateRepository creates a new instance of GORMOrderUpdateRepository.
func NewGORMOrderUpdateRepository(db *gorm.DB) *GORMOrderUpdateRepository {
	return &GORMOrderUpdateRepository{db: db}
}

// Create appends a timeline entry.
func (r *GORMOrderUpdateRepository) Create(update *models.OrderUpdate) error {
	if err := r.db.Create(update).Error; err != nil {
		return fmt.Errorf("failed to create order update: %w", err)
	}
	return nil
}

// GetByID retrieves one timeline entry.
func (r *GORMOrderUpdateRepository) GetByID(id uint) (*models.OrderUpdate, error) {
	var update models.OrderUpdate
	if err := r.db.First(&update, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order update with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order update %d: %w", id, err)
	}
	return &update, nil
}

// ListByOrder returns the timeline of an order in either direction.
func (r *GORMOrderUpdateRepository) ListByOrder(orderID uint, oldestFirst bool) ([]models.OrderUpdate, error) {
	order := "created_at DESC, id DESC"
	if oldestFirst {
		order = "created_at ASC, id ASC"
	}
	var updates []models.OrderUpdate
	if err := r.db.Where("order_id = ?", orderID).Order(order).Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("failed to list updates for order %d: %w", orderID, err)
	}
	return updates, nil
}

// MarkNotified flips the customer notified flag.
func (r *GORMOrderUpdateRepository) MarkNotified(id uint) error {
	res := r.db.Model(&models.OrderUpdate{}).Where("id = ?", id).Update("customer_notified", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark update %d notified: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order update with ID %d: %w", id, ErrNotFound)
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 25
	}
	return page, size
}
