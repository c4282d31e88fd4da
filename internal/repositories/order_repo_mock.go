package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[uint]models.Order
	nextID uint
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[uint]models.Order),
	}
}

func (r *MockOrderRepository) sorted() []models.Order {
	list := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}

// List filters and pages orders in memory.
func (r *MockOrderRepository) List(filter OrderFilter) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.Order
	for _, o := range r.sorted() {
		if filter.OrderStatus != "" && o.OrderStatus != filter.OrderStatus {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.PaymentMethod != "" && o.PaymentMethod != filter.PaymentMethod {
			continue
		}
		if filter.City != "" && !strings.EqualFold(o.City, filter.City) {
			continue
		}
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			hay := strings.ToLower(strings.Join([]string{o.Name, o.Email, o.Phone, o.TrackingNumber, o.City}, " "))
			if !strings.Contains(hay, q) {
				continue
			}
		}
		matched = append(matched, o)
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(id uint) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %d: %w", id, ErrNotFound)
	}
	return &order, nil
}

// GetByIDAndEmail returns an order when the email matches, ignoring case.
func (r *MockOrderRepository) GetByIDAndEmail(id uint, email string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok || !strings.EqualFold(order.Email, strings.TrimSpace(email)) {
		return nil, fmt.Errorf("order with ID %d for %s: %w", id, email, ErrNotFound)
	}
	return &order, nil
}

// ListByEmail returns orders for email, newest first.
func (r *MockOrderRepository) ListByEmail(email string, limit int) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Order
	for _, o := range r.sorted() {
		if strings.EqualFold(o.Email, strings.TrimSpace(email)) {
			out = append(out, o)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Create adds a new order.
func (r *MockOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = *order
	return nil
}

// Update replaces an existing order.
func (r *MockOrderRepository) Update(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update(order)
}

func (r *MockOrderRepository) update(order *models.Order) error {
	existing, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("order with ID %d for update: %w", order.ID, ErrNotFound)
	}
	order.CreatedAt = existing.CreatedAt
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

// SaveAll updates every order or none of them.
func (r *MockOrderRepository) SaveAll(orders []models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range orders {
		if _, ok := r.orders[o.ID]; !ok {
			return fmt.Errorf("order with ID %d for update: %w", o.ID, ErrNotFound)
		}
	}
	for i := range orders {
		if err := r.update(&orders[i]); err != nil {
			return err
		}
	}
	return nil
}

// MockOrderUpdateRepository is an in-memory implementation of OrderUpdateRepository.
type MockOrderUpdateRepository struct {
	updates []models.OrderUpdate
	mu      sync.RWMutex
}

// NewMockOrderUpdateRepository creates a new instance of MockOrderUpdateRepository.
func NewMockOrderUpdateRepository() *MockOrderUpdateRepository {
	return &MockOrderUpdateRepository{}
}

// Create appends a timeline entry.
func (r *MockOrderUpdateRepository) Create(update *models.OrderUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	update.ID = uint(len(r.updates) + 1)
	if update.CreatedAt.IsZero() {
		update.CreatedAt = time.Now()
	}
	r.updates = append(r.updates, *update)
	return nil
}

// GetByID returns one timeline entry.
func (r *MockOrderUpdateRepository) GetByID(id uint) (*models.OrderUpdate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id == 0 || int(id) > len(r.updates) {
		return nil, fmt.Errorf("order update with ID %d: %w", id, ErrNotFound)
	}
	u := r.updates[id-1]
	return &u, nil
}

// ListByOrder returns the timeline in insertion order or reversed.
func (r *MockOrderUpdateRepository) ListByOrder(orderID uint, oldestFirst bool) ([]models.OrderUpdate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.OrderUpdate
	for _, u := range r.updates {
		if u.OrderID != nil && *u.OrderID == orderID {
			out = append(out, u)
		}
	}
	if !oldestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// MarkNotified flips the notified flag.
func (r *MockOrderUpdateRepository) MarkNotified(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == 0 || int(id) > len(r.updates) {
		return fmt.Errorf("order update with ID %d: %w", id, ErrNotFound)
	}
	r.updates[id-1].CustomerNotified = true
	return nil
}
