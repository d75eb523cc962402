package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/paydeskhq/paydesk/app/models"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates a new order in the database
func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID retrieves an order by its ID
func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByReferenceKey retrieves an order by its client-visible reference key
func (r *orderRepository) GetByReferenceKey(key string) (*models.Order, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var order models.Order
	err := r.db.Where("reference_key = ?", trimmed).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List retrieves a paginated list of orders
func (r *orderRepository) List(offset, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error
	return orders, err
}

// Count returns the total number of orders
func (r *orderRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Order{}).Count(&count).Error
	return count, err
}
