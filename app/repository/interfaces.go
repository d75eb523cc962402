package repository

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paydeskhq/paydesk/app/models"
)

// OrderRepository defines the interface for order-related database operations
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByReferenceKey(key string) (*models.Order, error)
	List(offset, limit int) ([]models.Order, error)
	Count() (int64, error)
}

// PaymentApplicationRepository defines the read-side interface over payment
// applications; all balance-mutating writes go through internal/pkg/ledger.
type PaymentApplicationRepository interface {
	GetByIdempotencyKey(key string) (*models.PaymentApplication, error)
	ListByOrder(orderID uint) ([]models.PaymentApplication, error)
	ListByOrderAndStatus(orderID uint, status string) ([]models.PaymentApplication, error)
	SumSuccessfulAmounts(orderID uint) (decimal.Decimal, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Order              OrderRepository
	PaymentApplication PaymentApplicationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:              NewOrderRepository(db),
		PaymentApplication: NewPaymentApplicationRepository(db),
	}
}
