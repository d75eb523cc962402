package repository

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paydeskhq/paydesk/app/models"
)

// paymentApplicationRepository implements the PaymentApplicationRepository interface
type paymentApplicationRepository struct {
	db *gorm.DB
}

// NewPaymentApplicationRepository creates a new payment application repository instance
func NewPaymentApplicationRepository(db *gorm.DB) PaymentApplicationRepository {
	return &paymentApplicationRepository{db: db}
}

// GetByIdempotencyKey retrieves the application attempt recorded for a key
func (r *paymentApplicationRepository) GetByIdempotencyKey(key string) (*models.PaymentApplication, error) {
	var app models.PaymentApplication
	err := r.db.Preload("Payment").Where("idempotency_key = ?", key).First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListByOrder retrieves all application attempts for an order, oldest first
func (r *paymentApplicationRepository) ListByOrder(orderID uint) ([]models.PaymentApplication, error) {
	var apps []models.PaymentApplication
	err := r.db.Preload("Payment").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&apps).Error
	return apps, err
}

// ListByOrderAndStatus retrieves one status partition of an order's applications
func (r *paymentApplicationRepository) ListByOrderAndStatus(orderID uint, status string) ([]models.PaymentApplication, error) {
	var apps []models.PaymentApplication
	err := r.db.Preload("Payment").
		Where("order_id = ? AND status = ?", orderID, status).
		Order("created_at ASC").
		Find(&apps).Error
	return apps, err
}

// SumSuccessfulAmounts sums the payment amounts of all successful
// applications for an order. Reads the persisted state on every call;
// the result is never cached (the engine uses it as a verification oracle).
func (r *paymentApplicationRepository) SumSuccessfulAmounts(orderID uint) (decimal.Decimal, error) {
	var raw decimal.NullDecimal
	err := r.db.Model(&models.PaymentApplication{}).
		Select("SUM(payments.amount)").
		Joins("JOIN payments ON payments.id = payment_applications.payment_id").
		Where("payment_applications.order_id = ? AND payment_applications.status = ?", orderID, models.ApplicationStatusSuccessful).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !raw.Valid {
		return decimal.Zero, nil
	}
	return raw.Decimal, nil
}
