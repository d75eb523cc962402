package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paydeskhq/paydesk/app/models"
)

// Repository provides the store operations used by the payment application
// engine. WithOrderLock opens the transactional scope all balance-mutating
// work runs in; the Repository handed to its callback is bound to that
// transaction.
type Repository interface {
	// FindApplicationByKey resolves an idempotency key to its recorded
	// application attempt, payment included. Read-only.
	FindApplicationByKey(key string) (*models.PaymentApplication, error)

	// WithOrderLock runs fn inside a transaction holding a row lock on the
	// order with the given reference key, serializing concurrent appliers on
	// the same order. Returns gorm.ErrRecordNotFound for an unknown key.
	WithOrderLock(ctx context.Context, referenceKey string, fn func(tx Repository, order *models.Order) error) error

	// CreatePendingApplication persists a fresh Payment together with its
	// Pending application. Returns ErrApplicationExists when the unique
	// index on the idempotency key rejects the insert.
	CreatePendingApplication(payment *models.Payment, app *models.PaymentApplication) error

	SaveApplication(app *models.PaymentApplication) error
	SumSuccessfulAmounts(orderID uint) (decimal.Decimal, error)
	ListApplicationsByOrder(orderID uint) ([]models.PaymentApplication, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindApplicationByKey(key string) (*models.PaymentApplication, error) {
	var app models.PaymentApplication
	err := r.db.Preload("Payment").Where("idempotency_key = ?", key).First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *gormRepository) WithOrderLock(ctx context.Context, referenceKey string, fn func(tx Repository, order *models.Order) error) error {
	return r.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		var order models.Order
		err := txDB.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference_key = ?", referenceKey).
			First(&order).Error
		if err != nil {
			return err
		}
		return fn(&gormRepository{db: txDB}, &order)
	})
}

func (r *gormRepository) CreatePendingApplication(payment *models.Payment, app *models.PaymentApplication) error {
	if err := r.db.Create(payment).Error; err != nil {
		return err
	}
	app.PaymentID = payment.ID

	// DoNothing on the idempotency-key unique index: losing the race is a
	// normal outcome, reported as ErrApplicationExists so the caller can
	// roll back the payment row and re-resolve the key.
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(app)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrApplicationExists
	}

	app.Payment = *payment
	return nil
}

func (r *gormRepository) SaveApplication(app *models.PaymentApplication) error {
	return r.db.Save(app).Error
}

func (r *gormRepository) SumSuccessfulAmounts(orderID uint) (decimal.Decimal, error) {
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

func (r *gormRepository) ListApplicationsByOrder(orderID uint) ([]models.PaymentApplication, error) {
	var apps []models.PaymentApplication
	err := r.db.Preload("Payment").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&apps).Error
	return apps, err
}
