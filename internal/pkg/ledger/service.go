package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/paydeskhq/paydesk/app/models"
)

// Service is the payment application engine. It applies one payment to one
// order at most once per idempotency key and verifies the resulting balance
// projection before treating the application as final.
type Service struct {
	repo Repository
}

// NewService creates an engine from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates an engine from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// ApplyInput carries one application attempt. The idempotency key comes
// from the caller's retry context: retries of the same logical request must
// present the same key, and the engine never generates one.
type ApplyInput struct {
	IdempotencyKey string
	ReferenceKey   string
	Amount         decimal.Decimal
	Note           string
}

// ApplyResult is the accepted order together with its current application
// partitions and freshly projected balance.
type ApplyResult struct {
	Order      *models.Order
	BalanceDue decimal.Decimal
	Successful []models.PaymentApplication
	Pending    []models.PaymentApplication
	Failed     []models.PaymentApplication
}

// Apply runs the full application workflow:
//
//  1. resolve the idempotency key; a Successful prior attempt is a
//     duplicate and causes no writes,
//  2. locate the order by reference key,
//  3. create a Pending payment/application pair, or reuse the existing
//     pair when the key resolves to a Pending or Failed attempt,
//  4. tentatively commit the Successful status,
//  5. re-project the balance and verify it matches the expectation; on
//     mismatch the application is flipped to Failed and kept as the audit
//     trail for a later retry under the same key.
//
// Steps 2-5 run inside one transaction holding a row lock on the order, so
// concurrent appliers to the same order are serialized. A lost race on the
// idempotency-key unique index is folded back into step 1.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*ApplyResult, error) {
	return s.apply(ctx, in, true)
}

func (s *Service) apply(ctx context.Context, in ApplyInput, allowRetry bool) (*ApplyResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	prior, err := s.repo.FindApplicationByKey(in.IdempotencyKey)
	switch {
	case err == nil && prior.IsTerminal():
		return nil, ErrDuplicateApplication
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var (
		result    *ApplyResult
		rejection error
	)

	err = s.repo.WithOrderLock(ctx, in.ReferenceKey, func(tx Repository, order *models.Order) error {
		app, err := tx.FindApplicationByKey(in.IdempotencyKey)
		switch {
		case err == nil && app.IsTerminal():
			// A concurrent attempt finished first while we waited.
			rejection = ErrDuplicateApplication
			return nil
		case err == nil:
			// Retry: reuse the existing Payment and PaymentApplication rows.
		case errors.Is(err, gorm.ErrRecordNotFound):
			payment, perr := models.NewPayment(in.Amount, in.Note, in.IdempotencyKey)
			if perr != nil {
				return newValidationError(perr.Error())
			}
			app = models.NewPaymentApplication(order.ID, 0, in.IdempotencyKey)
			if cerr := tx.CreatePendingApplication(payment, app); cerr != nil {
				return cerr
			}
		default:
			return err
		}

		successfulSum, err := tx.SumSuccessfulAmounts(order.ID)
		if err != nil {
			return err
		}
		startingBalance := ProjectBalance(order.Total, successfulSum)
		// The expectation carries the same non-negativity clamp as the
		// projection, so an over-payment settles the order at zero rather
		// than failing verification.
		expectedBalance := ProjectBalance(startingBalance, app.Payment.Amount)

		// Tentative commit: the status flip below is the only mutation that
		// makes this payment count toward the balance.
		app.Status = models.ApplicationStatusSuccessful
		if err := tx.SaveApplication(app); err != nil {
			return err
		}

		sumAfter, err := tx.SumSuccessfulAmounts(order.ID)
		if err != nil {
			return err
		}
		actualBalance := ProjectBalance(order.Total, sumAfter)

		if !actualBalance.Equal(expectedBalance) {
			// Compensate instead of deleting: the Failed row is the audit
			// trail and the handle for a retry under the same key.
			app.Status = models.ApplicationStatusFailed
			if err := tx.SaveApplication(app); err != nil {
				return err
			}
			rejection = ErrBalanceVerificationFailed
			return nil
		}

		result, err = buildResult(tx, order, actualBalance)
		return err
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		if errors.Is(err, ErrApplicationExists) {
			// Someone else holds or held this key. Re-resolve: a terminal
			// winner is a duplicate, anything else gets one more pass that
			// will take the reuse path.
			if prior, perr := s.repo.FindApplicationByKey(in.IdempotencyKey); perr == nil && prior.IsTerminal() {
				return nil, ErrDuplicateApplication
			}
			if allowRetry {
				return s.apply(ctx, in, false)
			}
			return nil, ErrDuplicateApplication
		}
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	return result, nil
}

func buildResult(tx Repository, order *models.Order, balance decimal.Decimal) (*ApplyResult, error) {
	apps, err := tx.ListApplicationsByOrder(order.ID)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{
		Order:      order,
		BalanceDue: balance,
	}
	for _, app := range apps {
		switch app.Status {
		case models.ApplicationStatusSuccessful:
			result.Successful = append(result.Successful, app)
		case models.ApplicationStatusPending:
			result.Pending = append(result.Pending, app)
		case models.ApplicationStatusFailed:
			result.Failed = append(result.Failed, app)
		}
	}
	return result, nil
}

func validateInput(in ApplyInput) error {
	var messages []string
	if strings.TrimSpace(in.IdempotencyKey) == "" {
		messages = append(messages, "idempotency key is required")
	}
	if strings.TrimSpace(in.ReferenceKey) == "" {
		messages = append(messages, "reference key is required")
	}
	if !in.Amount.IsPositive() {
		messages = append(messages, "amount must be greater than zero")
	}
	if len(messages) > 0 {
		return newValidationError(messages...)
	}
	return nil
}
