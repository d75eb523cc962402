package apiv1

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/paydeskhq/paydesk/app/models"
	"github.com/paydeskhq/paydesk/app/repository"
	"github.com/paydeskhq/paydesk/internal/pkg/ledger"
)

// Engine is the slice of the ledger service the API layer needs.
type Engine interface {
	Apply(ctx context.Context, in ledger.ApplyInput) (*ledger.ApplyResult, error)
}

// APIServer implements the v1 JSON API
type APIServer struct {
	orders repository.OrderRepository
	apps   repository.PaymentApplicationRepository
	engine Engine
}

// NewAPIServer creates a new API server instance
func NewAPIServer(orders repository.OrderRepository, apps repository.PaymentApplicationRepository, engine Engine) *APIServer {
	return &APIServer{
		orders: orders,
		apps:   apps,
		engine: engine,
	}
}

// RegisterHandlers attaches the v1 routes to the given router group
func RegisterHandlers(r fiber.Router, s *APIServer) {
	r.Get("/ping", s.GetPing)
	r.Post("/orders", s.PostOrder)
	r.Get("/orders", s.GetOrders)
	r.Get("/orders/:reference_key", s.GetOrder)
	r.Post("/orders/:reference_key/payments", s.PostOrderPayment)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// PostOrder creates an order with a fresh system-assigned reference key.
func (s *APIServer) PostOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return reject(c, fiber.StatusBadRequest, "invalid request body")
	}

	order, err := models.NewOrder(req.Description, req.Total)
	if err != nil {
		return reject(c, fiber.StatusBadRequest, err.Error())
	}
	if err := s.orders.Create(order); err != nil {
		return reject(c, fiber.StatusInternalServerError, "could not create order")
	}

	view := OrderView{
		ReferenceKey: order.ReferenceKey,
		Description:  order.Description,
		Total:        order.Total,
		BalanceDue:   order.Total,
		Successful:   []PaymentEntry{},
		Pending:      []PaymentEntry{},
		Failed:       []PaymentEntry{},
		CreatedAt:    order.CreatedAt,
	}
	return c.Status(fiber.StatusCreated).JSON(OrderEnvelope{Order: &view, Errors: []string{}})
}

// PostOrderPayment applies one payment to one order. Retries of the same
// logical request must carry the same Idempotency-Key header value.
func (s *APIServer) PostOrderPayment(c *fiber.Ctx) error {
	var req ApplyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return reject(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.engine.Apply(c.UserContext(), ledger.ApplyInput{
		IdempotencyKey: c.Get("Idempotency-Key"),
		ReferenceKey:   c.Params("reference_key"),
		Amount:         req.Amount,
		Note:           req.Note,
	})
	if err != nil {
		return rejectApply(c, err)
	}

	view := OrderView{
		ReferenceKey: result.Order.ReferenceKey,
		Description:  result.Order.Description,
		Total:        result.Order.Total,
		BalanceDue:   result.BalanceDue,
		Successful:   paymentEntries(result.Successful),
		Pending:      paymentEntries(result.Pending),
		Failed:       paymentEntries(result.Failed),
		CreatedAt:    result.Order.CreatedAt,
	}
	return c.Status(fiber.StatusOK).JSON(OrderEnvelope{Order: &view, Errors: []string{}})
}

// GetOrder returns one order with its projected balance and partitions.
func (s *APIServer) GetOrder(c *fiber.Ctx) error {
	order, err := s.orders.GetByReferenceKey(c.Params("reference_key"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject(c, fiber.StatusNotFound, "order not found")
		}
		return reject(c, fiber.StatusInternalServerError, "could not load order")
	}

	view, err := s.buildOrderView(order)
	if err != nil {
		return reject(c, fiber.StatusInternalServerError, "could not load order")
	}
	return c.Status(fiber.StatusOK).JSON(OrderEnvelope{Order: view, Errors: []string{}})
}

// GetOrders returns all orders with their projected balances.
func (s *APIServer) GetOrders(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)

	orders, err := s.orders.List(offset, limit)
	if err != nil {
		return reject(c, fiber.StatusInternalServerError, "could not list orders")
	}
	total, err := s.orders.Count()
	if err != nil {
		return reject(c, fiber.StatusInternalServerError, "could not list orders")
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		view, err := s.buildOrderView(&orders[i])
		if err != nil {
			return reject(c, fiber.StatusInternalServerError, "could not list orders")
		}
		views = append(views, *view)
	}
	return c.Status(fiber.StatusOK).JSON(OrderListResponse{Orders: views, Total: total})
}

func (s *APIServer) buildOrderView(order *models.Order) (*OrderView, error) {
	apps, err := s.apps.ListByOrder(order.ID)
	if err != nil {
		return nil, err
	}
	sum, err := s.apps.SumSuccessfulAmounts(order.ID)
	if err != nil {
		return nil, err
	}

	view := &OrderView{
		ReferenceKey: order.ReferenceKey,
		Description:  order.Description,
		Total:        order.Total,
		BalanceDue:   ledger.ProjectBalance(order.Total, sum),
		Successful:   []PaymentEntry{},
		Pending:      []PaymentEntry{},
		Failed:       []PaymentEntry{},
		CreatedAt:    order.CreatedAt,
	}
	for _, app := range apps {
		entry := PaymentEntry{
			Amount:    app.Payment.Amount,
			Note:      app.Payment.Note,
			Timestamp: app.CreatedAt,
		}
		switch app.Status {
		case models.ApplicationStatusSuccessful:
			view.Successful = append(view.Successful, entry)
		case models.ApplicationStatusPending:
			view.Pending = append(view.Pending, entry)
		case models.ApplicationStatusFailed:
			view.Failed = append(view.Failed, entry)
		}
	}
	return view, nil
}

// rejectApply maps engine rejections onto status codes. Every rejection is
// a structured {order: null, errors: [...]} payload, never a bare 500.
func rejectApply(c *fiber.Ctx, err error) error {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(OrderEnvelope{Errors: verr.Messages})
	case errors.Is(err, ledger.ErrOrderNotFound):
		return reject(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrDuplicateApplication):
		return reject(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrBalanceVerificationFailed):
		return reject(c, fiber.StatusUnprocessableEntity, err.Error())
	default:
		return reject(c, fiber.StatusInternalServerError, "could not apply payment")
	}
}

func reject(c *fiber.Ctx, status int, messages ...string) error {
	return c.Status(status).JSON(OrderEnvelope{Order: nil, Errors: messages})
}
