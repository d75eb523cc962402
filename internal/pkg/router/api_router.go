package router

import (
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/paydeskhq/paydesk/app/repository"
	apiv1 "github.com/paydeskhq/paydesk/internal/api/v1"
	"github.com/paydeskhq/paydesk/internal/pkg/cache"
	"github.com/paydeskhq/paydesk/internal/pkg/database"
	"github.com/paydeskhq/paydesk/internal/pkg/ledger"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Storage: newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	repos := repository.GetGlobalRepositories()
	apiServer := apiv1.NewAPIServer(
		repos.Order,
		repos.PaymentApplication,
		ledger.NewServiceFromDB(database.GetDB()),
	)
	apiv1.RegisterHandlers(v1, apiServer)
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// instances. Falls back to the limiter's in-memory default when no cache
// client is configured.
func newLimiterStorage() fiber.Storage {
	client := cache.GetClient()
	if client == nil {
		return nil
	}

	host := "localhost"
	port := 6379
	if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	// Separate database for limiter state (cache uses DB 0)
	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: client.Options().Password,
		Database: 1,
		Reset:    false,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
