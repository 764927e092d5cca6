// Package routes defines the API routing configuration.
package routes

import (
	"time"

	"momopay/internal/handlers"
	"momopay/internal/logger"
	"momopay/internal/middleware"
	"momopay/internal/models"
	"momopay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth        *middleware.AuthMiddleware
	Payments    *handlers.PaymentHandler
	Webhooks    *handlers.WebhookHandler
	Withdrawals *handlers.WithdrawalHandler
	Admin       *handlers.AdminHandler
	Health      *handlers.HealthHandler
}

type AppConfig struct {
	AllowOrigins string
	// CollectLimit caps collection requests per client IP and minute.
	CollectLimit int
	AccessLog    bool
}

// NewApp creates the fiber app with the shared middleware stack.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "momopay",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PATCH",
	}))
	if cfg.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	return app
}

// SetupRoutes mounts every route on app.
func SetupRoutes(app *fiber.App, h Handlers, cfg AppConfig) {
	app.Get("/health", h.Health.Check)

	hooks := app.Group("/webhooks")
	hooks.Post("/airtel", h.Webhooks.AirtelCollection)
	hooks.Post("/iotec/collection", h.Webhooks.IotecCollection)
	hooks.Post("/iotec/disbursement", h.Webhooks.Disbursement)

	api := app.Group("/api")

	payments := api.Group("/payments")
	payments.Post("/collect", rateLimit(cfg.CollectLimit), h.Payments.Collect)
	payments.Get("/:provider/status/:id", rateLimit(cfg.CollectLimit), h.Payments.Status)
	payments.Post("/disburse", h.Auth.Handler, middleware.AdminAuthMiddleware, h.Payments.Disburse)

	withdrawals := api.Group("/withdrawals", h.Auth.Handler)
	withdrawals.Post("/", middleware.HasPermission(models.PermissionWithdrawalWrite), h.Withdrawals.Create)
	withdrawals.Get("/", middleware.HasPermission(models.PermissionWithdrawalRead), h.Withdrawals.List)
	withdrawals.Get("/:id", middleware.HasPermission(models.PermissionWithdrawalRead), h.Withdrawals.Get)

	setupAdminRoutes(api, h)
}

func setupAdminRoutes(api fiber.Router, h Handlers) {
	admin := api.Group("/admin", h.Auth.Handler, middleware.AdminAuthMiddleware)

	admin.Get("/wallets", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.ListWallets)
	admin.Post("/wallets", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.CreateWallet)
	admin.Post("/wallets/:id/adjust", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.AdjustWallet)
	admin.Post("/wallets/:id/freeze", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.FreezeWallet)
	admin.Get("/wallets/:id/ledger", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.WalletHistory)

	admin.Get("/ledger/:reference", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.LedgerByReference)
	admin.Get("/withdrawals", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.Withdrawals)
	admin.Get("/revenue", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.Revenue)
	admin.Get("/webhooks", middleware.HasPermission(models.PermissionReadAdmin), h.Admin.WebhookLogs)
	admin.Post("/reconcile", middleware.HasPermission(models.PermissionWriteAdmin), h.Admin.Reconcile)
}

func rateLimit(max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "Too many requests. Please try again later.")
		},
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return response.Error(c, fe.Code, fe.Message)
	}
	logger.WithField("path", c.Path()).WithField("error", err.Error()).Error("unhandled error")
	return response.FromError(c, err)
}
