package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/elvish-ishaan/dotformer/app/controllers"
	"github.com/elvish-ishaan/dotformer/app/models"
	apiv1 "github.com/elvish-ishaan/dotformer/internal/api/v1"
	"github.com/elvish-ishaan/dotformer/internal/pkg/middleware"
)

// Deps carries the wired controllers and middleware the API routes need.
type Deps struct {
	Files   *controllers.FileController
	Billing *controllers.BillingController
	Keys    *controllers.APIKeyController
	Tracker *middleware.UsageTracker
}

type ApiRouter struct {
	deps *Deps
}

func NewApiRouter(deps *Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)

	// Everything below requires an API key.
	auth := v1.Group("", middleware.APIKeyAuthMiddleware())
	track := h.deps.Tracker

	files := auth.Group("/files")
	files.Post("/upload", track.Track(models.OperationUpload), h.deps.Files.HandleUpload)
	files.Get("/", track.Track(models.OperationAPI), h.deps.Files.ListFiles)
	files.Get("/:id", track.Track(models.OperationAPI), h.deps.Files.GetFile)
	files.Delete("/:id", track.Track(models.OperationAPI), h.deps.Files.DeleteFile)
	files.Get("/:id/transform", track.Track(models.OperationTransform), h.deps.Files.TransformFile)

	keys := auth.Group("/api-keys", track.Track(models.OperationAPI))
	keys.Post("/", h.deps.Keys.CreateKey)
	keys.Get("/", h.deps.Keys.ListKeys)
	keys.Delete("/:id", h.deps.Keys.RevokeKey)

	billing := auth.Group("/billing")
	billing.Get("/usage", h.deps.Billing.GetCurrentUsage)
	billing.Get("/history", h.deps.Billing.GetBillingHistory)
	billing.Get("/plans", h.deps.Billing.GetPricingPlans)
	billing.Post("/subscribe", h.deps.Billing.Subscribe)
	billing.Put("/payment-method", h.deps.Billing.UpdatePaymentMethod)
	billing.Post("/bills/:id/pay", h.deps.Billing.PayBill)
	billing.Post("/run", middleware.AdminOnly(), h.deps.Billing.RunBillingNow)
}
