package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/elvish-ishaan/dotformer/app/controllers"
	"github.com/elvish-ishaan/dotformer/app/repository"
	"github.com/elvish-ishaan/dotformer/internal/pkg/billing"
	"github.com/elvish-ishaan/dotformer/internal/pkg/cache"
	"github.com/elvish-ishaan/dotformer/internal/pkg/database"
	"github.com/elvish-ishaan/dotformer/internal/pkg/env"
	"github.com/elvish-ishaan/dotformer/internal/pkg/jobqueue"
	"github.com/elvish-ishaan/dotformer/internal/pkg/metering"
	"github.com/elvish-ishaan/dotformer/internal/pkg/middleware"
	"github.com/elvish-ishaan/dotformer/internal/pkg/router"
	"github.com/elvish-ishaan/dotformer/internal/pkg/scheduler"
	"github.com/elvish-ishaan/dotformer/internal/pkg/storage"
	"github.com/elvish-ishaan/dotformer/internal/pkg/transform"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	if err := billing.SeedDefaultPlans(db); err != nil {
		log.Fatalf("Failed to seed default pricing plans: %v", err)
	}

	storageCfg, err := storage.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid storage configuration: %v", err)
	}
	store, err := storage.NewClient(storageCfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	gateway := transform.NewGateway(store, transform.NewImagingEngine())

	meteringRepo := metering.NewRepository(db)
	billingSvc := billing.NewService(billing.NewRepository(db))

	manager := jobqueue.InitManager(meteringRepo, billingSvc)
	manager.Start()
	queue := manager.GetQueue()

	meter := metering.NewMeter(meteringRepo, queue)
	enforcer := metering.NewEnforcer(meteringRepo)

	sched := scheduler.New(queue)
	sched.Start()

	// Find the project root for the bundled OpenAPI document.
	basePath := ""
	for _, path := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 52 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, &router.Deps{
		Files:   controllers.NewFileController(store, gateway, repository.GetGlobalFactory().GetAssetRepository()),
		Billing: controllers.NewBillingController(billingSvc, queue),
		Keys:    controllers.NewAPIKeyController(repository.GetGlobalFactory().GetAPIKeyRepository()),
		Tracker: middleware.NewUsageTracker(enforcer, meter),
	})

	return app
}
