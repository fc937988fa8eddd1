package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propcare/backend/internal/config"
	"github.com/propcare/backend/internal/database"
	"github.com/propcare/backend/internal/handlers"
	"github.com/propcare/backend/internal/observability"
	"github.com/propcare/backend/internal/repository"
	"github.com/propcare/backend/internal/services"
	"github.com/propcare/backend/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// The service degrades without its store: reads return empty results
	// and writes report unavailability instead of crashing the process.
	var db *gorm.DB
	db, err = database.Connect(&cfg.Database)
	if err != nil {
		logger.Warn("database unavailable, starting degraded", zap.Error(err))
		db = nil
	} else {
		if err := database.Migrate(db, logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		if err := database.Seed(db, logger); err != nil {
			logger.Fatal("seeding failed", zap.Error(err))
		}
	}

	var cache *database.CacheStore
	if redisClient, err := database.ConnectRedis(&cfg.Redis); err != nil {
		logger.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		cache = database.NewCacheStore(redisClient)
		defer database.CloseRedis(redisClient)
	}

	objectStore, err := storage.NewMinIOStorage(&cfg.MinIO, logger)
	if err != nil {
		logger.Warn("object storage unavailable, attachments disabled", zap.Error(err))
		objectStore = nil
	}

	ticketRepo := repository.NewTicketRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	workflowRepo := repository.NewWorkflowRepository(db)
	resolutionRepo := repository.NewResolutionRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	recorder := services.NewHistoryRecorder(historyRepo, logger)
	engine := services.NewWorkflowEngine(ticketRepo, workflowRepo, departmentRepo, resolutionRepo, recorder, logger)
	ticketService := services.NewTicketService(ticketRepo, departmentRepo, resolutionRepo, engine, recorder, objectStore, logger)
	workflowService := services.NewWorkflowService(workflowRepo, departmentRepo, cache, logger)
	departmentService := services.NewDepartmentService(departmentRepo, logger)

	monitor := services.NewOverdueMonitor(ticketService, cache, logger,
		time.Duration(cfg.Monitor.IntervalMinutes)*time.Minute)
	monitor.Start()
	defer monitor.Stop()

	validate := validator.New()
	ticketHandler := handlers.NewTicketHandler(ticketService, validate)
	workflowHandler := handlers.NewWorkflowHandler(workflowService, validate)
	departmentHandler := handlers.NewDepartmentHandler(departmentService, validate)
	healthHandler := handlers.NewHealthHandler(db)

	app := fiber.New(fiber.Config{
		AppName:      "PropCare Backend",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	registerRoutes(app, ticketHandler, workflowHandler, departmentHandler, healthHandler)

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}

	if db != nil {
		if err := database.Close(db); err != nil {
			logger.Error("closing database", zap.Error(err))
		}
	}
}

func registerRoutes(
	app *fiber.App,
	tickets *handlers.TicketHandler,
	workflows *handlers.WorkflowHandler,
	departments *handlers.DepartmentHandler,
	health *handlers.HealthHandler,
) {
	app.Get("/health", health.Health)

	api := app.Group("/api/v1")

	t := api.Group("/tickets")
	t.Post("/", tickets.CreateTicket)
	t.Get("/", tickets.ListTickets)
	t.Get("/stats", tickets.GetStats)
	t.Get("/:id", tickets.GetTicket)
	t.Put("/:id", tickets.UpdateTicket)
	t.Delete("/:id", tickets.DeleteTicket)
	t.Post("/:id/actions", tickets.AddDepartmentAction)
	t.Post("/:id/reassign", tickets.Reassign)
	t.Post("/:id/revert", tickets.Revert)
	t.Post("/:id/close", tickets.CloseTicket)
	t.Post("/:id/resolve", tickets.ResolveTicket)
	t.Get("/:id/history", tickets.GetHistory)
	t.Get("/:id/resolutions", tickets.GetResolutions)

	api.Post("/resolutions/:id/attachments", tickets.UploadAttachment)
	api.Get("/attachments/:id/url", tickets.GetAttachmentURL)

	w := api.Group("/workflows")
	w.Post("/", workflows.CreateWorkflow)
	w.Get("/", workflows.ListWorkflows)
	w.Get("/default", workflows.GetDefaultWorkflow)
	w.Get("/:id", workflows.GetWorkflow)
	w.Put("/:id", workflows.UpdateWorkflow)
	w.Post("/:id/default", workflows.SetDefaultWorkflow)
	w.Delete("/:id", workflows.DeleteWorkflow)

	d := api.Group("/departments")
	d.Post("/", departments.CreateDepartment)
	d.Get("/", departments.ListDepartments)
	d.Get("/:id", departments.GetDepartment)
	d.Put("/:id", departments.UpdateDepartment)
	d.Delete("/:id", departments.DeleteDepartment)
}
