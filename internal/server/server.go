package server

import (
	"errors"
	"time"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options are the external resources the server is built from.
type Options struct {
	Config *config.Config
	DB     *gorm.DB
	// Challenges defaults to the database store when nil.
	Challenges repositories.ChallengeRepository
	// Publisher may be nil when no broker is configured.
	Publisher services.EventPublisher
	// RequestLog enables the fiber access log.
	RequestLog bool
}

// Server is the wired HTTP application and the services behind it.
type Server struct {
	App           *fiber.App
	Auth          *services.AuthService
	OTP           *services.OTPService
	Orders        *services.OrderService
	Users         *services.UserService
	Products      *services.ProductService
	Notifications *services.NotificationService
	Janitor       *services.ChallengeJanitor
}

// New wires repositories, services and handlers into a fiber app.
func New(opts Options) *Server {
	cfg := opts.Config
	db := opts.DB

	// --- Repositories ---
	orderRepo := repositories.NewGORMOrderRepository(db)
	updateRepo := repositories.NewGORMOrderUpdateRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	blogRepo := repositories.NewGORMBlogRepository(db)
	contactRepo := repositories.NewGORMContactRepository(db)
	challenges := opts.Challenges
	if challenges == nil {
		challenges = repositories.NewGORMChallengeRepository(db)
	}

	// --- Services ---
	notifier := services.NewNotifier(opts.Publisher, cfg.RabbitMQExchange)
	otpService := services.NewOTPService(challenges, services.OTPConfig{
		RegistrationTTL: cfg.RegistrationOTPTTL,
		LoginTTL:        cfg.LoginOTPTTL,
		ResendInterval:  cfg.OTPResendInterval,
	})
	authService := services.NewAuthService(userRepo, otpService, notifier, services.AuthConfig{
		JWTSecret:       cfg.JWTSecret,
		AccessTTL:       cfg.JWTAccessTTL,
		RefreshTTL:      cfg.JWTRefreshTTL,
		LinkTTL:         cfg.LinkTokenTTL,
		ShowOTPFallback: cfg.ShowOTPInUIFallback,
	})
	orderService := services.NewOrderService(orderRepo, updateRepo, notifier)
	userService := services.NewUserService(userRepo, orderRepo)
	productService := services.NewProductService(productRepo, cfg.CatalogPageSize)
	searchService := services.NewSearchService(productRepo, blogRepo)
	blogService := services.NewBlogService(blogRepo, cfg.CatalogPageSize)
	contactService := services.NewContactService(contactRepo)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService, userService)
	adminHandler := handlers.NewAdminHandler(orderService, userService, cfg.AdminPageSize)
	productHandler := handlers.NewProductHandler(productService, searchService)
	contentHandler := handlers.NewContentHandler(blogService, contactService)

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	// --- Middleware ---
	if opts.RequestLog {
		app.Use(logger.New())
	}
	app.Use(metrics.Middleware())
	app.Use(middleware.Session(middleware.SessionConfig{
		CookieName: cfg.SessionCookie,
		Secure:     cfg.CookieSecure,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"rabbitmq": "disabled",
		}
		if opts.Publisher != nil {
			status["rabbitmq"] = "connected"
		}
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			status["status"] = "degraded"
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterRoutes(apiV1)
	contentHandler.RegisterRoutes(apiV1)
	orderHandler.RegisterPublicRoutes(apiV1)

	admin := apiV1.Group("/admin", middleware.AuthRequired(authService), middleware.AdminRequired())
	adminHandler.RegisterRoutes(admin)
	productHandler.RegisterAdminRoutes(admin)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	orderHandler.RegisterRoutes(protected)

	return &Server{
		App:           app,
		Auth:          authService,
		OTP:           otpService,
		Orders:        orderService,
		Users:         userService,
		Products:      productService,
		Notifications: services.NewNotificationService(orderService),
		Janitor:       services.NewChallengeJanitor(otpService, cfg.ChallengeRetention),
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Errorf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}
