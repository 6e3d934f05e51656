package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/iuork/iuork-backend/internal/config"
	"github.com/iuork/iuork-backend/internal/db"
	"github.com/iuork/iuork-backend/internal/handlers"
	"github.com/iuork/iuork-backend/internal/middleware"
	"github.com/iuork/iuork-backend/internal/models"
	"github.com/iuork/iuork-backend/internal/realtime"
	"github.com/iuork/iuork-backend/internal/services/booking"
	"github.com/iuork/iuork-backend/internal/services/budget"
	"github.com/iuork/iuork-backend/internal/services/chat"
	"github.com/iuork/iuork-backend/internal/services/review"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("database connection failed:", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("migration failed:", err)
	}

	hub := realtime.NewHub()
	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	notifier := realtime.NewNotifier(hub, rdb)
	realtime.Init(notifier)

	chatSvc := chat.NewService(gdb, notifier)
	budgetSvc := budget.NewService(gdb, notifier)
	budgetSvc.QuoteMode = cfg.BudgetQuoteMode
	bookingSvc := booking.NewService(gdb, notifier)

	authH := &handlers.AuthHandler{DB: gdb, JWTSecret: cfg.JWTSecret, Expires: cfg.JWTExpiresMin}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	chatH := &handlers.ChatHandler{Chats: chatSvc}
	budgetH := &handlers.BudgetHandler{Budgets: budgetSvc}
	bookingH := &handlers.BookingHandler{Bookings: bookingSvc}
	serviceH := &handlers.ServiceHandler{DB: gdb}
	reviewH := &handlers.ReviewHandler{Reviews: review.NewService(gdb)}
	wsH := &handlers.WSHandler{Hub: hub, JWTSecret: cfg.JWTSecret}

	app := fiber.New(fiber.Config{AppName: "iuork-backend"})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.FrontendBaseURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// auth
	auth := app.Group("/auth")
	auth.Post("/signup", authH.Signup)
	auth.Post("/login", authH.Login)
	auth.Get("/google", googleH.GoogleStart)
	auth.Get("/google/callback", googleH.GoogleCallback)

	authed := []fiber.Handler{
		middleware.JWTFromHeader(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	}

	auth.Get("/me", append(authed, authH.Me)...)

	// service catalog
	app.Get("/services", serviceH.ListServices)
	app.Get("/services/mine", append(authed,
		middleware.RequireRoles(string(models.RolePro)), serviceH.MyServices)...)
	app.Get("/services/:id", serviceH.GetService)
	app.Post("/services", append(authed,
		middleware.RequireRoles(string(models.RolePro)), serviceH.CreateService)...)

	// reviews
	app.Get("/reviews", reviewH.ListReviews)
	app.Post("/reviews", append(authed,
		middleware.RequireRoles(string(models.RoleClient)), reviewH.CreateReview)...)

	// chat threads
	chats := app.Group("/chats", authed...)
	chats.Post("/", chatH.OpenChat)
	chats.Get("/check", chatH.CheckChat)
	chats.Get("/", chatH.ListChats)
	chats.Get("/:chatId/budgets", budgetH.ChatBudgets)
	chats.Get("/:id", chatH.GetChat)
	chats.Get("/:id/messages", chatH.ListMessages)
	chats.Post("/:id/messages", chatH.SendMessage)
	chats.Patch("/:id/read", chatH.MarkRead)

	app.Delete("/messages/:id", append(authed, chatH.DeleteMessage)...)

	// budget negotiation
	budgets := app.Group("/budgets", authed...)
	budgets.Post("/request", middleware.RequireRoles(string(models.RoleClient)), budgetH.RequestBudget)
	budgets.Post("/", middleware.RequireRoles(string(models.RolePro)), budgetH.SetPrice)
	budgets.Get("/service/:serviceId/client/:clientId", budgetH.AcceptedForService)
	budgets.Get("/service/:serviceId/client/:clientId/pending", budgetH.PendingForService)
	budgets.Get("/service/:serviceId/client/:clientId/quoted", budgetH.QuotedForService)
	budgets.Get("/:id", budgetH.GetBudget)
	budgets.Patch("/:id/accept", middleware.RequireRoles(string(models.RoleClient)), budgetH.AcceptBudget)
	budgets.Patch("/:id/reject", middleware.RequireRoles(string(models.RoleClient)), budgetH.RejectBudget)
	budgets.Patch("/:id/cancel", middleware.RequireRoles(string(models.RoleClient)), budgetH.CancelBudget)

	// booking offers
	bookings := app.Group("/bookings", authed...)
	bookings.Post("/", middleware.RequireRoles(string(models.RoleClient)), bookingH.CreateBooking)
	bookings.Get("/mine", bookingH.MyBookings)
	bookings.Get("/pending", middleware.RequireRoles(string(models.RolePro)), bookingH.PendingBookings)
	bookings.Patch("/:id/accept", middleware.RequireRoles(string(models.RolePro)), bookingH.AcceptBooking)
	bookings.Patch("/:id/reject", middleware.RequireRoles(string(models.RolePro)), bookingH.RejectBooking)

	// realtime
	app.Use("/ws", wsH.Upgrade)
	app.Get("/ws", websocket.New(wsH.Serve))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
