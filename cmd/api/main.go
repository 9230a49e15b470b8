package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/chamba-tutorias/backend/internal/chatbot"
	"github.com/chamba-tutorias/backend/internal/config"
	"github.com/chamba-tutorias/backend/internal/db"
	"github.com/chamba-tutorias/backend/internal/handlers"
	"github.com/chamba-tutorias/backend/internal/middleware"
	"github.com/chamba-tutorias/backend/internal/models"
	"github.com/chamba-tutorias/backend/internal/services/account"
	"github.com/chamba-tutorias/backend/internal/services/matching"
	"github.com/chamba-tutorias/backend/internal/services/otp"
	"github.com/chamba-tutorias/backend/internal/sms"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.TutorProfile{},
		&models.ApprovedTutor{},
		&models.JobRequest{},
		&models.JobOffer{},
		&models.PhoneVerification{},
	); err != nil {
		log.Fatal(err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Println("Redis no disponible, el ranking de tutores no se cachea:", err)
		rdb = nil
	}

	sender := sms.NewConsoleSender()
	otpSvc := otp.NewService(gdb, sender)
	accountSvc := account.NewService(gdb)
	matchSvc := matching.NewService(gdb, rdb, sender)
	bot := chatbot.New(cfg.OpenAIKey, chatbot.NewCatalog(gdb, otpSvc))

	authH := handlers.NewAuthHandler(otpSvc, cfg.JWTSecret, cfg.JWTExpiresMin)
	userH := handlers.NewUserHandler(gdb, accountSvc, cfg.JWTSecret, cfg.JWTExpiresMin)
	profileH := handlers.NewTutorProfileHandler(gdb, cfg.JWTSecret, cfg.JWTExpiresMin)
	jobH := handlers.NewJobHandler(gdb, matchSvc)
	offerH := handlers.NewOfferHandler(gdb, matchSvc)
	adminH := handlers.NewAdminHandler(gdb)
	chatH := handlers.NewChatHandler(bot)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, x-admin-key",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	api := app.Group("/api")

	// public
	api.Post("/auth/send-otp", authH.SendOTP)
	api.Post("/auth/verify-otp", authH.VerifyOTP)
	api.Post("/auth/logout", authH.Logout)
	api.Post("/chat", chatH.Chat)

	// protected (JWT cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", userH.Me)
	protected.Patch("/user", userH.UpdateUser)
	protected.Patch("/user/role", userH.UpdateRole)

	protected.Get("/tutor/profile", profileH.Get)
	protected.Post("/tutor/profile", profileH.Upsert)
	protected.Delete("/tutor/profile", profileH.Delete)

	protected.Get("/jobs", jobH.List)
	protected.Post("/jobs", jobH.Create)
	protected.Get("/jobs/:id", jobH.GetDetail)
	protected.Patch("/jobs/:id", jobH.Patch)
	protected.Get("/jobs/:id/providers", jobH.Providers)

	protected.Post("/offers", offerH.Create)
	protected.Post("/offers/:id/respond",
		middleware.RequireRoles("TUTOR"),
		offerH.Respond,
	)
	protected.Get("/offers/provider",
		middleware.RequireRoles("TUTOR"),
		offerH.ProviderInbox,
	)

	// admin panel, guarded by the shared key header
	admin := api.Group("/admin", middleware.RequireAdminKey(cfg.AdminKey))
	admin.Get("/tutors", adminH.ListApproved)
	admin.Post("/tutors", adminH.CreateApproved)
	admin.Put("/tutors/:id", adminH.UpdateApproved)
	admin.Delete("/tutors/:id", adminH.DeleteApproved)
	admin.Get("/tutor-profiles", adminH.ListProfiles)
	admin.Post("/tutor-profiles", adminH.CreateProfile)
	admin.Put("/tutor-profiles/:id", adminH.UpdateProfile)
	admin.Delete("/tutor-profiles/:id", adminH.DeleteProfile)

	log.Println("API escuchando en :" + cfg.AppPort)
	log.Fatal(app.Listen(":" + cfg.AppPort))
}
