package main

import (
	"log"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"marketwatch/auth"
	"marketwatch/common"
	"marketwatch/database"
	"marketwatch/industries"
	"marketwatch/reports"
	"marketwatch/uploads"
	"marketwatch/users"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading configuration from the environment")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	db := common.ConnectDb(cfg.Database.File)
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	router := gin.Default()

	store := cookie.NewStore([]byte(cfg.Auth.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})
	router.Use(sessions.Sessions("marketwatch-session", store))
	router.Use(common.CORSMiddleware(cfg.CORS))

	router.Static("/uploads", "./"+cfg.Upload.Dir)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	saver := uploads.NewSaver(cfg.Upload.Dir)

	authModule := auth.NewAuthModule(db, tokens)
	authModule.RegisterRoutes(router)

	if err := authModule.EnsureAdmin(cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatal("Failed to seed admin account: ", err)
	}

	industryModule := industries.NewIndustryModule(db, authModule)
	industryModule.RegisterRoutes(router)

	reportModule := reports.NewReportModule(db, authModule, saver, cfg.Upload.CoverMaxBytes)
	reportModule.RegisterRoutes(router)

	userModule := users.NewUserModule(db, authModule, saver, cfg.Upload.AvatarMaxBytes)
	userModule.RegisterRoutes(router)

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message":   "Market analysis platform API",
			"status":    "active",
			"timestamp": time.Now(),
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	log.Printf("Starting server on port %s...", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
