package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "garrison/docs"
	"garrison/pkg/assets"
	"garrison/pkg/assignments"
	"garrison/pkg/auth"
	"garrison/pkg/clock"
	"garrison/pkg/custody"
	"garrison/pkg/db"
	"garrison/pkg/events"
	"garrison/pkg/sendemail"
	"garrison/pkg/transfers"
	"garrison/pkg/users"
)

// @title           Garrison API
// @version         1.0
// @description     Military asset custody tracking - assets, assignments and inter-base transfers

// @host      localhost:8080
// @BasePath  /

// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	pool := db.Connect()
	defer pool.Close()

	clk := clock.NewSystem()
	tokens := auth.NewTokensFromEnv()
	emailService := sendemail.NewEmailService()

	feedHub := events.NewHub(clk)
	feedHandler := events.NewFeedHandler(feedHub)

	usersRepo := users.NewPostgresUserRepository(pool)
	usersService := users.NewUserService(usersRepo)
	usersHandler := users.NewUserHandler(usersService, tokens, clk)

	requireAuth := auth.RequireAuth(tokens, usersService)

	assetsRepo := assets.NewPostgresAssetRepository(pool)
	coordinator := custody.NewCoordinator(pool, assetsRepo)
	assetsService := assets.NewAssetService(assetsRepo, coordinator, clk)
	assetsHandler := assets.NewAssetHandler(assetsService)

	assignmentsRepo := assignments.NewPostgresAssignmentRepository(pool)
	assignmentsService := assignments.NewAssignmentService(assignmentsRepo, coordinator, usersRepo, assetsRepo, feedHub, clk)
	assignmentsHandler := assignments.NewAssignmentHandler(assignmentsService)

	transfersRepo := transfers.NewPostgresTransferRepository(pool)
	transferAlerts := sendemail.NewTransferAlerts(emailService)
	transfersService := transfers.NewTransferService(transfersRepo, coordinator, feedHub, transferAlerts, clk)
	transfersHandler := transfers.NewTransferHandler(transfersService)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// CORS configuration
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins == "" {
		origins = []string{"*"}
	} else {
		parts := strings.Split(allowedOrigins, ",")
		origins = make([]string, 0, len(parts))
		for _, p := range parts {
			o := strings.TrimSpace(p)
			if o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) == 0 {
			origins = []string{"*"}
		}
	}

	allowCreds := strings.EqualFold(os.Getenv("CORS_ALLOW_CREDENTIALS"), "true")

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCreds,
		MaxAge:           12 * time.Hour,
	}))

	usersHandler.RegisterRoutes(router, requireAuth)
	assetsHandler.RegisterRoutes(router, requireAuth)
	assignmentsHandler.RegisterRoutes(router, requireAuth)
	transfersHandler.RegisterRoutes(router, requireAuth)
	feedHandler.RegisterRoutes(router, requireAuth)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	settings := loadTLSSettingsFromEnv()
	if err := settings.Validate(); err != nil {
		log.Fatalf("TLS settings invalid: %v", err)
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		if settings.EnableTLS {
			port = "8443"
		} else {
			port = "8080"
		}
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if !settings.EnableTLS {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("listen (HTTP): %v", err)
			}
			return
		}

		tlsConfig, certFile, keyFile, err := buildTLSConfigWithSettings(settings)
		if err != nil {
			log.Fatalf("TLS setup error: %v", err)
		}
		srv.TLSConfig = tlsConfig

		if certFile != "" && keyFile != "" {
			if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("listen (TLS files): %v", err)
			}
			return
		}
		if err := srv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen (TLS config): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
