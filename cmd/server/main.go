package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segara/lending-engine/internal/config"
	"github.com/segara/lending-engine/internal/handler"
	"github.com/segara/lending-engine/internal/repository"
	"github.com/segara/lending-engine/internal/service"
	"github.com/segara/lending-engine/migrations"
	"github.com/segara/lending-engine/pkg/auth"
	"github.com/segara/lending-engine/pkg/logger"
	"github.com/segara/lending-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zap.L().Sync()

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		zap.L().Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	repaymentRepo := repository.NewRepaymentRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.GetTokenTTL())
	loanService := service.NewLoanService(loanRepo, repaymentRepo, redisClient, cfg)
	userService := service.NewUserService(userRepo, jwtService)

	loanHandler := handler.NewLoanHandler(loanService)
	userHandler := handler.NewUserHandler(userService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(loanHandler, userHandler, healthHandler, jwtService)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		zap.L().Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zap.L().Fatal("Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	loanHandler *handler.LoanHandler,
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
	jwtService *auth.JWTService,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware)
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// Public routes
	public := router.PathPrefix("/api/v1").Subrouter()
	public.HandleFunc("/users", userHandler.Register).Methods("POST")
	public.HandleFunc("/users/login", userHandler.Login).Methods("POST")

	// Authenticated routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware(jwtService))

	api.HandleFunc("/users/me", userHandler.Me).Methods("GET")
	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans", loanHandler.ListLoans).Methods("GET")
	api.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods("GET")
	api.HandleFunc("/repayments/{repaymentId}/payment", loanHandler.MakePayment).Methods("POST")

	// Admin routes
	admin := api.PathPrefix("").Subrouter()
	admin.Use(auth.AdminOnly)
	admin.HandleFunc("/loans/{loanId}/decision", loanHandler.DecideLoan).Methods("PUT")

	return router
}
