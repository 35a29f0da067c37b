package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/avdeenkov/cardbank/internal/config"
	"github.com/avdeenkov/cardbank/internal/handler"
	"github.com/avdeenkov/cardbank/internal/middleware"
	"github.com/avdeenkov/cardbank/internal/notify"
	"github.com/avdeenkov/cardbank/internal/repository"
	"github.com/avdeenkov/cardbank/internal/scheduler"
	"github.com/avdeenkov/cardbank/internal/secret"
	"github.com/avdeenkov/cardbank/internal/service"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	codec, err := secret.NewCodec(cfg.EncryptionKey)
	if err != nil {
		logger.Fatalf("Failed to initialize codec: %v", err)
	}
	repo := repository.NewRepository(db)

	var notifier service.Notifier
	if cfg.SMTPHost != "" {
		notifier = notify.NewEmailSender(cfg, logger)
	}

	authSvc := service.NewAuthService(repo, cfg.JWTSecret, logger)
	cardSvc := service.NewCardService(repo, codec, logger)
	transferSvc := service.NewTransferService(repo, cardSvc, notifier, logger)
	blockSvc := service.NewBlockRequestService(repo, cardSvc, notifier, logger)
	sweepSvc := service.NewSweepService(repo, logger)
	h := handler.NewHandler(authSvc, cardSvc, transferSvc, blockSvc, logger)

	// Start expiration sweep scheduler
	sched, err := scheduler.New(sweepSvc, cfg.SweepSchedule, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/cards", h.CreateCard).Methods("POST")
	authRouter.HandleFunc("/cards", h.ListCards).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}", h.GetCard).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}", h.UpdateCard).Methods("PUT")
	authRouter.HandleFunc("/cards/{id:[0-9]+}", h.DeleteCard).Methods("DELETE")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/block", h.BlockCard).Methods("POST")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/activate", h.ActivateCard).Methods("POST")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/block-requests", h.CreateBlockRequest).Methods("POST")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/transfers", h.CardTransferHistory).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/stats", h.CardStats).Methods("GET")
	authRouter.HandleFunc("/cards/{id:[0-9]+}/statement", h.Statement).Methods("GET")
	authRouter.HandleFunc("/transfers", h.Transfer).Methods("POST")
	authRouter.HandleFunc("/transfers", h.TransferHistory).Methods("GET")
	authRouter.HandleFunc("/users/{id:[0-9]+}/stats", h.UserStats).Methods("GET")
	authRouter.HandleFunc("/block-requests", h.ListBlockRequests).Methods("GET")
	authRouter.HandleFunc("/block-requests/pending/count", h.PendingBlockRequestCount).Methods("GET")
	authRouter.HandleFunc("/block-requests/pending/cards", h.CardsWithPendingRequests).Methods("GET")
	authRouter.HandleFunc("/block-requests/{id:[0-9]+}/approve", h.ApproveBlockRequest).Methods("POST")
	authRouter.HandleFunc("/block-requests/{id:[0-9]+}/reject", h.RejectBlockRequest).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
