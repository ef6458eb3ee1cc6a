package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/meowlab/cat-emotion-service/internal/config"
	"github.com/meowlab/cat-emotion-service/internal/handler"
	"github.com/meowlab/cat-emotion-service/internal/middleware"
	"github.com/meowlab/cat-emotion-service/internal/ml"
	"github.com/meowlab/cat-emotion-service/internal/repository"
	"github.com/meowlab/cat-emotion-service/internal/service"
	"github.com/meowlab/cat-emotion-service/internal/utils/email"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
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
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
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
	repo := repository.NewRepository(db)
	if err := repo.Migrate(); err != nil {
		logger.Fatalf("Failed to migrate schema: %v", err)
	}

	// Model and label artifacts are mandatory; refuse to start without them
	classifier, err := ml.NewClassifier(cfg.ModelPath, cfg.LabelsPath, logger)
	if err != nil {
		logger.Fatalf("Failed to load classifier artifacts: %v", err)
	}

	var mailer service.WelcomeMailer
	if cfg.MailEnabled() {
		mailer = email.NewSender(cfg, logger)
	}
	svc := service.NewService(repo, logger, cfg, mailer)
	h := handler.NewHandler(svc, classifier, ml.NewZeroExtractor(), logger)

	// Nightly cleanup of stale blacklist rows. Housekeeping only; token
	// validity is unaffected.
	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	c := cron.New()
	if _, err := c.AddFunc("@daily", func() {
		n, err := repo.PurgeExpiredBlacklistedTokens(time.Now().Add(-ttl))
		if err != nil {
			logger.Errorf("Blacklist purge failed: %v", err)
			return
		}
		logger.Infof("Purged %d expired blacklist rows", n)
	}); err != nil {
		logger.Fatalf("Failed to schedule blacklist purge: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(svc))
	authRouter.HandleFunc("/auth/me", h.Me).Methods("GET")
	authRouter.HandleFunc("/predict/audio", h.PredictAudio).Methods("POST")

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
