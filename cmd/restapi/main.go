package main

import (
	"context"
	"flag"
	"fmt"
	"hospital-management/internal/appointments"
	"hospital-management/internal/auth"
	"hospital-management/internal/billing"
	"hospital-management/internal/configs"
	"hospital-management/internal/database"
	"hospital-management/internal/logging"
	"hospital-management/internal/metrics"
	"hospital-management/internal/patients"
	"hospital-management/internal/reports"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

var configPath = flag.String("config", "", "Config file path")

// loadConfigurations loads system configurations based on the given config file.
func loadConfigurations() configs.Config {
	if *configPath == "" {
		logrus.Fatal("no config file path was given")
	}
	config, err := configs.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("could not load configurations")
	}
	return config
}

// createDBConnection creates a new database connection based on the given configuration.
func createDBConnection(config configs.Config) database.Connection {
	dbConn, err := database.NewConnection(config)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to the database")
	}
	return dbConn
}

func main() {
	// Load dependencies
	flag.Parse()
	config := loadConfigurations()
	logger := logging.New(config.LogLevel())
	dbConn := createDBConnection(config)

	// Setup the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.Heartbeat("/health"))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(metrics.PrometheusMiddleware)
	router.Use(middleware.SetHeader("Content-type", "application/json"))
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Setup Auth routes, which also provides the authorizer used by the other contexts
	authorizer := auth.Setup(router, logger, config, dbConn)

	patients.Setup(router, logger, authorizer, dbConn)
	appointments.Setup(router, logger, authorizer, dbConn)
	billing.Setup(router, logger, authorizer, dbConn)
	reports.Setup(router, logger, authorizer, dbConn)

	// Creates the HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.ServerPort()),
		Handler:      router,
		ErrorLog:     log.New(logger.WriterLevel(logrus.ErrorLevel), "", 0),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// Channel to listen OS signalling in order to gracefully shutdown the HTTP server and other resources
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	// Starts the server
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server could not listen")
		}
	}()

	logging.PrintlnInfo(logger, "server started listening at", config.ServerPort())

	// Listens until server stop
	<-exit
	logging.PrintlnWarn(logger, "server stopped")

	// Creates a timeout to handle resources release
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer func() {
		dbConn.Close()
		cancel()
	}()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("an error occurred while server is shutting down")
		return
	}

	logging.PrintlnInfo(logger, "server shutdown successfully")
}
