package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/boamahfreda240-hash/Medihealth-Project/internal/config"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/domain/export"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/domain/patient"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/platform/db"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/platform/middleware"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/platform/openapi"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/platform/telemetry"
)

// version is reported in the OpenAPI document.
var version = "dev"

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// newServer wires middleware and routes over an opened store.
func newServer(cfg *config.Config, logger zerolog.Logger, st *store) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := telemetry.NewMetrics()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.Audit(logger))

	api := e.Group("/api")
	api.GET("/health", db.LivenessHandler(time.Now))
	api.GET("/health/db", db.HealthHandler(st.driver, st.health))
	api.GET("/metrics", metrics.Handler())
	openapi.NewGenerator(version, "/api").RegisterRoutes(api)

	patientSvc := patient.NewService(st.patients, st.records)
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	exportSvc := export.NewService(st.patients, st.records)
	export.NewHandler(exportSvc).RegisterRoutes(api)

	return e
}
