// Package internal contains core application functionality
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"cohortly/internal/config"
	"cohortly/internal/logging"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Application bundles configuration, logging and the fiber server.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Server    *fiber.App
	StartedAt time.Time

	logCloser io.Closer
	serveErr  chan error
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	return NewAppWithRoutes(cfg, MountAppRoutes)
}

// NewAppWithRoutes creates a new application with custom route mounting function
func NewAppWithRoutes(cfg *config.Config, routeMount func(*Application)) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	logger, closer := logging.NewLogger(cfg, nil)

	app := &Application{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
		logCloser: closer,
		serveErr:  make(chan error, 1),
	}
	app.Server = fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		BodyLimit:             cfg.MaxUploadBytes(),
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           time.Minute,
		WriteTimeout:          time.Minute,
	})
	app.Server.Use(recover.New())

	if routeMount != nil {
		routeMount(app)
	}
	return app, nil
}

// StartAsync starts listening in the background.
func (a *Application) StartAsync() error {
	addr := ":" + a.Config.AppPort
	a.Logger.Info("Starting HTTP server", slog.String("addr", addr), slog.String("environment", a.Config.Environment))

	go func() {
		if err := a.Server.Listen(addr); err != nil {
			a.Logger.Error("HTTP server stopped", slog.Any("error", err))
			a.serveErr <- err
		}
	}()

	// Surface immediate bind failures.
	select {
	case err := <-a.serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Shutdown stops the server and releases the log file.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.Server.ShutdownWithContext(ctx)
	if closeErr := a.logCloser.Close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}
