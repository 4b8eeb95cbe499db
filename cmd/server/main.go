// Package main is the entry point of the application
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/gameclock/internal/auth"
	"github.com/tecu23/gameclock/pkg/config"
	"github.com/tecu23/gameclock/pkg/events"
	"github.com/tecu23/gameclock/pkg/manager"
	"github.com/tecu23/gameclock/pkg/repository"
	"github.com/tecu23/gameclock/pkg/server"
)

// App encapsulates global dependencies
type application struct {
	Auth      *auth.APIKeyAuth
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Manager   *manager.Manager
	Hub       *server.Hub
	Forwarder *events.NATSForwarder
	Server    *http.Server
	Upgrader  websocket.Upgrader

	StartTime time.Time
}

func main() {
	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	presets, err := cfg.Presets()
	if err != nil {
		logger.Fatal("loading presets error", zap.Error(err))
	}

	// Initialize event publisher
	publisher := events.NewPublisher(logger)

	var forwarder *events.NATSForwarder
	if cfg.NATSURL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix

		forwarder, err = events.NewNATSForwarder(natsCfg, logger)
		if err != nil {
			logger.Fatal("connect NATS error", zap.Error(err))
		}
		forwarder.Attach(publisher)
		logger.Info("forwarding game events to NATS",
			zap.String("url", cfg.NATSURL),
			zap.String("subject_prefix", cfg.NATSSubjectPrefix),
		)
	}

	// Initialize repository
	repository := repository.NewInMemoryRepository(logger)

	// Initialize game manager
	gm := manager.NewManager(manager.Config{
		TickInterval: cfg.TickInterval,
		Presets:      presets,
	}, repository, publisher, logger)

	hub := server.NewHub(gm, publisher, logger)

	if len(cfg.APIKeys) == 0 {
		logger.Warn("no API keys configured, every websocket request will be rejected")
	}

	app := &application{
		Auth:      auth.NewAPIKeyAuth(cfg.APIKeys),
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Manager:   gm,
		Hub:       hub,
		Forwarder: forwarder,
		Upgrader:  newUpgrader(cfg.FrontendOrigin),
		StartTime: time.Now(),
	}

	go app.Hub.Run()

	err = app.serve()
	if err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	// Shut down hub
	if app.Hub != nil {
		app.Hub.Shutdown()
	}

	if app.Manager != nil {
		app.Manager.Close()
	}

	if app.Forwarder != nil {
		if err := app.Forwarder.Close(); err != nil {
			app.Logger.Error("closing NATS connection", zap.Error(err))
		}
	}

	app.Logger.Info("All components shut down successfully")
}
