package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/reviewgate-backend/internal/data/db"
	apphttp "github.com/yungbote/reviewgate-backend/internal/http"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      *Config
	Metrics  *observability.Metrics
	Repos    Repos
	Services Services
	Clients  Clients

	closeDB      func() error
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg LogConfig) (*logger.Logger, error) {
	return logger.NewWithOptions(logger.Options{
		Mode:     cfg.Mode,
		Level:    cfg.Level,
		Redact:   cfg.Redact,
		HashSalt: cfg.HashSalt,
	})
}

// OpenDatabase connects to the configured driver. The returned func closes the pool.
func OpenDatabase(log *logger.Logger, cfg DatabaseConfig) (*gorm.DB, func() error, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		gdb, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("SQLite opened", "path", cfg.SQLitePath)
		return gdb, func() error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}, nil
	default:
		pg, err := db.NewPostgresService(log, db.PostgresConfig{
			Host:            cfg.Host,
			Port:            cfg.Port,
			User:            cfg.User,
			Password:        cfg.Password,
			Name:            cfg.Name,
			SSLMode:         cfg.SSLMode,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return pg.DB(), pg.Close, nil
	}
}

func New(ctx context.Context, log *logger.Logger, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	gin.SetMode(cfg.Server.Mode)

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.Init(cfg.Metrics.Enabled)

	theDB, closeDB, err := OpenDatabase(log, cfg.Database)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB, a.closeDB = theDB, closeDB
	if err := db.AutoMigrateAll(theDB); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Clients = clients
	a.Repos = wireRepos(theDB, log)

	a.Services, err = wireServices(theDB, log, cfg, a.Repos, clients, a.Metrics)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	handlers := wireHandlers(log, theDB, a.Services)
	middleware := wireMiddleware(log, cfg)
	a.Server = wireServer(log, cfg, a.Metrics, handlers, middleware)
	return a, nil
}

// Start launches background collectors. It is a no-op once started.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	interval := a.Cfg.Metrics.CollectInterval
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB, interval)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis, interval)
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Start(ctx)
	return a.Server.Run(ctx, a.Cfg.Server.Addr)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			a.Log.Warn("close database", "error", err)
		}
		a.closeDB = nil
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
		a.otelShutdown = nil
	}
	a.Log.Sync()
}
