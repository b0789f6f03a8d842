// Package server wires configuration, storage, services and the HTTP API
// together and runs them until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/stavros/internal/logging"
	"github.com/dmitrijs2005/stavros/internal/server/config"
	"github.com/dmitrijs2005/stavros/internal/server/httpapi"
	"github.com/dmitrijs2005/stavros/internal/server/httpapi/ratelimit"
	"github.com/dmitrijs2005/stavros/internal/server/notify"
	"github.com/dmitrijs2005/stavros/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/stavros/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	repomanager repomanager.RepositoryManager
}

// NewApp opens the database, applies migrations when configured to and
// connects to Redis when an address is set.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	m := repomanager.NewPostgresRepositoryManager()

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if c.AutoMigrate {
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration error: %w", err)
		}
		logger.Info(ctx, "migrations applied")
	}

	app := &App{config: c, logger: logger, db: db, repomanager: m}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "redis unavailable, rate limits will fail open", "addr", c.RedisAddr, "error", err)
		}
	}

	return app, nil
}

func (app *App) notifier() (notify.Notifier, error) {
	if app.config.SMTPAddr == "" {
		app.logger.Warn(context.Background(), "SMTP not configured, emails will be logged")
		return notify.NewLogNotifier(app.logger), nil
	}
	n, err := notify.NewSMTPNotifier(app.config.SMTPAddr, app.config.SMTPUser, app.config.SMTPPassword, app.config.MailFrom)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (app *App) rateLimit() ratelimit.Policy {
	p := ratelimit.Policy{
		Limiter: ratelimit.NewLocalLimiter(),
		Limit:   app.config.RateLimitPerMinute,
		Window:  time.Minute,
		Mode:    ratelimit.FailClosed,
		Scope:   "auth",
		Logger:  app.logger,
	}
	if app.redis != nil {
		p.Limiter = ratelimit.NewRedisLimiter(app.redis, "stavros:rl")
		p.Mode = ratelimit.FailOpen
	}
	return p
}

func (app *App) httpServer() (*httpapi.HTTPServer, error) {
	n, err := app.notifier()
	if err != nil {
		return nil, fmt.Errorf("notifier init error: %w", err)
	}

	as := services.NewAccountService(app.db, app.repomanager, n, app.logger, app.config)
	us := services.NewUserService(app.db, app.repomanager, app.config)
	cs := services.NewContentService(app.db, app.repomanager)
	ss := services.NewStorageService(app.db, app.repomanager, app.config)

	return httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, as, us, cs, ss, app.config.SecretKey,
		httpapi.WithAuthRateLimit(app.rateLimit()),
		httpapi.WithHealthCheck(app.db.PingContext),
		httpapi.WithErrorTracking(app.config.SentryDSN),
	), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and runs the token janitor until a signal arrives or the
// HTTP server fails, then releases the database and Redis connections.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	srv, err := app.httpServer()
	if err != nil {
		return err
	}
	janitor := services.NewJanitor(app.db, app.repomanager, app.logger, app.config.JanitorInterval)

	var (
		wg     sync.WaitGroup
		runErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server error", "error", err)
			runErr = err
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		janitor.Run(ctx)
	}()

	wg.Wait()
	app.close()

	app.logger.Info(context.Background(), "App stopped")
	return runErr
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(context.Background(), "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(context.Background(), "db close error", "error", err)
	}
}
