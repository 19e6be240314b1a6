// Package server wires the CarbonX server: storage, token service, auth
// gate, optional Redis throttling and S3 audit archive, and the HTTP and
// gRPC endpoints. It handles graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/carbonx-dev/carbonx/internal/buildinfo"
	"github.com/carbonx-dev/carbonx/internal/cryptox"
	"github.com/carbonx-dev/carbonx/internal/logging"
	"github.com/carbonx-dev/carbonx/internal/server/audit"
	"github.com/carbonx-dev/carbonx/internal/server/auth"
	"github.com/carbonx-dev/carbonx/internal/server/config"
	gs "github.com/carbonx-dev/carbonx/internal/server/grpc"
	"github.com/carbonx-dev/carbonx/internal/server/httpapi"
	"github.com/carbonx-dev/carbonx/internal/server/metrics"
	"github.com/carbonx-dev/carbonx/internal/server/ratelimit"
	"github.com/carbonx-dev/carbonx/internal/server/repositories/repomanager"
	"github.com/carbonx-dev/carbonx/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	dispatch *audit.Dispatcher

	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

// NewApp connects to the configured backends and builds both endpoints.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, using in-memory credential store")
	}
	rm, db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app.db = db

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sink, err := app.auditSink(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenService([]byte(c.SecretKey), c.TokenValidityDuration)
	if err != nil {
		app.Close()
		return nil, err
	}
	for _, w := range c.Warnings() {
		logger.Warn(ctx, w)
	}
	logger.Info(ctx, "token service ready", "validity", tokens.Validity().String())
	hasher, err := cryptox.NewArgon2(cryptox.DefaultParams)
	if err != nil {
		app.Close()
		return nil, err
	}

	userOpts := []services.UserOption{
		services.WithLogger(logger),
		services.WithMetrics(m),
		services.WithAuditSink(sink),
	}
	if c.RedisAddr != "" {
		client, err := ratelimit.NewClient(ctx, c.RedisAddr)
		if err != nil {
			// Throttling is best effort; the server still starts.
			logger.Warn(ctx, "redis unavailable, login throttling disabled", "error", err)
		} else {
			app.redis = client
			userOpts = append(userOpts, services.WithLoginLimiter(ratelimit.New(client, c.LoginMaxAttempts, c.LoginWindow)))
		}
	}
	users := services.NewUserService(app.db, rm, hasher, tokens, userOpts...)

	gateOpts := []auth.GateOption{auth.WithDecisionRecorder(m), auth.WithGateAudit(sink)}

	app.httpServer, err = httpapi.New(httpapi.Deps{
		Address:     c.EndpointAddrHTTP,
		Logger:      logger,
		Users:       users,
		Gate:        auth.NewGate(tokens, "http", gateOpts...),
		Metrics:     m,
		Gatherer:    reg,
		CORSOrigins: c.CORSOrigins,
		Version:     buildinfo.Version(),
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	if c.EndpointAddrGRPC != "" {
		app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, auth.NewGate(tokens, "grpc", gateOpts...))
	}

	return app, nil
}

// auditSink always logs; with a bucket configured it also archives to S3
// through an async dispatcher.
func (app *App) auditSink(ctx context.Context) (audit.Sink, error) {
	logSink := audit.NewLoggerSink(app.logger)
	if app.config.S3Bucket == "" {
		return logSink, nil
	}

	client, err := audit.NewS3Client(ctx, audit.S3Config{
		Region:    app.config.S3Region,
		Endpoint:  app.config.S3BaseEndpoint,
		AccessKey: app.config.S3RootUser,
		SecretKey: app.config.S3RootPassword,
		Bucket:    app.config.S3Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("audit archive init error: %w", err)
	}

	s3Sink := audit.NewS3Sink(client, app.config.S3Bucket, "audit", func(ctx context.Context, err error) {
		app.logger.Error(ctx, "audit archive write failed", "error", err)
	})
	app.dispatch = audit.NewDispatcher(s3Sink, 1024, 0, app.logger)
	return audit.Multi{logSink, app.dispatch}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a signal arrives or an endpoint fails, then releases
// every backend.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	if app.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.grpcServer.Run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				cancelFunc()
			}
		}()
	}

	wg.Wait()
	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases backends. It is safe to call on a partially built App.
func (app *App) Close() {
	if app.dispatch != nil {
		app.dispatch.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
