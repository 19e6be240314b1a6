package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/carbonx-dev/carbonx/internal/client/client"
	"github.com/carbonx-dev/carbonx/internal/client/config"
	"github.com/carbonx-dev/carbonx/internal/client/services"
	"github.com/carbonx-dev/carbonx/internal/client/session"
	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/filex"
	"github.com/carbonx-dev/carbonx/internal/logging"
)

// App ties the CLI commands to the services.
type App struct {
	config      *config.Config
	db          *sql.DB
	authService services.AuthService
	calcService services.CalculatorService
	reader      *bufio.Reader
	out         io.Writer
	logger      logging.Logger
}

// NewApp prepares the data directory and session database and connects the
// services to the API at cfg.ServerURL.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dir

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	db, err := client.InitDatabase(ctx, cfg.DatabasePath())
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	api, err := client.NewHTTPClient(cfg.ServerURL, cfg.RequestTimeout, client.WithClientLogger(logger))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cache := session.NewCache(db, logger)

	return &App{
		config:      cfg,
		db:          db,
		authService: services.NewAuthService(api, cache, logger),
		calcService: services.NewCalculatorService(api, cache, logger),
		reader:      bufio.NewReader(in),
		out:         out,
		logger:      logger,
	}, nil
}

// Close releases the session database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var (
		ve     *common.ValidationError
		apiErr *client.APIError
	)
	switch {
	case errors.Is(err, services.ErrRequestInFlight):
		return "A request is already in progress"
	case errors.Is(err, client.ErrUnavailable):
		return "Server unavailable, try again later"
	case errors.Is(err, common.ErrUnauthenticated):
		return "Please log in"
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return err.Error()
	}
}

// reportedError marks an error the user has already been shown.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// fail reports err and, for redirects, shows the view the user lands on.
// The returned error still matches err so callers can set an exit status.
func (a *App) fail(ctx context.Context, err error) error {
	a.printf("Error: %s\n", describe(err))

	var re *services.RedirectError
	if errors.As(err, &re) {
		if rerr := a.render(ctx, re.Target); rerr != nil {
			a.logger.Warn(ctx, "render redirect target", "target", re.Target, "error", rerr)
		}
	}
	return reportedError{err}
}
