package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/carbonx-dev/carbonx/internal/buildinfo"
	"github.com/carbonx-dev/carbonx/internal/client/config"
	"github.com/carbonx-dev/carbonx/internal/client/router"
	"github.com/spf13/cobra"
)

// newApp is a test seam for NewApp.
var newApp = NewApp

type rootOptions struct {
	configPath string
	serverURL  string
	dataDir    string
	timeout    time.Duration
	logLevel   string
}

// load applies defaults, the config file, then the flags the user set.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		if err := config.LoadFile(o.configPath, cfg); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = o.serverURL
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = o.timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type runner struct {
	opts rootOptions
	in   io.Reader
	out  io.Writer
	app  *App
}

func (r *runner) withApp(fn func(ctx context.Context, a *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return fn(cmd.Context(), r.app, args)
	}
}

func (r *runner) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "carbonx",
		Short:         "Command-line client for CarbonX",
		Long:          "Sign up, log in and reach the user or admin dashboard of a CarbonX server.",
		Version:       buildinfo.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := r.opts.load(cmd)
			if err != nil {
				return err
			}
			app, err := newApp(cmd.Context(), cfg, r.in, r.out)
			if err != nil {
				return err
			}
			r.app = app
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&r.opts.configPath, "config", "c", "", "path to a JSON or YAML config file")
	pf.StringVarP(&r.opts.serverURL, "server", "s", "", "base URL of the CarbonX API (default http://127.0.0.1:5000)")
	pf.StringVarP(&r.opts.dataDir, "data-dir", "d", "", "directory holding the local session database (default .carbonx)")
	pf.DurationVarP(&r.opts.timeout, "timeout", "t", 0, "timeout for each API request (default 10s)")
	pf.StringVarP(&r.opts.logLevel, "log-level", "l", "", "log level: debug, info, warn or error (default warn)")

	root.AddCommand(
		r.signupCmd(),
		r.loginCmd(),
		r.logoutCmd(),
		r.whoamiCmd(),
		r.openCmd(),
		r.calcCmd(),
		r.shellCmd(),
	)
	return root
}

func (r *runner) signupCmd() *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Signup(ctx, name, email, role)
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "", "user or admin")
	return cmd
}

func (r *runner) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and open your dashboard",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Login(ctx, email)
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

func (r *runner) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Logout(ctx)
		}),
	}
}

func (r *runner) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the server thinks you are",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.WhoAmI(ctx)
		}),
	}
}

func (r *runner) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open <path>",
		Short:     "Open a view such as /user/dashboard or /admin/dashboard",
		Args:      cobra.ExactArgs(1),
		ValidArgs: routePaths(),
		Example:   "  carbonx open /admin/dashboard",
		RunE: r.withApp(func(ctx context.Context, a *App, args []string) error {
			return a.Open(ctx, args[0])
		}),
	}
}

// routePaths feeds shell completion for open.
func routePaths() []string {
	rs := router.Routes()
	paths := make([]string, len(rs))
	for i, rt := range rs {
		paths[i] = rt.Path
	}
	return paths
}

func (r *runner) calcCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "calc <num1> <add|multiply> <num2>",
		Short:   "Use the admin calculator",
		Args:    cobra.ExactArgs(3),
		Example: "  carbonx calc 5 add 3\n  carbonx calc -- -2 multiply 4",
		RunE: r.withApp(func(ctx context.Context, a *App, args []string) error {
			return a.Calc(ctx, args)
		}),
	}
}

func (r *runner) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Shell(ctx)
		}),
	}
}

// Execute runs the CLI with args (without the program name).
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	r := &runner{in: in, out: out}
	root := r.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.As(err, new(reportedError)) {
		fmt.Fprintf(errOut, "Error: %s\n", err)
	}
	if r.app != nil {
		err = errors.Join(err, r.app.Close())
	}
	return err
}
