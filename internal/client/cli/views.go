package cli

import (
	"context"

	"github.com/carbonx-dev/carbonx/internal/client/router"
)

// Open navigates to path through the route guard and renders the view that
// results.
func (a *App) Open(ctx context.Context, path string) error {
	d, err := a.authService.Navigate(ctx, path)
	if err != nil {
		return a.fail(ctx, err)
	}

	if d.Redirect {
		switch d.State {
		case router.Unauthenticated:
			a.printf("%s: not available, redirecting to %s\n", path, d.Target)
		case router.InsufficientRole:
			a.printf("%s: access denied for your role, redirecting to %s\n", path, d.Target)
		}
	}
	return a.render(ctx, d.Target)
}

// render prints the view at target. Dashboards read the cached session.
func (a *App) render(ctx context.Context, target string) error {
	switch target {
	case router.PathLogin:
		a.printf("== Login ==\nRun `login` to sign in or `signup` to create an account.\n")
		return nil
	case router.PathSignup:
		a.printf("== Sign up ==\nRun `signup` and choose a role (user or admin).\n")
		return nil
	}

	s, err := a.authService.Current(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return a.render(ctx, router.PathLogin)
	}

	switch target {
	case router.PathAdminDashboard:
		a.printf("== Admin dashboard ==\nWelcome, %s (%s)\n", s.User.Name, s.User.Email)
		a.printf("Calculator: calc <num1> <add|multiply> <num2>\n")
	default:
		a.printf("== User dashboard ==\nWelcome, %s (%s)\nRole: %s\n", s.User.Name, s.User.Email, s.User.Role)
	}
	return nil
}
