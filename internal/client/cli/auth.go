package cli

import (
	"context"
	"strings"

	"github.com/carbonx-dev/carbonx/internal/client/client"
	"github.com/carbonx-dev/carbonx/internal/client/router"
	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
)

// getSimpleText, getChoice and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getChoice = GetChoice
var getPassword = GetPassword

var roleChoices = []string{identity.RoleUser.String(), identity.RoleAdmin.String()}

func (a *App) prompt(value *string, label string) error {
	if strings.TrimSpace(*value) != "" {
		return nil
	}
	v, err := getSimpleText(a.reader, label, a.out)
	if err != nil {
		return err
	}
	*value = v
	return nil
}

// Signup creates an account. Missing fields are prompted for; the password
// is always read from the terminal. It does not log in.
func (a *App) Signup(ctx context.Context, name, email, role string) error {
	if err := a.prompt(&name, "Name"); err != nil {
		return err
	}
	if err := a.prompt(&email, "Email"); err != nil {
		return err
	}
	if strings.TrimSpace(role) == "" {
		r, err := getChoice(a.reader, "Role", roleChoices, identity.RoleUser.String(), a.out)
		if err != nil {
			return err
		}
		role = r
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Signup(ctx, client.SignupRequest{
		Name:     name,
		Email:    email,
		Password: string(password),
		Role:     role,
	})
	if err != nil {
		return a.fail(ctx, err)
	}

	a.printf("User registered successfully: %s (%s)\n", u.Email, u.Role)
	return a.render(ctx, router.PathLogin)
}

// Login authenticates and shows the dashboard of the user's role.
func (a *App) Login(ctx context.Context, email string) error {
	if err := a.prompt(&email, "Email"); err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.authService.Login(ctx, email, string(password))
	if err != nil {
		return a.fail(ctx, err)
	}

	a.printf("Logged in as %s (%s)\n", res.Session.User.Name, res.Session.User.Role)
	return a.render(ctx, res.Landing)
}

// Logout forgets the cached session and shows the login view.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return a.fail(ctx, err)
	}
	a.printf("Logged out\n")
	return a.render(ctx, router.PathLogin)
}

// WhoAmI prints the identity the server associates with the cached token.
func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.authService.WhoAmI(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	s, err := a.authService.Current(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	a.printf("id:    %s\nrole:  %s\n", u.ID, u.Role)
	if s != nil {
		if s.User.Name != "" {
			a.printf("name:  %s\n", s.User.Name)
		}
		if s.User.Email != "" {
			a.printf("email: %s\n", s.User.Email)
		}
		if !s.ExpiresAt.IsZero() {
			a.printf("token expires: %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	s, err := a.authService.Current(ctx)
	return err == nil && s != nil
}
