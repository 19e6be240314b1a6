// Package router decides which CLI view may be shown for a given session.
//
// It is advisory: the server re-checks the token and role on every API call.
package router

import (
	"path"
	"slices"
	"strings"

	"github.com/carbonx-dev/carbonx/internal/identity"
)

const (
	PathLogin          = "/login"
	PathSignup         = "/signup"
	PathUserDashboard  = "/user/dashboard"
	PathAdminDashboard = "/admin/dashboard"
)

// State is the outcome of evaluating a navigation.
type State int

const (
	Unauthenticated State = iota
	InsufficientRole
	Admitted
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case InsufficientRole:
		return "insufficient_role"
	case Admitted:
		return "admitted"
	default:
		return "unknown"
	}
}

// Route is one entry of the route table. A nil Allowed slice marks a public
// route.
type Route struct {
	Path    string
	Allowed []identity.Role
}

// Public reports whether the route needs no session.
func (r Route) Public() bool { return r.Allowed == nil }

var routes = map[string]Route{
	PathLogin:          {Path: PathLogin},
	PathSignup:         {Path: PathSignup},
	PathUserDashboard:  {Path: PathUserDashboard, Allowed: []identity.Role{identity.RoleUser, identity.RoleAdmin}},
	PathAdminDashboard: {Path: PathAdminDashboard, Allowed: []identity.Role{identity.RoleAdmin}},
}

// Lookup returns the route registered for p after cleaning it.
func Lookup(p string) (Route, bool) {
	r, ok := routes[clean(p)]
	return r, ok
}

// Routes lists the known routes in a stable order.
func Routes() []Route {
	return []Route{routes[PathLogin], routes[PathSignup], routes[PathUserDashboard], routes[PathAdminDashboard]}
}

// Decision is the result of Decide. Target is the path to render: the
// requested one when admitted, the redirect otherwise.
type Decision struct {
	State    State
	Target   string
	Redirect bool
}

// Evaluate classifies a navigation to a protected route. role is nil when
// there is no session.
func Evaluate(route Route, role *identity.Role) State {
	if route.Public() {
		return Admitted
	}
	if role == nil {
		return Unauthenticated
	}
	if !slices.Contains(route.Allowed, *role) {
		return InsufficientRole
	}
	return Admitted
}

// Decide maps a requested path and the cached role onto the view to show.
// "/" and unknown paths go to the login view.
func Decide(requested string, role *identity.Role) Decision {
	route, ok := Lookup(requested)
	if !ok {
		return Decision{State: Unauthenticated, Target: PathLogin, Redirect: true}
	}

	state := Evaluate(route, role)
	switch state {
	case Unauthenticated:
		return Decision{State: state, Target: PathLogin, Redirect: true}
	case InsufficientRole:
		return Decision{State: state, Target: DashboardFor(*role), Redirect: true}
	default:
		return Decision{State: state, Target: route.Path}
	}
}

// DashboardFor is the landing view of a role.
func DashboardFor(role identity.Role) string {
	if role == identity.RoleAdmin {
		return PathAdminDashboard
	}
	return PathUserDashboard
}

func clean(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
