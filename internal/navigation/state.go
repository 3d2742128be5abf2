// Package navigation decides which route the UI may show from session and onboarding state alone.
package navigation

import (
	"path"
	"strings"

	"card-assistant-backend/internal/domain"
)

type State int

const (
	Unknown State = iota
	Unauthenticated
	AuthenticatedNewUnonboarded
	AuthenticatedOnboarded
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedNewUnonboarded:
		return "authenticated_new_unonboarded"
	case AuthenticatedOnboarded:
		return "authenticated_onboarded"
	default:
		return "unknown"
	}
}

func (s State) Authenticated() bool {
	return s == AuthenticatedNewUnonboarded || s == AuthenticatedOnboarded
}

// Event is anything that may move the machine.
type Event interface {
	event()
}

// SessionChanged carries a session snapshot plus the local flags read when it arrived.
type SessionChanged struct {
	Authenticated bool
	Flags         domain.OnboardingFlags
}

// OnboardingChanged is a local flag write that is not a completion, skip or reset.
type OnboardingChanged struct {
	Flags domain.OnboardingFlags
}

type OnboardingCompleted struct{}

type OnboardingSkipped struct{}

// OnboardingRestarted follows an explicit onboarding reset.
type OnboardingRestarted struct{}

func (SessionChanged) event()      {}
func (OnboardingChanged) event()   {}
func (OnboardingCompleted) event() {}
func (OnboardingSkipped) event()   {}
func (OnboardingRestarted) event() {}

// Reduce is the transition function. Unlisted pairs leave the state unchanged.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case SessionChanged:
		if !ev.Authenticated {
			return Unauthenticated
		}
		if s.Authenticated() {
			return s
		}
		if ev.Flags.IsNewUser && !ev.Flags.HasCompletedOnboarding {
			return AuthenticatedNewUnonboarded
		}
		return AuthenticatedOnboarded
	case OnboardingCompleted, OnboardingSkipped:
		if s == AuthenticatedNewUnonboarded {
			return AuthenticatedOnboarded
		}
	case OnboardingRestarted:
		if s == AuthenticatedOnboarded {
			return AuthenticatedNewUnonboarded
		}
	}
	return s
}

// Routes
const (
	RouteLogin      = "/login"
	RouteOnboarding = "/onboarding"
	RouteHome       = "/home"
)

type routeClass int

const (
	classProtected routeClass = iota
	classAuth
	classOnboarding
	classPublic
)

var authRoutes = map[string]bool{
	"/login":           true,
	"/signup":          true,
	"/auth/callback":   true,
	"/forgot-password": true,
}

var publicRoutes = map[string]bool{
	"/":      true,
	"/about": true,
}

func classify(route string) routeClass {
	switch {
	case authRoutes[route]:
		return classAuth
	case route == RouteOnboarding || strings.HasPrefix(route, RouteOnboarding+"/"):
		return classOnboarding
	case publicRoutes[route]:
		return classPublic
	default:
		return classProtected
	}
}

// Normalize drops query, fragment and trailing slashes.
func Normalize(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return path.Clean(route)
}

// Home is where an authenticated state lands.
func Home(s State) string {
	switch s {
	case AuthenticatedNewUnonboarded:
		return RouteOnboarding
	case AuthenticatedOnboarded:
		return RouteHome
	default:
		return RouteLogin
	}
}

type Decision struct {
	Route    string `json:"route"`
	Redirect bool   `json:"redirect"`
	State    string `json:"state"`
}

// Resolve applies the redirect policy to a requested route. Nothing is redirected while Unknown.
func Resolve(s State, route string) Decision {
	route = Normalize(route)
	allow := Decision{Route: route, State: s.String()}
	redirect := func(to string) Decision {
		if to == route {
			return allow
		}
		return Decision{Route: to, Redirect: true, State: s.String()}
	}

	class := classify(route)
	switch s {
	case Unauthenticated:
		if class == classProtected || class == classOnboarding {
			return redirect(RouteLogin)
		}
	case AuthenticatedNewUnonboarded:
		if class == classAuth || class == classProtected {
			return redirect(RouteOnboarding)
		}
	case AuthenticatedOnboarded:
		if class == classAuth {
			return redirect(RouteHome)
		}
	}
	return allow
}
