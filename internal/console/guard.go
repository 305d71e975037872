package console

import "watchtower.dev/internal/policy"

// Outcome is the result of a navigation attempt.
type Outcome int

const (
	Render Outcome = iota
	RedirectSignIn
	RedirectForbidden
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case RedirectSignIn:
		return "redirect-sign-in"
	case RedirectForbidden:
		return "redirect-forbidden"
	default:
		return "unknown"
	}
}

// Navigation describes where the console ends up. Path is the location to
// show; From is the originally requested location on RedirectSignIn.
type Navigation struct {
	Outcome Outcome
	Path    string
	View    policy.View
	From    string
}

type sessionReader interface {
	Current() Session
}

// Guard evaluates views against the local session using the shared policy
// table. It never talks to the server.
type Guard struct {
	session sessionReader
}

func NewGuard(session *SessionStore) *Guard {
	return &Guard{session: session}
}

// Navigate resolves p for the current session.
func (g *Guard) Navigate(p string) Navigation {
	sess := g.session.Current()
	p = policy.Clean(p)

	view, ok := policy.ViewFor(p)
	if !ok {
		p = policy.Home(sess.Role())
		view, ok = policy.ViewFor(p)
		if !ok {
			return Navigation{Outcome: RedirectForbidden, Path: policy.ForbiddenPath}
		}
	}

	if view.Rule.Public() {
		return Navigation{Outcome: Render, Path: p, View: view}
	}
	if sess.AccessToken == "" {
		signIn, _ := policy.ViewFor(policy.SignInPath)
		return Navigation{Outcome: RedirectSignIn, Path: policy.SignInPath, View: signIn, From: p}
	}
	if !view.Rule.Allows(sess.Role()) {
		denied, _ := policy.ViewFor(policy.ForbiddenPath)
		return Navigation{Outcome: RedirectForbidden, Path: policy.ForbiddenPath, View: denied}
	}
	return Navigation{Outcome: Render, Path: p, View: view}
}

// AfterLogin returns the location to open once sign-in succeeds: the
// remembered location when it is now reachable, otherwise the role's home.
func (g *Guard) AfterLogin(nav Navigation) string {
	home := policy.Home(g.session.Current().Role())
	if nav.Outcome != RedirectSignIn || nav.From == "" {
		return home
	}
	next := g.Navigate(nav.From)
	if next.Outcome != Render {
		return home
	}
	return next.Path
}
