package router

import (
	"context"
	"errors"

	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/store"
)

const (
	module  = "RouterGuard"
	maxHops = 5
)

var ErrRedirectLoop = errors.New("router: too many redirects")

// Session is the slice of the auth service the guard consults.
type Session interface {
	IsAuthenticated() bool
	InitAuth(ctx context.Context) bool
	IsAdmin() bool
}

type Notifier interface {
	Toast(kind, title, message string) int64
}

// Decision is the guard's verdict for one navigation. Redirect is nil when
// the navigation may proceed.
type Decision struct {
	Redirect *Location `json:"redirect,omitempty"`
}

func (d Decision) Allowed() bool { return d.Redirect == nil }

type Guard struct {
	session  Session
	storage  store.KeyValueStore
	notifier Notifier
	logger   logger.ILogger
}

func NewGuard(session Session, storage store.KeyValueStore, notifier Notifier, log logger.ILogger) *Guard {
	return &Guard{session: session, storage: storage, notifier: notifier, logger: log}
}

// Before checks one navigation: session restore, authentication, the admin
// flag and finally project context.
func (g *Guard) Before(ctx context.Context, to Location) Decision {
	authenticated := g.session.IsAuthenticated()
	if !authenticated {
		authenticated = g.session.InitAuth(ctx)
	}

	if RequiresAuth(to.Name) && !authenticated {
		g.notify("info", "AUTH REQUIRED", "Please login to access the system.")
		return redirect(RouteUser)
	}

	g.logger.Debug(module, "Accessing route", map[string]interface{}{"route": to.Name})

	if to.Name == RouteAdmin && !g.session.IsAdmin() {
		g.notify("error", "ACCESS DENIED", "Admin privileges required.")
		return redirect(RouteHome)
	}

	if ProjectScoped(to.Name) && to.Query[ProjectQuery] == "" {
		cached := store.Lookup(ctx, g.storage, store.KeyLastProjectID)
		if cached == "" {
			g.notify("warning", "NO PROJECT SELECTED", "Please select a project to proceed.")
			return redirect(RouteUser)
		}
		next := to
		next.Query = make(map[string]string, len(to.Query)+1)
		for k, v := range to.Query {
			next.Query[k] = v
		}
		next.Query[ProjectQuery] = cached
		return Decision{Redirect: &next}
	}
	return Decision{}
}

// Navigate runs the guard until a target is accepted and returns it.
func (g *Guard) Navigate(ctx context.Context, to Location) (Location, error) {
	for i := 0; i < maxHops; i++ {
		d := g.Before(ctx, to)
		if d.Allowed() {
			return to, nil
		}
		to = *d.Redirect
	}
	g.logger.Error(module, "Redirect loop", map[string]interface{}{"route": to.Name})
	return to, ErrRedirectLoop
}

func (g *Guard) notify(kind, title, message string) {
	if g.notifier != nil {
		g.notifier.Toast(kind, title, message)
	}
}

func redirect(name string) Decision {
	return Decision{Redirect: &Location{Name: name}}
}
