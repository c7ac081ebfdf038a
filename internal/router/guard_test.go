package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/store"
)

type fakeSession struct {
	authenticated bool
	restores      bool
	admin         bool
	initCalls     int
}

func (f *fakeSession) IsAuthenticated() bool { return f.authenticated }
func (f *fakeSession) IsAdmin() bool         { return f.admin }

func (f *fakeSession) InitAuth(context.Context) bool {
	f.initCalls++
	if f.restores {
		f.authenticated = true
	}
	return f.authenticated
}

type toast struct{ kind, title string }

type recordingNotifier struct{ toasts []toast }

func (r *recordingNotifier) Toast(kind, title, _ string) int64 {
	r.toasts = append(r.toasts, toast{kind, title})
	return int64(len(r.toasts))
}

func newGuard(session *fakeSession, storage store.KeyValueStore) (*Guard, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewGuard(session, storage, n, logger.NewNopLogger()), n
}

func TestGuardPublicRoutes(t *testing.T) {
	for _, name := range []string{RouteHome, RouteUser, RouteHelp} {
		session := &fakeSession{}
		g, n := newGuard(session, store.NewMemoryStore())

		d := g.Before(context.Background(), Location{Name: name})
		assert.True(t, d.Allowed(), name)
		assert.Empty(t, n.toasts)
		assert.Equal(t, 1, session.initCalls, "restore is attempted even for public pages")
	}
}

func TestGuardRequiresAuth(t *testing.T) {
	g, n := newGuard(&fakeSession{}, store.NewMemoryStore())

	d := g.Before(context.Background(), Location{Name: RouteAnalysis})
	require.False(t, d.Allowed())
	assert.Equal(t, RouteUser, d.Redirect.Name)
	assert.Equal(t, []toast{{"info", "AUTH REQUIRED"}}, n.toasts)
}

func TestGuardRestoresSession(t *testing.T) {
	session := &fakeSession{restores: true}
	g, n := newGuard(session, store.NewMemoryStore())

	d := g.Before(context.Background(), Location{Name: RouteAnalysis})
	assert.True(t, d.Allowed())
	assert.Empty(t, n.toasts)

	g.Before(context.Background(), Location{Name: RouteAnalysis})
	assert.Equal(t, 1, session.initCalls, "no restore once authenticated")
}

func TestGuardAdmin(t *testing.T) {
	g, n := newGuard(&fakeSession{authenticated: true}, store.NewMemoryStore())
	d := g.Before(context.Background(), Location{Name: RouteAdmin})
	require.False(t, d.Allowed())
	assert.Equal(t, RouteHome, d.Redirect.Name)
	assert.Equal(t, []toast{{"error", "ACCESS DENIED"}}, n.toasts)

	g, _ = newGuard(&fakeSession{authenticated: true, admin: true}, store.NewMemoryStore())
	assert.True(t, g.Before(context.Background(), Location{Name: RouteAdmin}).Allowed())
}

func TestGuardProjectContext(t *testing.T) {
	ctx := context.Background()

	t.Run("no cached project", func(t *testing.T) {
		g, n := newGuard(&fakeSession{authenticated: true}, store.NewMemoryStore())
		d := g.Before(ctx, Location{Name: RouteMonitor})
		require.False(t, d.Allowed())
		assert.Equal(t, RouteUser, d.Redirect.Name)
		assert.Equal(t, []toast{{"warning", "NO PROJECT SELECTED"}}, n.toasts)
	})

	t.Run("cached project is appended", func(t *testing.T) {
		storage := store.NewMemoryStore()
		require.NoError(t, storage.Set(ctx, store.KeyLastProjectID, "42"))
		g, n := newGuard(&fakeSession{authenticated: true}, storage)

		to := Location{Name: RouteComponentDetail, Params: map[string]string{"id": "pump"}, Query: map[string]string{"tab": "model"}}
		d := g.Before(ctx, to)
		require.False(t, d.Allowed())
		assert.Equal(t, Location{
			Name:   RouteComponentDetail,
			Params: map[string]string{"id": "pump"},
			Query:  map[string]string{"tab": "model", ProjectQuery: "42"},
		}, *d.Redirect)
		assert.Empty(t, n.toasts)
		assert.NotContains(t, to.Query, ProjectQuery, "the original target is not mutated")

		final, err := g.Navigate(ctx, to)
		require.NoError(t, err)
		assert.Equal(t, "42", final.Query[ProjectQuery])
	})

	t.Run("explicit project passes", func(t *testing.T) {
		g, _ := newGuard(&fakeSession{authenticated: true}, store.NewMemoryStore())
		d := g.Before(ctx, Location{Name: RouteConfig, Query: map[string]string{ProjectQuery: "7"}})
		assert.True(t, d.Allowed())
	})

	t.Run("demo is not project scoped", func(t *testing.T) {
		g, _ := newGuard(&fakeSession{authenticated: true}, store.NewMemoryStore())
		assert.True(t, g.Before(ctx, Location{Name: RouteDemo}).Allowed())
	})
}

func TestNavigateFollowsRedirects(t *testing.T) {
	g, n := newGuard(&fakeSession{}, store.NewMemoryStore())

	final, err := g.Navigate(context.Background(), Location{Name: RouteResult})
	require.NoError(t, err)
	assert.Equal(t, RouteUser, final.Name)
	assert.Len(t, n.toasts, 1)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		path string
		want Location
	}{
		{"/", Location{Name: RouteHome}},
		{"/vis?projectId=3", Location{Name: RouteConfig, Query: map[string]string{ProjectQuery: "3"}}},
		{"/component/Pump%20A/", Location{Name: RouteComponentDetail, Params: map[string]string{"id": "Pump A"}}},
		{"/admin", Location{Name: RouteAdmin}},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := Resolve("/nowhere")
	assert.ErrorIs(t, err, ErrUnknownRoute)
}

func TestPathRoundTrip(t *testing.T) {
	p, err := Path(Location{Name: RouteComponentDetail, Params: map[string]string{"id": "pump"}, Query: map[string]string{ProjectQuery: "9"}})
	require.NoError(t, err)
	assert.Equal(t, "/component/pump?projectId=9", p)

	loc, err := Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, "pump", loc.Params["id"])
}
