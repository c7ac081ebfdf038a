package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tricys-client/internal/dto"
	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/api"
	"tricys-client/pkg/events"
	"tricys-client/pkg/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentials struct {
	loginResp *dto.LoginResponse
	loginErr  error
	regResp   *dto.RegisterResponse
	regErr    error
	logins    int
}

func (f *fakeCredentials) Login(_ context.Context, _, _ string) (*dto.LoginResponse, error) {
	f.logins++
	return f.loginResp, f.loginErr
}

func (f *fakeCredentials) Register(_ context.Context, _ dto.RegisterRequest) (*dto.RegisterResponse, error) {
	return f.regResp, f.regErr
}

type fakeProfiles struct {
	user  *dto.User
	err   error
	calls int
}

func (f *fakeProfiles) GetCurrentUser(context.Context) (*dto.User, error) {
	f.calls++
	return f.user, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func newAuth(creds *fakeCredentials, profiles *fakeProfiles) (*AuthService, *store.MemoryStore, *recordingPublisher) {
	storage := store.NewMemoryStore()
	pub := &recordingPublisher{}
	return NewAuthService(creds, profiles, storage, pub, logger.NewNopLogger()), storage, pub
}

func TestLogoutThenInitAuthWithoutToken(t *testing.T) {
	profiles := &fakeProfiles{user: &dto.User{ID: "1", Username: "alice"}}
	svc, _, _ := newAuth(&fakeCredentials{}, profiles)
	ctx := context.Background()

	svc.Logout(ctx)
	assert.False(t, svc.InitAuth(ctx))
	assert.False(t, svc.IsAuthenticated())
	assert.Zero(t, profiles.calls)
}

func TestInitAuthRestoresSession(t *testing.T) {
	profiles := &fakeProfiles{user: &dto.User{ID: "1", Username: "alice"}}
	svc, storage, pub := newAuth(&fakeCredentials{}, profiles)
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, store.KeyAuthToken, "opaque-token"))

	assert.True(t, svc.InitAuth(ctx))
	assert.True(t, svc.IsAuthenticated())
	assert.Equal(t, "alice", svc.CurrentUser().Username)
	assert.Equal(t, []string{events.TypeUserLogin}, pub.types())
}

func TestInitAuthFailureLogsOut(t *testing.T) {
	profiles := &fakeProfiles{err: &api.Error{StatusCode: 401}}
	svc, storage, _ := newAuth(&fakeCredentials{}, profiles)
	ctx := context.Background()
	require.NoError(t, storage.Set(ctx, store.KeyAuthToken, "stale"))
	require.NoError(t, storage.Set(ctx, store.KeyLastProjectID, "7"))

	assert.False(t, svc.InitAuth(ctx))
	assert.Equal(t, "", store.Lookup(ctx, storage, store.KeyAuthToken))
	assert.Equal(t, "", store.Lookup(ctx, storage, store.KeyLastProjectID))
}

func TestInitAuthSkipsFetchForExpiredJWT(t *testing.T) {
	profiles := &fakeProfiles{user: &dto.User{ID: "1", Username: "alice"}}
	svc, storage, _ := newAuth(&fakeCredentials{}, profiles)
	ctx := context.Background()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	require.NoError(t, storage.Set(ctx, store.KeyAuthToken, token))

	assert.False(t, svc.InitAuth(ctx))
	assert.Zero(t, profiles.calls)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		creds    *fakeCredentials
		profiles *fakeProfiles
		success  bool
		message  string
	}{
		{
			name:     "success",
			creds:    &fakeCredentials{loginResp: &dto.LoginResponse{AccessToken: "tok"}},
			profiles: &fakeProfiles{user: &dto.User{ID: "1", Username: "alice"}},
			success:  true,
		},
		{
			name:     "missing token",
			creds:    &fakeCredentials{loginErr: api.ErrMissingToken},
			profiles: &fakeProfiles{},
			message:  "No access token received",
		},
		{
			name:     "empty token",
			creds:    &fakeCredentials{loginResp: &dto.LoginResponse{}},
			profiles: &fakeProfiles{},
			message:  "No access token received",
		},
		{
			name:     "rejected",
			creds:    &fakeCredentials{loginErr: &api.Error{StatusCode: 401}},
			profiles: &fakeProfiles{},
			message:  "Invalid credentials",
		},
		{
			name:     "profile fetch fails",
			creds:    &fakeCredentials{loginResp: &dto.LoginResponse{AccessToken: "tok"}},
			profiles: &fakeProfiles{err: errors.New("boom")},
			message:  "Invalid credentials",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, storage, _ := newAuth(tc.creds, tc.profiles)
			ctx := context.Background()

			res := svc.Login(ctx, "alice", "pw")
			assert.Equal(t, tc.success, res.Success)
			assert.Equal(t, tc.message, res.Message)
			assert.Equal(t, tc.success, svc.IsAuthenticated())
			if tc.success {
				assert.Equal(t, "tok", store.Lookup(ctx, storage, store.KeyAuthToken))
			} else {
				assert.Equal(t, "", store.Lookup(ctx, storage, store.KeyAuthToken))
			}
		})
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("auto login with password", func(t *testing.T) {
		creds := &fakeCredentials{
			regResp:   &dto.RegisterResponse{Status: "success"},
			loginResp: &dto.LoginResponse{AccessToken: "tok"},
		}
		svc, _, _ := newAuth(creds, &fakeProfiles{user: &dto.User{ID: "2", Username: "bob"}})
		res := svc.Register(ctx, dto.RegisterRequest{Username: "bob", Password: "pw"})
		assert.True(t, res.Success)
		assert.Equal(t, 1, creds.logins)
		assert.True(t, svc.IsAuthenticated())
	})

	t.Run("no password stays anonymous", func(t *testing.T) {
		creds := &fakeCredentials{regResp: &dto.RegisterResponse{Status: "success"}}
		svc, _, _ := newAuth(creds, &fakeProfiles{})
		res := svc.Register(ctx, dto.RegisterRequest{Username: "bob"})
		assert.True(t, res.Success)
		assert.Equal(t, "bob", res.User.Username)
		assert.Zero(t, creds.logins)
		assert.False(t, svc.IsAuthenticated())
	})

	t.Run("unexpected status", func(t *testing.T) {
		svc, _, _ := newAuth(&fakeCredentials{regResp: &dto.RegisterResponse{Status: "pending"}}, &fakeProfiles{})
		res := svc.Register(ctx, dto.RegisterRequest{Username: "bob"})
		assert.False(t, res.Success)
		assert.Equal(t, "Unknown error", res.Message)
	})

	t.Run("server detail", func(t *testing.T) {
		regErr := &api.Error{StatusCode: 400, Body: []byte(`{"detail": "Username already registered"}`)}
		svc, _, _ := newAuth(&fakeCredentials{regErr: regErr}, &fakeProfiles{})
		res := svc.Register(ctx, dto.RegisterRequest{Username: "bob"})
		assert.Equal(t, "Username already registered", res.Message)
	})

	t.Run("generic failure", func(t *testing.T) {
		svc, _, _ := newAuth(&fakeCredentials{regErr: errors.New("dial tcp: refused")}, &fakeProfiles{})
		res := svc.Register(ctx, dto.RegisterRequest{Username: "bob"})
		assert.Equal(t, "Registration failed", res.Message)
	})
}

func TestLogoutClearsNamespace(t *testing.T) {
	profiles := &fakeProfiles{user: &dto.User{ID: "1", Username: "alice", IsSuperuser: true}}
	svc, storage, pub := newAuth(&fakeCredentials{loginResp: &dto.LoginResponse{AccessToken: "tok"}}, profiles)
	ctx := context.Background()

	require.True(t, svc.Login(ctx, "alice", "pw").Success)
	assert.True(t, svc.IsAdmin())
	require.NoError(t, storage.Set(ctx, store.KeyLastProjectID, "3"))
	require.NoError(t, storage.Set(ctx, "unrelated", "keep"))

	svc.Logout(ctx)

	assert.False(t, svc.IsAuthenticated())
	assert.False(t, svc.IsAdmin())
	assert.Nil(t, svc.CurrentUser())
	keys, err := storage.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"unrelated"}, keys)
	assert.Equal(t, []string{events.TypeUserLogin, events.TypeUserLogout}, pub.types())
}
