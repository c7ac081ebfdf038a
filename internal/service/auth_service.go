package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"tricys-client/internal/dto"
	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/api"
	"tricys-client/pkg/events"
	"tricys-client/pkg/store"

	"github.com/golang-jwt/jwt/v5"
)

// AuthResult is the uniform outcome of Login and Register.
type AuthResult struct {
	Success bool      `json:"success"`
	User    *dto.User `json:"user,omitempty"`
	Message string    `json:"message,omitempty"`
}

type IAuthService interface {
	InitAuth(ctx context.Context) bool
	Login(ctx context.Context, username, password string) AuthResult
	Register(ctx context.Context, req dto.RegisterRequest) AuthResult
	Logout(ctx context.Context)
	CurrentUser() *dto.User
	IsAuthenticated() bool
	IsAdmin() bool
}

// CredentialClient exchanges credentials for a token and creates accounts.
type CredentialClient interface {
	Login(ctx context.Context, username, password string) (*dto.LoginResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error)
}

type ProfileClient interface {
	GetCurrentUser(ctx context.Context) (*dto.User, error)
}

// AuthService is the anonymous/authenticated session. A persisted token only
// counts once the profile fetch behind it succeeds.
type AuthService struct {
	credentials CredentialClient
	profiles    ProfileClient
	storage     store.KeyValueStore
	publisher   events.Publisher
	logger      logger.ILogger

	mu   sync.RWMutex
	user *dto.User
}

func NewAuthService(credentials CredentialClient, profiles ProfileClient, storage store.KeyValueStore, publisher events.Publisher, log logger.ILogger) *AuthService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &AuthService{
		credentials: credentials,
		profiles:    profiles,
		storage:     storage,
		publisher:   publisher,
		logger:      log,
	}
}

// InitAuth restores the session from the persisted token. Any failure logs
// the session out.
func (s *AuthService) InitAuth(ctx context.Context) bool {
	token := store.Lookup(ctx, s.storage, store.KeyAuthToken)
	if token == "" {
		return false
	}

	if tokenExpired(token, time.Now()) {
		s.logger.Warn("AuthService", "Persisted token expired", nil)
		s.Logout(ctx)
		return false
	}

	user, err := s.profiles.GetCurrentUser(ctx)
	if err != nil {
		s.logger.Warn("AuthService", "Auth restoration failed", map[string]interface{}{"error": err.Error()})
		s.Logout(ctx)
		return false
	}

	s.setUser(user)
	return true
}

func (s *AuthService) Login(ctx context.Context, username, password string) AuthResult {
	resp, err := s.credentials.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, api.ErrMissingToken) {
			return AuthResult{Message: "No access token received"}
		}
		s.logger.Error("AuthService", "Login failed", map[string]interface{}{"username": username, "error": err.Error()})
		return AuthResult{Message: "Invalid credentials"}
	}
	if resp.AccessToken == "" {
		return AuthResult{Message: "No access token received"}
	}

	if err := s.storage.Set(ctx, store.KeyAuthToken, resp.AccessToken); err != nil {
		s.logger.Error("AuthService", "Failed to persist token", map[string]interface{}{"error": err.Error()})
		return AuthResult{Message: "Invalid credentials"}
	}

	user, err := s.profiles.GetCurrentUser(ctx)
	if err != nil {
		s.logger.Error("AuthService", "Profile fetch after login failed", map[string]interface{}{"username": username, "error": err.Error()})
		_ = s.storage.Remove(ctx, store.KeyAuthToken)
		return AuthResult{Message: "Invalid credentials"}
	}

	s.setUser(user)
	return AuthResult{Success: true, User: user}
}

// Register creates the account and, when a password was supplied, logs in
// with it straight away.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) AuthResult {
	resp, err := s.credentials.Register(ctx, req)
	if err != nil {
		msg := "Registration failed"
		if detail, ok := api.DetailMessage(err); ok {
			msg = detail
		}
		return AuthResult{Message: msg}
	}
	if resp.Status != "success" {
		return AuthResult{Message: "Unknown error"}
	}

	if req.Username != "" && req.Password != "" {
		return s.Login(ctx, req.Username, req.Password)
	}
	return AuthResult{Success: true, User: &dto.User{Username: req.Username}}
}

// Logout drops the user and every persisted tricys_ key, not just the token.
func (s *AuthService) Logout(ctx context.Context) {
	s.mu.Lock()
	prev := s.user
	s.user = nil
	s.mu.Unlock()

	if err := store.ClearNamespace(ctx, s.storage); err != nil {
		s.logger.Error("AuthService", "Failed to clear storage", map[string]interface{}{"error": err.Error()})
	}

	if prev != nil {
		s.publish(ctx, events.New(events.TypeUserLogout, map[string]interface{}{"username": prev.Username}))
	}
}

func (s *AuthService) CurrentUser() *dto.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *AuthService) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsAdmin accepts the superuser flag as either true or 1.
func (s *AuthService) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && bool(s.user.IsSuperuser)
}

func (s *AuthService) setUser(user *dto.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	s.logger.Info("AuthService", "User authenticated", map[string]interface{}{"username": user.Username})
	s.publish(context.Background(), events.New(events.TypeUserLogin, map[string]interface{}{
		"user_id":  user.ID.String(),
		"username": user.Username,
	}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("AuthService", "Failed to publish event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
	}
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens are never considered expired here; the server decides.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}
