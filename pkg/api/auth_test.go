package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"tricys-client/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSendsPasswordGrant(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token": "tok", "token_type": "bearer"}`)
	})

	resp, err := NewAuthAPI(client).Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
}

func TestLoginWithoutToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token_type": "bearer"}`)
	})

	_, err := NewAuthAPI(client).Login(context.Background(), "alice", "s3cret")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLoginRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail": "Incorrect username or password"}`)
	})

	_, err := NewAuthAPI(client).Login(context.Background(), "alice", "bad")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	detail, ok := apiErr.Detail()
	assert.True(t, ok)
	assert.Equal(t, "Incorrect username or password", detail)
}

func TestRegisterPostsJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "Alice A", body["full_name"])
		_, _ = io.WriteString(w, `{"status": "success", "msg": "created"}`)
	})

	resp, err := NewAuthAPI(client).Register(context.Background(), dto.RegisterRequest{
		Username: "alice",
		Password: "pw",
		FullName: "Alice A",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Status)
}

func TestRegisterRejectsInvalidRequestLocally(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := NewAuthAPI(client).Register(context.Background(), dto.RegisterRequest{Username: "al"})
	assert.Error(t, err)
	assert.False(t, called)
}
