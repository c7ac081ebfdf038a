package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tricys-client/internal/dto"

	"golang.org/x/oauth2"
)

const loginRoute = "/auth/login"

type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

// Login performs the OAuth2 password grant against /auth/login. The form is
// sent with the client's instrumented http.Client so it is traced and counted
// like every other call.
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	cfg := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.client.URL(loginRoute),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(withRoute(ctx, loginRoute), oauth2.HTTPClient, a.client.HTTPClient())

	tok, err := cfg.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, a.client.fail(translateTokenError(err))
	}
	if tok.AccessToken == "" {
		return nil, a.client.fail(ErrMissingToken)
	}
	return &dto.LoginResponse{AccessToken: tok.AccessToken, TokenType: tok.TokenType}, nil
}

// Register submits the JSON registration body.
func (a *AuthAPI) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if err := dto.Validate(&req); err != nil {
		return nil, err
	}
	var resp dto.RegisterResponse
	if err := a.client.Do(ctx, Request{Method: http.MethodPost, Route: "/auth/register", JSON: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func translateTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		apiErr := &Error{Method: http.MethodPost, Path: loginRoute, Body: re.Body, Err: err}
		if re.Response != nil {
			apiErr.StatusCode = re.Response.StatusCode
		}
		return apiErr
	}
	if strings.Contains(err.Error(), "missing access_token") {
		return ErrMissingToken
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Method: http.MethodPost, Path: loginRoute, Err: err}
}
