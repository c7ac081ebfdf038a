package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"tricys-client/internal/dto"
)

type UserAPI struct {
	client *Client
}

func NewUserAPI(client *Client) *UserAPI {
	return &UserAPI{client: client}
}

// ListUsers pages through accounts; the backend defaults are skip=0, limit=100.
func (a *UserAPI) ListUsers(ctx context.Context, skip, limit int) ([]dto.User, error) {
	var users []dto.User
	err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/user/", Query: page(skip, limit)}, &users)
	return users, err
}

func (a *UserAPI) GetCurrentUser(ctx context.Context) (*dto.User, error) {
	var user dto.User
	if err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/user/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *UserAPI) GetUser(ctx context.Context, userID string) (*dto.User, error) {
	var user dto.User
	if err := a.client.Do(ctx, Request{Method: http.MethodGet, Route: "/user/{id}", Params: []string{userID}}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func page(skip, limit int) url.Values {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	return url.Values{"skip": {strconv.Itoa(skip)}, "limit": {strconv.Itoa(limit)}}
}
