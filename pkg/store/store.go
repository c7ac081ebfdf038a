// Package store persists small client-side values (bearer token, last used
// project) the way a browser keeps them in local storage. Every key the
// client writes lives under Namespace so logout can wipe them in one sweep.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	Namespace        = "tricys_"
	KeyAuthToken     = Namespace + "auth_token"
	KeyLastProjectID = Namespace + "last_pid"
)

var ErrNotFound = errors.New("store: key not found")

// KeyValueStore is the persisted string map shared by the API client, the
// auth service and the simulation store.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Lookup returns the value for key, or "" when missing or unreadable.
func Lookup(ctx context.Context, s KeyValueStore, key string) string {
	if s == nil {
		return ""
	}
	v, err := s.Get(ctx, key)
	if err != nil {
		return ""
	}
	return v
}

// ClearNamespace removes every key that starts with Namespace.
func ClearNamespace(ctx context.Context, s KeyValueStore) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	var errs []error
	for _, k := range keys {
		if !strings.HasPrefix(k, Namespace) {
			continue
		}
		if err := s.Remove(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
