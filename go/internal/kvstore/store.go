// Package kvstore is the durable key-value layer under player contexts and payoff ledgers.
// Any backend that can get, set and remove a JSON value by key satisfies Store.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the minimal persistence contract.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Key joins namespaced parts with underscores, e.g. Key("indicator_seen", room, player).
func Key(parts ...string) string {
	return strings.Join(parts, "_")
}

// GetJSON loads key into out. It returns ErrNotFound untouched so callers can branch on it.
func GetJSON(ctx context.Context, s Store, key string, out interface{}) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v under key as JSON.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// UpdateFunc computes the next value for a key from its current one. Returning changed
// false leaves the key as it was.
type UpdateFunc func(current []byte, found bool) (next []byte, changed bool, err error)

// Updater is implemented by stores that run an UpdateFunc atomically against other
// writers of the same store.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Update applies fn to key, atomically when s implements Updater and as a plain get then
// set otherwise.
func Update(ctx context.Context, s Store, key string, fn UpdateFunc) error {
	if u, ok := s.(Updater); ok {
		return u.Update(ctx, key, fn)
	}

	current, err := s.Get(ctx, key)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	next, changed, err := fn(current, found)
	if err != nil || !changed {
		return err
	}
	return s.Set(ctx, key, next)
}
