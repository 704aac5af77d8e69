// Package cache defines the key/value capability used for derived catalog
// views.  Callers depend only on Cache; whether a real server sits behind it
// is decided once at wiring time.
package cache

import (
	"context"
	"errors"
)

// ErrMiss is returned by Get when the key holds no value.
var ErrMiss = errors.New("cache: miss")

// Cache is a minimal byte-oriented store.  Values written with Set do not
// expire; they are replaced or deleted explicitly.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
}

// Nop is a Cache that stores nothing.  Every Get misses, so readers always
// fall through to their source of truth.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (Nop) Set(context.Context, string, []byte) error   { return nil }
func (Nop) Delete(context.Context, string) error        { return nil }
