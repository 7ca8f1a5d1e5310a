// Package prefs provides flat key-value persistence for settings and the
// live daily counters, namespaced per logical store. Backends guarantee
// per-operation atomicity only; no multi-key transactions. Reads of missing
// or unparsable values return the caller's default so callers never branch
// on storage errors.
package prefs

import (
	"context"
	"strconv"
)

// Backend is the raw namespaced key-value surface.
type Backend interface {
	Get(ctx context.Context, namespace, key string) (value string, ok bool, err error)
	Put(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace, key string) error
	Close() error
}

// Namespace is a typed view over one logical store within a backend.
type Namespace struct {
	backend Backend
	name    string
}

// NewNamespace binds a typed view to one namespace of backend.
func NewNamespace(backend Backend, name string) *Namespace {
	return &Namespace{backend: backend, name: name}
}

// Name returns the namespace identifier.
func (n *Namespace) Name() string { return n.name }

// Int64 returns the stored value for key, or def when absent or unreadable.
func (n *Namespace) Int64(ctx context.Context, key string, def int64) int64 {
	raw, ok, err := n.backend.Get(ctx, n.name, key)
	if err != nil || !ok {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// PutInt64 stores value under key.
func (n *Namespace) PutInt64(ctx context.Context, key string, value int64) error {
	return n.backend.Put(ctx, n.name, key, strconv.FormatInt(value, 10))
}

// Uint64 returns the stored value for key, or def when absent or unreadable.
func (n *Namespace) Uint64(ctx context.Context, key string, def uint64) uint64 {
	raw, ok, err := n.backend.Get(ctx, n.name, key)
	if err != nil || !ok {
		return def
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// PutUint64 stores value under key.
func (n *Namespace) PutUint64(ctx context.Context, key string, value uint64) error {
	return n.backend.Put(ctx, n.name, key, strconv.FormatUint(value, 10))
}

// Float64 returns the stored value for key, or def when absent or unreadable.
func (n *Namespace) Float64(ctx context.Context, key string, def float64) float64 {
	raw, ok, err := n.backend.Get(ctx, n.name, key)
	if err != nil || !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// PutFloat64 stores value under key.
func (n *Namespace) PutFloat64(ctx context.Context, key string, value float64) error {
	return n.backend.Put(ctx, n.name, key, strconv.FormatFloat(value, 'g', -1, 64))
}

// String returns the stored value for key, or def when absent.
func (n *Namespace) String(ctx context.Context, key, def string) string {
	raw, ok, err := n.backend.Get(ctx, n.name, key)
	if err != nil || !ok {
		return def
	}
	return raw
}

// PutString stores value under key.
func (n *Namespace) PutString(ctx context.Context, key, value string) error {
	return n.backend.Put(ctx, n.name, key, value)
}
