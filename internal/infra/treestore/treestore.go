// Package treestore is the client side of the remote tree store: a
// key-path-addressed document service offering atomic read/replace of a
// single path and no multi-path transactions. Everything above it
// builds multi-record consistency out of exactly that primitive.
package treestore

import (
	"context"
	"errors"
)

// ErrPathMissing is returned by Get when no document exists at a path.
var ErrPathMissing = errors.New("treestore: path missing")

// Store reads and replaces whole JSON documents at string paths.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, value []byte) error
	Delete(ctx context.Context, path string) error
}
