// Package storage provides the key-value persistence adapter the chat
// history core is built on. Values are JSON strings keyed by string keys;
// there is no transactionality across keys, so callers must tolerate
// partial multi-key failures.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies storage failures into the shared error taxonomy.
type Kind string

const (
	KindStorageFull      Kind = "STORAGE_FULL"      // Write rejected by the backing store
	KindPermissionDenied Kind = "PERMISSION_DENIED" // Backing store not writable
	KindCorruptedData    Kind = "CORRUPTED_DATA"    // Deserialization failure
	KindNetworkError     Kind = "NETWORK_ERROR"     // Reserved for remote backends
)

// Error is a typed storage failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("storage %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a typed storage error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err is a storage error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// KV is the generic async key-value contract supplied by the host.
// Get returns (value, true, nil) when the key exists and ("", false, nil)
// when it does not; errors are reserved for backend failures.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}
