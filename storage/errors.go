package storage

import "errors"

var (
	// ErrNotFound is a permanent failure: the block does not exist in the
	// store. Retrying will not help.
	ErrNotFound = errors.New("storage: not found")

	// ErrTransient marks failures that may succeed on retry (network,
	// timeout, backend unavailable). The engine never retries; callers
	// own retry policy.
	ErrTransient = errors.New("storage: transient failure")

	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	ErrImmutable   = errors.New("storage: immutable object mismatch")
)

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
