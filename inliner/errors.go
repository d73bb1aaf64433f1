package inliner

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
)

// Kind is a stable category for programmatic error handling.
//
// These categories are intended to remain stable across versions. Callers
// should branch on Kind rather than matching error strings.
type Kind string

const (
	// KindConfig: the options were unusable (e.g. missing limits).
	KindConfig Kind = "Config"
	// KindResolution: the resolver reported the block missing or failed.
	// Unwrap to storage.ErrNotFound / storage.ErrTransient to distinguish
	// permanent from retryable failures.
	KindResolution Kind = "Resolution"
	// KindDecode: resolved bytes did not parse under the CID's codec tag,
	// or no codec is registered for that tag.
	KindDecode Kind = "Decode"
	// KindDepthExceeded: link nesting passed Limits.MaxDepth.
	KindDepthExceeded Kind = "DepthExceeded"
	// KindNodeCountExceeded: total visited nodes passed Limits.MaxNodes.
	KindNodeCountExceeded Kind = "NodeCountExceeded"
	// KindCycle: a CID resolved to content that links back to a CID
	// already on the active resolution path.
	KindCycle Kind = "Cycle"
)

// Error is the inliner's structured error type.
//
// CID identifies the link being processed when the failure is
// link-specific, and is cid.Undef otherwise. Message is for humans; do not
// match on it.
type Error struct {
	Kind    Kind
	CID     cid.Cid
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.CID.Defined() {
		return fmt.Sprintf("inliner: %s (%s)", e.Message, e.CID)
	}
	return "inliner: " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func newError(kind Kind, id cid.Cid, msg string, cause error) error {
	return &Error{Kind: kind, CID: id, Message: msg, Cause: cause}
}
