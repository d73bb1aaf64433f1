package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	// KindConfig: the options were unusable.
	KindConfig Kind = "Config"
	// KindEncode: an inlined subtree could not be encoded or hashed under
	// its declared tags.
	KindEncode Kind = "Encode"
	// KindSink: the sink rejected a block write. Unwrap for the sink's
	// own error, including storage.ErrTransient.
	KindSink Kind = "Sink"
	// KindIntegrity: under the Strict policy, a recomputed CID disagreed
	// with the recorded original.
	KindIntegrity Kind = "Integrity"
)

// Error is the extractor's structured error type. CID identifies the
// block being produced when the failure is block-specific.
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
		return fmt.Sprintf("extractor: %s (%s)", e.Message, e.CID)
	}
	return "extractor: " + e.Message
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

// Mismatch records one inlined subtree whose recomputed CID differs from
// the CID it was originally resolved from.
type Mismatch struct {
	Original cid.Cid
	Computed cid.Cid
}

// IntegrityError is returned by Extract under the Verify policy when
// mismatches were found. The extraction still completed: the accompanying
// value is whole and every block was written under its computed CID.
type IntegrityError struct {
	Mismatches []Mismatch
}

func (e *IntegrityError) Error() string {
	if e == nil || len(e.Mismatches) == 0 {
		return "extractor: no integrity mismatches"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "extractor: %d integrity mismatch(es):", len(e.Mismatches))
	for _, m := range e.Mismatches {
		fmt.Fprintf(&b, " %s!=%s", m.Original, m.Computed)
	}
	return b.String()
}
