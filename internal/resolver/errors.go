package resolver

import (
	"errors"
	"fmt"

	"github.com/adverify/geolander/internal/proxy"
)

// Kind classifies resolution failures. Connection-class failures point at
// infrastructure or configuration; navigation-class failures are the target
// site's own behavior. The HTTP layer currently maps all of them to the
// same status code, but the kinds stay distinct so callers can differentiate
// retry-worthy failures later.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig: region unconfigured or shared secret absent.
	KindConfig
	// KindConnect: could not establish a remote browser session.
	KindConnect
	// KindNavigation: page never reached the DOM-parsed milestone or never
	// rendered a body within the configured timeouts.
	KindNavigation
)

// String returns the kind label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindConnect:
		return "connect"
	case KindNavigation:
		return "navigation"
	default:
		return "unknown"
	}
}

// Error is a classified resolution failure.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func classify(kind Kind, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the failure kind from any error in a resolution chain.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, proxy.ErrMissingConfig) {
		return KindConfig
	}
	return KindUnknown
}
