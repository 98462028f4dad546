package resolver

import (
	"context"
	"encoding/json"
)

// Session is a live page context inside a remote browser. Implementations
// own the underlying control connection; Close releases the session
// (a disconnect, never a browser shutdown; the browser process is shared)
// and must be safe to call exactly once on every exit path.
type Session interface {
	// SetUserAgent overrides the browser identification string for the page.
	SetUserAgent(ctx context.Context, ua string) error
	// Navigate loads the target URL and returns once the DOM has parsed.
	// Full subresource completion is deliberately not awaited.
	Navigate(ctx context.Context, target string) error
	// WaitReady blocks until the selector is present in the DOM.
	WaitReady(ctx context.Context, selector string) error
	// Location reports the page's current address, post every redirect the
	// browser followed.
	Location(ctx context.Context) (string, error)
	// FetchJSON issues an HTTP request from inside the page and returns the
	// parsed JSON body. The request egresses through the session's proxy.
	FetchJSON(ctx context.Context, target string) (json.RawMessage, error)
	// Close releases the session.
	Close() error
}

// SessionFactory opens sessions against a remote browser address. The
// address is an authenticated capability; factories must not log it.
type SessionFactory interface {
	Open(ctx context.Context, address string) (Session, error)
}
