// Package proxy builds authenticated remote-browser connection addresses
// from region codes. The rendered address embeds the zone credential and is
// a capability: it must never be logged or returned to callers.
package proxy

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/adverify/geolander/internal/region"
)

// ErrMissingConfig is returned when a region has no proxy zone or the
// shared proxy password is absent. Detected before any network call.
var ErrMissingConfig = errors.New("missing proxy configuration")

// Endpoint is a single-use remote browser connection target.
type Endpoint struct {
	zone     string
	password string
	host     string
	port     int
}

// Address renders the full authenticated websocket address. Treat the
// return value as a secret.
func (e Endpoint) Address() string {
	u := url.URL{
		Scheme: "wss",
		User:   url.UserPassword(e.zone, e.password),
		Host:   e.host + ":" + strconv.Itoa(e.port),
	}
	return u.String()
}

// Zone returns the proxy zone identifier, safe to log.
func (e Endpoint) Zone() string { return e.zone }

// String renders the address with the password redacted. This is what goes
// into logs and error messages.
func (e Endpoint) String() string {
	return fmt.Sprintf("wss://%s:****@%s:%d", e.zone, e.host, e.port)
}

// Builder constructs endpoints for requested regions.
type Builder struct {
	registry *region.Registry
	password string
	host     string
	port     int
}

// NewBuilder creates an endpoint builder over the region registry and the
// shared proxy credentials.
func NewBuilder(registry *region.Registry, password, host string, port int) *Builder {
	return &Builder{registry: registry, password: password, host: host, port: port}
}

// Build returns the endpoint for a region, or ErrMissingConfig when the
// region is unconfigured or the shared password is unset.
func (b *Builder) Build(code string) (Endpoint, error) {
	zone, ok := b.registry.Lookup(code)
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: no proxy zone for region %q", ErrMissingConfig, region.Normalize(code))
	}
	if b.password == "" {
		return Endpoint{}, fmt.Errorf("%w: proxy password is not set", ErrMissingConfig)
	}
	return Endpoint{zone: zone, password: b.password, host: b.host, port: b.port}, nil
}

// Redact replaces the endpoint password in a message with a mask. Errors
// from the browser transport can echo the dial address back; everything
// that might carry one passes through here before logging or responding.
func (e Endpoint) Redact(msg string) string {
	if e.password == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, e.password, "****")
	// The dial address carries the userinfo-escaped form.
	escaped := strings.TrimPrefix(url.UserPassword("", e.password).String(), ":")
	if escaped != e.password {
		msg = strings.ReplaceAll(msg, escaped, "****")
	}
	return msg
}
