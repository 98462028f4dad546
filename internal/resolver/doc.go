// Package resolver drives region-pinned URL resolution through a remote
// browser.
//
// A resolution is a short sequential pipeline with per-stage timeouts:
// connect to the remote browser through the region's proxy endpoint,
// navigate until the DOM has parsed, wait for a minimal readiness signal,
// read the final redirect-resolved address, then best-effort geolocate the
// egress IP from inside the session. Only the geolocation stage is
// non-fatal.
//
// The remote control channel is abstracted behind SessionFactory so tests
// can run the full pipeline against a fake; the production factory speaks
// the Chrome DevTools protocol over an authenticated websocket.
package resolver
