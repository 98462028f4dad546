// Package config provides 12-factor configuration for the resolution
// service.
//
// Configuration is loaded from environment variables with sensible defaults
// and passed explicitly into constructors; nothing reads ambient state after
// startup. Per-region proxy zones arrive as PROXY_ZONE_<CC> variables; a
// missing zone disables that region without failing startup.
//
// Environment Variables:
//   - PORT, HOST
//   - PROXY_HOST, PROXY_PORT, PROXY_PASSWORD, PROXY_ZONE_<CC>
//   - CONNECT_TIMEOUT, NAV_TIMEOUT, READY_TIMEOUT
//   - GEO_LOOKUP_URL, BROWSER_USER_AGENT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - CORS_ORIGINS
package config
