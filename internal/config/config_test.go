package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavTimeout)
	assert.Equal(t, 30*time.Second, cfg.Browser.ReadyTimeout)
	assert.Equal(t, 30*time.Second, cfg.Browser.ConnectTimeout)
	assert.Equal(t, "https://ipapi.co/json/", cfg.Browser.GeoLookupURL)
	assert.Equal(t, "brd.superproxy.io", cfg.Proxy.Host)
	assert.Equal(t, 9222, cfg.Proxy.Port)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("NAV_TIMEOUT", "90s")
	t.Setenv("READY_TIMEOUT", "15s")
	t.Setenv("PROXY_PASSWORD", "sekrit")
	t.Setenv("PROXY_ZONE_US", "zone_us_resident")
	t.Setenv("PROXY_ZONE_DE", "zone_de_resident")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Browser.NavTimeout)
	assert.Equal(t, 15*time.Second, cfg.Browser.ReadyTimeout)
	assert.Equal(t, "sekrit", cfg.Proxy.Password)
	assert.Equal(t, "zone_us_resident", cfg.Proxy.Zones.US)
	assert.Equal(t, "zone_de_resident", cfg.Proxy.Zones.DE)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowOrigins)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestZoneMapCoversSupportedRegions(t *testing.T) {
	z := ZoneConfig{US: "a", GB: "b", AU: "c"}
	m := z.Map()

	assert.Equal(t, "a", m["US"])
	assert.Equal(t, "b", m["GB"])
	assert.Equal(t, "c", m["AU"])
	assert.Len(t, m, 10)
	assert.Empty(t, m["DE"])
}
