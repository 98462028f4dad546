package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration. It is loaded once at startup
// and passed into constructors; nothing reads the environment afterwards.
type Config struct {
	Server    ServerConfig
	Proxy     ProxyConfig
	Browser   BrowserConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// ProxyConfig holds the remote browser proxy credentials. Password is the
// shared secret for all zones; each supported region has its own zone id.
type ProxyConfig struct {
	Host     string `envconfig:"PROXY_HOST" default:"brd.superproxy.io"`
	Port     int    `envconfig:"PROXY_PORT" default:"9222"`
	Password string `envconfig:"PROXY_PASSWORD"`
	Zones    ZoneConfig
}

// ZoneConfig maps each supported region to its proxy zone identifier.
// Unset zones leave that region unconfigured; the process still starts.
type ZoneConfig struct {
	US string `envconfig:"PROXY_ZONE_US"`
	GB string `envconfig:"PROXY_ZONE_GB"`
	DE string `envconfig:"PROXY_ZONE_DE"`
	FR string `envconfig:"PROXY_ZONE_FR"`
	IT string `envconfig:"PROXY_ZONE_IT"`
	ES string `envconfig:"PROXY_ZONE_ES"`
	NL string `envconfig:"PROXY_ZONE_NL"`
	SE string `envconfig:"PROXY_ZONE_SE"`
	CA string `envconfig:"PROXY_ZONE_CA"`
	AU string `envconfig:"PROXY_ZONE_AU"`
}

// Map returns the zone table keyed by region code, in declaration order.
func (z ZoneConfig) Map() map[string]string {
	return map[string]string{
		"US": z.US,
		"GB": z.GB,
		"DE": z.DE,
		"FR": z.FR,
		"IT": z.IT,
		"ES": z.ES,
		"NL": z.NL,
		"SE": z.SE,
		"CA": z.CA,
		"AU": z.AU,
	}
}

// BrowserConfig holds remote browser session tuning.
type BrowserConfig struct {
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"30s"`
	NavTimeout     time.Duration `envconfig:"NAV_TIMEOUT" default:"60s"`
	ReadyTimeout   time.Duration `envconfig:"READY_TIMEOUT" default:"30s"`
	GeoLookupURL   string        `envconfig:"GEO_LOOKUP_URL" default:"https://ipapi.co/json/"`
	UserAgent      string        `envconfig:"BROWSER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"20"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig holds allowed origins for the HTTP surface.
type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
