package region

import (
	"strings"

	"go.uber.org/zap"

	"github.com/adverify/geolander/internal/logging"
)

// Supported is the fixed, ordered set of region codes the service knows
// about. A code outside this list is never resolvable, configured or not.
var Supported = []string{"US", "GB", "DE", "FR", "IT", "ES", "NL", "SE", "CA", "AU"}

// Registry is the immutable region -> proxy zone table, built once at
// startup. Regions whose zone is unset are retained but unconfigured;
// partial coverage is acceptable and only warned about.
type Registry struct {
	order []string
	zones map[string]string
}

// NewRegistry builds the registry from the configured zone table. One
// warning is logged per unconfigured region; startup never fails here.
func NewRegistry(zones map[string]string, logger *logging.Logger) *Registry {
	r := &Registry{
		order: make([]string, 0, len(Supported)),
		zones: make(map[string]string, len(Supported)),
	}
	for _, code := range Supported {
		zone := zones[code]
		r.zones[code] = zone
		r.order = append(r.order, code)
		if zone == "" {
			logger.Warn("region has no proxy zone configured, disabled",
				zap.String("region", code))
		}
	}
	return r
}

// Normalize uppercases a region code for comparison.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup returns the proxy zone for a region code, case-insensitively.
// ok is false when the region is unknown or unconfigured.
func (r *Registry) Lookup(code string) (zone string, ok bool) {
	zone, present := r.zones[Normalize(code)]
	if !present || zone == "" {
		return "", false
	}
	return zone, true
}

// Codes returns the ordered list of configured region codes.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.order))
	for _, code := range r.order {
		if r.zones[code] != "" {
			out = append(out, code)
		}
	}
	return out
}

// Unconfigured returns the ordered list of supported but disabled codes.
func (r *Registry) Unconfigured() []string {
	var out []string
	for _, code := range r.order {
		if r.zones[code] == "" {
			out = append(out, code)
		}
	}
	return out
}
