// Package geo holds the geolocation payload consumed by region
// reconciliation, plus a direct lookup client used by diagnostics.
//
// The authoritative lookup during a resolution happens inside the remote
// browser session so that it observes the proxied egress IP; the client in
// this package talks to the same service from the controlling process and is
// only used to verify the service itself is reachable.
package geo

import "encoding/json"

// Location is the parsed geolocation payload for an IP.
// Field names follow the lookup service's JSON schema.
type Location struct {
	IP          string `json:"ip"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Region      string `json:"region"`
	City        string `json:"city"`
	Org         string `json:"org"`

	// Raw is the untouched service response, passed through to callers.
	Raw json.RawMessage `json:"-"`

	// LookupFailed marks the sentinel value returned when the lookup could
	// not be performed or parsed. Distinct from a resolved-but-mismatched
	// country; reconciliation keeps the two apart.
	LookupFailed bool `json:"-"`
}

// Failed reports whether this location is the lookup-failed sentinel.
func (l Location) Failed() bool { return l.LookupFailed }

// Parse decodes a raw lookup response. The raw payload is retained verbatim
// for passthrough even when only a subset of fields is recognized.
func Parse(raw json.RawMessage) (Location, error) {
	var loc Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return Location{}, err
	}
	loc.Raw = raw
	return loc, nil
}

// Unavailable returns the sentinel location used when the lookup failed.
// Its raw payload is the error marker surfaced to API callers.
func Unavailable() Location {
	return Location{
		Raw:          json.RawMessage(`{"error":"geolocation lookup failed"}`),
		LookupFailed: true,
	}
}
