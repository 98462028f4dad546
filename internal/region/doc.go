// Package region owns the supported-region table and the reconciliation of
// requested versus observed regions.
//
// The registry is immutable after startup: a fixed ordered set of region
// codes, each mapped to a proxy zone from configuration. Reconciliation
// compares the requested code against the geolocated country of the egress
// IP and derives marketing-marker flags from the final URL.
package region
