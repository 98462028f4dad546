package region

import (
	"strings"

	"github.com/adverify/geolander/internal/geo"
)

// Unknown is the sentinel actual-region value when geolocation is
// unavailable. An unknown region never matches anything.
const Unknown = "Unknown"

// Outcome classifies a reconciliation. Mismatch and LookupFailed both
// surface as regionMatch=false externally, but stay distinct here so the
// API can tell them apart later without reworking the core.
type Outcome int

const (
	OutcomeMatch Outcome = iota
	OutcomeMismatch
	OutcomeLookupFailed
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeLookupFailed:
		return "lookup_failed"
	default:
		return "unknown"
	}
}

// MarketingFlags are substring-presence checks against the final URL for
// the tracking markers affiliate networks append. Literal containment is
// the contract: no query parsing, false positives in path segments are
// accepted.
type MarketingFlags struct {
	ClickID   bool `json:"hasClickId"`
	ClickRef  bool `json:"hasClickRef"`
	UTMSource bool `json:"hasUtmSource"`
	ImRef     bool `json:"hasImRef"`
	MtkSource bool `json:"hasMtkSource"`
	TduID     bool `json:"hasTduId"`
}

// Reconciliation is the result of comparing a requested region against the
// geolocation observed during resolution.
type Reconciliation struct {
	ActualRegion string
	Match        bool
	Outcome      Outcome
	Flags        MarketingFlags
}

// Reconcile compares the requested region with the observed geolocation and
// derives the marketing flags from the final URL.
func Reconcile(requested string, loc geo.Location, finalURL string) Reconciliation {
	rec := Reconciliation{
		ActualRegion: Unknown,
		Outcome:      OutcomeLookupFailed,
		Flags:        DetectFlags(finalURL),
	}
	if loc.Failed() || loc.CountryCode == "" {
		return rec
	}

	rec.ActualRegion = Normalize(loc.CountryCode)
	if rec.ActualRegion == Normalize(requested) {
		rec.Match = true
		rec.Outcome = OutcomeMatch
	} else {
		rec.Outcome = OutcomeMismatch
	}
	return rec
}

// DetectFlags runs the marker substring checks against a final URL.
func DetectFlags(finalURL string) MarketingFlags {
	return MarketingFlags{
		ClickID:   strings.Contains(finalURL, "clickid"),
		ClickRef:  strings.Contains(finalURL, "clickref"),
		UTMSource: strings.Contains(finalURL, "utm_source"),
		ImRef:     strings.Contains(finalURL, "im_ref"),
		MtkSource: strings.Contains(finalURL, "mtk_source"),
		TduID:     strings.Contains(finalURL, "tduid"),
	}
}
