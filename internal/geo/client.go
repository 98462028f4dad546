package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// Client performs direct (non-proxied) lookups against the geolocation
// service. Used by the health-check diagnostic only; resolutions do their
// lookup from inside the browser session.
type Client struct {
	resty     *resty.Client
	lookupURL string
}

// NewClient creates a lookup client for the given service URL.
func NewClient(lookupURL string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	rc := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", "geolander-diagnostics/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Client{resty: rc, lookupURL: lookupURL}
}

// Lookup fetches the geolocation of the calling process's own egress IP.
func (c *Client) Lookup(ctx context.Context) (Location, error) {
	resp, err := c.resty.R().SetContext(ctx).Get(c.lookupURL)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation lookup: %w", err)
	}
	if resp.IsError() {
		return Location{}, fmt.Errorf("geolocation lookup: status %d", resp.StatusCode())
	}
	loc, err := Parse(resp.Body())
	if err != nil {
		return Location{}, fmt.Errorf("geolocation lookup: %w", err)
	}
	return loc, nil
}
