package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverify/geolander/internal/logging"
	"github.com/adverify/geolander/internal/proxy"
	"github.com/adverify/geolander/internal/region"
)

// fakeSession scripts each stage of the pipeline.
type fakeSession struct {
	navErr      error
	navBlocks   bool
	readyErr    error
	location    string
	locationErr error
	fetchRaw    json.RawMessage
	fetchErr    error

	closed int
}

func (s *fakeSession) SetUserAgent(ctx context.Context, ua string) error { return nil }

func (s *fakeSession) Navigate(ctx context.Context, target string) error {
	if s.navBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.navErr
}

func (s *fakeSession) WaitReady(ctx context.Context, selector string) error { return s.readyErr }

func (s *fakeSession) Location(ctx context.Context) (string, error) {
	return s.location, s.locationErr
}

func (s *fakeSession) FetchJSON(ctx context.Context, target string) (json.RawMessage, error) {
	return s.fetchRaw, s.fetchErr
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

// fakeFactory counts opens and hands out a scripted session. With honorCtx
// set it behaves like a real dialer and fails on a dead context.
type fakeFactory struct {
	session  *fakeSession
	openErr  error
	honorCtx bool
	opens    int
	lastURL  string
}

func (f *fakeFactory) Open(ctx context.Context, address string) (Session, error) {
	f.opens++
	f.lastURL = address
	if f.honorCtx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.session, nil
}

func testConfig() Config {
	return Config{
		ConnectTimeout: time.Second,
		NavTimeout:     time.Second,
		ReadyTimeout:   time.Second,
		GeoLookupURL:   "https://geo.example.net/json/",
		UserAgent:      "test-agent",
	}
}

func newTestEngine(t *testing.T, factory SessionFactory) *Engine {
	t.Helper()
	registry := region.NewRegistry(map[string]string{"US": "zone_us"}, logging.NewNop())
	builder := proxy.NewBuilder(registry, "pw", "proxy.example.net", 9222)
	return New(builder, factory, logging.NewNop(), testConfig())
}

func TestResolveSuccess(t *testing.T) {
	session := &fakeSession{
		location: "http://example.com/landing?clickid=abc",
		fetchRaw: json.RawMessage(`{"ip":"1.2.3.4","country_code":"US","city":"Dallas"}`),
	}
	factory := &fakeFactory{session: session}
	engine := newTestEngine(t, factory)

	result, err := engine.Resolve(context.Background(), "http://example.com/redirect?x=1", "us")
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/redirect?x=1", result.OriginalURL)
	assert.Equal(t, "http://example.com/landing?clickid=abc", result.FinalURL)
	assert.Equal(t, "US", result.RequestedRegion)
	assert.Equal(t, "US", result.Geo.CountryCode)
	assert.False(t, result.Geo.Failed())
	assert.Equal(t, 1, factory.opens)
	assert.Equal(t, 1, session.closed, "session released exactly once")
	assert.Equal(t, "wss://zone_us:pw@proxy.example.net:9222", factory.lastURL)
}

func TestResolveGeolocationFailureDoesNotFailResolution(t *testing.T) {
	session := &fakeSession{
		location: "http://example.com/landing",
		fetchErr: errors.New("fetch blew up"),
	}
	factory := &fakeFactory{session: session}
	engine := newTestEngine(t, factory)

	result, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.NoError(t, err, "geolocation failure must be absorbed")

	assert.Equal(t, "http://example.com/landing", result.FinalURL)
	assert.True(t, result.Geo.Failed())
	assert.JSONEq(t, `{"error":"geolocation lookup failed"}`, string(result.Geo.Raw))
	assert.Equal(t, 1, session.closed)
}

func TestResolveMalformedGeolocationPayload(t *testing.T) {
	session := &fakeSession{
		location: "http://example.com/landing",
		fetchRaw: json.RawMessage(`<html>not json</html>`),
	}
	factory := &fakeFactory{session: session}
	engine := newTestEngine(t, factory)

	result, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.NoError(t, err)
	assert.True(t, result.Geo.Failed())
}

func TestResolveUnconfiguredRegion(t *testing.T) {
	factory := &fakeFactory{session: &fakeSession{}}
	engine := newTestEngine(t, factory)

	_, err := engine.Resolve(context.Background(), "http://example.com/", "GB")
	require.Error(t, err)

	assert.Equal(t, KindConfig, KindOf(err))
	assert.ErrorIs(t, err, proxy.ErrMissingConfig)
	assert.Zero(t, factory.opens, "no network call for unconfigured region")
}

func TestResolveConnectFailure(t *testing.T) {
	factory := &fakeFactory{openErr: errors.New("dial tcp: connection refused")}
	engine := newTestEngine(t, factory)

	_, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.Error(t, err)

	assert.Equal(t, KindConnect, KindOf(err))
	assert.Equal(t, 1, factory.opens, "exactly one attempt, no retry")
}

func TestResolveNavigationError(t *testing.T) {
	session := &fakeSession{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	factory := &fakeFactory{session: session}
	engine := newTestEngine(t, factory)

	_, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.Error(t, err)

	assert.Equal(t, KindNavigation, KindOf(err))
	assert.Equal(t, 1, session.closed, "session torn down on navigation failure")
}

func TestResolveNavigationTimeout(t *testing.T) {
	session := &fakeSession{navBlocks: true}
	factory := &fakeFactory{session: session}

	registry := region.NewRegistry(map[string]string{"US": "zone_us"}, logging.NewNop())
	builder := proxy.NewBuilder(registry, "pw", "proxy.example.net", 9222)
	cfg := testConfig()
	cfg.NavTimeout = 20 * time.Millisecond
	engine := New(builder, factory, logging.NewNop(), cfg)

	_, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.Error(t, err)

	assert.Equal(t, KindNavigation, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, session.closed, "no leak, no double release")
}

func TestResolveLocationReadFailure(t *testing.T) {
	session := &fakeSession{locationErr: errors.New("target closed")}
	factory := &fakeFactory{session: session}
	engine := newTestEngine(t, factory)

	_, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.Error(t, err)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindNavigation, re.Kind)
	assert.Equal(t, StageReadingLocation, re.Stage)
	assert.Equal(t, 1, session.closed)
}

func TestResolveClientDisconnectsDoNotTripBreaker(t *testing.T) {
	session := &fakeSession{location: "http://example.com/landing"}
	factory := &fakeFactory{session: session, honorCtx: true}
	engine := newTestEngine(t, factory)

	gone, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 6; i++ {
		_, err := engine.Resolve(gone, "http://example.com/", "US")
		require.Error(t, err)
	}

	opensBefore := factory.opens
	result, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.NoError(t, err, "healthy caller rejected after client disconnects")
	assert.Equal(t, "http://example.com/landing", result.FinalURL)
	assert.Equal(t, opensBefore+1, factory.opens, "healthy call must reach the factory")
}

func TestResolveReadinessFailure(t *testing.T) {
	session := &fakeSession{readyErr: errors.New("waiting for selector body")}
	factory := &fakeFactory{session: session}
	engine := newTestEngine(t, factory)

	_, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.Error(t, err)

	assert.Equal(t, KindNavigation, KindOf(err))
	assert.Equal(t, 1, session.closed)
}

func TestResolveRedactsCredentialInErrors(t *testing.T) {
	factory := &fakeFactory{openErr: errors.New("dial wss://zone_us:pw@proxy.example.net:9222: refused")}
	engine := newTestEngine(t, factory)

	_, err := engine.Resolve(context.Background(), "http://example.com/", "US")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), ":pw@")
}

func TestKindOfUnknown(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("some error")))
}
