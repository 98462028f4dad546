package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adverify/geolander/internal/geo"
	"github.com/adverify/geolander/internal/logging"
	"github.com/adverify/geolander/internal/proxy"
	"github.com/adverify/geolander/internal/region"
	"github.com/adverify/geolander/internal/resilience"
)

// Stage names the step of the pipeline a resolution is in. One
// error-or-continue decision is made per stage.
type Stage string

const (
	StageConnecting      Stage = "connecting"
	StageNavigating      Stage = "navigating"
	StageAwaitingReady   Stage = "awaiting_ready"
	StageReadingLocation Stage = "reading_location"
	StageLocatingIP      Stage = "locating_ip"
	StageDone            Stage = "done"
)

// readySelector is the minimal page-readiness signal: a renderable body.
// Guards against pages that report navigation success but never render,
// such as JS-redirect loops.
const readySelector = "body"

// Config holds resolution engine tuning.
type Config struct {
	ConnectTimeout time.Duration
	NavTimeout     time.Duration
	ReadyTimeout   time.Duration
	GeoLookupURL   string
	UserAgent      string
}

// Result is the outcome of one successful resolution. Geolocation may be
// the lookup-failed sentinel; that does not make the resolution a failure.
type Result struct {
	OriginalURL     string
	FinalURL        string
	RequestedRegion string
	Geo             geo.Location
}

// Engine resolves URLs through region-pinned remote browser sessions. One
// session per call, never pooled; all cross-call state is read-only.
type Engine struct {
	builder *proxy.Builder
	factory SessionFactory
	breaker *resilience.Breaker
	logger  *logging.Logger
	cfg     Config
}

// New creates a resolution engine. The session factory is injected so tests
// can substitute a fake for the remote control protocol.
func New(builder *proxy.Builder, factory SessionFactory, logger *logging.Logger, cfg Config) *Engine {
	return &Engine{
		builder: builder,
		factory: factory,
		breaker: resilience.New("remote-browser", resilience.Settings{
			MaxRequests: 2,
			Timeout:     30 * time.Second,
			TripAfter:   5,
		}),
		logger: logger,
		cfg:    cfg,
	}
}

// Resolve loads targetURL through the egress for the requested region and
// reports the final redirect-resolved address plus the egress geolocation.
func (e *Engine) Resolve(ctx context.Context, targetURL, requestedRegion string) (*Result, error) {
	requestedRegion = region.Normalize(requestedRegion)
	log := e.logger.With(
		zap.String("resolution_id", uuid.NewString()),
		zap.String("url", targetURL),
		zap.String("region", requestedRegion),
	)

	endpoint, err := e.builder.Build(requestedRegion)
	if err != nil {
		log.Warn("proxy endpoint unavailable", zap.Error(err))
		return nil, err
	}
	log.Info("resolving", zap.String("endpoint", endpoint.String()))

	session, err := e.connect(ctx, endpoint)
	if err != nil {
		log.Error("remote browser connect failed", zap.Error(err))
		return nil, err
	}
	defer session.Close()

	if err := session.SetUserAgent(ctx, e.cfg.UserAgent); err != nil {
		return nil, classify(KindConnect, StageConnecting, redacted(err, endpoint))
	}

	navCtx, cancelNav := context.WithTimeout(ctx, e.cfg.NavTimeout)
	defer cancelNav()
	if err := session.Navigate(navCtx, targetURL); err != nil {
		log.Warn("navigation did not reach DOM-parsed milestone", zap.Error(err))
		return nil, classify(KindNavigation, StageNavigating, redacted(err, endpoint))
	}

	readyCtx, cancelReady := context.WithTimeout(ctx, e.cfg.ReadyTimeout)
	defer cancelReady()
	if err := session.WaitReady(readyCtx, readySelector); err != nil {
		log.Warn("page never rendered a body", zap.Error(err))
		return nil, classify(KindNavigation, StageAwaitingReady, redacted(err, endpoint))
	}

	finalURL, err := session.Location(ctx)
	if err != nil {
		return nil, classify(KindNavigation, StageReadingLocation, redacted(err, endpoint))
	}

	loc := e.locate(ctx, session, log)

	log.Info("resolved",
		zap.String("final_url", finalURL),
		zap.String("country", loc.CountryCode),
		zap.Bool("geo_lookup_failed", loc.Failed()),
	)

	return &Result{
		OriginalURL:     targetURL,
		FinalURL:        finalURL,
		RequestedRegion: requestedRegion,
		Geo:             loc,
	}, nil
}

// connect opens a remote session through the breaker. Infrastructure-class;
// no retry here. Retries, if wanted, belong to the caller.
func (e *Engine) connect(ctx context.Context, endpoint proxy.Endpoint) (Session, error) {
	connCtx, cancel := context.WithTimeout(ctx, e.cfg.ConnectTimeout)
	defer cancel()

	session, err := resilience.Execute(e.breaker, func() (Session, error) {
		s, err := e.factory.Open(connCtx, endpoint.Address())
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			// The caller went away mid-dial. The breaker must not count
			// this against the browser service.
			return nil, context.Canceled
		}
		return s, err
	})
	if err != nil {
		return nil, classify(KindConnect, StageConnecting, redacted(err, endpoint))
	}
	return session, nil
}

// locate performs the in-session geolocation lookup. Best effort: any
// failure degrades to the sentinel location and resolution still succeeds.
func (e *Engine) locate(ctx context.Context, session Session, log *logging.Logger) geo.Location {
	geoCtx, cancel := context.WithTimeout(ctx, e.cfg.ReadyTimeout)
	defer cancel()

	raw, err := session.FetchJSON(geoCtx, e.cfg.GeoLookupURL)
	if err != nil {
		log.Warn("in-session geolocation lookup failed", zap.Error(err))
		return geo.Unavailable()
	}
	loc, err := geo.Parse(raw)
	if err != nil {
		log.Warn("geolocation response unparseable", zap.Error(err))
		return geo.Unavailable()
	}
	return loc
}

// redacted scrubs the proxy credential from an error before it can reach a
// log line or an API response.
func redacted(err error, endpoint proxy.Endpoint) error {
	if err == nil {
		return nil
	}
	clean := endpoint.Redact(err.Error())
	if clean == err.Error() {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", clean, context.DeadlineExceeded)
	}
	return errors.New(clean)
}
