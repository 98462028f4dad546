// Package http contains the gin handlers for the resolution service.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adverify/geolander/internal/geo"
	"github.com/adverify/geolander/internal/logging"
	"github.com/adverify/geolander/internal/monitoring"
	"github.com/adverify/geolander/internal/region"
	"github.com/adverify/geolander/internal/resolver"
)

// Resolver is the engine surface the handlers consume. Satisfied by
// *resolver.Engine; tests substitute a double.
type Resolver interface {
	Resolve(ctx context.Context, targetURL, requestedRegion string) (*resolver.Result, error)
}

// GeoProber checks the geolocation service directly. Satisfied by
// *geo.Client.
type GeoProber interface {
	Lookup(ctx context.Context) (geo.Location, error)
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	resolver    Resolver
	registry    *region.Registry
	prober      GeoProber
	metrics     *monitoring.Metrics
	logger      *logging.Logger
	proxySecret bool
}

// NewHandlers creates the handler set.
func NewHandlers(res Resolver, registry *region.Registry, prober GeoProber, metrics *monitoring.Metrics, logger *logging.Logger, proxySecretSet bool) *Handlers {
	return &Handlers{
		resolver:    res,
		registry:    registry,
		prober:      prober,
		metrics:     metrics,
		logger:      logger,
		proxySecret: proxySecretSet,
	}
}

// ResolveResponse is the /resolve success body.
type ResolveResponse struct {
	OriginalURL     string `json:"originalUrl"`
	FinalURL        string `json:"finalUrl"`
	Region          string `json:"region"`
	RequestedRegion string `json:"requestedRegion"`
	ActualRegion    string `json:"actualRegion"`
	RegionMatch     bool   `json:"regionMatch"`
	Method          string `json:"method"`
	region.MarketingFlags
	IPData json.RawMessage `json:"ipData"`
}

// Resolve handles GET /resolve?url=...&region=...
func (h *Handlers) Resolve(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter: url"})
		return
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute URL"})
		return
	}

	requested := c.DefaultQuery("region", "US")
	normalized := region.Normalize(requested)

	start := time.Now()
	result, err := h.resolver.Resolve(c.Request.Context(), rawURL, normalized)
	if err != nil {
		kind := resolver.KindOf(err)
		h.metrics.RecordResolution(normalized, "error", time.Since(start))
		h.metrics.RecordResolutionError(normalized, kind.String())
		h.logger.Error("resolution failed",
			zap.String("region", normalized),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "resolution failed",
			"details": err.Error(),
		})
		return
	}

	rec := region.Reconcile(result.RequestedRegion, result.Geo, result.FinalURL)
	h.metrics.RecordResolution(normalized, "ok", time.Since(start))
	h.metrics.RecordOutcome(normalized, rec.Outcome.String())

	c.JSON(http.StatusOK, ResolveResponse{
		OriginalURL:     result.OriginalURL,
		FinalURL:        result.FinalURL,
		Region:          normalized,
		RequestedRegion: requested,
		ActualRegion:    rec.ActualRegion,
		RegionMatch:     rec.Match,
		Method:          "browser-api",
		MarketingFlags:  rec.Flags,
		IPData:          result.Geo.Raw,
	})
}

// Regions handles GET /regions.
func (h *Handlers) Regions(c *gin.Context) {
	codes := h.registry.Codes()
	c.JSON(http.StatusOK, gin.H{
		"regions": codes,
		"count":   len(codes),
	})
}

// Health handles GET /health: liveness plus request counters.
func (h *Handlers) Health(c *gin.Context) {
	snap := h.metrics.GetSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"service":        "geolander",
		"uptime_seconds": int64(h.metrics.Uptime().Seconds()),
		"requests":       snap,
	})
}

// HealthCheck handles GET /health-check: deeper diagnostics, including a
// direct reachability probe of the geolocation service. The probe runs from
// this process, not through a proxy, so it only proves the service is up.
func (h *Handlers) HealthCheck(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	probe := gin.H{"reachable": false}
	probeCtx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if loc, err := h.prober.Lookup(probeCtx); err != nil {
		probe["error"] = err.Error()
	} else {
		probe["reachable"] = true
		probe["country"] = loc.CountryCode
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(h.metrics.Uptime().Seconds()),
		"regions": gin.H{
			"configured":   h.registry.Codes(),
			"unconfigured": h.registry.Unconfigured(),
		},
		"proxy_password_set": h.proxySecret,
		"geolocation_probe":  probe,
		"process": gin.H{
			"goroutines":      runtime.NumGoroutine(),
			"heap_alloc_mb":   mem.HeapAlloc / 1024 / 1024,
			"total_alloc_mb":  mem.TotalAlloc / 1024 / 1024,
			"gc_cycles_total": mem.NumGC,
		},
	})
}
