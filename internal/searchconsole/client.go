package searchconsole

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	sc "google.golang.org/api/searchconsole/v1"

	"github.com/JakeFAU/search-console-gateway/internal/telemetry"
)

// Operation names used for logs, spans and metrics.
const (
	OpSearchAnalytics = "search_analytics"
	OpListSitemaps    = "list_sitemaps"
	OpGetSitemap      = "get_sitemap"
	OpSubmitSitemap   = "submit_sitemap"
	OpListSites       = "list_sites"
	OpInspectURL      = "inspect_url"
)

const tracerName = "github.com/JakeFAU/search-console-gateway/internal/searchconsole"

// Client exposes the reporting and inspection operations. It holds no state
// between calls and is safe for concurrent use.
type Client struct {
	sessions       Sessions
	shouldFallback FallbackPredicate
	logger         *zap.Logger
	tracer         trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFallbackPredicate replaces IsPermissionError as the retry trigger.
func WithFallbackPredicate(p FallbackPredicate) Option {
	return func(c *Client) {
		if p != nil {
			c.shouldFallback = p
		}
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewClient builds a Client that opens a session from sessions on every call.
func NewClient(sessions Sessions, opts ...Option) *Client {
	c := &Client{
		sessions:       sessions,
		shouldFallback: IsPermissionError,
		logger:         zap.NewNop(),
		tracer:         otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAnalytics runs a search analytics query for req.SiteURL.
func (c *Client) SearchAnalytics(ctx context.Context, req SearchAnalyticsRequest) (*sc.SearchAnalyticsQueryResponse, error) {
	return runSiteScoped(ctx, c, OpSearchAnalytics, req,
		func(ctx context.Context, remote Remote, r SearchAnalyticsRequest) (*sc.SearchAnalyticsQueryResponse, error) {
			return remote.QuerySearchAnalytics(ctx, r.SiteURL, r.body())
		})
}

// ListSitemaps lists the sitemaps submitted for req.SiteURL.
func (c *Client) ListSitemaps(ctx context.Context, req ListSitemapsRequest) (*sc.SitemapsListResponse, error) {
	return runSiteScoped(ctx, c, OpListSitemaps, req,
		func(ctx context.Context, remote Remote, r ListSitemapsRequest) (*sc.SitemapsListResponse, error) {
			return remote.ListSitemaps(ctx, r.SiteURL, r.SitemapIndex)
		})
}

// GetSitemap fetches one sitemap's status.
func (c *Client) GetSitemap(ctx context.Context, req SitemapRequest) (*sc.WmxSitemap, error) {
	return runSiteScoped(ctx, c, OpGetSitemap, req,
		func(ctx context.Context, remote Remote, r SitemapRequest) (*sc.WmxSitemap, error) {
			return remote.GetSitemap(ctx, r.SiteURL, r.Feedpath)
		})
}

// SubmitSitemap submits a sitemap for crawling.
func (c *Client) SubmitSitemap(ctx context.Context, req SitemapRequest) error {
	_, err := runSiteScoped(ctx, c, OpSubmitSitemap, req,
		func(ctx context.Context, remote Remote, r SitemapRequest) (struct{}, error) {
			return struct{}{}, remote.SubmitSitemap(ctx, r.SiteURL, r.Feedpath)
		})
	return err
}

// ListSites lists the properties visible to the service identity. It has no
// site scope and is never retried.
func (c *Client) ListSites(ctx context.Context) (*sc.SitesListResponse, error) {
	ctx, span := c.startSpan(ctx, OpListSites)
	defer span.End()
	start := time.Now()

	remote, err := c.sessions.Open(ctx)
	if err != nil {
		c.finish(span, OpListSites, start, err)
		return nil, err
	}
	resp, err := remote.ListSites(ctx)
	c.finish(span, OpListSites, start, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// InspectURL inspects the index status of req.InspectionURL and summarizes
// it. The identifier is sent as given; there is no fallback.
func (c *Client) InspectURL(ctx context.Context, req InspectRequest) (*InspectionSummary, error) {
	ctx, span := c.startSpan(ctx, OpInspectURL, attribute.String("searchconsole.site_url", req.SiteURL))
	defer span.End()
	start := time.Now()

	remote, err := c.sessions.Open(ctx)
	if err != nil {
		c.finish(span, OpInspectURL, start, err)
		return nil, err
	}
	resp, err := remote.InspectURL(ctx, req.body())
	c.finish(span, OpInspectURL, start, err)
	if err != nil {
		return nil, err
	}
	return Summarize(resp), nil
}

// runSiteScoped opens a session, runs call with req and, on a fallback-class
// failure, runs it once more with a copy of req carrying the alternate site
// identifier.
func runSiteScoped[R siteScoped[R], T any](
	ctx context.Context,
	c *Client,
	op string,
	req R,
	call func(ctx context.Context, remote Remote, req R) (T, error),
) (T, error) {
	ctx, span := c.startSpan(ctx, op, attribute.String("searchconsole.site_url", req.site()))
	defer span.End()
	start := time.Now()

	var zero T
	remote, err := c.sessions.Open(ctx)
	if err != nil {
		c.finish(span, op, start, err)
		return zero, err
	}

	res, fb, err := withPermissionFallback(ctx, c.shouldFallback,
		func(ctx context.Context) (T, error) {
			return call(ctx, remote, req)
		},
		func(ctx context.Context) (T, error) {
			alternate := NormalizeSiteURL(req.site())
			c.logger.Debug("retrying with alternate site identifier",
				zap.String("operation", op),
				zap.String("site_url", req.site()),
				zap.String("alternate_site_url", alternate),
			)
			span.SetAttributes(attribute.String("searchconsole.alternate_site_url", alternate))
			return call(ctx, remote, req.withSiteURL(alternate))
		},
	)
	if fb != fallbackNotTried {
		telemetry.ObserveFallback(op, fb.String())
		span.SetAttributes(attribute.String("searchconsole.fallback", fb.String()))
	}
	c.finish(span, op, start, err)
	if err != nil {
		return zero, err
	}
	return res, nil
}

func (c *Client) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "searchconsole."+op, trace.WithAttributes(attrs...))
}

func (c *Client) finish(span trace.Span, op string, start time.Time, err error) {
	outcome := telemetry.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrAuth):
		outcome = telemetry.OutcomeAuthError
	default:
		outcome = telemetry.OutcomeError
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	telemetry.ObserveOperation(op, outcome, time.Since(start))
}
