package searchconsole

import (
	"context"
	"strings"

	sc "google.golang.org/api/searchconsole/v1"
)

// Limiter blocks until a call for key may proceed.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// LimitedSessions wraps every Remote opened by Sessions so that each API
// call first waits on Limiter. Calls are keyed by property host, so both
// forms of a site identifier share one budget.
type LimitedSessions struct {
	Sessions Sessions
	Limiter  Limiter
}

// Open opens a session from the wrapped factory and rate limits it.
func (s LimitedSessions) Open(ctx context.Context) (Remote, error) {
	remote, err := s.Sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	if s.Limiter == nil {
		return remote, nil
	}
	return &limitedRemote{next: remote, limiter: s.Limiter}, nil
}

// QuotaKey maps a site identifier onto the property host it belongs to.
// Identifiers without a recognizable host are used as given.
func QuotaKey(siteURL string) string {
	if host, ok := strings.CutPrefix(siteURL, DomainPropertyPrefix); ok {
		if ascii, ok := parseHost(strings.TrimSpace(host)); ok {
			return ascii
		}
		return strings.ToLower(host)
	}
	if host, ok := httpHost(siteURL); ok {
		return host
	}
	return siteURL
}

type limitedRemote struct {
	next    Remote
	limiter Limiter
}

func (r *limitedRemote) QuerySearchAnalytics(
	ctx context.Context,
	siteURL string,
	query *sc.SearchAnalyticsQueryRequest,
) (*sc.SearchAnalyticsQueryResponse, error) {
	if err := r.limiter.Wait(ctx, QuotaKey(siteURL)); err != nil {
		return nil, err
	}
	return r.next.QuerySearchAnalytics(ctx, siteURL, query)
}

func (r *limitedRemote) ListSitemaps(ctx context.Context, siteURL, sitemapIndex string) (*sc.SitemapsListResponse, error) {
	if err := r.limiter.Wait(ctx, QuotaKey(siteURL)); err != nil {
		return nil, err
	}
	return r.next.ListSitemaps(ctx, siteURL, sitemapIndex)
}

func (r *limitedRemote) GetSitemap(ctx context.Context, siteURL, feedpath string) (*sc.WmxSitemap, error) {
	if err := r.limiter.Wait(ctx, QuotaKey(siteURL)); err != nil {
		return nil, err
	}
	return r.next.GetSitemap(ctx, siteURL, feedpath)
}

func (r *limitedRemote) SubmitSitemap(ctx context.Context, siteURL, feedpath string) error {
	if err := r.limiter.Wait(ctx, QuotaKey(siteURL)); err != nil {
		return err
	}
	return r.next.SubmitSitemap(ctx, siteURL, feedpath)
}

func (r *limitedRemote) ListSites(ctx context.Context) (*sc.SitesListResponse, error) {
	if err := r.limiter.Wait(ctx, ""); err != nil {
		return nil, err
	}
	return r.next.ListSites(ctx)
}

func (r *limitedRemote) InspectURL(ctx context.Context, req *sc.InspectUrlIndexRequest) (*sc.InspectUrlIndexResponse, error) {
	if err := r.limiter.Wait(ctx, QuotaKey(req.SiteUrl)); err != nil {
		return nil, err
	}
	return r.next.InspectURL(ctx, req)
}
