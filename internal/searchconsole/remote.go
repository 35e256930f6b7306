package searchconsole

import (
	"context"

	sc "google.golang.org/api/searchconsole/v1"
)

// Remote is the subset of the Search Console API used by the Client.
type Remote interface {
	QuerySearchAnalytics(ctx context.Context, siteURL string, query *sc.SearchAnalyticsQueryRequest) (*sc.SearchAnalyticsQueryResponse, error)
	ListSitemaps(ctx context.Context, siteURL, sitemapIndex string) (*sc.SitemapsListResponse, error)
	GetSitemap(ctx context.Context, siteURL, feedpath string) (*sc.WmxSitemap, error)
	SubmitSitemap(ctx context.Context, siteURL, feedpath string) error
	ListSites(ctx context.Context) (*sc.SitesListResponse, error)
	InspectURL(ctx context.Context, req *sc.InspectUrlIndexRequest) (*sc.InspectUrlIndexResponse, error)
}

// apiRemote adapts the generated searchconsole/v1 service to Remote. Errors are
// returned exactly as the API client produced them (usually *googleapi.Error).
type apiRemote struct {
	svc *sc.Service
}

// NewRemote wraps an existing searchconsole service.
func NewRemote(svc *sc.Service) Remote {
	return &apiRemote{svc: svc}
}

func (r *apiRemote) QuerySearchAnalytics(
	ctx context.Context,
	siteURL string,
	query *sc.SearchAnalyticsQueryRequest,
) (*sc.SearchAnalyticsQueryResponse, error) {
	if query == nil {
		query = &sc.SearchAnalyticsQueryRequest{}
	}
	return r.svc.Searchanalytics.Query(siteURL, query).Context(ctx).Do()
}

func (r *apiRemote) ListSitemaps(ctx context.Context, siteURL, sitemapIndex string) (*sc.SitemapsListResponse, error) {
	call := r.svc.Sitemaps.List(siteURL).Context(ctx)
	if sitemapIndex != "" {
		call = call.SitemapIndex(sitemapIndex)
	}
	return call.Do()
}

func (r *apiRemote) GetSitemap(ctx context.Context, siteURL, feedpath string) (*sc.WmxSitemap, error) {
	return r.svc.Sitemaps.Get(siteURL, feedpath).Context(ctx).Do()
}

func (r *apiRemote) SubmitSitemap(ctx context.Context, siteURL, feedpath string) error {
	return r.svc.Sitemaps.Submit(siteURL, feedpath).Context(ctx).Do()
}

func (r *apiRemote) ListSites(ctx context.Context) (*sc.SitesListResponse, error) {
	return r.svc.Sites.List().Context(ctx).Do()
}

func (r *apiRemote) InspectURL(ctx context.Context, req *sc.InspectUrlIndexRequest) (*sc.InspectUrlIndexResponse, error) {
	return r.svc.UrlInspection.Index.Inspect(req).Context(ctx).Do()
}
