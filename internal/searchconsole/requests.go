package searchconsole

import (
	sc "google.golang.org/api/searchconsole/v1"
)

// siteScoped is implemented by request bundles that carry a site identifier.
// withSiteURL returns a copy; the receiver is never modified.
type siteScoped[R any] interface {
	site() string
	withSiteURL(siteURL string) R
}

// SearchAnalyticsRequest queries search traffic for a property.
type SearchAnalyticsRequest struct {
	SiteURL               string                        `json:"siteUrl"`
	StartDate             string                        `json:"startDate"`
	EndDate               string                        `json:"endDate"`
	Dimensions            []string                      `json:"dimensions,omitempty"`
	Type                  string                        `json:"type,omitempty"`
	DataState             string                        `json:"dataState,omitempty"`
	AggregationType       string                        `json:"aggregationType,omitempty"`
	RowLimit              int64                         `json:"rowLimit,omitempty"`
	StartRow              int64                         `json:"startRow,omitempty"`
	DimensionFilterGroups []*sc.ApiDimensionFilterGroup `json:"dimensionFilterGroups,omitempty"`
}

func (r SearchAnalyticsRequest) site() string { return r.SiteURL }

func (r SearchAnalyticsRequest) withSiteURL(siteURL string) SearchAnalyticsRequest {
	r.SiteURL = siteURL
	return r
}

func (r SearchAnalyticsRequest) body() *sc.SearchAnalyticsQueryRequest {
	return &sc.SearchAnalyticsQueryRequest{
		StartDate:             r.StartDate,
		EndDate:               r.EndDate,
		Dimensions:            r.Dimensions,
		Type:                  r.Type,
		DataState:             r.DataState,
		AggregationType:       r.AggregationType,
		RowLimit:              r.RowLimit,
		StartRow:              r.StartRow,
		DimensionFilterGroups: r.DimensionFilterGroups,
	}
}

// ListSitemapsRequest lists the sitemaps submitted for a property, optionally
// restricted to the children of one sitemap index.
type ListSitemapsRequest struct {
	SiteURL      string `json:"siteUrl"`
	SitemapIndex string `json:"sitemapIndex,omitempty"`
}

func (r ListSitemapsRequest) site() string { return r.SiteURL }

func (r ListSitemapsRequest) withSiteURL(siteURL string) ListSitemapsRequest {
	r.SiteURL = siteURL
	return r
}

// SitemapRequest addresses a single sitemap. It is used by get and submit.
type SitemapRequest struct {
	SiteURL  string `json:"siteUrl"`
	Feedpath string `json:"feedpath"`
}

func (r SitemapRequest) site() string { return r.SiteURL }

func (r SitemapRequest) withSiteURL(siteURL string) SitemapRequest {
	r.SiteURL = siteURL
	return r
}

// InspectRequest asks for the index status of one URL within a property.
type InspectRequest struct {
	InspectionURL string `json:"inspectionUrl"`
	SiteURL       string `json:"siteUrl"`
	LanguageCode  string `json:"languageCode,omitempty"`
}

func (r InspectRequest) body() *sc.InspectUrlIndexRequest {
	return &sc.InspectUrlIndexRequest{
		InspectionUrl: r.InspectionURL,
		SiteUrl:       r.SiteURL,
		LanguageCode:  r.LanguageCode,
	}
}
