// Package api hosts the HTTP server, middleware, and REST handlers that
// expose the Search Console operations. Notable routes:
//   - GET /healthz for probes and GET /metrics for Prometheus scraping.
//   - GET /v1/sites lists the properties visible to the service identity.
//   - POST /v1/searchanalytics runs a query; POST /v1/searchanalytics/export
//     writes the result to the configured report store.
//   - GET /v1/sitemaps, GET /v1/sitemap and PUT /v1/sitemap manage sitemaps.
//   - POST /v1/inspect summarizes the index status of a URL.
package api
