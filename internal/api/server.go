package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	sc "google.golang.org/api/searchconsole/v1"

	"github.com/JakeFAU/search-console-gateway/internal/config"
	"github.com/JakeFAU/search-console-gateway/internal/export"
	"github.com/JakeFAU/search-console-gateway/internal/publisher"
	"github.com/JakeFAU/search-console-gateway/internal/searchconsole"
	"github.com/JakeFAU/search-console-gateway/internal/telemetry"
)

// Reporter is the subset of searchconsole.Client the handlers call.
type Reporter interface {
	SearchAnalytics(ctx context.Context, req searchconsole.SearchAnalyticsRequest) (*sc.SearchAnalyticsQueryResponse, error)
	ListSitemaps(ctx context.Context, req searchconsole.ListSitemapsRequest) (*sc.SitemapsListResponse, error)
	GetSitemap(ctx context.Context, req searchconsole.SitemapRequest) (*sc.WmxSitemap, error)
	SubmitSitemap(ctx context.Context, req searchconsole.SitemapRequest) error
	ListSites(ctx context.Context) (*sc.SitesListResponse, error)
	InspectURL(ctx context.Context, req searchconsole.InspectRequest) (*searchconsole.InspectionSummary, error)
}

// Exporter writes analytics reports to storage.
type Exporter interface {
	Export(ctx context.Context, req searchconsole.SearchAnalyticsRequest) (export.Result, error)
}

// Server wires HTTP handlers to the Search Console client.
type Server struct {
	router   chi.Router
	reporter Reporter
	exporter Exporter
	events   publisher.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewServer constructs a Server with middleware and routes. A nil exporter
// leaves the export route unregistered; a nil events publisher drops events.
func NewServer(
	reporter Reporter,
	exporter Exporter,
	events publisher.Publisher,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = publisher.Noop{}
	}
	s := &Server{
		reporter: reporter,
		exporter: exporter,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(telemetry.Middleware)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", telemetry.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(cfg.RequestTimeout()))
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/sites", s.listSites)
		r.Post("/searchanalytics", s.searchAnalytics)
		if exporter != nil {
			r.Post("/searchanalytics/export", s.exportSearchAnalytics)
		}
		r.Get("/sitemaps", s.listSitemaps)
		r.Get("/sitemap", s.getSitemap)
		r.Put("/sitemap", s.submitSitemap)
		r.Post("/inspect", s.inspectURL)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	resp, err := s.reporter.ListSites(r.Context())
	if err != nil {
		s.writeUpstreamError(w, r, searchconsole.OpListSites, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) searchAnalytics(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalytics(w, r)
	if !ok {
		return
	}
	resp, err := s.reporter.SearchAnalytics(r.Context(), req)
	if err != nil {
		s.writeUpstreamError(w, r, searchconsole.OpSearchAnalytics, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) exportSearchAnalytics(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalytics(w, r)
	if !ok {
		return
	}
	result, err := s.exporter.Export(r.Context(), req)
	if err != nil {
		s.writeUpstreamError(w, r, "export", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) decodeAnalytics(w http.ResponseWriter, r *http.Request) (searchconsole.SearchAnalyticsRequest, bool) {
	var req searchconsole.SearchAnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	if missing := missingFields(
		"siteUrl", req.SiteURL,
		"startDate", req.StartDate,
		"endDate", req.EndDate,
	); missing != "" {
		s.writeError(w, http.StatusBadRequest, missing)
		return req, false
	}
	return req, true
}

func (s *Server) listSitemaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := searchconsole.ListSitemapsRequest{
		SiteURL:      q.Get("siteUrl"),
		SitemapIndex: q.Get("sitemapIndex"),
	}
	if missing := missingFields("siteUrl", req.SiteURL); missing != "" {
		s.writeError(w, http.StatusBadRequest, missing)
		return
	}
	resp, err := s.reporter.ListSitemaps(r.Context(), req)
	if err != nil {
		s.writeUpstreamError(w, r, searchconsole.OpListSitemaps, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSitemap(w http.ResponseWriter, r *http.Request) {
	req, ok := s.sitemapRequest(w, r)
	if !ok {
		return
	}
	resp, err := s.reporter.GetSitemap(r.Context(), req)
	if err != nil {
		s.writeUpstreamError(w, r, searchconsole.OpGetSitemap, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) submitSitemap(w http.ResponseWriter, r *http.Request) {
	req, ok := s.sitemapRequest(w, r)
	if !ok {
		return
	}
	if err := s.reporter.SubmitSitemap(r.Context(), req); err != nil {
		s.writeUpstreamError(w, r, searchconsole.OpSubmitSitemap, err)
		return
	}
	body := map[string]string{
		"siteUrl":  req.SiteURL,
		"feedpath": req.Feedpath,
		"status":   "submitted",
	}
	eventID := publisher.AnnounceSitemapSubmitted(r.Context(), s.events, s.logger, req.SiteURL, req.Feedpath, s.now())
	if eventID != "" {
		body["eventId"] = eventID
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) sitemapRequest(w http.ResponseWriter, r *http.Request) (searchconsole.SitemapRequest, bool) {
	q := r.URL.Query()
	req := searchconsole.SitemapRequest{
		SiteURL:  q.Get("siteUrl"),
		Feedpath: q.Get("feedpath"),
	}
	if missing := missingFields("siteUrl", req.SiteURL, "feedpath", req.Feedpath); missing != "" {
		s.writeError(w, http.StatusBadRequest, missing)
		return req, false
	}
	return req, true
}

func (s *Server) inspectURL(w http.ResponseWriter, r *http.Request) {
	var req searchconsole.InspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if missing := missingFields("inspectionUrl", req.InspectionURL, "siteUrl", req.SiteURL); missing != "" {
		s.writeError(w, http.StatusBadRequest, missing)
		return
	}
	summary, err := s.reporter.InspectURL(r.Context(), req)
	if err != nil {
		s.writeUpstreamError(w, r, searchconsole.OpInspectURL, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// missingFields takes name/value pairs and reports the names with blank values.
func missingFields(pairs ...string) string {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return strings.Join(missing, ", ") + " required"
}

// statusFor maps client errors onto HTTP status codes.
func statusFor(err error) int {
	var apiErr *googleapi.Error
	switch {
	case errors.Is(err, searchconsole.ErrAuth):
		return http.StatusBadGateway
	case errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 600:
		return apiErr.Code
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.logger.Warn("operation failed",
		zap.String("operation", op),
		zap.String("request_id", RequestID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
