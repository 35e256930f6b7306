package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	sc "google.golang.org/api/searchconsole/v1"

	"github.com/JakeFAU/search-console-gateway/internal/config"
	"github.com/JakeFAU/search-console-gateway/internal/export"
	"github.com/JakeFAU/search-console-gateway/internal/publisher"
	"github.com/JakeFAU/search-console-gateway/internal/publisher/memory"
	"github.com/JakeFAU/search-console-gateway/internal/searchconsole"
)

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeReporter{}), http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_ListSites(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{sites: &sc.SitesListResponse{
		SiteEntry: []*sc.WmxSite{{SiteUrl: "sc-domain:example.com", PermissionLevel: "siteOwner"}},
	}}
	rec := serve(t, newTestServer(reporter), http.MethodGet, "/v1/sites", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sc-domain:example.com")
}

func TestServer_SearchAnalytics(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{analytics: &sc.SearchAnalyticsQueryResponse{
		Rows: []*sc.ApiDataRow{{Keys: []string{"golang"}, Clicks: 12}},
	}}
	body := `{"siteUrl":"https://example.com/","startDate":"2024-01-01","endDate":"2024-01-31","dimensions":["query"],"rowLimit":10}`
	rec := serve(t, newTestServer(reporter), http.MethodPost, "/v1/searchanalytics", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "golang")
	require.Len(t, reporter.analyticsCalls, 1)
	got := reporter.analyticsCalls[0]
	assert.Equal(t, "https://example.com/", got.SiteURL)
	assert.Equal(t, []string{"query"}, got.Dimensions)
	assert.Equal(t, int64(10), got.RowLimit)
}

func TestServer_SearchAnalytics_BadRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "invalid JSON", body: "{invalid", want: "invalid JSON"},
		{name: "missing site", body: `{"startDate":"2024-01-01","endDate":"2024-01-31"}`, want: "siteUrl required"},
		{name: "missing dates", body: `{"siteUrl":"https://example.com/"}`, want: "startDate, endDate required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reporter := &fakeReporter{}
			rec := serve(t, newTestServer(reporter), http.MethodPost, "/v1/searchanalytics", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Empty(t, reporter.analyticsCalls)
		})
	}
}

func TestServer_ErrorStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "auth failure",
			err:  &searchconsole.AuthError{Op: "load credentials", Err: errors.New("no such file")},
			want: http.StatusBadGateway,
		},
		{
			name: "remote permission error",
			err:  &googleapi.Error{Code: http.StatusForbidden, Message: "User does not have sufficient permission"},
			want: http.StatusForbidden,
		},
		{
			name: "remote not found",
			err:  &googleapi.Error{Code: http.StatusNotFound, Message: "not found"},
			want: http.StatusNotFound,
		},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: http.StatusGatewayTimeout},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reporter := &fakeReporter{err: tt.err}
			rec := serve(t, newTestServer(reporter), http.MethodGet, "/v1/sites", "")

			require.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.err.Error())
		})
	}
}

func TestServer_ListSitemaps(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{sitemaps: &sc.SitemapsListResponse{
		Sitemap: []*sc.WmxSitemap{{Path: "https://example.com/sitemap.xml"}},
	}}
	server := newTestServer(reporter)

	rec := serve(t, server, http.MethodGet, "/v1/sitemaps?siteUrl=sc-domain:example.com&sitemapIndex=https://example.com/index.xml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.com/sitemap.xml")
	require.Len(t, reporter.listSitemapCalls, 1)
	assert.Equal(t, searchconsole.ListSitemapsRequest{
		SiteURL:      "sc-domain:example.com",
		SitemapIndex: "https://example.com/index.xml",
	}, reporter.listSitemapCalls[0])

	rec = serve(t, server, http.MethodGet, "/v1/sitemaps", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetSitemap(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{sitemap: &sc.WmxSitemap{Path: "https://example.com/sitemap.xml", Errors: 2}}
	server := newTestServer(reporter)

	rec := serve(t, server, http.MethodGet, "/v1/sitemap?siteUrl=https://example.com/&feedpath=https://example.com/sitemap.xml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors":"2"`)

	rec = serve(t, server, http.MethodGet, "/v1/sitemap?siteUrl=https://example.com/", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedpath required")
}

func TestServer_SubmitSitemap_PublishesEvent(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{}
	events := memory.New()
	server := NewServer(reporter, nil, events, testConfig(), zap.NewNop())
	server.now = func() time.Time { return time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC) }

	rec := serve(t, server, http.MethodPut, "/v1/sitemap?siteUrl=https://example.com/&feedpath=https://example.com/sitemap.xml", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, reporter.submitCalls, 1)
	msgs := events.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, publisher.TopicSitemapSubmitted, msgs[0].Topic)

	var event publisher.SitemapSubmitted
	require.NoError(t, json.Unmarshal(msgs[0].Data, &event))
	assert.Equal(t, "https://example.com/", event.SiteURL)
	assert.Equal(t, "https://example.com/sitemap.xml", event.Feedpath)
	assert.Equal(t, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), event.SubmittedAt)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "submitted", body["status"])
	assert.Equal(t, event.ID, body["eventId"])
}

func TestServer_SubmitSitemap_PublishFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	events := memory.New()
	events.FailWith(errors.New("broker down"))
	server := NewServer(&fakeReporter{}, nil, events, testConfig(), zap.NewNop())

	rec := serve(t, server, http.MethodPut, "/v1/sitemap?siteUrl=https://example.com/&feedpath=https://example.com/sitemap.xml", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "eventId")
}

func TestServer_SubmitSitemap_FailureSkipsEvent(t *testing.T) {
	t.Parallel()

	events := memory.New()
	reporter := &fakeReporter{err: &googleapi.Error{Code: http.StatusForbidden, Message: "permission denied"}}
	server := NewServer(reporter, nil, events, testConfig(), zap.NewNop())

	rec := serve(t, server, http.MethodPut, "/v1/sitemap?siteUrl=https://example.com/&feedpath=https://example.com/sitemap.xml", "")

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, events.Messages())
}

func TestServer_InspectURL(t *testing.T) {
	t.Parallel()

	reporter := &fakeReporter{inspection: &searchconsole.InspectionSummary{
		Summary: "No index status result found.",
	}}
	server := newTestServer(reporter)

	rec := serve(t, server, http.MethodPost, "/v1/inspect",
		`{"inspectionUrl":"https://example.com/page","siteUrl":"https://example.com/","languageCode":"en-US"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary":"No index status result found."}`, rec.Body.String())
	require.Len(t, reporter.inspectCalls, 1)
	assert.Equal(t, "en-US", reporter.inspectCalls[0].LanguageCode)

	rec = serve(t, server, http.MethodPost, "/v1/inspect", `{"siteUrl":"https://example.com/"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "inspectionUrl required")
}

func TestServer_ExportSearchAnalytics(t *testing.T) {
	t.Parallel()

	exporter := &fakeExporter{result: export.Result{
		URI:    "gs://reports/example.com/2024-01-01_2024-01-31.json",
		Rows:   3,
		SHA256: "abc123",
	}}
	server := NewServer(&fakeReporter{}, exporter, nil, testConfig(), zap.NewNop())

	rec := serve(t, server, http.MethodPost, "/v1/searchanalytics/export",
		`{"siteUrl":"https://example.com/","startDate":"2024-01-01","endDate":"2024-01-31"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"uri":"gs://reports/example.com/2024-01-01_2024-01-31.json","rows":3,"sha256":"abc123"}`, rec.Body.String())
	require.Len(t, exporter.calls, 1)
	assert.Equal(t, "2024-01-31", exporter.calls[0].EndDate)
}

func TestServer_ExportRouteRequiresExporter(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeReporter{}), http.MethodPost, "/v1/searchanalytics/export",
		`{"siteUrl":"https://example.com/","startDate":"2024-01-01","endDate":"2024-01-31"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_APIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKey: "secret"}
	server := NewServer(&fakeReporter{sites: &sc.SitesListResponse{}}, nil, nil, cfg, zap.NewNop())

	rec := serve(t, server, http.MethodGet, "/v1/sites", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/sites", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, server, http.MethodGet, "/v1/sites?api_key=secret", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, server, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code, "probes stay open")
}

func TestServer_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeReporter{panics: true}), http.MethodGet, "/v1/sites", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeReporter{}), http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(&fakeReporter{}), http.MethodGet, "/healthz", "")

	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, RequestID(context.Background()))

	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, rec.Header().Get(RequestIDHeader), seen)
}

func TestRequestIDMiddleware_KeepsInboundID(t *testing.T) {
	t.Parallel()

	h := requestIDMiddleware(http.NotFoundHandler())

	inbound := "0190a4c2-6a5e-7b7e-9d7c-3f1e2a4b5c6d"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, inbound, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestServer_RequestTimeoutMapsTo504(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.API.TimeoutSeconds = 1
	server := NewServer(&fakeReporter{blocks: true}, nil, nil, cfg, zap.NewNop())

	start := time.Now()
	rec := serve(t, server, http.MethodGet, "/v1/sites", "")

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadline exceeded")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	t.Parallel()

	var deadline time.Time
	var ok bool
	h := timeoutMiddleware(time.Minute)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestMissingFields(t *testing.T) {
	t.Parallel()

	assert.Empty(t, missingFields("a", "x", "b", "y"))
	assert.Equal(t, "a required", missingFields("a", " ", "b", "y"))
	assert.Equal(t, "a, b required", missingFields("a", "", "b", ""))
}

func TestResponseWriterHijackBehavior(t *testing.T) {
	t.Parallel()

	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	require.EqualError(t, err, "hijacker not supported")

	h := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw = &responseWriter{ResponseWriter: h}
	conn, buf, err := rw.Hijack()
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, h.CloseClient())
	require.NotNil(t, buf)
}

// --- helpers/fakes ---

func testConfig() config.Config {
	return config.Config{
		API:     config.APIConfig{TimeoutSeconds: 30},
		Server:  config.ServerConfig{Port: 8080},
		Logging: config.LoggingConfig{Development: true},
	}
}

func newTestServer(reporter Reporter) *Server {
	return NewServer(reporter, nil, nil, testConfig(), zap.NewNop())
}

func serve(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

type fakeReporter struct {
	mu sync.Mutex

	analytics  *sc.SearchAnalyticsQueryResponse
	sitemaps   *sc.SitemapsListResponse
	sitemap    *sc.WmxSitemap
	sites      *sc.SitesListResponse
	inspection *searchconsole.InspectionSummary
	err        error
	panics     bool
	blocks     bool

	analyticsCalls   []searchconsole.SearchAnalyticsRequest
	listSitemapCalls []searchconsole.ListSitemapsRequest
	submitCalls      []searchconsole.SitemapRequest
	inspectCalls     []searchconsole.InspectRequest
}

func (f *fakeReporter) SearchAnalytics(
	_ context.Context,
	req searchconsole.SearchAnalyticsRequest,
) (*sc.SearchAnalyticsQueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyticsCalls = append(f.analyticsCalls, req)
	return f.analytics, f.err
}

func (f *fakeReporter) ListSitemaps(_ context.Context, req searchconsole.ListSitemapsRequest) (*sc.SitemapsListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listSitemapCalls = append(f.listSitemapCalls, req)
	return f.sitemaps, f.err
}

func (f *fakeReporter) GetSitemap(_ context.Context, _ searchconsole.SitemapRequest) (*sc.WmxSitemap, error) {
	return f.sitemap, f.err
}

func (f *fakeReporter) SubmitSitemap(_ context.Context, req searchconsole.SitemapRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls = append(f.submitCalls, req)
	return f.err
}

func (f *fakeReporter) ListSites(ctx context.Context) (*sc.SitesListResponse, error) {
	if f.panics {
		panic("boom")
	}
	if f.blocks {
		<-ctx.Done()
		return nil, fmt.Errorf("list sites: %w", ctx.Err())
	}
	return f.sites, f.err
}

func (f *fakeReporter) InspectURL(_ context.Context, req searchconsole.InspectRequest) (*searchconsole.InspectionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inspectCalls = append(f.inspectCalls, req)
	return f.inspection, f.err
}

type fakeExporter struct {
	mu     sync.Mutex
	result export.Result
	err    error
	calls  []searchconsole.SearchAnalyticsRequest
}

func (f *fakeExporter) Export(_ context.Context, req searchconsole.SearchAnalyticsRequest) (export.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.result, f.err
}

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	client net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	server, client := net.Pipe()
	h.client = client
	return server, bufio.NewReadWriter(bufio.NewReader(client), bufio.NewWriter(client)), nil
}

func (h *hijackableRecorder) CloseClient() error {
	if h.client != nil {
		if err := h.client.Close(); err != nil {
			return fmt.Errorf("close hijacker client: %w", err)
		}
	}
	return nil
}
