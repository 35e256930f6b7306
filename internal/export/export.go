// Package export writes search analytics reports to blob storage.
package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"
	sc "google.golang.org/api/searchconsole/v1"

	"github.com/JakeFAU/search-console-gateway/internal/searchconsole"
)

const contentTypeJSON = "application/json"

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Analytics runs search analytics queries.
type Analytics interface {
	SearchAnalytics(ctx context.Context, req searchconsole.SearchAnalyticsRequest) (*sc.SearchAnalyticsQueryResponse, error)
}

// Result describes a written report.
type Result struct {
	URI    string `json:"uri"`
	Rows   int    `json:"rows"`
	// SHA256 is the hex digest of the stored report body.
	SHA256 string `json:"sha256"`
}

// Exporter runs an analytics query and stores the response as JSON.
type Exporter struct {
	analytics Analytics
	store     BlobStore
	prefix    string
	logger    *zap.Logger
}

// New constructs an Exporter.
func New(analytics Analytics, store BlobStore, prefix string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		analytics: analytics,
		store:     store,
		prefix:    strings.Trim(prefix, "/"),
		logger:    logger,
	}
}

// Export queries analytics for req and writes the response to the store.
func (e *Exporter) Export(ctx context.Context, req searchconsole.SearchAnalyticsRequest) (Result, error) {
	resp, err := e.analytics.SearchAnalytics(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("query search analytics: %w", err)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return Result{}, fmt.Errorf("marshal report: %w", err)
	}

	objectPath := ObjectPath(e.prefix, req)
	uri, err := e.store.PutObject(ctx, objectPath, contentTypeJSON, bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("store report: %w", err)
	}
	e.logger.Info("exported search analytics report",
		zap.String("site_url", req.SiteURL),
		zap.String("uri", uri),
		zap.Int("rows", len(resp.Rows)),
	)
	sum := sha256.Sum256(data)
	return Result{URI: uri, Rows: len(resp.Rows), SHA256: hex.EncodeToString(sum[:])}, nil
}

// ObjectPath builds "<prefix>/<host>/<start>_<end>.json" for req.
func ObjectPath(prefix string, req searchconsole.SearchAnalyticsRequest) string {
	name := fmt.Sprintf("%s_%s.json", pathSegment(req.StartDate), pathSegment(req.EndDate))
	return path.Join(strings.Trim(prefix, "/"), siteSegment(req.SiteURL), name)
}

// siteSegment reduces a site identifier (either form) to its hostname.
func siteSegment(siteURL string) string {
	return pathSegment(searchconsole.QuotaKey(siteURL))
}

func pathSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
	s = strings.Trim(s, ".")
	if s == "" {
		return "unknown"
	}
	return s
}
