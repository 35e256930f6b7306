// Package publisher defines the events emitted by the gateway and the
// Publisher seam that carries them.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/search-console-gateway/internal/telemetry"
)

// TopicSitemapSubmitted names events emitted after a sitemap submission succeeds.
const TopicSitemapSubmitted = "sitemap.submitted"

// Publisher delivers an event payload and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// SitemapSubmitted records a sitemap accepted by Search Console.
type SitemapSubmitted struct {
	ID          string    `json:"id"`
	SiteURL     string    `json:"siteUrl"`
	Feedpath    string    `json:"feedpath"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewSitemapSubmitted stamps a new event with a time-ordered id.
func NewSitemapSubmitted(siteURL, feedpath string, at time.Time) (SitemapSubmitted, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return SitemapSubmitted{}, fmt.Errorf("generate event id: %w", err)
	}
	return SitemapSubmitted{
		ID:          id.String(),
		SiteURL:     siteURL,
		Feedpath:    feedpath,
		SubmittedAt: at.UTC(),
	}, nil
}

// Noop drops every event.
type Noop struct{}

// Publish discards the payload.
func (Noop) Publish(context.Context, string, any) (string, error) {
	return "", nil
}

// PublishSitemapSubmitted builds a SitemapSubmitted event and publishes it on
// TopicSitemapSubmitted.
func PublishSitemapSubmitted(ctx context.Context, p Publisher, siteURL, feedpath string, at time.Time) (SitemapSubmitted, error) {
	event, err := NewSitemapSubmitted(siteURL, feedpath, at)
	if err != nil {
		return SitemapSubmitted{}, err
	}
	if _, err := p.Publish(ctx, TopicSitemapSubmitted, event); err != nil {
		return SitemapSubmitted{}, fmt.Errorf("publish %s: %w", TopicSitemapSubmitted, err)
	}
	return event, nil
}

// AnnounceSitemapSubmitted publishes the event for a submission that already
// succeeded and returns its id. A failed publish is counted and logged at
// Warn, and the id is empty.
func AnnounceSitemapSubmitted(
	ctx context.Context,
	p Publisher,
	logger *zap.Logger,
	siteURL, feedpath string,
	at time.Time,
) string {
	event, err := PublishSitemapSubmitted(ctx, p, siteURL, feedpath, at)
	if err != nil {
		telemetry.ObserveEventPublished(telemetry.OutcomeError)
		logger.Warn("sitemap event publish failed",
			zap.String("site_url", siteURL),
			zap.String("feedpath", feedpath),
			zap.Error(err),
		)
		return ""
	}
	telemetry.ObserveEventPublished(telemetry.OutcomeSuccess)
	return event.ID
}
