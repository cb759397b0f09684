// Package paging drives paginated listing calls to completion, retrying
// failed pages until the listing is exhausted.
package paging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fruitsalade/slackfiles/internal/logging"
	"github.com/fruitsalade/slackfiles/internal/metrics"
	"github.com/fruitsalade/slackfiles/internal/tracing"
	"github.com/fruitsalade/slackfiles/pkg/models"
	"github.com/fruitsalade/slackfiles/pkg/protocol"
	"github.com/fruitsalade/slackfiles/pkg/retry"
)

const (
	// DefaultPageSize is the number of items requested per page.
	DefaultPageSize = 200
	// DefaultRetryDelay is the fixed wait before retrying a failed page.
	DefaultRetryDelay = 20 * time.Second
)

// ErrInvalidPage is returned by a page attempt that came back ok=false or
// without paging metadata. It is always retried.
var ErrInvalidPage = errors.New("invalid listing page")

// ListFunc fetches one page of a listing.
type ListFunc func(ctx context.Context, page, count int) (*protocol.Page, error)

// Config holds fetcher configuration.
type Config struct {
	PageSize int
	Delay    time.Duration // zero or negative means DefaultRetryDelay

	// ShouldRetry filters transport errors. Nil retries every error.
	// Invalid pages are retried regardless.
	ShouldRetry func(error) bool

	Clock  clock.Clock
	Logger *zap.Logger
}

// Fetcher accumulates every page of a listing into one slice.
// Pages are fetched strictly in sequence.
type Fetcher struct {
	pageSize    int
	delay       time.Duration
	shouldRetry func(error) bool
	clock       clock.Clock
	logger      *zap.Logger
	tracer      trace.Tracer
}

// New creates a fetcher, filling defaults for zero fields.
func New(cfg Config) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultRetryDelay
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = retry.Always
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Fetcher{
		pageSize:    cfg.PageSize,
		delay:       cfg.Delay,
		shouldRetry: cfg.ShouldRetry,
		clock:       cfg.Clock,
		logger:      logging.Or(cfg.Logger),
		tracer:      tracing.Tracer("slackfiles/paging"),
	}
}

// FetchAll calls op for pages 1..n until a page reports it is the last one,
// returning all items listed under itemsKey in fetch order. Failed or invalid
// pages are retried forever with a fixed delay; the only error returned is a
// context error or one rejected by ShouldRetry.
func (f *Fetcher) FetchAll(ctx context.Context, op ListFunc, itemsKey, description string) ([]models.Record, error) {
	ctx, span := f.tracer.Start(ctx, "paging.fetch_all",
		trace.WithAttributes(
			attribute.String("listing", description),
			attribute.Int("page_size", f.pageSize),
		),
	)
	defer span.End()

	all := make([]models.Record, 0)
	nextPage := 1
	for {
		page, err := f.fetchPage(ctx, op, nextPage, description)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("fetch page %d of %s: %w", nextPage, description, err)
		}

		items := page.ItemsFor(itemsKey)
		all = append(all, items...)
		metrics.RecordPage(description, len(items))

		reported, pages := page.Paging.Page, page.Paging.Pages
		f.logger.Info("got listing page",
			zap.String("listing", description),
			zap.Int("page", reported),
			zap.Int("pages", pages),
			zap.Int("items", len(items)),
		)
		if reported != nextPage {
			f.logger.Warn("server reported unexpected page number",
				zap.String("listing", description),
				zap.Int("expected", nextPage),
				zap.Int("reported", reported),
			)
		}

		if nextPage >= pages {
			break
		}
		nextPage++
	}

	span.SetAttributes(
		attribute.Int("pages", nextPage),
		attribute.Int("items", len(all)),
	)
	return all, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, op ListFunc, pageNum int, description string) (*protocol.Page, error) {
	ctx, span := f.tracer.Start(ctx, "paging.fetch_page",
		trace.WithAttributes(
			attribute.String("listing", description),
			attribute.Int("page", pageNum),
		),
	)
	defer span.End()

	cfg := retry.Fixed(f.delay)
	cfg.Clock = f.clock
	cfg.ShouldRetry = func(err error) bool {
		return errors.Is(err, ErrInvalidPage) || f.shouldRetry(err)
	}
	cfg.OnRetry = func(attempt int, wait time.Duration, err error) {
		reason := "error"
		if errors.Is(err, ErrInvalidPage) {
			reason = "invalid"
		}
		metrics.RecordPageRetry(description, reason)
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		f.logger.Warn("listing page failed, retrying",
			zap.String("listing", description),
			zap.Int("page", pageNum),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	return retry.DoWithResult(ctx, cfg, func() (*protocol.Page, error) {
		page, err := op(ctx, pageNum, f.pageSize)
		if err != nil {
			return nil, err
		}
		if !page.Valid() {
			return nil, invalidPage(page)
		}
		return page, nil
	})
}

func invalidPage(page *protocol.Page) error {
	if page == nil {
		return fmt.Errorf("%w: empty response", ErrInvalidPage)
	}
	if !page.OK {
		return fmt.Errorf("%w: ok=false error=%q", ErrInvalidPage, page.Error)
	}
	return fmt.Errorf("%w: missing paging metadata", ErrInvalidPage)
}
