package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"github.com/fruitsalade/slackfiles/internal/config"
	"github.com/fruitsalade/slackfiles/internal/dataset"
	"github.com/fruitsalade/slackfiles/internal/directory"
	"github.com/fruitsalade/slackfiles/internal/logging"
	"github.com/fruitsalade/slackfiles/internal/metrics"
	"github.com/fruitsalade/slackfiles/internal/paging"
	"github.com/fruitsalade/slackfiles/internal/report"
	"github.com/fruitsalade/slackfiles/internal/session"
	"github.com/fruitsalade/slackfiles/internal/store/factory"
	"github.com/fruitsalade/slackfiles/pkg/client"
	"github.com/fruitsalade/slackfiles/pkg/retry"
)

// Rate-limited or failed deletions are retried with backoff before the
// file is counted as failed.
const (
	deleteAttempts = 4
	deleteWait     = time.Second
	deleteMaxWait  = 8 * time.Second
)

type options struct {
	cache        bool
	noFileCache  bool
	refetch      bool
	users        bool
	deleteImages bool
}

type app struct {
	cfg     *config.Config
	opts    options
	out     io.Writer
	confirm Confirmer
	logger  *zap.Logger
	clock   clock.Clock // nil means the wall clock
}

func (a *app) run(ctx context.Context) error {
	api := client.New(client.Config{
		BaseURL:   a.cfg.APIURL,
		Token:     a.cfg.Token,
		Transport: metrics.Transport(logging.Transport(client.DefaultTransport())),
	})

	state := session.New()
	var cache *session.Cache
	if a.opts.cache {
		backend, err := factory.New(ctx, a.cfg.Store())
		if err != nil {
			return err
		}
		defer backend.Close()

		cache = session.NewCache(backend, a.cfg.Cache.Key, a.logger)
		state, _, err = cache.Load(ctx, session.Policy{
			RefreshFiles:    a.opts.noFileCache,
			RefreshRawFiles: a.opts.refetch,
		})
		if err != nil {
			return err
		}
	}

	dirs := directory.New(state, api, a.logger)
	fetcher := paging.New(paging.Config{
		PageSize: a.cfg.PageSize,
		Delay:    a.cfg.RetryDelay,
		Logger:   a.logger,
	})
	builder := dataset.New(state, dirs, fetcher, api.ListFiles, dataset.Config{
		MaxAge: a.cfg.AbandonAfter,
		Logger: a.logger,
	})

	if err := builder.Build(ctx); err != nil {
		return err
	}
	if a.opts.users {
		if _, err := dirs.EnsureUsers(ctx); err != nil {
			return err
		}
	}
	if cache != nil {
		if err := cache.Save(ctx, state); err != nil {
			return err
		}
	}

	files, _ := state.Files.Get()
	abandoned, _ := state.Abandoned.Get()
	stats := dataset.Summarize(files, abandoned)
	stats.Publish()
	if err := report.WriteStats(a.out, stats); err != nil {
		return err
	}

	if !a.opts.deleteImages {
		return nil
	}
	return a.deleteAbandonedImages(ctx, api, dataset.SummarizeAbandonedImages(abandoned))
}

// fileDeleter removes one file by id.
type fileDeleter interface {
	DeleteFile(ctx context.Context, fileID string) error
}

func (a *app) deleteAbandonedImages(ctx context.Context, api fileDeleter, summary dataset.ImageSummary) error {
	fmt.Fprintln(a.out)
	if err := report.WriteImageSummary(a.out, summary); err != nil {
		return err
	}
	if summary.Empty() {
		return nil
	}

	ok, err := a.confirm.Confirm(summary)
	if err != nil {
		return fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		a.logger.Info("delete declined", zap.Int("images", len(summary.IDs)))
		return nil
	}

	failed := 0
	for _, id := range summary.IDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.deleteFile(ctx, api, id); err != nil {
			failed++
			a.logger.Warn("delete failed", zap.String("file_id", id), zap.Error(err))
			continue
		}
		a.logger.Debug("deleted file", zap.String("file_id", id))
	}

	deleted := len(summary.IDs) - failed
	fmt.Fprintf(a.out, "Deleted %d of %d abandoned images\n", deleted, len(summary.IDs))
	a.logger.Info("deleted abandoned images", zap.Int("deleted", deleted), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d deletions failed", failed, len(summary.IDs))
	}
	return nil
}

func (a *app) deleteFile(ctx context.Context, api fileDeleter, id string) error {
	policy := retry.Exponential(deleteAttempts, deleteWait, deleteMaxWait)
	policy.Clock = a.clock
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		a.logger.Info("retrying delete",
			zap.String("file_id", id),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return retry.Do(ctx, policy, func() error {
		return api.DeleteFile(ctx, id)
	})
}
