// Package dataset builds the enriched file list and the abandoned subset
// from the raw files listing, memoizing every step in the session state.
package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"github.com/fruitsalade/slackfiles/internal/logging"
	"github.com/fruitsalade/slackfiles/internal/paging"
	"github.com/fruitsalade/slackfiles/internal/session"
	"github.com/fruitsalade/slackfiles/pkg/models"
)

// DefaultMaxAge is how long a public, unstarred, unpinned file may go
// without updates before it counts as abandoned.
const DefaultMaxAge = 60 * 24 * time.Hour

// Fetcher drains a paginated listing.
type Fetcher interface {
	FetchAll(ctx context.Context, op paging.ListFunc, itemsKey, description string) ([]models.Record, error)
}

// ChannelDirectory provides the channel id -> record map.
type ChannelDirectory interface {
	EnsureChannels(ctx context.Context) (models.Directory, error)
}

// Config holds builder settings.
type Config struct {
	MaxAge time.Duration
	Clock  clock.Clock
	Logger *zap.Logger
}

// Builder computes the raw_files, files and nsnpf slots of a session.
type Builder struct {
	state    *session.State
	channels ChannelDirectory
	fetcher  Fetcher
	list     paging.ListFunc
	maxAge   time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// New creates a builder. list is the files listing call handed to fetcher.
func New(state *session.State, channels ChannelDirectory, fetcher Fetcher, list paging.ListFunc, cfg Config) *Builder {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Builder{
		state:    state,
		channels: channels,
		fetcher:  fetcher,
		list:     list,
		maxAge:   cfg.MaxAge,
		clock:    cfg.Clock,
		logger:   logging.Or(cfg.Logger),
	}
}

// RawFiles returns the unmodified files listing, fetching it on first use.
func (b *Builder) RawFiles(ctx context.Context) ([]models.Record, error) {
	if raw, ok := b.state.RawFiles.Get(); ok {
		return raw, nil
	}
	raw, err := b.fetcher.FetchAll(ctx, b.list, "files", "files list")
	if err != nil {
		return nil, fmt.Errorf("fetch raw files: %w", err)
	}
	b.state.RawFiles = models.Present(raw)
	return raw, nil
}

// Cutoff returns the abandonment cutoff relative to the builder's clock.
func (b *Builder) Cutoff() time.Time {
	return b.clock.Now().Add(-b.maxAge)
}

// Build fills the files and nsnpf slots. It does nothing when both are
// already present; if either is absent both are recomputed. Both slots
// are set only after the whole pass succeeds.
func (b *Builder) Build(ctx context.Context) error {
	if b.state.Files.IsPresent() && b.state.Abandoned.IsPresent() {
		return nil
	}

	dir, err := b.channels.EnsureChannels(ctx)
	if err != nil {
		return fmt.Errorf("build files: %w", err)
	}
	raw, err := b.RawFiles(ctx)
	if err != nil {
		return fmt.Errorf("build files: %w", err)
	}

	cutoff := b.Cutoff()
	b.logger.Info("classifying files",
		zap.Time("cutoff", cutoff),
		zap.Duration("max_age", b.maxAge),
		zap.Int("files", len(raw)),
	)

	files := make([]models.Record, 0, len(raw))
	abandoned := make([]models.Record, 0)
	for _, r := range raw {
		f := Enrich(r, dir)
		files = append(files, f)
		if IsAbandoned(f, cutoff) {
			abandoned = append(abandoned, f)
		}
	}

	b.state.Files = models.Present(files)
	b.state.Abandoned = models.Present(abandoned)
	b.logger.Info("built file datasets",
		zap.Int("files", len(files)),
		zap.Int("abandoned", len(abandoned)),
	)
	return nil
}

// Files builds if needed and returns the enriched files.
func (b *Builder) Files(ctx context.Context) ([]models.Record, error) {
	if err := b.Build(ctx); err != nil {
		return nil, err
	}
	files, _ := b.state.Files.Get()
	return files, nil
}

// Abandoned builds if needed and returns the abandoned subset.
func (b *Builder) Abandoned(ctx context.Context) ([]models.Record, error) {
	if err := b.Build(ctx); err != nil {
		return nil, err
	}
	abandoned, _ := b.state.Abandoned.Get()
	return abandoned, nil
}

// Enrich returns a deep copy of raw with channel ids replaced by channel
// names. Ids missing from dir are kept as-is. raw is not modified.
func Enrich(raw models.Record, dir models.Directory) models.Record {
	out := raw.Clone()
	switch list := out[models.FieldChannels].(type) {
	case []any:
		for i, v := range list {
			if id, ok := v.(string); ok {
				list[i] = dir.Name(id)
			}
		}
	case []string:
		for i, id := range list {
			list[i] = dir.Name(id)
		}
	}
	return out
}

// IsAbandoned reports whether file is public, unstarred, unpinned and last
// updated before cutoff. A file without "updated" is judged by "created".
func IsAbandoned(file models.Record, cutoff time.Time) bool {
	f := models.AsFile(file)
	return f.IsPublic() &&
		f.NumStarred() == 0 &&
		!f.IsPinned() &&
		f.EffectiveUpdated() < cutoff.Unix()
}
