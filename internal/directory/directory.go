// Package directory resolves channel and user ids through lazily fetched
// id -> record maps stored in the session state.
package directory

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fruitsalade/slackfiles/internal/logging"
	"github.com/fruitsalade/slackfiles/internal/metrics"
	"github.com/fruitsalade/slackfiles/internal/session"
	"github.com/fruitsalade/slackfiles/pkg/models"
	"github.com/fruitsalade/slackfiles/pkg/protocol"
)

// Lister returns whole, non-paginated directory listings.
type Lister interface {
	ListChannels(ctx context.Context) (*protocol.Listing, error)
	ListUsers(ctx context.Context) (*protocol.Listing, error)
}

// Cache fills the channels and users slots of a session state at most
// once each. A slot seeded from a loaded session is never refetched.
type Cache struct {
	state  *session.State
	lister Lister
	logger *zap.Logger
}

// New creates a directory cache over state.
func New(state *session.State, lister Lister, logger *zap.Logger) *Cache {
	return &Cache{state: state, lister: lister, logger: logging.Or(logger)}
}

// EnsureChannels makes the channel directory present and returns it.
func (c *Cache) EnsureChannels(ctx context.Context) (models.Directory, error) {
	return c.ensure(ctx, "channels", &c.state.Channels, c.lister.ListChannels)
}

// EnsureUsers makes the user directory present and returns it.
func (c *Cache) EnsureUsers(ctx context.Context) (models.Directory, error) {
	return c.ensure(ctx, "users", &c.state.Users, c.lister.ListUsers)
}

func (c *Cache) ensure(
	ctx context.Context,
	name string,
	slot *models.Slot[models.Directory],
	list func(context.Context) (*protocol.Listing, error),
) (models.Directory, error) {
	if dir, ok := slot.Get(); ok {
		return dir, nil
	}

	listing, err := list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	if !listing.OK {
		c.logger.Warn("directory listing not ok, using returned items",
			zap.String("directory", name),
			zap.String("error", listing.Error),
			zap.Int("items", len(listing.Items)),
		)
	}

	dir, skipped := models.NewDirectory(listing.Items)
	if skipped > 0 {
		c.logger.Debug("skipped directory entries without id",
			zap.String("directory", name),
			zap.Int("skipped", skipped),
		)
	}
	*slot = models.Present(dir)
	metrics.SetDirectorySize(name, len(dir))
	c.logger.Info("built directory",
		zap.String("directory", name),
		zap.Int("entries", len(dir)),
	)
	return dir, nil
}

// ChannelName resolves a channel id to its name, or returns the id when
// the channel is unknown.
func ChannelName(dir models.Directory, id string) string {
	return dir.Name(id)
}
