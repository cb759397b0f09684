package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fruitsalade/slackfiles/internal/logging"
	"github.com/fruitsalade/slackfiles/internal/store"
)

// DefaultKey is the store key of the session snapshot.
const DefaultKey = "slackfiles-cache.json"

// Cache loads and saves session snapshots under one key.
type Cache struct {
	backend store.Backend
	key     string
	logger  *zap.Logger
}

// NewCache creates a cache over backend. An empty key means DefaultKey.
func NewCache(backend store.Backend, key string, logger *zap.Logger) *Cache {
	if key == "" {
		key = DefaultKey
	}
	return &Cache{backend: backend, key: key, logger: logging.Or(logger)}
}

// Load reads the snapshot. A missing snapshot yields an empty state and
// found=false; a malformed one yields ErrCorrupt.
func (c *Cache) Load(ctx context.Context, p Policy) (*State, bool, error) {
	data, err := c.backend.GetObject(ctx, c.key)
	if errors.Is(err, store.ErrNotFound) {
		c.logger.Info("no session cache available", zap.String("key", c.key))
		return New(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", c.key, err)
	}

	s, err := Decode(data, p)
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", c.key, err)
	}
	c.logger.Info("loaded session cache",
		zap.String("key", c.key),
		zap.String("backend", c.backend.Type()),
		zap.Strings("slots", s.PresentSlots()),
	)
	return s, true, nil
}

// Save writes a full snapshot of s.
func (c *Cache) Save(ctx context.Context, s *State) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := c.backend.PutObject(ctx, c.key, data); err != nil {
		return fmt.Errorf("save session %s: %w", c.key, err)
	}
	c.logger.Info("saved session cache",
		zap.String("key", c.key),
		zap.Int("bytes", len(data)),
		zap.Strings("slots", s.PresentSlots()),
	)
	return nil
}

// Clear removes the snapshot.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.backend.DeleteObject(ctx, c.key); err != nil {
		return fmt.Errorf("clear session %s: %w", c.key, err)
	}
	return nil
}
