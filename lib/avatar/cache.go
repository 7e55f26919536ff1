// Copyright 2026 The Chotop Authors
// SPDX-License-Identifier: Apache-2.0

package avatar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/chotop-overlay/chotop/lib/config"
)

// Config configures a Cache.
type Config struct {
	// Dir is the private cache directory. Created if missing.
	Dir string

	// CDNTemplate resolves a non-URL reference. {user_id} and {avatar}
	// are replaced with the path-escaped user ID and reference.
	CDNTemplate string

	// Timeout bounds each download attempt.
	Timeout time.Duration

	// MaxAttempts bounds the attempts per download, first included.
	MaxAttempts int

	// Backoff is the delay before the first retry; it doubles for
	// each later retry.
	Backoff time.Duration
}

// ConfigFrom converts the avatar section of the daemon configuration.
func ConfigFrom(section config.AvatarConfig) Config {
	return Config{
		Dir:         section.CacheDir,
		CDNTemplate: section.CDNTemplate,
		Timeout:     section.Timeout.Std(),
		MaxAttempts: section.MaxAttempts,
		Backoff:     section.Backoff.Std(),
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	config  Config
	fetcher Fetcher
	logger  *slog.Logger

	// ctx outlives every caller: a download started for one caller
	// keeps running for the others when that caller gives up. Close
	// cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	flights singleflight.Group

	mu    sync.Mutex
	index map[Key]string
}

// NewCache creates the cache directory and returns an empty cache.
func NewCache(cfg Config, fetcher Fetcher, logger *slog.Logger) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, errors.New("avatar cache directory is required")
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("avatar download timeout must be positive")
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 250 * time.Millisecond
	}
	if cfg.CDNTemplate == "" {
		cfg.CDNTemplate = config.DefaultCDNTemplate
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating avatar cache directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		config:  cfg,
		fetcher: fetcher,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		index:   make(map[Key]string),
	}, nil
}

// Close aborts in-flight downloads. Waiting callers receive ok=false.
func (c *Cache) Close() {
	c.cancel()
}

// URL returns the download URL for key. A reference that is already
// an http(s) URL is used verbatim.
func (c *Cache) URL(key Key) string {
	if strings.HasPrefix(key.Ref, "http://") || strings.HasPrefix(key.Ref, "https://") {
		return key.Ref
	}
	replacer := strings.NewReplacer(
		"{user_id}", url.PathEscape(key.UserID),
		"{avatar}", url.PathEscape(key.Ref),
	)
	return replacer.Replace(c.config.CDNTemplate)
}

// Lookup is the fast path of Get: it returns the indexed path if the
// file still exists. An entry whose file has vanished is dropped.
func (c *Cache) Lookup(key Key) (string, bool) {
	c.mu.Lock()
	path, ok := c.index[key]
	c.mu.Unlock()
	if !ok {
		return "", false
	}

	if _, err := os.Stat(path); err != nil {
		c.mu.Lock()
		if c.index[key] == path {
			delete(c.index, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return path, true
}

// Get returns the path of the avatar for userID and ref, downloading
// it on a miss. ok is false when ref is empty, the download failed, or
// ctx ended before the shared download finished.
func (c *Cache) Get(ctx context.Context, userID, ref string) (path string, ok bool) {
	if ref == "" {
		return "", false
	}
	key := Key{UserID: userID, Ref: ref}

	if path, ok := c.Lookup(key); ok {
		return path, true
	}

	flight := c.flights.DoChan(string(key.encode()), func() (any, error) {
		// A flight that finished just before this one started has
		// already populated the index.
		if path, ok := c.Lookup(key); ok {
			return path, nil
		}
		return c.fetch(key)
	})

	select {
	case result := <-flight:
		if result.Err != nil {
			return "", false
		}
		return result.Val.(string), true
	case <-ctx.Done():
		return "", false
	}
}

// fetch downloads key and stores it. Runs at most once per key at a
// time under the singleflight group.
func (c *Cache) fetch(key Key) (string, error) {
	target := c.URL(key)
	start := time.Now()

	data, err := c.download(target)
	if err != nil {
		c.logger.Warn("avatar download failed",
			"user_id", key.UserID,
			"url", target,
			"error", err,
		)
		return "", err
	}

	path := filepath.Join(c.config.Dir, key.FileName())
	if err := writeFileAtomic(path, data); err != nil {
		c.logger.Warn("storing avatar failed", "path", path, "error", err)
		return "", err
	}

	c.mu.Lock()
	c.index[key] = path
	c.mu.Unlock()

	c.logger.Debug("avatar cached",
		"user_id", key.UserID,
		"path", path,
		"bytes", len(data),
		"duration", time.Since(start),
	)
	return path, nil
}

// download fetches target with a per-attempt timeout, retrying
// transient failures with exponential backoff.
func (c *Cache) download(target string) ([]byte, error) {
	backoff := retry.WithMaxRetries(uint64(c.config.MaxAttempts-1), retry.NewExponential(c.config.Backoff))

	var data []byte
	attempt := 0
	err := retry.Do(c.ctx, backoff, func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		body, err := c.fetcher.Fetch(attemptCtx, target)
		if err == nil {
			data = body
			return nil
		}

		var status *StatusError
		if errors.As(err, &status) && !status.Temporary() {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		c.logger.Debug("avatar download attempt failed",
			"url", target,
			"attempt", attempt,
			"error", err,
		)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("after %d attempt(s): %w", attempt, err)
	}
	return data, nil
}

// writeFileAtomic writes data to a temporary file in the destination
// directory and renames it into place, so readers never observe a
// partial image.
func writeFileAtomic(path string, data []byte) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), ".avatar-*")
	if err != nil {
		return err
	}
	temporaryPath := temporary.Name()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return err
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	if err := os.Chmod(temporaryPath, 0o600); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	return nil
}
