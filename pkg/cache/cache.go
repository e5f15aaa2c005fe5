// Package cache memoizes parsed directory manifests, including confirmed
// absences, keyed by absolute manifest URL.
package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/FGMEMBERS-SCENERY/terrafs/internal/logging"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/client"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/dirindex"
)

// ManifestName is the well-known file every remote directory publishes.
const ManifestName = ".dirindex"

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	// Hits counts lookups answered from memory, cached absences included.
	Hits int64
	// Misses counts lookups that went to the network.
	Misses int64
	// NegativeEntries counts memoized absences currently stored.
	NegativeEntries int64
	// Entries is the total number of memoized keys, absences included.
	Entries int64
}

// Cache resolves directory paths to parsed manifests through an HTTP
// client, remembering every definitive outcome for the process lifetime.
// There is no eviction and no invalidation; a mounted filesystem sees one
// immutable view of the dataset. A stored nil manifest records "confirmed
// absent". Transient fetch failures are returned to the caller and never
// stored. Safe for concurrent use; concurrent lookups of one URL share a
// single fetch.
type Cache struct {
	client *client.Client

	mu      sync.RWMutex
	entries map[string]*dirindex.DirIndex
	group   singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	negatives atomic.Int64
}

// New creates an empty cache backed by c.
func New(c *client.Client) *Cache {
	return &Cache{
		client:  c,
		entries: make(map[string]*dirindex.DirIndex),
	}
}

// Lookup returns the manifest for dirPath. A (nil, nil) result means the
// directory is confirmed absent; that answer is memoized exactly like a
// parsed manifest. A non-nil error means the server could not answer, and
// nothing was memoized.
func (c *Cache) Lookup(ctx context.Context, dirPath string) (*dirindex.DirIndex, error) {
	url := c.client.BaseURL() + dirPath

	c.mu.RLock()
	idx, ok := c.entries[url]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return idx, nil
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		// A previous flight may have landed between the read above and
		// this call.
		c.mu.RLock()
		idx, ok := c.entries[url]
		c.mu.RUnlock()
		if ok {
			c.hits.Add(1)
			return idx, nil
		}

		c.misses.Add(1)
		idx, err := c.fetch(ctx, url, dirPath)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[url] = idx
		c.mu.Unlock()
		if idx == nil {
			c.negatives.Add(1)
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dirindex.DirIndex), nil
}

// fetch retrieves and parses one manifest. A nil, nil return means the
// directory is definitively absent; errors are transient and must not be
// memoized.
func (c *Cache) fetch(ctx context.Context, url, dirPath string) (*dirindex.DirIndex, error) {
	body, err := c.client.Get(ctx, dirPath+"/"+ManifestName)
	switch {
	case err == nil:
	case errors.Is(err, client.ErrNotFound):
		logging.L().Debug("manifest absent", zap.String("url", url))
		return nil, nil
	default:
		return nil, err
	}

	idx, err := dirindex.Parse(body)
	if err != nil {
		// Folded into absence for callers, but always logged: a corrupt
		// manifest and a missing directory are different operator
		// problems.
		logging.L().Warn("manifest parse failed",
			zap.String("url", url),
			zap.Error(err))
		return nil, nil
	}
	return idx, nil
}

// Stats reports cumulative counters and current entry counts.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		NegativeEntries: c.negatives.Load(),
		Entries:         int64(entries),
	}
}
