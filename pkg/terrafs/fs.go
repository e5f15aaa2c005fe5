// Package terrafs implements the read-only FUSE driver for TerraSync
// scenery servers. It resolves filesystem paths against remote .dirindex
// manifests and turns file opens into whole-body HTTP fetches, so a very
// large remote dataset can be browsed tile by tile without a bulk download.
package terrafs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/winfsp/cgofuse/fuse"
	"go.uber.org/zap"

	"github.com/FGMEMBERS-SCENERY/terrafs/internal/logging"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/cache"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/client"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/dirindex"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/retry"
)

// ErrInvalidPath means a path had no resolvable parent directory. The VFS
// layer hands the driver absolute paths, so this only fires on malformed
// input.
var ErrInvalidPath = errors.New("invalid path")

// StaticRootNames are the four fixed top-level directories presented when
// static-root mode is on, instead of fetching a manifest for the root.
var StaticRootNames = [4]string{"Airports", "Objects", "Models", "Terrain"}

// Config holds driver configuration.
type Config struct {
	// ServerURL is the scenery server root. Defaults to
	// client.DefaultServerURL.
	ServerURL string
	// StaticRoot presents StaticRootNames at the root instead of the
	// root's remote manifest.
	StaticRoot bool
	// VerifyHash makes Open compare the fetched body's SHA-1 against the
	// manifest's published hash; entries without a hash are exempt.
	VerifyHash bool
	// Timeout bounds each HTTP request. Defaults to client.DefaultTimeout.
	Timeout time.Duration
	// Retry bounds re-attempts for failed GETs.
	Retry retry.Policy
}

// Stats counts driver activity. All fields are written atomically and may
// be read while the filesystem is live.
type Stats struct {
	FileFetches    atomic.Int64
	BytesFetched   atomic.Int64
	FetchErrors    atomic.Int64
	HashMismatches atomic.Int64
}

// StatsSnapshot is a point-in-time view of the driver, its cache and its
// HTTP client.
type StatsSnapshot struct {
	FileFetches    int64
	BytesFetched   int64
	FetchErrors    int64
	HashMismatches int64
	OpenHandles    int64
	Cache          cache.Stats
	Online         bool
}

// FS is the filesystem driver. It implements fuse.FileSystemInterface and
// is mounted through a fuse.FileSystemHost. All operations are safe for
// concurrent use; the only shared mutable state is the manifest cache and
// the handle table.
type FS struct {
	fuse.FileSystemBase

	client     *client.Client
	cache      *cache.Cache
	staticRoot bool
	verifyHash bool
	mounted    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	host   *fuse.FileSystemHost

	mu      sync.Mutex
	handles map[uint64]*fileHandle
	nextFh  atomic.Uint64

	stats Stats
}

// fileHandle owns the full fetched content of one open file. Handles are
// never shared: every Open performs its own fetch and allocates its own
// buffer, freed exactly once at Release.
type fileHandle struct {
	path  string
	flags int
	data  []byte
}

// invalidFh is the handle value returned alongside a failed open.
const invalidFh = ^uint64(0)

// New creates a driver for cfg. Nothing is fetched until the first
// operation needs a manifest.
func New(cfg Config) *FS {
	c := client.New(client.Config{
		BaseURL: cfg.ServerURL,
		Timeout: cfg.Timeout,
		Retry:   cfg.Retry,
	})
	ctx, cancel := context.WithCancel(context.Background())
	return &FS{
		client:     c,
		cache:      cache.New(c),
		staticRoot: cfg.StaticRoot,
		verifyHash: cfg.VerifyHash,
		mounted:    time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		handles:    make(map[uint64]*fileHandle),
	}
}

// Client returns the driver's HTTP client.
func (f *FS) Client() *client.Client { return f.client }

// Cache returns the driver's manifest cache.
func (f *FS) Cache() *cache.Cache { return f.cache }

// Snapshot reports current driver, cache and client state.
func (f *FS) Snapshot() StatsSnapshot {
	f.mu.Lock()
	open := len(f.handles)
	f.mu.Unlock()
	return StatsSnapshot{
		FileFetches:    f.stats.FileFetches.Load(),
		BytesFetched:   f.stats.BytesFetched.Load(),
		FetchErrors:    f.stats.FetchErrors.Load(),
		HashMismatches: f.stats.HashMismatches.Load(),
		OpenHandles:    int64(open),
		Cache:          f.cache.Stats(),
		Online:         f.client.IsOnline(),
	}
}

// Mount attaches the filesystem at mountpoint and blocks until it is
// unmounted. opts are passed through to the FUSE layer.
func (f *FS) Mount(mountpoint string, opts []string) error {
	host := fuse.NewFileSystemHost(f)
	host.SetCapReaddirPlus(false)
	f.host = host
	if !host.Mount(mountpoint, opts) {
		return errors.New("terrafs: mount failed")
	}
	return nil
}

// Unmount detaches a mounted filesystem. Safe to call when not mounted.
func (f *FS) Unmount() {
	if f.host != nil {
		f.host.Unmount()
	}
}

// splitPath splits an absolute path into its parent directory and leaf
// name. The parent of a top-level name is the empty string, deliberately
// not normalized to "/": the manifest URL for /Airports is
// <server>/.dirindex, with no double slash.
func splitPath(path string) (dir, name string, err error) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", "", ErrInvalidPath
	}
	return path[:idx], path[idx+1:], nil
}

// dirKey maps a directory path to its manifest cache key. The root's
// manifest lives directly under the server base.
func dirKey(path string) string {
	if path == "/" {
		return ""
	}
	return path
}

func (f *FS) isStaticRootDir(path string) bool {
	if !f.staticRoot {
		return false
	}
	for _, name := range StaticRootNames {
		if path == "/"+name {
			return true
		}
	}
	return false
}

// errno maps a client or path error to a negative FUSE status. Transport
// failures are distinguished from missing paths: a server we cannot reach
// is ENETUNREACH (or EIO while it still looks reachable), never ENOENT.
func (f *FS) errno(err error) int {
	switch {
	case errors.Is(err, client.ErrNotFound):
		return -fuse.ENOENT
	case errors.Is(err, ErrInvalidPath):
		return -fuse.EINVAL
	case errors.Is(err, client.ErrUnavailable):
		if !f.client.IsOnline() {
			return -fuse.ENETUNREACH
		}
		return -fuse.EIO
	default:
		return -fuse.EIO
	}
}

// lookupEntry resolves path to its manifest entry via the parent
// directory's manifest. Served entirely from the cache after the first
// fetch of the parent.
func (f *FS) lookupEntry(path string) (e dirindex.Entry, errc int) {
	dir, name, err := splitPath(path)
	if err != nil {
		return e, -fuse.EINVAL
	}
	idx, err := f.cache.Lookup(f.ctx, dir)
	if err != nil {
		return e, f.errno(err)
	}
	if idx == nil {
		return e, -fuse.ENOENT
	}
	e, ok := idx.Find(name)
	if !ok {
		return e, -fuse.ENOENT
	}
	return e, 0
}

func (f *FS) allocFh(h *fileHandle) uint64 {
	fh := f.nextFh.Add(1)
	f.mu.Lock()
	f.handles[fh] = h
	f.mu.Unlock()
	return fh
}

func (f *FS) getFh(fh uint64) *fileHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[fh]
}

func (f *FS) freeFh(fh uint64) *fileHandle {
	f.mu.Lock()
	h := f.handles[fh]
	delete(f.handles, fh)
	f.mu.Unlock()
	return h
}

func (f *FS) logOp(op, path string, errc int) {
	logging.L().Debug("fuse op",
		zap.String("op", op),
		zap.String("path", path),
		zap.Int("errc", errc))
}
