package terrafs

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"strings"

	"github.com/winfsp/cgofuse/fuse"
	"go.uber.org/zap"

	"github.com/FGMEMBERS-SCENERY/terrafs/internal/logging"
	"github.com/FGMEMBERS-SCENERY/terrafs/pkg/dirindex"
)

// Xattr names served by Getxattr for any path, without network I/O.
const (
	XattrServer = "user.terrafs.server"
	XattrOnline = "user.terrafs.online"
)

// wOK is the POSIX W_OK access mask bit.
const wOK = 2

func (f *FS) dirStat(stat *fuse.Stat_t) {
	stat.Mode = fuse.S_IFDIR | 0555
	stat.Nlink = 2
	f.fillStatCommon(stat)
}

func (f *FS) fileStat(stat *fuse.Stat_t, size uint64) {
	stat.Mode = fuse.S_IFREG | 0444
	stat.Nlink = 1
	stat.Size = int64(size)
	f.fillStatCommon(stat)
}

// fillStatCommon sets the fields the manifest cannot supply. The dataset
// publishes no timestamps, so everything reports the mount time.
func (f *FS) fillStatCommon(stat *fuse.Stat_t) {
	ts := fuse.NewTimespec(f.mounted)
	stat.Atim = ts
	stat.Mtim = ts
	stat.Ctim = ts
	stat.Uid = uint32(os.Getuid())
	stat.Gid = uint32(os.Getgid())
}

func (f *FS) entryStat(e dirindex.Entry, stat *fuse.Stat_t) {
	if e.IsDir() {
		f.dirStat(stat)
	} else {
		f.fileStat(stat, e.Size)
	}
}

// --- fuse.FileSystemInterface ---

func (f *FS) Init() {
	logging.L().Info("filesystem initialized",
		zap.String("server", f.client.BaseURL()),
		zap.Bool("staticroot", f.staticRoot),
		zap.Bool("verify_hash", f.verifyHash))
}

func (f *FS) Destroy() {
	logging.L().Info("filesystem destroyed")
	f.cancel()
}

func (f *FS) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	if path == "/" || f.isStaticRootDir(path) {
		f.dirStat(stat)
		return 0
	}
	e, errc := f.lookupEntry(path)
	if errc != 0 {
		f.logOp("getattr", path, errc)
		return errc
	}
	f.entryStat(e, stat)
	return 0
}

func (f *FS) Opendir(path string) (int, uint64) {
	if path == "/" || f.isStaticRootDir(path) {
		return 0, 0
	}
	idx, err := f.cache.Lookup(f.ctx, dirKey(path))
	if err != nil {
		return f.errno(err), invalidFh
	}
	if idx == nil {
		return -fuse.ENOENT, invalidFh
	}
	return 0, 0
}

func (f *FS) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	fill(".", nil, 0)
	fill("..", nil, 0)

	if f.staticRoot && path == "/" {
		for _, name := range StaticRootNames {
			var st fuse.Stat_t
			f.dirStat(&st)
			if !fill(name, &st, 0) {
				break
			}
		}
		return 0
	}

	idx, err := f.cache.Lookup(f.ctx, dirKey(path))
	if err != nil {
		errc := f.errno(err)
		f.logOp("readdir", path, errc)
		return errc
	}
	if idx == nil {
		return -fuse.ENOENT
	}
	for _, e := range idx.Entries {
		var st fuse.Stat_t
		f.entryStat(e, &st)
		if !fill(e.Name, &st, 0) {
			break
		}
	}
	return 0
}

func (f *FS) Releasedir(path string, fh uint64) int {
	return 0
}

func (f *FS) Open(path string, flags int) (int, uint64) {
	if flags&(fuse.O_WRONLY|fuse.O_RDWR) != 0 {
		return -fuse.EACCES, invalidFh
	}

	e, errc := f.lookupEntry(path)
	if errc != 0 {
		return errc, invalidFh
	}
	if e.IsDir() {
		return -fuse.EISDIR, invalidFh
	}

	body, err := f.client.Get(f.ctx, path)
	if err != nil {
		f.stats.FetchErrors.Add(1)
		logging.L().Warn("content fetch failed",
			zap.String("path", path),
			zap.Error(err))
		return f.errno(err), invalidFh
	}

	if f.verifyHash && e.Hash != "" {
		sum := sha1.Sum(body)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), e.Hash) {
			f.stats.HashMismatches.Add(1)
			logging.L().Warn("content hash mismatch",
				zap.String("path", path),
				zap.String("want", e.Hash),
				zap.String("got", hex.EncodeToString(sum[:])))
			return -fuse.EIO, invalidFh
		}
	}

	f.stats.FileFetches.Add(1)
	f.stats.BytesFetched.Add(int64(len(body)))
	fh := f.allocFh(&fileHandle{path: path, flags: flags, data: body})
	return 0, fh
}

func (f *FS) Read(path string, buff []byte, ofst int64, fh uint64) int {
	h := f.getFh(fh)
	if h == nil {
		return -fuse.EIO
	}

	// Re-validate flags and existence on every read, as open does. The
	// entry lookup is served from the manifest cache, so this costs no
	// network traffic.
	if h.flags&(fuse.O_WRONLY|fuse.O_RDWR) != 0 {
		return -fuse.EACCES
	}
	if _, errc := f.lookupEntry(path); errc != 0 {
		return errc
	}

	length := int64(len(h.data))
	if ofst >= length {
		return 0
	}
	return copy(buff, h.data[ofst:])
}

func (f *FS) Release(path string, fh uint64) int {
	f.freeFh(fh)
	return 0
}

func (f *FS) Flush(path string, fh uint64) int {
	return 0
}

func (f *FS) Fsync(path string, datasync bool, fh uint64) int {
	return 0
}

func (f *FS) Fsyncdir(path string, datasync bool, fh uint64) int {
	return 0
}

func (f *FS) Access(path string, mask uint32) int {
	if mask&wOK != 0 {
		return -fuse.EROFS
	}
	if path == "/" || f.isStaticRootDir(path) {
		return 0
	}
	if _, errc := f.lookupEntry(path); errc != 0 {
		return errc
	}
	return 0
}

func (f *FS) Statfs(path string, stat *fuse.Statfs_t) int {
	stat.Bsize = 4096
	stat.Frsize = 4096
	stat.Blocks = 1 << 32
	stat.Bfree = 0
	stat.Bavail = 0
	stat.Files = 1 << 20
	stat.Ffree = 0
	stat.Namemax = 255
	return 0
}

func (f *FS) Readlink(path string) (int, string) {
	return -fuse.ENOSYS, ""
}

func (f *FS) Getxattr(path string, name string) (int, []byte) {
	switch name {
	case XattrServer:
		return 0, []byte(f.client.BaseURL())
	case XattrOnline:
		if f.client.IsOnline() {
			return 0, []byte("true")
		}
		return 0, []byte("false")
	}
	return -fuse.ENODATA, nil
}

func (f *FS) Listxattr(path string, fill func(name string) bool) int {
	if !fill(XattrServer) {
		return 0
	}
	fill(XattrOnline)
	return 0
}

// The dataset is immutable; every mutating operation reports a read-only
// filesystem.

func (f *FS) Mknod(path string, mode uint32, dev uint64) int {
	return -fuse.EROFS
}

func (f *FS) Mkdir(path string, mode uint32) int {
	return -fuse.EROFS
}

func (f *FS) Unlink(path string) int {
	return -fuse.EROFS
}

func (f *FS) Rmdir(path string) int {
	return -fuse.EROFS
}

func (f *FS) Link(oldpath string, newpath string) int {
	return -fuse.EROFS
}

func (f *FS) Symlink(target string, newpath string) int {
	return -fuse.EROFS
}

func (f *FS) Rename(oldpath string, newpath string) int {
	return -fuse.EROFS
}

func (f *FS) Chmod(path string, mode uint32) int {
	return -fuse.EROFS
}

func (f *FS) Chown(path string, uid uint32, gid uint32) int {
	return -fuse.EROFS
}

func (f *FS) Truncate(path string, size int64, fh uint64) int {
	return -fuse.EROFS
}

func (f *FS) Create(path string, flags int, mode uint32) (int, uint64) {
	return -fuse.EROFS, invalidFh
}

func (f *FS) Write(path string, buff []byte, ofst int64, fh uint64) int {
	return -fuse.EROFS
}

func (f *FS) Setxattr(path string, name string, value []byte, flags int) int {
	return -fuse.EROFS
}

func (f *FS) Removexattr(path string, name string) int {
	return -fuse.EROFS
}

func (f *FS) Utimens(path string, tmsp []fuse.Timespec) int {
	return -fuse.EROFS
}
