package driver

import (
	"io"
	"os"
	"syscall"

	fuse "github.com/winfsp/cgofuse"
	"golang.org/x/sys/unix"

	"github.com/projfs-go/projfs/common"
)

// statErrno classifies a stdlib os error into the errno cgofuse expects
// back (as a positive value; callers negate it themselves).
func statErrno(err error) unix.Errno {
	switch {
	case os.IsNotExist(err):
		return unix.ENOENT
	case os.IsPermission(err):
		return unix.EACCES
	case os.IsExist(err):
		return unix.EEXIST
	default:
		var errno syscall.Errno
		if asErrno(err, &errno) {
			return unix.Errno(errno)
		}
		return unix.EIO
	}
}

func asErrno(err error, target *syscall.Errno) bool {
	for err != nil {
		if errno, ok := err.(syscall.Errno); ok {
			*target = errno
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// errnoOf turns the negative-errno (or ALLOW/DENY) int a handler returned
// back into an unsigned errno, defaulting to EIO for anything unexpected.
func errnoOf(v int) unix.Errno {
	if v == 0 {
		return 0
	}
	if v < 0 {
		return unix.Errno(-v)
	}
	return unix.EIO
}

func fillStat(stat *fuse.Stat_t, fi os.FileInfo) {
	*stat = fuse.Stat_t{}
	stat.Size = fi.Size()
	mode := uint32(fi.Mode().Perm())
	switch {
	case fi.IsDir():
		mode |= fuse.S_IFDIR
	case fi.Mode()&os.ModeSymlink != 0:
		mode |= fuse.S_IFLNK
	default:
		mode |= fuse.S_IFREG
	}
	stat.Mode = mode
	mtime := fi.ModTime()
	stat.Mtim.Sec = mtime.Unix()
	stat.Mtim.Nsec = int64(mtime.Nanosecond())
	stat.Ctim = stat.Mtim
	stat.Atim = stat.Mtim
}

func copyAll(dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, src)
}
