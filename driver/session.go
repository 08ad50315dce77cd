// Package driver binds the event engine to a concrete projection-driver
// transport. Windows ProjFS has no Go binding; the nearest real,
// cross-platform analogue available to a Go program — and the one already
// pulled in by the teacher's own go.mod — is winfsp/cgofuse, a FUSE/WinFsp
// virtual filesystem host. Session wraps a cgofuse.FileSystemHost and
// exposes exactly the contract spec.md §4.2 describes: construct, start,
// stop, query/set placeholder metadata, create placeholders.
package driver

import (
	"errors"
	"os"
	"strconv"
	"syscall"

	fuse "github.com/winfsp/cgofuse"

	"github.com/projfs-go/projfs/common"
)

// Handler matches the signature the three registered event handlers share:
// decode an event, return a driver-encoded result (-errno, or an ALLOW/DENY
// sentinel for the permission handler).
type Handler func(*common.Event) int

// Handlers bundles the three callbacks spec.md §4.2 says are "registered at
// construction" and must outlive the session for its entire lifetime.
type Handlers struct {
	Projection   Handler
	Notification Handler
	Permission   Handler
}

// Session is the opaque projection-session handle from spec.md §3: nullable
// in the VirtualizationInstance that owns it, non-null iff running.
type Session struct {
	storageRoot string
	virtRoot    string
	handlers    Handlers
	opts        common.SessionOptions

	node *projfsNode
	host *fuse.FileSystemHost

	mountErr chan bool
}

// New constructs a session without starting it. It returns nil only if
// storageRoot cannot be created (opts.InitializeStorageRoot set) or does not
// exist (opts.InitializeStorageRoot unset) (spec.md §4.2 "returns null on
// construction failure").
func New(storageRoot, virtRoot string, handlers Handlers, opts common.SessionOptions) *Session {
	if opts.InitializeStorageRoot {
		if err := os.MkdirAll(storageRoot, 0o777); err != nil {
			return nil
		}
	} else if _, err := os.Stat(storageRoot); err != nil {
		return nil
	}

	s := &Session{
		storageRoot: storageRoot,
		virtRoot:    virtRoot,
		handlers:    handlers,
		opts:        opts,
		mountErr:    make(chan bool, 1),
	}
	s.node = &projfsNode{session: s}
	s.host = fuse.NewFileSystemHost(s.node)
	s.host.SetCapReaddirPlus(true)
	return s
}

// Start mounts the session's virtual root. cgofuse's Mount blocks for the
// life of the mount, so it runs on its own goroutine; Start itself returns
// as soon as that goroutine has been launched. The caller (the
// VirtualizationInstance's own mount-wait loop, spec.md §4.6 step 6) is
// responsible for confirming the mount actually completed.
func (s *Session) Start() int {
	args := []string{}
	if s.opts.PoolThreads > 0 {
		// cgofuse forwards unrecognized -o options to the underlying
		// FUSE/WinFsp implementation; both accept a thread-count hint
		// this way.
		args = append(args, "-o", "max_threads="+strconv.Itoa(s.opts.PoolThreads))
	}
	go func() {
		ok := s.host.Mount(s.virtRoot, args)
		select {
		case s.mountErr <- ok:
		default:
		}
	}()
	return 0
}

// Stop unmounts the session. Idempotent: unmounting an already-unmounted
// host is a no-op in cgofuse.
func (s *Session) Stop() {
	if s.host != nil {
		s.host.Unmount()
	}
}

// CreateProjDir creates a directory placeholder (spec.md §4.2).
func (s *Session) CreateProjDir(relPath string, mode uint32) common.Result {
	if err := os.Mkdir(s.fullPath(relPath), os.FileMode(mode)); err != nil {
		return classifyCreateErr(err)
	}
	return common.Success
}

// CreateProjFile creates a file placeholder of the given size carrying the
// given providerId/contentId pair (spec.md §4.2).
func (s *Session) CreateProjFile(relPath string, size int64, mode uint32, providerID, contentID common.PlaceholderID) common.Result {
	full := s.fullPath(relPath)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, os.FileMode(mode))
	if err != nil {
		return classifyCreateErr(err)
	}
	defer f.Close()

	if size > 0 {
		if err := f.Truncate(size); err != nil {
			return common.IOError
		}
	}
	if err := s.setProjAttrs(full, providerID, contentID); err != nil {
		return common.IOError
	}
	return common.Success
}

// CreateProjSymlink creates a symlink placeholder (spec.md §4.2).
func (s *Session) CreateProjSymlink(relPath, target string) common.Result {
	if err := os.Symlink(target, s.fullPath(relPath)); err != nil {
		return classifyCreateErr(err)
	}
	return common.Success
}

func classifyCreateErr(err error) common.Result {
	switch {
	case os.IsExist(err):
		return common.Invalid
	case os.IsNotExist(err):
		return common.PathNotFound
	case os.IsPermission(err):
		return common.AccessDenied
	default:
		var errno syscall.Errno
		if errors.As(err, &errno) {
			return common.FromErrno(errno)
		}
		return common.Invalid
	}
}

