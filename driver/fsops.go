package driver

import (
	"os"
	"path/filepath"

	fuse "github.com/winfsp/cgofuse"

	"github.com/projfs-go/projfs/common"
)

// projfsNode implements cgofuse.FileSystemInterface, translating every VFS
// operation the host delivers into one of the session's three registered
// handlers (spec.md §4.2/§4.4). It embeds FileSystemBase so operations the
// spec doesn't care about (Flush, Fsync, Listxattr, ...) fall back to the
// library's ENOSYS-returning defaults instead of needing to be implemented
// here.
type projfsNode struct {
	fuse.FileSystemBase
	session *Session
}

func (n *projfsNode) real(path string) string {
	return filepath.Join(n.session.storageRoot, filepath.FromSlash(path))
}

func (n *projfsNode) relative(path string) string {
	rel := filepath.ToSlash(path)
	rel = trimLeadingSlash(rel)
	return rel
}

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}

// getcontext is a seam over fuse.Getcontext: tests that call a projfsNode
// method directly, outside of a real mounted callback, override it so
// contextEvent doesn't depend on FUSE's thread-local caller context.
var getcontext = fuse.Getcontext

func contextEvent(mask common.EventMask, path, target string) *common.Event {
	_, _, pid := getcontext()
	return &common.Event{
		Pid:        pid,
		Mask:       mask,
		Path:       path,
		TargetPath: target,
	}
}

// Getattr hydrates a placeholder before reporting its attributes, so a
// stat(2) on an un-hydrated file observes its real, final size.
func (n *projfsNode) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	rel := n.relative(path)
	if rel != "" {
		if res := n.hydrateIfNeeded(rel); res != common.Success {
			return res.ToDriverErrno()
		}
	}
	fi, err := os.Lstat(n.real(path))
	if err != nil {
		return -int(statErrno(err))
	}
	fillStat(stat, fi)
	return 0
}

// Opendir triggers directory enumeration (spec.md §4.4 "If the mask's ONDIR
// bit is set, call the provider's enumerate-directory callback") before the
// kernel lists the directory's contents.
func (n *projfsNode) Opendir(path string) (int, uint64) {
	rel := n.relative(path)
	ev := contextEvent(common.MaskOnDir, rel, "")
	if n.session.handlers.Projection != nil {
		if errno := n.session.handlers.Projection(ev); errno != 0 {
			return errno, 0
		}
	}
	return 0, 0
}

func (n *projfsNode) Readdir(path string, fill func(name string, stat *fuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	full := n.real(path)
	entries, err := os.ReadDir(full)
	if err != nil {
		return -int(statErrno(err))
	}
	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, e := range entries {
		fill(e.Name(), nil, 0)
	}
	return 0
}

func (n *projfsNode) Open(path string, flags int) (int, uint64) {
	rel := n.relative(path)
	if res := n.hydrateIfNeeded(rel); res != common.Success {
		return res.ToDriverErrno(), 0
	}
	return 0, 0
}

func (n *projfsNode) Read(path string, buff []byte, ofst int64, fh uint64) int {
	f, err := os.Open(n.real(path))
	if err != nil {
		return -int(statErrno(err))
	}
	defer f.Close()
	nr, err := f.ReadAt(buff, ofst)
	if err != nil && nr == 0 {
		return 0
	}
	return nr
}

func (n *projfsNode) Mkdir(path string, mode uint32) int {
	rel := n.relative(path)
	ev := contextEvent(common.MaskCreate|common.MaskOnDir, rel, "")
	if res := n.permit(ev); res != 0 {
		return res
	}
	if err := os.Mkdir(n.real(path), os.FileMode(mode)); err != nil {
		return -int(statErrno(err))
	}
	n.notify(common.MaskCreate|common.MaskOnDir, rel, "")
	return 0
}

func (n *projfsNode) Create(path string, flags int, mode uint32) (int, uint64) {
	rel := n.relative(path)
	ev := contextEvent(common.MaskCreate, rel, "")
	if res := n.permit(ev); res != 0 {
		return res, 0
	}
	f, err := os.OpenFile(n.real(path), os.O_CREATE|os.O_EXCL|os.O_RDWR, os.FileMode(mode))
	if err != nil {
		return -int(statErrno(err)), 0
	}
	f.Close()
	n.notify(common.MaskCreate, rel, "")
	return 0, 0
}

func (n *projfsNode) Unlink(path string) int {
	rel := n.relative(path)
	ev := contextEvent(common.MaskDeletePerm, rel, "")
	if res := n.permit(ev); res != 0 {
		return res
	}
	if err := os.Remove(n.real(path)); err != nil {
		return -int(statErrno(err))
	}
	n.notify(common.MaskDelete, rel, "")
	return 0
}

func (n *projfsNode) Rmdir(path string) int {
	rel := n.relative(path)
	ev := contextEvent(common.MaskDeletePerm|common.MaskOnDir, rel, "")
	if res := n.permit(ev); res != 0 {
		return res
	}
	if err := os.Remove(n.real(path)); err != nil {
		return -int(statErrno(err))
	}
	n.notify(common.MaskDelete|common.MaskOnDir, rel, "")
	return 0
}

func (n *projfsNode) Rename(oldpath string, newpath string) int {
	relOld, relNew := n.relative(oldpath), n.relative(newpath)
	ev := contextEvent(common.MaskMovePerm, relOld, relNew)
	if res := n.permit(ev); res != 0 {
		return res
	}
	if err := os.Rename(n.real(oldpath), n.real(newpath)); err != nil {
		return -int(statErrno(err))
	}
	n.notify(common.MaskMove, relOld, relNew)
	return 0
}

func (n *projfsNode) Symlink(target string, newpath string) int {
	rel := n.relative(newpath)
	ev := contextEvent(common.MaskCreate|common.MaskOnLink, rel, "")
	if res := n.permit(ev); res != 0 {
		return res
	}
	if err := os.Symlink(target, n.real(newpath)); err != nil {
		return -int(statErrno(err))
	}
	n.notify(common.MaskCreate|common.MaskOnLink, rel, "")
	return 0
}

func (n *projfsNode) Link(oldpath string, newpath string) int {
	relOld, relNew := n.relative(oldpath), n.relative(newpath)
	ev := contextEvent(common.MaskCreate|common.MaskOnLink, relOld, relNew)
	if res := n.permit(ev); res != 0 {
		return res
	}
	if err := os.Link(n.real(oldpath), n.real(newpath)); err != nil {
		return -int(statErrno(err))
	}
	n.notify(common.MaskCreate|common.MaskOnLink, relOld, relNew)
	return 0
}

func (n *projfsNode) Readlink(path string) (int, string) {
	target, err := os.Readlink(n.real(path))
	if err != nil {
		return -int(statErrno(err)), ""
	}
	return 0, target
}

// permit fires the permission handler for ev (Unlink/Rmdir send DeletePerm,
// Rename sends MovePerm, Mkdir/Create/Symlink/Link send their Create mask)
// and returns its verdict unchanged: 0 to proceed, PermDeny for a refusal,
// or any other negative errno the handler returned in its place (spec.md
// §4.4 step 5 only remaps DENY to EPERM; every other result passes through).
func (n *projfsNode) permit(ev *common.Event) int {
	if n.session.handlers.Permission == nil {
		return 0
	}
	if ret := n.session.handlers.Permission(ev); ret != common.PermAllow {
		return ret
	}
	return 0
}

// notify fires the notification handler for an event that already happened
// on disk; its return value is informational only, so callers of notify
// ignore it, matching spec.md's "fire and forget" notification types.
func (n *projfsNode) notify(mask common.EventMask, path, target string) {
	if n.session.handlers.Notification == nil {
		return
	}
	ev := contextEvent(mask, path, target)
	n.session.handlers.Notification(ev)
}

// hydrateIfNeeded materializes a placeholder file's bytes on first touch by
// invoking the projection handler with a pipe fd the provider's
// get-file-stream callback can write into (spec.md §4.3/§4.4). Once the
// handler returns it drains the pipe into the real backing file and sets
// the placeholder's state xattr to full so later accesses pass straight
// through.
func (n *projfsNode) hydrateIfNeeded(rel string) common.Result {
	if n.session.handlers.Projection == nil {
		return common.Success
	}
	res, state := n.session.GetProjState(rel)
	if res != common.Success || state != common.Placeholder {
		return common.Success
	}

	r, w, err := os.Pipe()
	if err != nil {
		return common.IOError
	}
	defer r.Close()

	done := make(chan common.Result, 1)
	go func() {
		ev := contextEvent(0, rel, "")
		ev.Fd = w.Fd()
		ev.HasFd = true
		errno := n.session.handlers.Projection(ev)
		w.Close()
		done <- common.FromErrno(errnoOf(errno))
	}()

	full := n.session.fullPath(rel)
	out, err := os.OpenFile(full, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		<-done
		return common.IOError
	}
	_, copyErr := copyAll(out, r)
	out.Close()

	result := <-done
	if result != common.Success {
		return result
	}
	if copyErr != nil {
		return common.IOError
	}
	if err := n.session.markHydrated(rel); err != nil {
		return common.IOError
	}
	return common.Success
}
