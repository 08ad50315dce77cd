// Placeholder/update API (C5): write/update/delete/replace operations for
// placeholder files, directories, and symlinks (spec.md §4.5).
package provider

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/projfs-go/projfs/common"
)

const placeholderDirMode = 0o777

// WritePlaceholderDir creates a directory placeholder (spec.md §4.5).
func (inst *Instance) WritePlaceholderDir(relPath string) common.Result {
	sess := inst.currentSession()
	if sess == nil {
		return common.DriverNotLoaded
	}
	return sess.CreateProjDir(relPath, placeholderDirMode)
}

// WritePlaceholderFile creates a file placeholder (spec.md §4.5). providerID
// and contentID must each be exactly 128 bytes, checked before anything
// touches the filesystem (Testable Property 2).
func (inst *Instance) WritePlaceholderFile(relPath string, providerID, contentID []byte, size int64, mode uint32) common.Result {
	pid, res := common.NewPlaceholderID(providerID)
	if res != common.Success {
		return res
	}
	cid, res := common.NewPlaceholderID(contentID)
	if res != common.Success {
		return res
	}
	sess := inst.currentSession()
	if sess == nil {
		return common.DriverNotLoaded
	}
	return sess.CreateProjFile(relPath, size, mode, pid, cid)
}

// WriteSymlink creates a symlink placeholder (spec.md §4.5).
func (inst *Instance) WriteSymlink(relPath, target string) common.Result {
	sess := inst.currentSession()
	if sess == nil {
		return common.DriverNotLoaded
	}
	return sess.CreateProjSymlink(relPath, target)
}

// DeleteFile removes relPath, refusing to destroy data the provider never
// got a chance to re-fetch (spec.md §4.5).
//
// Note on the directory-existence/get_proj_state race (spec.md §9): a
// concurrent create or delete of relPath between the IsDir check below and
// the GetProjState call can observe a stale classification. This is the
// documented, unresolved race from the source; callers that need certainty
// should retry at their own layer rather than assume DeleteFile is
// linearizable against concurrent mutations of the same path.
func (inst *Instance) DeleteFile(relPath string, updateFlags uint32) (common.Result, common.UpdateFailureCause) {
	sess := inst.currentSession()
	if sess == nil {
		return common.DriverNotLoaded, common.NoFailure
	}
	if relPath == "" {
		// The virtualization root is undeleteable.
		return common.DirectoryNotEmpty, common.NoFailure
	}

	full := filepath.Join(inst.virtRoot, filepath.FromSlash(relPath))

	fi, statErr := os.Lstat(full)
	isDirectory := statErr == nil && fi.IsDir()

	if !isDirectory {
		res, state := sess.GetProjState(relPath)
		dirty := (res == common.Success && state == common.Full) ||
			(res == common.Invalid && state == common.Unknown)
		if dirty {
			return common.VirtualizationInvalidOperation, common.DirtyData
		}
	}

	err := os.Remove(full)
	if err == nil {
		return common.Success, common.NoFailure
	}
	if os.IsNotExist(err) {
		// Idempotent delete.
		return common.Success, common.NoFailure
	}
	return classifyDeleteErr(err)
}

func classifyDeleteErr(err error) (common.Result, common.UpdateFailureCause) {
	if os.IsPermission(err) {
		return common.AccessDenied, common.ReadOnly
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOTEMPTY:
			return common.DirectoryNotEmpty, common.NoFailure
		case syscall.EACCES, syscall.EPERM:
			return common.AccessDenied, common.ReadOnly
		default:
			return common.IOError, common.NoFailure
		}
	}
	return common.Invalid, common.NoFailure
}

// UpdatePlaceholderIfNeeded deletes relPath and rewrites it as a fresh file
// placeholder (spec.md §4.5). The failure cause is reset to NoFailure on
// the rewrite path: a failure writing the new placeholder is a plain
// Result, not a dirty-data or read-only classification.
func (inst *Instance) UpdatePlaceholderIfNeeded(relPath string, providerID, contentID []byte, size int64, mode uint32, updateFlags uint32) (common.Result, common.UpdateFailureCause) {
	// Validate both ids before DeleteFile touches the filesystem.
	if _, res := common.NewPlaceholderID(providerID); res != common.Success {
		return res, common.NoFailure
	}
	if _, res := common.NewPlaceholderID(contentID); res != common.Success {
		return res, common.NoFailure
	}
	res, cause := inst.DeleteFile(relPath, updateFlags)
	if res != common.Success {
		return res, cause
	}
	if res = inst.WritePlaceholderFile(relPath, providerID, contentID, size, mode); res != common.Success {
		return res, common.NoFailure
	}
	return common.Success, common.NoFailure
}

// ReplacePlaceholderWithSymlink deletes relPath and rewrites it as a
// symlink placeholder (spec.md §4.5).
func (inst *Instance) ReplacePlaceholderWithSymlink(relPath, target string, updateFlags uint32) (common.Result, common.UpdateFailureCause) {
	res, cause := inst.DeleteFile(relPath, updateFlags)
	if res != common.Success {
		return res, cause
	}
	if res = inst.WriteSymlink(relPath, target); res != common.Success {
		return res, common.NoFailure
	}
	return common.Success, common.NoFailure
}

// CompleteCommand is reserved surface: the asynchronous command-completion
// channel is left unimplemented (spec.md §1/§4.5/§9).
func (inst *Instance) CompleteCommand(commandID int32, result common.Result) common.Result {
	return common.NotYetImplemented
}

// ConvertDirectoryToPlaceholder is reserved surface (spec.md §1/§4.5/§9).
func (inst *Instance) ConvertDirectoryToPlaceholder(relPath string) common.Result {
	return common.NotYetImplemented
}
