package driver

import (
	"os"
	"path/filepath"

	"github.com/pkg/xattr"

	"github.com/projfs-go/projfs/common"
)

// Extended attribute names the driver uses to persist placeholder metadata
// on the storage-root mirror of a projected path (spec.md §6 "Placeholder
// metadata ... stored as driver-managed extended attributes").
const (
	xattrProviderID = "user.projfs.providerid"
	xattrContentID  = "user.projfs.contentid"
	xattrState      = "user.projfs.state"

	stateValuePlaceholder = "placeholder"
	stateValueFull        = "full"
)

func (s *Session) fullPath(relPath string) string {
	return filepath.Join(s.storageRoot, relPath)
}

// GetProjState reports the projection state of relPath (spec.md §4.2).
func (s *Session) GetProjState(relPath string) (common.Result, common.ProjectionState) {
	full := s.fullPath(relPath)
	fi, err := os.Lstat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return common.FileNotFound, common.Unknown
		}
		return common.IOError, common.Unknown
	}
	if !fi.Mode().IsRegular() {
		// Sockets, devices, and other non-regular entries: the driver
		// cannot classify these, and the core treats Unknown as
		// equivalent to Full for deletion-safety purposes.
		return common.Invalid, common.Unknown
	}
	val, err := xattr.Get(full, xattrState)
	if err != nil {
		// No state attribute at all means the file was never a
		// placeholder under this binding: treat it as fully hydrated.
		return common.Success, common.Full
	}
	if string(val) == stateValuePlaceholder {
		return common.Success, common.Placeholder
	}
	return common.Success, common.Full
}

// GetProjAttrs fetches the providerId/contentId pair stored on relPath
// (spec.md §4.2).
func (s *Session) GetProjAttrs(relPath string) (common.Result, common.PlaceholderID, common.PlaceholderID) {
	full := s.fullPath(relPath)
	var providerID, contentID common.PlaceholderID

	pidBytes, err := xattr.Get(full, xattrProviderID)
	if err != nil {
		return common.FileNotFound, providerID, contentID
	}
	cidBytes, err := xattr.Get(full, xattrContentID)
	if err != nil {
		return common.FileNotFound, providerID, contentID
	}

	providerID, res := common.NewPlaceholderID(pidBytes)
	if res != common.Success {
		return common.Invalid, providerID, contentID
	}
	contentID, res = common.NewPlaceholderID(cidBytes)
	if res != common.Success {
		return common.Invalid, providerID, contentID
	}
	return common.Success, providerID, contentID
}

// markHydrated sets a path's state xattr to full after its bytes have been
// materialized, so future GetProjState calls report Full.
func (s *Session) markHydrated(relPath string) error {
	return xattr.Set(s.fullPath(relPath), xattrState, []byte(stateValueFull))
}

// setProjAttrs stamps a newly created placeholder file with its identity
// pair and marks it un-hydrated.
func (s *Session) setProjAttrs(fullPath string, providerID, contentID common.PlaceholderID) error {
	if err := xattr.Set(fullPath, xattrProviderID, providerID[:]); err != nil {
		return err
	}
	if err := xattr.Set(fullPath, xattrContentID, contentID[:]); err != nil {
		return err
	}
	return xattr.Set(fullPath, xattrState, []byte(stateValuePlaceholder))
}
