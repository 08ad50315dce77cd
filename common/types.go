package common

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PlaceholderIDLen is the contractual length of a providerId/contentId
// (spec.md §3): a programmer error, not a runtime property, so the type
// below is a fixed-size array rather than a slice.
const PlaceholderIDLen = 128

// PlaceholderID is a 128-byte opaque identifier. The core never interprets
// its contents; it only moves them between the driver's extended attributes
// and the provider's callbacks.
type PlaceholderID [PlaceholderIDLen]byte

// NewPlaceholderID validates and copies a byte slice into a PlaceholderID.
// It is the single gate enforcing Testable Property 2 (id length check):
// callers that accept a []byte from outside the core (write_placeholder_file,
// update_placeholder_if_needed) must run it before touching the filesystem.
func NewPlaceholderID(b []byte) (PlaceholderID, Result) {
	var id PlaceholderID
	if len(b) != PlaceholderIDLen {
		return id, InvalidArgument
	}
	copy(id[:], b)
	return id, Success
}

// ProjectionState is the driver's classification of a path's hydration
// state (spec.md §3).
type ProjectionState int

const (
	// Unknown covers non-regular entries and anything the driver can't
	// classify; treated as equivalent to Full for deletion-safety purposes.
	Unknown ProjectionState = iota
	Placeholder
	Full
)

func (s ProjectionState) String() string {
	switch s {
	case Placeholder:
		return "placeholder"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// UpdateFailureCause is returned alongside update/delete operations to let
// callers distinguish "unsafe to proceed" from "no permission" from a plain
// failure.
type UpdateFailureCause int

const (
	NoFailure UpdateFailureCause = iota
	DirtyData
	ReadOnly
)

func (c UpdateFailureCause) String() string {
	switch c {
	case DirtyData:
		return "dirty data"
	case ReadOnly:
		return "read only"
	default:
		return "no failure"
	}
}

// NotificationType is the internal tag derived from an event's mask
// (spec.md §3/§4.4).
type NotificationType int

const (
	// NoNotification marks a mask that matched none of the recognized
	// notification bits; the handler ignores it and returns Success.
	NoNotification NotificationType = iota
	PreDelete
	PreRename
	PreConvertToFull
	FileModified
	NewFileCreated
	FileDeleted
	FileRenamed
	HardLinkCreated
)

func (t NotificationType) String() string {
	switch t {
	case PreDelete:
		return "PreDelete"
	case PreRename:
		return "PreRename"
	case PreConvertToFull:
		return "PreConvertToFull"
	case FileModified:
		return "FileModified"
	case NewFileCreated:
		return "NewFileCreated"
	case FileDeleted:
		return "FileDeleted"
	case FileRenamed:
		return "FileRenamed"
	case HardLinkCreated:
		return "HardLinkCreated"
	default:
		return "none"
	}
}

// EventMask is a bitset over the driver's event constants (spec.md §3/§6).
type EventMask uint32

// Mask bits consumed from the driver event protocol (spec.md §6). Values are
// this module's own numbering — the binding in package driver is
// responsible for translating the concrete cgofuse/FUSE operation it
// observed into this mask, not for reusing any kernel-specific bit layout.
const (
	MaskOnDir EventMask = 1 << iota
	MaskOnLink
	MaskCreate
	MaskDelete
	MaskMove
	MaskCloseWrite
	MaskOpenPerm
	MaskDeletePerm
	MaskMovePerm
)

func (m EventMask) Has(bit EventMask) bool {
	return m&bit != 0
}

// Event carries everything the driver reports about one VFS operation
// (spec.md §3).
type Event struct {
	Pid        int32
	Mask       EventMask
	Path       string // relative to the virtualization root; "." means the root
	TargetPath string // set only for rename/link events
	Fd         uintptr
	HasFd      bool
}

func (e Event) String() string {
	return fmt.Sprintf("Event{pid=%d mask=%#x path=%q target=%q}", e.Pid, e.Mask, e.Path, e.TargetPath)
}

// Permission response sentinels (spec.md §6). These are returned in place of
// a -errno by permission-event handlers.
const (
	PermAllow = 0
	PermDeny  = -int(unix.EPERM)
)
