// Package provider implements the provider event engine: the
// VirtualizationInstance lifecycle (C6), the notification/permission/
// projection dispatcher (C4), and the placeholder/update API (C5). It is
// the core this whole module exists to build; package driver is the one
// concrete transport it is wired to, and package common holds the types
// both sides share.
package provider

import "github.com/projfs-go/projfs/common"

// Provider is the set of seven callback slots a VirtualizationInstance
// invokes in response to driver events (spec.md §3, resolved in SPEC_FULL
// §3). A nil slot is handled per the resolution recorded in DESIGN.md: the
// three Result-returning "permission" slots default to NotYetImplemented,
// the two fire-and-forget "notification" slots default to a silent no-op.
type Provider struct {
	// EnumerateDirectory answers a directory projection event (spec.md
	// §4.4, ONDIR branch).
	EnumerateDirectory func(path string, pid int32, procName string) common.Result

	// GetFileStream answers a file-hydration projection event (spec.md
	// §4.4, non-ONDIR branch). fd is borrowed: write to it with
	// lib/chunkio.TryWrite, never close it.
	GetFileStream func(path string, providerID, contentID common.PlaceholderID, pid int32, procName string, fd uintptr) common.Result

	// PreDelete, PreRename, PreConvertToFull answer permission events
	// (spec.md §4.4.3).
	PreDelete        func(path string, isDir bool) common.Result
	PreRename        func(path, dest string, isDir bool) common.Result
	PreConvertToFull func(path string) common.Result

	// NotifyPathEvent serves FileModified, NewFileCreated, and
	// FileDeleted (spec.md §4.4.3); its return is always Success.
	NotifyPathEvent func(kind common.NotificationType, path string, isDir bool)

	// NotifyPathPairEvent serves FileRenamed and HardLinkCreated
	// (spec.md §4.4.3); its return is always Success.
	NotifyPathPairEvent func(kind common.NotificationType, path, dest string, isDir bool)
}
