package provider

import (
	"context"

	"github.com/projfs-go/projfs/common"
	"github.com/projfs-go/projfs/lib/procinfo"
)

// onDemand is the projection-event handler (spec.md §4.4, "on_demand").
// It is registered as the driver's Projection callback.
func (inst *Instance) onDemand(ev *common.Event) int {
	sess := inst.currentSession()
	if sess == nil {
		return common.DriverNotLoaded.ToDriverErrno()
	}
	if ev.Pid == inst.ownPID {
		// Self-event suppression: never re-enter a provider callback
		// for I/O the provider generated itself.
		return 0
	}

	release := inst.acquireSlot()
	defer release()

	procName := procinfo.CommandName(ev.Pid)

	if ev.Mask.Has(common.MaskOnDir) {
		path := normalizeForEnumerate(ev.Path)
		if inst.provider.EnumerateDirectory == nil {
			return common.NotYetImplemented.ToDriverErrno()
		}
		return inst.provider.EnumerateDirectory(path, ev.Pid, procName).ToDriverErrno()
	}

	res, providerID, contentID := sess.GetProjAttrs(ev.Path)
	if res != common.Success {
		return res.ToDriverErrno()
	}
	if inst.provider.GetFileStream == nil {
		return common.NotYetImplemented.ToDriverErrno()
	}
	return inst.provider.GetFileStream(ev.Path, providerID, contentID, ev.Pid, procName, ev.Fd).ToDriverErrno()
}

// handleNonProj backs both the notification and permission handlers
// (spec.md §4.4, "handle_non_proj"). isPerm selects the ALLOW/DENY
// remapping permission events require.
func (inst *Instance) handleNonProj(ev *common.Event, isPerm bool) int {
	if inst.currentSession() == nil {
		return common.DriverNotLoaded.ToDriverErrno()
	}
	if ev.Pid == inst.ownPID {
		if isPerm {
			return common.PermAllow
		}
		return 0
	}

	ntype, isDir, dest := classify(ev)
	if ntype == common.NoNotification {
		return 0
	}

	release := inst.acquireSlot()
	result := inst.dispatchNotification(ntype, ev.Path, dest, isDir)
	release()

	ret := result.ToDriverErrno()
	if !isPerm {
		return ret
	}
	switch ret {
	case 0:
		return common.PermAllow
	case common.PermDeny:
		return common.PermDeny
	default:
		return ret
	}
}

// acquireSlot bounds in-process dispatch fan-out to pool_threads concurrent
// provider callbacks (SPEC_FULL §5). It blocks until a slot is free; if the
// instance has no semaphore yet (shouldn't happen once a session is live)
// it is a no-op.
func (inst *Instance) acquireSlot() (release func()) {
	inst.mu.RLock()
	sem := inst.sem
	inst.mu.RUnlock()
	if sem == nil {
		return func() {}
	}
	_ = sem.Acquire(context.Background(), 1)
	return func() { sem.Release(1) }
}

// classify derives the NotificationType for an event's mask, in the
// first-match-wins priority order from spec.md §4.4.3, and reads the
// destination path where the type calls for one.
func classify(ev *common.Event) (ntype common.NotificationType, isDir bool, dest string) {
	m := ev.Mask
	isDir = m.Has(common.MaskOnDir)

	switch {
	case m.Has(common.MaskDeletePerm):
		return common.PreDelete, isDir, ""
	case m.Has(common.MaskMovePerm):
		return common.PreRename, isDir, ev.TargetPath
	case m.Has(common.MaskCloseWrite):
		return common.FileModified, isDir, ""
	case m.Has(common.MaskCreate) && !m.Has(common.MaskOnLink):
		return common.NewFileCreated, isDir, ""
	case m.Has(common.MaskMove):
		return common.FileRenamed, isDir, ev.TargetPath
	case m.Has(common.MaskCreate) && m.Has(common.MaskOnLink):
		return common.HardLinkCreated, isDir, ev.TargetPath
	case m.Has(common.MaskDelete):
		return common.FileDeleted, isDir, ""
	case m.Has(common.MaskOpenPerm):
		return common.PreConvertToFull, isDir, ""
	default:
		return common.NoNotification, isDir, ""
	}
}

// dispatchNotification routes a classified event to one of the seven
// provider callback slots (spec.md §4.4.3 / SPEC_FULL §3).
func (inst *Instance) dispatchNotification(ntype common.NotificationType, path, dest string, isDir bool) common.Result {
	switch ntype {
	case common.PreDelete:
		if inst.provider.PreDelete == nil {
			return common.NotYetImplemented
		}
		return inst.provider.PreDelete(path, isDir)
	case common.PreRename:
		if inst.provider.PreRename == nil {
			return common.NotYetImplemented
		}
		return inst.provider.PreRename(path, dest, isDir)
	case common.PreConvertToFull:
		if inst.provider.PreConvertToFull == nil {
			return common.NotYetImplemented
		}
		return inst.provider.PreConvertToFull(path)
	case common.FileModified, common.NewFileCreated, common.FileDeleted:
		if inst.provider.NotifyPathEvent != nil {
			inst.provider.NotifyPathEvent(ntype, path, isDir)
		}
		return common.Success
	case common.FileRenamed, common.HardLinkCreated:
		if inst.provider.NotifyPathPairEvent != nil {
			inst.provider.NotifyPathPairEvent(ntype, path, dest, isDir)
		}
		return common.Success
	default:
		return common.Success
	}
}
