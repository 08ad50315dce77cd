package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projfs-go/projfs/common"
	"github.com/projfs-go/projfs/driver"
)

// newLiveInstance builds an Instance whose session field is populated
// without going through an actual FUSE mount, so dispatch logic (which only
// needs a non-nil session and a real storage-root directory for xattr
// reads) can be exercised without requiring a FUSE/WinFsp runtime.
func newLiveInstance(t *testing.T, p Provider) (*Instance, string) {
	t.Helper()
	storageRoot := t.TempDir()
	virtRoot := t.TempDir()

	inst := NewInstance(p)
	sess := driver.New(storageRoot, virtRoot, driver.Handlers{}, common.SessionOptions{})
	require.NotNil(t, sess)
	inst.session = sess
	inst.virtRoot = virtRoot
	return inst, storageRoot
}

func TestClassifyPriorityOrder(t *testing.T) {
	cases := []struct {
		name string
		mask common.EventMask
		want common.NotificationType
	}{
		{"delete perm alone", common.MaskDeletePerm, common.PreDelete},
		{"delete perm beats delete", common.MaskDeletePerm | common.MaskDelete, common.PreDelete},
		{"move perm alone", common.MaskMovePerm, common.PreRename},
		{"close write", common.MaskCloseWrite, common.FileModified},
		{"create not onlink", common.MaskCreate, common.NewFileCreated},
		{"move", common.MaskMove, common.FileRenamed},
		{"create and onlink", common.MaskCreate | common.MaskOnLink, common.HardLinkCreated},
		{"delete alone", common.MaskDelete, common.FileDeleted},
		{"open perm", common.MaskOpenPerm, common.PreConvertToFull},
		{"unrecognized bits", common.MaskOnDir, common.NoNotification},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := &common.Event{Mask: tc.mask}
			ntype, _, _ := classify(ev)
			assert.Equal(t, tc.want, ntype)
		})
	}
}

func TestClassifyCarriesTargetPath(t *testing.T) {
	ev := &common.Event{Mask: common.MaskMovePerm, TargetPath: "dest"}
	ntype, _, dest := classify(ev)
	assert.Equal(t, common.PreRename, ntype)
	assert.Equal(t, "dest", dest)
}

func TestSelfEventSuppression(t *testing.T) {
	called := false
	p := Provider{
		EnumerateDirectory: func(path string, pid int32, procName string) common.Result {
			called = true
			return common.Success
		},
		PreDelete: func(path string, isDir bool) common.Result {
			called = true
			return common.Success
		},
	}
	inst, _ := newLiveInstance(t, p)

	projEv := &common.Event{Pid: inst.ownPID, Mask: common.MaskOnDir, Path: "."}
	assert.Equal(t, 0, inst.onDemand(projEv))
	assert.False(t, called, "projection handler must not invoke provider callback for self events")

	notifyEv := &common.Event{Pid: inst.ownPID, Mask: common.MaskDeletePerm, Path: "x"}
	assert.Equal(t, 0, inst.handleNonProj(notifyEv, false))
	assert.False(t, called)

	permEv := &common.Event{Pid: inst.ownPID, Mask: common.MaskDeletePerm, Path: "x"}
	assert.Equal(t, common.PermAllow, inst.handleNonProj(permEv, true))
	assert.False(t, called)
}

func TestNoSessionReturnsDriverNotLoaded(t *testing.T) {
	inst := NewInstance(Provider{})
	ev := &common.Event{Pid: inst.ownPID + 1, Mask: common.MaskOnDir}
	assert.Equal(t, common.DriverNotLoaded.ToDriverErrno(), inst.onDemand(ev))
	assert.Equal(t, common.DriverNotLoaded.ToDriverErrno(), inst.handleNonProj(ev, false))
	assert.Equal(t, common.DriverNotLoaded.ToDriverErrno(), inst.handleNonProj(ev, true))
}

func TestPermissionEncoding(t *testing.T) {
	for _, tc := range []struct {
		name   string
		result common.Result
		want   int
	}{
		{"success allows", common.Success, common.PermAllow},
		{"access denied denies", common.AccessDenied, common.PermDeny},
		{"other error passes through", common.IOError, common.IOError.ToDriverErrno()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := Provider{
				PreDelete: func(path string, isDir bool) common.Result {
					return tc.result
				},
			}
			inst, _ := newLiveInstance(t, p)
			ev := &common.Event{Pid: inst.ownPID + 1, Mask: common.MaskDeletePerm, Path: "x"}
			got := inst.handleNonProj(ev, true)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnumerateDotNormalizesToEmptyPath(t *testing.T) {
	var gotPath string
	var gotPid int32
	p := Provider{
		EnumerateDirectory: func(path string, pid int32, procName string) common.Result {
			gotPath = path
			gotPid = pid
			return common.Success
		},
	}
	inst, _ := newLiveInstance(t, p)
	ev := &common.Event{Pid: inst.ownPID + 1, Mask: common.MaskOnDir, Path: "."}
	rc := inst.onDemand(ev)
	assert.Equal(t, 0, rc)
	assert.Equal(t, "", gotPath)
	assert.Equal(t, ev.Pid, gotPid)
}

func TestHydrateInvokesGetFileStreamWithAttrs(t *testing.T) {
	var gotFd uintptr
	var gotProviderID, gotContentID common.PlaceholderID
	gotProviderID[0] = 9 // sentinel to make sure it gets overwritten by the callback args
	p := Provider{
		GetFileStream: func(path string, providerID, contentID common.PlaceholderID, pid int32, procName string, fd uintptr) common.Result {
			gotProviderID = providerID
			gotContentID = contentID
			gotFd = fd
			return common.Success
		},
	}
	inst, storageRoot := newLiveInstance(t, p)

	require.Equal(t, common.Success, inst.session.CreateProjDir("a", 0o777))

	var providerID, contentID common.PlaceholderID
	providerID[0] = 1
	require.Equal(t, common.Success, inst.session.CreateProjFile("a/b.txt", 0, 0o644, providerID, contentID))
	_ = storageRoot

	ev := &common.Event{Pid: inst.ownPID + 1, Mask: 0, Path: "a/b.txt", Fd: 17, HasFd: true}
	rc := inst.onDemand(ev)
	assert.Equal(t, 0, rc)
	assert.Equal(t, providerID, gotProviderID)
	assert.Equal(t, contentID, gotContentID)
	assert.Equal(t, uintptr(17), gotFd)
}

func TestRenamePermissionDirectoryScenario(t *testing.T) {
	var gotOld, gotNew string
	var gotIsDir bool
	p := Provider{
		PreRename: func(path, dest string, isDir bool) common.Result {
			gotOld, gotNew, gotIsDir = path, dest, isDir
			return common.Success
		},
	}
	inst, _ := newLiveInstance(t, p)
	ev := &common.Event{
		Pid:        inst.ownPID + 1,
		Mask:       common.MaskMovePerm | common.MaskOnDir,
		Path:       "x",
		TargetPath: "y",
	}
	rc := inst.handleNonProj(ev, true)
	assert.Equal(t, common.PermAllow, rc)
	assert.Equal(t, "x", gotOld)
	assert.Equal(t, "y", gotNew)
	assert.True(t, gotIsDir)
}
