package driver

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projfs-go/projfs/common"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	storageRoot, virtRoot := t.TempDir(), t.TempDir()
	sess := New(storageRoot, virtRoot, Handlers{}, common.SessionOptions{})
	require.NotNil(t, sess)
	return sess
}

// TestXattrRoundTrip covers Testable Property 12: create_proj_file (which
// write_placeholder_file wraps) followed by get_proj_attrs on the same path
// returns the exact bytes written.
func TestXattrRoundTrip(t *testing.T) {
	sess := newTestSession(t)

	var providerID, contentID common.PlaceholderID
	for i := range providerID {
		providerID[i] = byte(i)
		contentID[i] = byte(255 - i)
	}

	require.Equal(t, common.Success, sess.CreateProjFile("a.txt", 0, 0o644, providerID, contentID))

	res, gotProviderID, gotContentID := sess.GetProjAttrs("a.txt")
	require.Equal(t, common.Success, res)
	assert.Equal(t, providerID, gotProviderID)
	assert.Equal(t, contentID, gotContentID)
}

func TestGetProjAttrsMissingFileNotFound(t *testing.T) {
	sess := newTestSession(t)
	res, _, _ := sess.GetProjAttrs("missing.txt")
	assert.Equal(t, common.FileNotFound, res)
}

func TestGetProjStateTransitions(t *testing.T) {
	sess := newTestSession(t)

	var id common.PlaceholderID
	require.Equal(t, common.Success, sess.CreateProjFile("p.txt", 0, 0o644, id, id))

	res, state := sess.GetProjState("p.txt")
	require.Equal(t, common.Success, res)
	assert.Equal(t, common.Placeholder, state)

	require.NoError(t, sess.markHydrated("p.txt"))

	res, state = sess.GetProjState("p.txt")
	require.Equal(t, common.Success, res)
	assert.Equal(t, common.Full, state)
}

func TestGetProjStateNoXattrIsFull(t *testing.T) {
	sess := newTestSession(t)

	full := sess.fullPath("plain.txt")
	require.NoError(t, os.WriteFile(full, []byte("hello"), 0o644))

	res, state := sess.GetProjState("plain.txt")
	require.Equal(t, common.Success, res)
	assert.Equal(t, common.Full, state)
}

func TestGetProjStateMissingFileNotFound(t *testing.T) {
	sess := newTestSession(t)
	res, state := sess.GetProjState("missing.txt")
	assert.Equal(t, common.FileNotFound, res)
	assert.Equal(t, common.Unknown, state)
}
