package procinfo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandNameOwnProcess(t *testing.T) {
	name := CommandName(int32(os.Getpid()))
	assert.NotEmpty(t, name, "should resolve the test binary's own command name")
}

func TestCommandNameUnknownPidIsEmpty(t *testing.T) {
	// A pid astronomically unlikely to be alive. Best-effort lookup must
	// degrade to empty string, never panic or error out to the caller.
	name := CommandName(int32(1 << 30))
	assert.Empty(t, name)
}
