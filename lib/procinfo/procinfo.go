// Package procinfo resolves a process id to its command name on a
// best-effort basis (spec.md §4.4.2). Any lookup failure — most commonly the
// process having already exited by the time the event handler runs — yields
// an empty string; it is never fatal to the caller.
package procinfo

import (
	"github.com/shirou/gopsutil/v3/process"
)

// CommandName returns the first segment of pid's command line, matching the
// "take the first NUL-delimited segment of /proc/<pid>/cmdline" contract
// from spec.md §4.4.2. gopsutil is used instead of reading /proc directly so
// the same code path works on every platform the driver binding supports.
func CommandName(pid int32) string {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return ""
	}
	args, err := proc.CmdlineSlice()
	if err != nil || len(args) == 0 {
		return ""
	}
	return args[0]
}
