// Package common holds the types shared between the event dispatcher and
// the driver binding, split out to avoid an import cycle between them (the
// same role vfscommon plays between vfs and vfscache in the teacher).
package common

import "golang.org/x/sys/unix"

// Result is the core's abstract outcome enumeration (spec C1). It is itself
// an error: Error() and Errno() let a Result be used anywhere a plain Go
// error or a raw errno is expected, without a separate wrapper type.
type Result int

// The result enumeration. Success is always zero so a zero-value Result
// reads as success, matching the driver's 0-means-OK convention.
const (
	Success Result = iota
	Invalid
	InvalidState
	InvalidArgument
	NotYetImplemented
	DriverNotLoaded
	FileNotFound
	PathNotFound
	AccessDenied
	DirectoryNotEmpty
	IOError
	VirtualizationInvalidOperation
)

var resultNames = map[Result]string{
	Success:                        "success",
	Invalid:                        "invalid",
	InvalidState:                   "invalid state",
	InvalidArgument:                "invalid argument",
	NotYetImplemented:              "not yet implemented",
	DriverNotLoaded:                "driver not loaded",
	FileNotFound:                   "file not found",
	PathNotFound:                   "path not found",
	AccessDenied:                   "access denied",
	DirectoryNotEmpty:              "directory not empty",
	IOError:                        "I/O error",
	VirtualizationInvalidOperation: "invalid virtualization operation",
}

// String implements fmt.Stringer.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "unknown result"
}

// Error implements the error interface so a Result can be returned directly
// from any function signature expecting a Go error.
func (r Result) Error() string {
	return r.String()
}

// errnoTable is the canonical, total Result -> errno mapping from SPEC_FULL
// §4.1. Unlisted results fall back to EIO in Errno.
var errnoTable = map[Result]unix.Errno{
	Success:                        0,
	Invalid:                        unix.EIO,
	InvalidState:                   unix.EINVAL,
	InvalidArgument:                unix.EINVAL,
	NotYetImplemented:              unix.ENOSYS,
	DriverNotLoaded:                unix.ENODEV,
	FileNotFound:                   unix.ENOENT,
	PathNotFound:                   unix.ENOENT,
	// AccessDenied maps to EPERM, not EACCES: it is this taxonomy's only
	// permission-refusal Result, and permission-event handlers (spec.md
	// §4.4 step 5) remap exactly -EPERM to DENY.
	AccessDenied: unix.EPERM,
	DirectoryNotEmpty:              unix.ENOTEMPTY,
	IOError:                        unix.EIO,
	VirtualizationInvalidOperation: unix.EINVAL,
}

// errnoToResult is built once from errnoTable, preferring the first result
// in the fixed order listed in init below for errno values claimed by more
// than one Result (e.g. both InvalidState and InvalidArgument map to EINVAL;
// FromErrno resolves that ambiguity to InvalidArgument).
var errnoToResult map[unix.Errno]Result

func init() {
	errnoToResult = make(map[unix.Errno]Result, len(errnoTable))
	// Iterate in a fixed, meaningful order so ambiguous errno values (EINVAL,
	// ENOENT) resolve to a deterministic, documented Result rather than
	// whatever order map iteration happens to produce.
	order := []Result{
		Success, FileNotFound, PathNotFound, AccessDenied, DirectoryNotEmpty,
		NotYetImplemented, DriverNotLoaded, InvalidArgument, InvalidState,
		VirtualizationInvalidOperation, IOError, Invalid,
	}
	for _, r := range order {
		errno := errnoTable[r]
		if _, exists := errnoToResult[errno]; !exists {
			errnoToResult[errno] = r
		}
	}
}

// Errno returns the POSIX error number this Result maps to. The map is
// total: a Result outside the enumeration above still yields EIO, the
// generic catch-all.
func (r Result) Errno() unix.Errno {
	if errno, ok := errnoTable[r]; ok {
		return errno
	}
	return unix.EIO
}

// ToDriverErrno returns the negative errno value the dispatcher hands back
// to the driver (0 on Success).
func (r Result) ToDriverErrno() int {
	return -int(r.Errno())
}

// FromErrno recovers the canonical Result for an observed errno. Ambiguous
// errno values resolve to the Result named in the init() ordering above;
// any errno not present in the table becomes Invalid, the catch-all.
func FromErrno(errno unix.Errno) Result {
	if errno == 0 {
		return Success
	}
	if r, ok := errnoToResult[errno]; ok {
		return r
	}
	return Invalid
}
