// Package chunkio writes a byte buffer fully to a kernel-supplied file
// descriptor, tolerating short writes the way a raw write(2) loop must
// (spec C3). It is deliberately tiny and dependency-free, the same way the
// teacher keeps single-purpose helpers under lib/ rather than folding them
// into a bigger package.
package chunkio

import "syscall"

// Writer abstracts the one syscall TryWrite needs, so tests can supply a fd
// stand-in that reports a scripted sequence of short writes without
// involving a real file descriptor.
type Writer interface {
	Write(fd uintptr, p []byte) (int, error)
}

// rawWriter calls syscall.Write directly.
type rawWriter struct{}

func (rawWriter) Write(fd uintptr, p []byte) (int, error) {
	return syscall.Write(int(fd), p)
}

// TryWrite writes exactly len(p) bytes to fd, looping over short writes by
// advancing the buffer pointer. It returns false on any system-level write
// failure and does not interpret the error beyond pass/fail (spec.md §4.3).
//
// fd is borrowed: the driver opened it and closes it after the projection
// handler returns, so TryWrite must never close it itself.
func TryWrite(fd uintptr, p []byte) bool {
	return tryWriteWith(rawWriter{}, fd, p)
}

func tryWriteWith(w Writer, fd uintptr, p []byte) bool {
	for len(p) > 0 {
		n, err := w.Write(fd, p)
		if err != nil {
			return false
		}
		if n < 0 {
			return false
		}
		p = p[n:]
	}
	return true
}
