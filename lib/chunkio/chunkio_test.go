package chunkio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// scriptedWriter replays a fixed sequence of (n, err) results, one per call
// to Write, regardless of the buffer it is handed. It lets us exercise
// TryWrite's short-write loop without a real fd.
type scriptedWriter struct {
	steps []scriptStep
	calls int
}

type scriptStep struct {
	n   int
	err error
}

func (s *scriptedWriter) Write(fd uintptr, p []byte) (int, error) {
	if s.calls >= len(s.steps) {
		panic("Write called more times than scripted")
	}
	step := s.steps[s.calls]
	s.calls++
	n := step.n
	if n > len(p) {
		n = len(p)
	}
	return n, step.err
}

func TestTryWriteShortWrites(t *testing.T) {
	buf := []byte("hello, world")
	w := &scriptedWriter{steps: []scriptStep{
		{n: 3}, {n: 2}, {n: 0}, {n: len(buf) - 5},
	}}
	ok := tryWriteWith(w, 42, buf)
	assert.True(t, ok)
	assert.Equal(t, 4, w.calls)
}

func TestTryWriteNegativeReturnStops(t *testing.T) {
	buf := []byte("abcdef")
	w := &scriptedWriter{steps: []scriptStep{
		{n: 3}, {n: -1},
	}}
	ok := tryWriteWith(w, 42, buf)
	assert.False(t, ok)
	assert.Equal(t, 2, w.calls)
}

func TestTryWriteErrorStops(t *testing.T) {
	buf := []byte("abcdef")
	w := &scriptedWriter{steps: []scriptStep{
		{n: 0, err: errors.New("device gone")},
	}}
	ok := tryWriteWith(w, 42, buf)
	assert.False(t, ok)
	assert.Equal(t, 1, w.calls)
}

func TestTryWriteEmptyBuffer(t *testing.T) {
	w := &scriptedWriter{}
	ok := tryWriteWith(w, 42, nil)
	assert.True(t, ok)
	assert.Equal(t, 0, w.calls)
}
