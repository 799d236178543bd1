package adapter

import (
	"runtime"

	m "gooze.dev/pkg/poison/internal/model"
)

// maxFrames bounds how much of the stack a single lookup captures.
const maxFrames = 64

// FrameSource exposes the active call stack, innermost frame first.
type FrameSource interface {
	Frames() []m.Frame
}

// RuntimeFrameSource reads the current goroutine's stack through runtime.Callers.
type RuntimeFrameSource struct{}

// NewRuntimeFrameSource constructs a RuntimeFrameSource.
func NewRuntimeFrameSource() *RuntimeFrameSource {
	return &RuntimeFrameSource{}
}

// Frames returns the stack starting at the caller of Frames.
func (s *RuntimeFrameSource) Frames() []m.Frame {
	pcs := make([]uintptr, maxFrames)

	// Skip runtime.Callers and Frames itself.
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	result := make([]m.Frame, 0, n)

	for {
		frame, more := frames.Next()
		result = append(result, m.Frame{
			Function: frame.Function,
			File:     m.Path(frame.File),
			Line:     frame.Line,
		})

		if !more {
			break
		}
	}

	return result
}

// StaticFrameSource replays a fixed stack. It backs explicit contexts and tests.
type StaticFrameSource []m.Frame

// Frames returns the fixed frames.
func (s StaticFrameSource) Frames() []m.Frame {
	return s
}
