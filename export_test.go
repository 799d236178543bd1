package poison

import (
	"gooze.dev/pkg/poison/internal/adapter"
	m "gooze.dev/pkg/poison/internal/model"
)

// Frame is a fake stack entry.
type Frame = m.Frame

// Path is a source file path.
type Path = m.Path

// WithFrames replaces the runtime stack with frames.
func WithFrames(frames ...Frame) Option {
	return func(c *Checker) {
		c.frames = adapter.StaticFrameSource(frames)
	}
}
