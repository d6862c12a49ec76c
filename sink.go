package lichtwerkd

import (
	"sync"

	"dev.acmcsuf.com/lichtwerkd/effects"
)

// PixelSink is an LED strip the controller renders into.
type PixelSink interface {
	// SetPixel sets the pixel at i in the sink's buffer.
	SetPixel(i int, color effects.RGB)
	// Show latches the buffer onto the LEDs.
	Show() error
	// Clear blacks out the buffer. It does not call Show.
	Clear()
	// PixelCount returns the number of LEDs.
	PixelCount() int
}

// MemorySink is a PixelSink that keeps the frames in memory. It is used by
// the simulator and in tests.
type MemorySink struct {
	mu    sync.Mutex
	buf   []effects.RGB
	shown []effects.RGB
	shows int
}

var _ PixelSink = (*MemorySink)(nil)

// NewMemorySink creates a MemorySink with n pixels.
func NewMemorySink(n int) *MemorySink {
	return &MemorySink{
		buf:   make([]effects.RGB, n),
		shown: make([]effects.RGB, n),
	}
}

func (s *MemorySink) SetPixel(i int, color effects.RGB) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i >= 0 && i < len(s.buf) {
		s.buf[i] = color
	}
}

func (s *MemorySink) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.shown, s.buf)
	s.shows++
	return nil
}

func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.buf)
}

func (s *MemorySink) PixelCount() int {
	return len(s.buf)
}

// Shown returns a copy of the last frame that was shown.
func (s *MemorySink) Shown() []effects.RGB {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]effects.RGB(nil), s.shown...)
}

// Shows returns the number of times Show was called.
func (s *MemorySink) Shows() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.shows
}
