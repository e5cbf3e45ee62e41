// package animation advances flipbook animations over sprite sheet frames.
// An Animator owns a frame sequence cut from a texture atlas and yields the
// current frame rectangle as time advances; sprites pass that rectangle as
// their texture section when drawn.
package animation

import (
	"fmt"
	"sync"

	"github.com/emberforge/ember/common"
)

// Mode selects how an animation behaves when it reaches its last frame.
type Mode int

const (
	// ModeLoop restarts from the first frame.
	ModeLoop Mode = iota

	// ModeOnce holds the last frame and stops playing.
	ModeOnce

	// ModePingPong reverses direction at both ends.
	ModePingPong
)

// Animator advances a flipbook animation. Safe for concurrent use so the
// tick loop may advance while the render loop reads the current frame.
type Animator interface {
	// Advance moves the animation forward by a time step.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Advance(deltaTime float32)

	// Frame returns the texture section of the current frame.
	//
	// Returns:
	//   - common.Rect: the current frame rectangle in texel coordinates
	Frame() common.Rect

	// FrameIndex returns the index of the current frame.
	//
	// Returns:
	//   - int: the current frame index
	FrameIndex() int

	// Playing returns whether the animation is still advancing. Loop and
	// ping-pong animations never stop.
	//
	// Returns:
	//   - bool: true while the animation advances
	Playing() bool

	// Reset rewinds to the first frame and resumes playing.
	Reset()
}

type flipbook struct {
	mu *sync.Mutex

	frames []common.Rect
	fps    float32
	mode   Mode

	elapsed   float32
	index     int
	direction int
	done      bool
}

var _ Animator = &flipbook{}

// NewAnimator creates a flipbook animator over a frame sequence. Defaults to
// 12 frames per second in loop mode.
//
// Parameters:
//   - frames: the frame rectangles in playback order, must not be empty
//   - options: functional options for rate and mode
//
// Returns:
//   - Animator: the configured animator
//   - error: an error when frames is empty or the rate is invalid
func NewAnimator(frames []common.Rect, options ...AnimatorBuilderOption) (Animator, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: animation requires at least one frame", common.ErrContractViolation)
	}
	a := &flipbook{
		mu:        &sync.Mutex{},
		frames:    frames,
		fps:       12,
		direction: 1,
	}
	for _, opt := range options {
		opt(a)
	}
	if a.fps <= 0 {
		return nil, fmt.Errorf("%w: animation rate must be positive, got %v", common.ErrContractViolation, a.fps)
	}
	return a, nil
}

func (a *flipbook) Advance(deltaTime float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done || deltaTime <= 0 {
		return
	}

	a.elapsed += deltaTime
	frameTime := 1 / a.fps
	for a.elapsed >= frameTime {
		a.elapsed -= frameTime
		a.step()
		if a.done {
			return
		}
	}
}

// step advances one frame according to the mode. Caller holds the lock.
func (a *flipbook) step() {
	next := a.index + a.direction
	switch a.mode {
	case ModeLoop:
		if next >= len(a.frames) {
			next = 0
		}
	case ModeOnce:
		if next >= len(a.frames) {
			a.done = true
			return
		}
	case ModePingPong:
		if next >= len(a.frames) || next < 0 {
			a.direction = -a.direction
			next = a.index + a.direction
			if next < 0 || next >= len(a.frames) {
				next = a.index
			}
		}
	}
	a.index = next
}

func (a *flipbook) Frame() common.Rect {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames[a.index]
}

func (a *flipbook) FrameIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index
}

func (a *flipbook) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.done
}

func (a *flipbook) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.elapsed = 0
	a.index = 0
	a.direction = 1
	a.done = false
}

// GridFrames cuts a row-major grid of equally sized frames from a sprite
// sheet, up to count frames.
//
// Parameters:
//   - sheetW, sheetH: the sheet dimensions in pixels
//   - frameW, frameH: the frame dimensions in pixels
//   - count: the number of frames to cut, 0 for the whole sheet
//
// Returns:
//   - []common.Rect: the frame rectangles in playback order
func GridFrames(sheetW, sheetH, frameW, frameH, count int) []common.Rect {
	if frameW <= 0 || frameH <= 0 {
		return nil
	}
	cols := sheetW / frameW
	rows := sheetH / frameH
	total := cols * rows
	if count <= 0 || count > total {
		count = total
	}

	frames := make([]common.Rect, 0, count)
	for i := 0; i < count; i++ {
		col := i % cols
		row := i / cols
		frames = append(frames, common.Rect{
			X: float32(col * frameW),
			Y: float32(row * frameH),
			W: float32(frameW),
			H: float32(frameH),
		})
	}
	return frames
}
