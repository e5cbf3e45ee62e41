// package batch implements the instanced sprite batcher. Pushed instances
// accumulate host-side and are uploaded as a whole-buffer replacement when
// the batch flushes, so every flush costs exactly one draw call.
package batch

import (
	"fmt"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
)

const (
	// InstanceFloats is the number of float32 components per packed instance.
	InstanceFloats = 10

	// InstanceStride is the packed instance size in bytes.
	InstanceStride = InstanceFloats * 4

	// DefaultCapacity is the instance capacity used when none is configured.
	DefaultCapacity = 8192
)

// SpriteInstance is one sprite in a batch. The packed order is fixed:
// position, scale, rotation angle, tint, glow.
type SpriteInstance struct {
	// X, Y is the sprite center in pixel space.
	X, Y float32
	// ScaleX, ScaleY is the sprite size in pixels (the unit quad spans one
	// scale unit on each axis).
	ScaleX, ScaleY float32
	// Angle is the rotation in radians.
	Angle float32
	// Tint multiplies the sampled texel.
	Tint common.Color
	// Glow scales the time-varying glow contribution for programs with the
	// per-instance glow variant.
	Glow float32
}

// pack appends the instance's float components in wire order.
func (s SpriteInstance) pack(dst []float32) []float32 {
	return append(dst,
		s.X, s.Y,
		s.ScaleX, s.ScaleY,
		s.Angle,
		s.Tint.R, s.Tint.G, s.Tint.B, s.Tint.A,
		s.Glow,
	)
}

// Submitter issues one instanced draw for a flushed batch. The renderer
// implements this.
type Submitter interface {
	// SubmitBatch draws count packed instances of tex onto dst using p.
	//
	// Parameters:
	//   - p: the sprite program to draw with
	//   - tex: the texture sampled by every instance
	//   - dst: the render target drawn onto
	//   - instances: the packed instance floats, count*InstanceFloats long
	//   - count: the number of instances
	//
	// Returns:
	//   - error: an error when submission fails
	SubmitBatch(p shader.Program, tex *target.Texture, dst *target.RenderTarget, instances []float32, count int) error
}

// instanceBatch is the implementation of the InstanceBatch interface.
type instanceBatch struct {
	submitter Submitter
	capacity  int

	data    []float32
	count   int
	open    bool
	program shader.Program
	texture *target.Texture
	dst     *target.RenderTarget
}

// InstanceBatch accumulates sprites sharing one program and one texture and
// flushes them as a single instanced draw. Begin with a different program,
// texture, or target flushes pending sprites first, as does reaching
// capacity or calling Flush explicitly.
type InstanceBatch interface {
	// Begin binds the program, texture, and destination for subsequent
	// pushes. When the batch is already open with a different binding, the
	// pending sprites flush first.
	//
	// Parameters:
	//   - p: the sprite program to draw with
	//   - tex: the texture sampled by every instance
	//   - dst: the render target drawn onto
	//
	// Returns:
	//   - error: an error when the implicit flush fails
	Begin(p shader.Program, tex *target.Texture, dst *target.RenderTarget) error

	// Push appends one sprite. Reaching capacity flushes the batch before
	// appending. Pushing to a batch that was never begun is a contract
	// violation.
	//
	// Parameters:
	//   - inst: the sprite instance to append
	//
	// Returns:
	//   - error: an error when the batch is not open or the implicit flush fails
	Push(inst SpriteInstance) error

	// Flush issues one instanced draw for the pending sprites and empties
	// the batch. Flushing an empty batch is a no-op.
	//
	// Returns:
	//   - error: an error when submission fails
	Flush() error

	// Len returns the number of pending sprites.
	//
	// Returns:
	//   - int: the pending count
	Len() int

	// Cap returns the configured instance capacity.
	//
	// Returns:
	//   - int: the capacity
	Cap() int
}

var _ InstanceBatch = &instanceBatch{}

// NewInstanceBatch creates a batch with all specified options applied.
//
// Parameters:
//   - submitter: the draw submitter, typically the renderer
//   - opts: builder options configuring capacity
//
// Returns:
//   - InstanceBatch: the batch
//   - error: an error when the submitter is nil or the capacity is invalid
func NewInstanceBatch(submitter Submitter, opts ...BuilderOption) (InstanceBatch, error) {
	if submitter == nil {
		return nil, fmt.Errorf("%w: batch requires a submitter", common.ErrContractViolation)
	}
	b := &instanceBatch{
		submitter: submitter,
		capacity:  DefaultCapacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.capacity <= 0 {
		return nil, fmt.Errorf("%w: batch capacity must be positive, got %d", common.ErrContractViolation, b.capacity)
	}
	b.data = make([]float32, 0, b.capacity*InstanceFloats)
	return b, nil
}

func (b *instanceBatch) Begin(p shader.Program, tex *target.Texture, dst *target.RenderTarget) error {
	if p == nil || tex == nil || dst == nil {
		return fmt.Errorf("%w: batch begin requires a program, texture, and target", common.ErrContractViolation)
	}
	if b.open && (p != b.program || tex != b.texture || dst != b.dst) {
		if err := b.Flush(); err != nil {
			return err
		}
	}
	b.program = p
	b.texture = tex
	b.dst = dst
	b.open = true
	return nil
}

func (b *instanceBatch) Push(inst SpriteInstance) error {
	if !b.open {
		return fmt.Errorf("%w: push on a batch that was never begun", common.ErrContractViolation)
	}
	if b.count == b.capacity {
		if err := b.Flush(); err != nil {
			return err
		}
	}
	b.data = inst.pack(b.data)
	b.count++
	return nil
}

func (b *instanceBatch) Flush() error {
	if b.count == 0 {
		return nil
	}
	err := b.submitter.SubmitBatch(b.program, b.texture, b.dst, b.data, b.count)
	b.data = b.data[:0]
	b.count = 0
	return err
}

func (b *instanceBatch) Len() int {
	return b.count
}

func (b *instanceBatch) Cap() int {
	return b.capacity
}
