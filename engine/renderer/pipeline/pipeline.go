// package pipeline implements the post-processing chain: an ordered list of
// full-screen passes over offscreen targets, plus the host-side glow and
// channel-adjustment math shared with the generated shaders.
package pipeline

import (
	"fmt"

	"github.com/emberforge/ember/common"
	"github.com/emberforge/ember/engine/renderer/shader"
	"github.com/emberforge/ember/engine/renderer/target"
)

// Submitter issues one full-screen pass. The renderer implements this.
type Submitter interface {
	// SubmitScreenPass draws a full-screen quad onto output with p, binding
	// inputs positionally to the program's texture declarations.
	//
	// Parameters:
	//   - p: the effect program to run
	//   - inputs: read textures in the program's positional binding order
	//   - output: the render target written to
	//
	// Returns:
	//   - error: an error when submission fails
	SubmitScreenPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error
}

// pass is one registered full-screen pass.
type pass struct {
	program shader.Program
	inputs  []*target.Texture
	output  *target.RenderTarget
}

// postChain is the implementation of the PostChain interface.
type postChain struct {
	submitter Submitter
	passes    []pass
}

// PostChain runs registered full-screen passes in registration order. Each
// pass reads its input textures and writes its output target; a pass never
// reads the target it writes. Programs declaring a "time" uniform receive
// the frame time passed to Run.
type PostChain interface {
	// AddPass registers a pass at the end of the chain. The input count must
	// match the program's texture declarations, and no input may be a read
	// view of the output target.
	//
	// Parameters:
	//   - p: the effect program to run
	//   - inputs: read textures in the program's positional binding order
	//   - output: the render target written to
	//
	// Returns:
	//   - error: a contract violation on input mismatch or self-read
	AddPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error

	// Run executes all passes in registration order, staging the frame time
	// on each program that declares a "time" uniform.
	//
	// Parameters:
	//   - time: the frame time in seconds
	//
	// Returns:
	//   - error: the first submission error encountered
	Run(time float32) error

	// Len returns the number of registered passes.
	//
	// Returns:
	//   - int: the pass count
	Len() int

	// Reset removes all registered passes.
	Reset()
}

var _ PostChain = &postChain{}

// NewPostChain creates an empty chain submitting through the given submitter.
//
// Parameters:
//   - submitter: the pass submitter, typically the renderer
//
// Returns:
//   - PostChain: the chain
//   - error: an error when the submitter is nil
func NewPostChain(submitter Submitter) (PostChain, error) {
	if submitter == nil {
		return nil, fmt.Errorf("%w: post chain requires a submitter", common.ErrContractViolation)
	}
	return &postChain{submitter: submitter}, nil
}

func (c *postChain) AddPass(p shader.Program, inputs []*target.Texture, output *target.RenderTarget) error {
	if p == nil || output == nil {
		return fmt.Errorf("%w: pass requires a program and an output target", common.ErrContractViolation)
	}
	declared := len(p.Layout().Textures)
	if len(inputs) != declared {
		return fmt.Errorf("%w: program %q declares %d textures, got %d inputs",
			common.ErrContractViolation, p.Key(), declared, len(inputs))
	}
	for i, in := range inputs {
		if in == nil {
			return fmt.Errorf("%w: pass input %d is nil", common.ErrContractViolation, i)
		}
		if in.Owner() == output {
			return fmt.Errorf("%w: pass would read and write target %dx%d in the same pass",
				common.ErrContractViolation, output.Width(), output.Height())
		}
	}
	c.passes = append(c.passes, pass{program: p, inputs: inputs, output: output})
	return nil
}

func (c *postChain) Run(time float32) error {
	for i, ps := range c.passes {
		if err := ps.program.SetUniform("time", time); err != nil {
			return fmt.Errorf("pass %d (%s): %w", i, ps.program.Key(), err)
		}
		if err := c.submitter.SubmitScreenPass(ps.program, ps.inputs, ps.output); err != nil {
			return fmt.Errorf("pass %d (%s): %w", i, ps.program.Key(), err)
		}
	}
	return nil
}

func (c *postChain) Len() int {
	return len(c.passes)
}

func (c *postChain) Reset() {
	c.passes = c.passes[:0]
}

// PingPong manages a pair of scratch targets for multi-pass chains: each
// pass reads the source and writes the destination, then Swap flips the
// roles for the next pass.
type PingPong struct {
	src *target.RenderTarget
	dst *target.RenderTarget
}

// NewPingPong creates a pair wrapper over two scratch targets.
//
// Parameters:
//   - a: the initial source target
//   - b: the initial destination target
//
// Returns:
//   - *PingPong: the pair
//   - error: an error when either target is nil
func NewPingPong(a, b *target.RenderTarget) (*PingPong, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: ping-pong requires two targets", common.ErrContractViolation)
	}
	return &PingPong{src: a, dst: b}, nil
}

// Source returns the current read target.
func (p *PingPong) Source() *target.RenderTarget { return p.src }

// Dest returns the current write target.
func (p *PingPong) Dest() *target.RenderTarget { return p.dst }

// Swap flips the read and write roles.
func (p *PingPong) Swap() {
	p.src, p.dst = p.dst, p.src
}
