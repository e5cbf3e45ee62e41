// package shader defines Program, a compiled vertex/fragment WGSL pair with a
// host-side uniform table, and the Effect generator that emits the engine's
// built-in shader variants.
package shader

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/emberforge/ember/common"
)

// program is the implementation of the Program interface.
// It holds the WGSL sources, the parsed layout, and the staged uniform state
// pending upload at draw submission.
type program struct {
	key            string
	vertexSource   string
	fragmentSource string
	effect         *Effect
	layout         *ProgramLayout

	uniformData []byte
	blockData   map[string][]byte

	handle any

	mu sync.Mutex
}

// Program defines the interface for a compiled shader program. A Program is
// constructed fully validated; construction never yields a partially valid
// handle. Uniform writes are staged host-side and uploaded when a draw using
// the program is submitted.
type Program interface {
	// Key retrieves the unique identifier for this program, used for caching and lookups.
	//
	// Returns:
	//   - string: the program's unique key
	Key() string

	// VertexSource retrieves the vertex stage WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source
	VertexSource() string

	// FragmentSource retrieves the fragment stage WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source
	FragmentSource() string

	// Effect returns the tagged effect this program was generated from, or
	// nil for programs built from caller-provided source.
	//
	// Returns:
	//   - *Effect: the generating effect, or nil
	Effect() *Effect

	// Layout returns the parsed program layout: entry points, uniform table,
	// blocks, and texture bindings.
	//
	// Returns:
	//   - *ProgramLayout: the program layout
	Layout() *ProgramLayout

	// SetUniform stages a scalar uniform value by name. Setting a name the
	// program does not declare is a recoverable no-op logged at debug level.
	// Supplying the wrong number of components for a declared uniform is a
	// contract violation.
	//
	// Parameters:
	//   - name: the uniform field name inside the globals struct
	//   - values: the float components to write
	//
	// Returns:
	//   - error: nil on success or no-op, an error on component count mismatch
	SetUniform(name string, values ...float32) error

	// Uniform reads back the currently staged value of a scalar uniform.
	//
	// Parameters:
	//   - name: the uniform field name
	//
	// Returns:
	//   - []float32: the staged components
	//   - bool: true if the uniform is declared
	Uniform(name string) ([]float32, bool)

	// SetUniformBlock stages a named uniform block. The value length must
	// match the block's declared size exactly; a mismatch is a contract
	// violation. An undeclared block name is a recoverable no-op.
	//
	// Parameters:
	//   - name: the block variable name, e.g. "values"
	//   - values: the float payload for the whole block
	//
	// Returns:
	//   - error: nil on success or no-op, an error on size mismatch
	SetUniformBlock(name string, values []float32) error

	// UniformBlock reads back the currently staged floats of a named block.
	//
	// Parameters:
	//   - name: the block variable name
	//
	// Returns:
	//   - []float32: the staged block contents
	//   - bool: true if the block is declared
	UniformBlock(name string) ([]float32, bool)

	// UniformBytes returns the packed globals struct bytes pending upload,
	// or nil when the program declares no globals.
	//
	// Returns:
	//   - []byte: the packed uniform struct
	UniformBytes() []byte

	// BlockBytes returns the packed bytes of a named block pending upload.
	//
	// Parameters:
	//   - name: the block variable name
	//
	// Returns:
	//   - []byte: the packed block, or nil if undeclared
	BlockBytes(name string) []byte

	// Handle returns the backend-specific compiled object for this program,
	// set by the renderer at registration.
	//
	// Returns:
	//   - any: the backend handle, or nil before registration
	Handle() any

	// SetHandle stores the backend-specific compiled object. Called by the
	// renderer backend, not by application code.
	//
	// Parameters:
	//   - h: the backend handle
	SetHandle(h any)
}

var _ Program = &program{}

// NewProgram creates a validated Program with all specified options applied.
// Source comes from exactly one of WithEffect, WithSource, or
// WithSourceFromPath; providing none is an error.
//
// Parameters:
//   - key: a unique identifier for the program, used for caching and lookups
//   - opts: builder options configuring the source
//
// Returns:
//   - Program: the validated program
//   - error: a *CompileError on structural validation failure
func NewProgram(key string, opts ...BuilderOption) (Program, error) {
	p := &program{
		key:       key,
		blockData: make(map[string][]byte),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.vertexSource == "" || p.fragmentSource == "" {
		return nil, fmt.Errorf("program %q: no shader source provided", key)
	}

	layout, err := ParseProgramLayout(key, p.vertexSource, p.fragmentSource)
	if err != nil {
		return nil, err
	}
	p.layout = layout

	if layout.UniformSize > 0 {
		p.uniformData = make([]byte, layout.UniformSize)
	}
	for name, block := range layout.Blocks {
		p.blockData[name] = make([]byte, block.Size)
	}
	return p, nil
}

func (p *program) Key() string {
	return p.key
}

func (p *program) VertexSource() string {
	return p.vertexSource
}

func (p *program) FragmentSource() string {
	return p.fragmentSource
}

func (p *program) Effect() *Effect {
	return p.effect
}

func (p *program) Layout() *ProgramLayout {
	return p.layout
}

func (p *program) SetUniform(name string, values ...float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	field, ok := p.layout.Uniforms[name]
	if !ok {
		common.Logger().Debug("uniform not declared, ignoring", "program", p.key, "uniform", name)
		return nil
	}
	if len(values) != field.Floats {
		return fmt.Errorf("%w: uniform %q of program %q takes %d floats, got %d",
			common.ErrContractViolation, name, p.key, field.Floats, len(values))
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(p.uniformData[field.Offset+i*4:], math.Float32bits(v))
	}
	return nil
}

func (p *program) Uniform(name string) ([]float32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	field, ok := p.layout.Uniforms[name]
	if !ok {
		return nil, false
	}
	out := make([]float32, field.Floats)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p.uniformData[field.Offset+i*4:]))
	}
	return out, true
}

func (p *program) SetUniformBlock(name string, values []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	block, ok := p.layout.Blocks[name]
	if !ok {
		common.Logger().Debug("uniform block not declared, ignoring", "program", p.key, "block", name)
		return nil
	}
	if len(values)*4 != block.Size {
		return fmt.Errorf("%w: block %q of program %q is %d bytes, got %d",
			common.ErrContractViolation, name, p.key, block.Size, len(values)*4)
	}
	data := p.blockData[name]
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return nil
}

func (p *program) UniformBlock(name string) ([]float32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok := p.blockData[name]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, true
}

func (p *program) UniformBytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uniformData
}

func (p *program) BlockBytes(name string) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blockData[name]
}

func (p *program) Handle() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

func (p *program) SetHandle(h any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handle = h
}

// readSourceFile loads a WGSL source file from disk.
func readSourceFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read shader source %q: %w", path, err)
	}
	return string(data), nil
}
