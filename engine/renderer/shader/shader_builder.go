package shader

// BuilderOption configures a Program during construction.
type BuilderOption func(*program) error

// WithEffect generates the program's WGSL pair from a tagged effect variant.
//
// Parameters:
//   - e: the effect to generate sources from
//
// Returns:
//   - BuilderOption: the option to apply
func WithEffect(e Effect) BuilderOption {
	return func(p *program) error {
		effect := e
		p.effect = &effect
		p.vertexSource, p.fragmentSource = effect.Sources()
		return nil
	}
}

// WithSource sets caller-provided vertex and fragment WGSL sources.
//
// Parameters:
//   - vertexSource: the vertex stage WGSL
//   - fragmentSource: the fragment stage WGSL
//
// Returns:
//   - BuilderOption: the option to apply
func WithSource(vertexSource, fragmentSource string) BuilderOption {
	return func(p *program) error {
		p.vertexSource = vertexSource
		p.fragmentSource = fragmentSource
		return nil
	}
}

// WithSourceFromPath reads vertex and fragment WGSL sources from disk.
//
// Parameters:
//   - vertexPath: path to the vertex stage WGSL file
//   - fragmentPath: path to the fragment stage WGSL file
//
// Returns:
//   - BuilderOption: the option to apply
func WithSourceFromPath(vertexPath, fragmentPath string) BuilderOption {
	return func(p *program) error {
		vs, err := readSourceFile(vertexPath)
		if err != nil {
			return err
		}
		fs, err := readSourceFile(fragmentPath)
		if err != nil {
			return err
		}
		p.vertexSource = vs
		p.fragmentSource = fs
		return nil
	}
}
