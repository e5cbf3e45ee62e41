package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> globals: Globals;
	// or handle types: @group(1) @binding(0) var imageTexture: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// arrayTypeRegex captures the element type and count of array<T, N>
	arrayTypeRegex = regexp.MustCompile(`^array<\s*(.+?)\s*,\s*(\d+)\s*>$`)

	lineCommentRegex  = regexp.MustCompile(`//[^\n]*`)
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// typeLayout holds the alignment and size in bytes of a WGSL type under the
// uniform address space layout rules.
type typeLayout struct {
	align int
	size  int
}

// wgslTypeLayouts maps WGSL scalar and vector type names to their uniform layout.
var wgslTypeLayouts = map[string]typeLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2<f32>":   {8, 8},
	"vec2f":       {8, 8},
	"vec3<f32>":   {16, 12},
	"vec3f":       {16, 12},
	"vec4<f32>":   {16, 16},
	"vec4f":       {16, 16},
	"mat4x4<f32>": {16, 64},
}

// UniformField describes one scalar uniform inside the globals struct.
type UniformField struct {
	// Offset is the byte offset of the field inside the packed struct.
	Offset int
	// Floats is the number of float32 components the field holds.
	Floats int
}

// BlockLayout describes a named uniform block other than globals.
type BlockLayout struct {
	Group   int
	Binding int
	// Size is the packed size of the block in bytes.
	Size int
}

// TextureBinding describes a sampled texture declaration and its paired sampler.
type TextureBinding struct {
	Name    string
	Group   int
	Binding int
	// SamplerBinding is the binding index of the paired sampler, or -1 when
	// the texture is declared without one.
	SamplerBinding int
}

// ProgramLayout is the host-side reflection of a compiled program: entry
// points, the uniform name table, named uniform blocks, and texture bindings
// merged across the vertex and fragment stages.
type ProgramLayout struct {
	VertexEntry   string
	FragmentEntry string

	// Uniforms maps field names of the group(0) binding(0) "globals" struct
	// to their packed offsets.
	Uniforms map[string]UniformField
	// UniformSize is the packed byte size of the globals struct, zero when
	// the program declares none.
	UniformSize int

	// Blocks maps uniform variables other than globals (such as "values")
	// to their binding and packed size.
	Blocks map[string]BlockLayout

	// Textures lists sampled textures sorted by group then binding. The
	// order defines the positional input mapping for screen passes.
	Textures []TextureBinding
}

// HasUniform reports whether the named scalar uniform exists.
func (l *ProgramLayout) HasUniform(name string) bool {
	_, ok := l.Uniforms[name]
	return ok
}

// TextureNames returns the texture binding names in positional order.
func (l *ProgramLayout) TextureNames() []string {
	names := make([]string, len(l.Textures))
	for i, t := range l.Textures {
		names[i] = t.Name
	}
	return names
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

type parsedField struct {
	name     string
	typeName string
}

// structLayout is a computed struct layout: total size plus per-field offsets.
type structLayout struct {
	align  int
	size   int
	fields map[string]UniformField
}

// stripComments removes line and block comments from WGSL source.
func stripComments(source string) string {
	source = blockCommentRegex.ReplaceAllString(source, "")
	return lineCommentRegex.ReplaceAllString(source, "")
}

// parseEntryPoints extracts the @vertex and @fragment entry point names from
// a cleaned WGSL source. Missing entries come back empty.
func parseEntryPoints(cleaned string) (string, string) {
	var vs, fs string
	if m := vertexEntryRegex.FindStringSubmatch(cleaned); m != nil {
		vs = m[1]
	}
	if m := fragmentEntryRegex.FindStringSubmatch(cleaned); m != nil {
		fs = m[1]
	}
	return vs, fs
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields.
func parseStructBlocks(cleaned string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(cleaned, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		fields = append(fields, parsedField{
			name:     fm[1],
			typeName: strings.TrimSpace(fm[2]),
		})
	}
	return fields
}

// splitAtTopLevelCommas splits a struct body at commas that are not nested
// inside angle brackets, so parameterized types like array<vec4<f32>, 2> stay
// in one piece.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// roundUpAlign rounds v up to the next multiple of align.
func roundUpAlign(v, align int) int {
	if align <= 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// resolveTypeLayout resolves a WGSL type name to its uniform layout, handling
// arrays and previously computed struct layouts.
//
// Parameters:
//   - typeName: the WGSL type name to resolve
//   - structs: layouts of structs already computed from the same source
//
// Returns:
//   - typeLayout: the alignment and size of the type
//   - bool: true if the type was recognized
func resolveTypeLayout(typeName string, structs map[string]structLayout) (typeLayout, bool) {
	if tl, ok := wgslTypeLayouts[typeName]; ok {
		return tl, true
	}
	if sl, ok := structs[typeName]; ok {
		return typeLayout{align: sl.align, size: sl.size}, true
	}
	if m := arrayTypeRegex.FindStringSubmatch(typeName); m != nil {
		elem, ok := resolveTypeLayout(strings.TrimSpace(m[1]), structs)
		if !ok {
			return typeLayout{}, false
		}
		count, err := strconv.Atoi(m[2])
		if err != nil || count <= 0 {
			return typeLayout{}, false
		}
		// Uniform address space requires array strides to be 16-byte multiples.
		stride := roundUpAlign(elem.size, roundUpAlign(elem.align, 16))
		return typeLayout{align: roundUpAlign(elem.align, 16), size: stride * count}, true
	}
	return typeLayout{}, false
}

// computeStructLayouts computes packed layouts for every struct in source
// order, so later structs can embed earlier ones.
func computeStructLayouts(structs []parsedStruct) map[string]structLayout {
	layouts := make(map[string]structLayout, len(structs))
	for _, ps := range structs {
		offset := 0
		maxAlign := 1
		fields := make(map[string]UniformField, len(ps.fields))
		valid := true
		for _, f := range ps.fields {
			tl, ok := resolveTypeLayout(f.typeName, layouts)
			if !ok {
				valid = false
				break
			}
			offset = roundUpAlign(offset, tl.align)
			fields[f.name] = UniformField{Offset: offset, Floats: tl.size / 4}
			offset += tl.size
			if tl.align > maxAlign {
				maxAlign = tl.align
			}
		}
		if !valid {
			continue
		}
		layouts[ps.name] = structLayout{
			align:  maxAlign,
			size:   roundUpAlign(offset, maxAlign),
			fields: fields,
		}
	}
	return layouts
}

// bindingDecl is one parsed @group/@binding declaration.
type bindingDecl struct {
	group        int
	binding      int
	addressSpace string
	name         string
	typeName     string
}

// parseBindingDecls extracts all @group/@binding declarations from cleaned source.
func parseBindingDecls(cleaned string) []bindingDecl {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	decls := make([]bindingDecl, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		decls = append(decls, bindingDecl{
			group:        group,
			binding:      binding,
			addressSpace: strings.TrimSpace(m[3]),
			name:         strings.TrimSpace(m[4]),
			typeName:     strings.TrimSpace(m[5]),
		})
	}
	return decls
}

// ParseProgramLayout parses a vertex/fragment source pair into a merged
// ProgramLayout. The convention is fixed: the var<uniform> named "globals"
// at group(0) binding(0) is the scalar uniform struct, any other
// var<uniform> is a named block, and every texture_2d pairs with the sampler
// declared at the next binding index.
//
// Parameters:
//   - key: the program key, used in diagnostics
//   - vertexSource: the vertex stage WGSL
//   - fragmentSource: the fragment stage WGSL
//
// Returns:
//   - *ProgramLayout: the merged layout
//   - error: a *CompileError describing structural problems
func ParseProgramLayout(key, vertexSource, fragmentSource string) (*ProgramLayout, error) {
	layout := &ProgramLayout{
		Uniforms: make(map[string]UniformField),
		Blocks:   make(map[string]BlockLayout),
	}

	cleanedVS := stripComments(vertexSource)
	cleanedFS := stripComments(fragmentSource)

	vsEntry, _ := parseEntryPoints(cleanedVS)
	_, fsEntry := parseEntryPoints(cleanedFS)
	if vsEntry == "" {
		return nil, &CompileError{Key: key, Stage: "vertex", Diagnostics: "no @vertex entry point found"}
	}
	if fsEntry == "" {
		return nil, &CompileError{Key: key, Stage: "fragment", Diagnostics: "no @fragment entry point found"}
	}
	layout.VertexEntry = vsEntry
	layout.FragmentEntry = fsEntry

	samplers := make(map[[2]int]bool)
	textures := make(map[string]TextureBinding)

	for _, stage := range []struct {
		name    string
		source  string
		cleaned string
	}{
		{"vertex", vertexSource, cleanedVS},
		{"fragment", fragmentSource, cleanedFS},
	} {
		structs := computeStructLayouts(parseStructBlocks(stage.cleaned))
		for _, decl := range parseBindingDecls(stage.cleaned) {
			switch {
			case decl.addressSpace == "uniform":
				sl, ok := structs[decl.typeName]
				if !ok {
					line := findLine(stage.source, decl.typeName)
					return nil, &CompileError{
						Key:         key,
						Stage:       stage.name,
						Diagnostics: fmt.Sprintf("line %d: uniform %q has unresolvable type %q", line, decl.name, decl.typeName),
					}
				}
				if decl.name == "globals" {
					for fname, f := range sl.fields {
						layout.Uniforms[fname] = f
					}
					layout.UniformSize = roundUpAlign(sl.size, 16)
				} else {
					layout.Blocks[decl.name] = BlockLayout{
						Group:   decl.group,
						Binding: decl.binding,
						Size:    roundUpAlign(sl.size, 16),
					}
				}
			case decl.typeName == "sampler":
				samplers[[2]int{decl.group, decl.binding}] = true
			case strings.HasPrefix(decl.typeName, "texture_2d"):
				textures[decl.name] = TextureBinding{
					Name:           decl.name,
					Group:          decl.group,
					Binding:        decl.binding,
					SamplerBinding: -1,
				}
			default:
				line := findLine(stage.source, decl.name)
				return nil, &CompileError{
					Key:         key,
					Stage:       stage.name,
					Diagnostics: fmt.Sprintf("line %d: unsupported binding %q of type %q", line, decl.name, decl.typeName),
				}
			}
		}
	}

	for name, t := range textures {
		if samplers[[2]int{t.Group, t.Binding + 1}] {
			t.SamplerBinding = t.Binding + 1
			textures[name] = t
		}
		layout.Textures = append(layout.Textures, textures[name])
	}
	sort.Slice(layout.Textures, func(i, j int) bool {
		if layout.Textures[i].Group != layout.Textures[j].Group {
			return layout.Textures[i].Group < layout.Textures[j].Group
		}
		return layout.Textures[i].Binding < layout.Textures[j].Binding
	})

	return layout, nil
}
