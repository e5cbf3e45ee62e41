package shader

import (
	"fmt"
	"strings"
)

// CompileError reports a shader that failed validation or compilation.
// Diagnostics carries the compiler or validator output unmodified, with
// line numbers referencing the offending source. A Program constructor
// that returns a CompileError never yields a partially valid handle.
type CompileError struct {
	// Key is the program key the failed source belongs to.
	Key string
	// Stage is the failing stage, "vertex" or "fragment".
	Stage string
	// Diagnostics is the line-numbered diagnostic text.
	Diagnostics string
}

// Error formats the compile error with its key, stage, and diagnostics.
//
// Returns:
//   - string: the formatted error message
func (e *CompileError) Error() string {
	return fmt.Sprintf("shader %q: %s stage failed to compile:\n%s", e.Key, e.Stage, e.Diagnostics)
}

// NumberSource prefixes every line of a WGSL source with its 1-based line
// number, matching the line references in compiler diagnostics.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - string: the numbered source listing
func NumberSource(source string) string {
	lines := strings.Split(source, "\n")
	var sb strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&sb, "%4d | %s\n", i+1, line)
	}
	return sb.String()
}

// findLine returns the 1-based line number of the first occurrence of
// needle in source, or 0 if not found.
func findLine(source, needle string) int {
	idx := strings.Index(source, needle)
	if idx < 0 {
		return 0
	}
	return strings.Count(source[:idx], "\n") + 1
}
