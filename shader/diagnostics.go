package shader

import (
	"regexp"
	"strconv"
	"strings"

	"pst-renderer/core"
)

// Diagnostic is one compiler message, keyed by source line.
type Diagnostic = core.Diagnostic

// Info log line formats, one per driver family:
//
//	ERROR: 0:12: 'foo' : undeclared identifier        (ANGLE, Apple, WebGL)
//	0:12(5): error: `foo' undeclared                  (Mesa)
//	0(12) : error C1008: undefined variable "foo"     (NVIDIA)
var diagnosticRes = []*regexp.Regexp{
	regexp.MustCompile(`ERROR:\s*\d+:(\d+):(.*)`),
	regexp.MustCompile(`^\s*\d+:(\d+)\(\d+\):\s*error:(.*)`),
	regexp.MustCompile(`^\s*\d+\((\d+)\)\s*:\s*error\s*(.*)`),
}

// ParseDiagnostics extracts the error lines of a compiler info log in the
// order they appear. Lines it does not recognize are skipped.
func ParseDiagnostics(log string) []core.Diagnostic {
	var diags []core.Diagnostic
	for _, line := range strings.Split(log, "\n") {
		for _, re := range diagnosticRes {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			diags = append(diags, core.Diagnostic{Line: n, Message: strings.TrimSpace(m[2])})
			break
		}
	}
	return diags
}

// LineOf returns the 1-based line number of the byte at index in text.
func LineOf(text string, index int) int {
	if index <= 0 {
		return 1
	}
	if index > len(text) {
		index = len(text)
	}
	return strings.Count(text[:index], "\n") + 1
}

// Remap shifts diagnostics so that line firstLine of the compiled source
// becomes line 1 of the caller's text. The input slice is not modified.
func Remap(diags []core.Diagnostic, firstLine int) []core.Diagnostic {
	out := make([]core.Diagnostic, len(diags))
	for i, d := range diags {
		d.Line = d.Line - firstLine + 1
		out[i] = d
	}
	return out
}
