// Package shader splits annotated GLSL text into named vertex/fragment
// pairs and keeps them in a registry that outlives any GL context.
//
// A source text is one file holding both stages. Directive lines of the form
//
//	//! name <id>
//	//! common
//	//! vertex
//	//! fragment
//
// name the shader and switch the section that following lines belong to.
// Lines of the common section go to both stages; lines of a stage section go
// to that stage and leave a blank line in the other, so both outputs keep
// the line numbering of the input.
package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pst-renderer/core"
)

var (
	lineSep     = regexp.MustCompile(`\n|\r`)
	directiveRe = regexp.MustCompile(`^//!\s*(.*)$`)
)

type section int

const (
	sectionCommon section = iota
	sectionVertex
	sectionFragment
)

// Definition is a preprocessed shader: the source of both stages.
type Definition struct {
	Name     string
	Vertex   string
	Fragment string
}

// Registry maps shader names to their definitions. It is built once, before
// any rendering context exists, and handed to every context that compiles
// programs from it. Registry is not safe for concurrent use.
type Registry struct {
	defs map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Preprocess parses source and registers the resulting definition.
func (r *Registry) Preprocess(source string) error {
	def, err := Parse(source)
	if err != nil {
		return err
	}
	return r.Register(def)
}

// MustPreprocess is like Preprocess but panics on error. It is meant for
// built-in shaders embedded in the binary.
func (r *Registry) MustPreprocess(source string) {
	if err := r.Preprocess(source); err != nil {
		panic(err)
	}
}

// Register adds def under its name. Registering a name twice is an error.
func (r *Registry) Register(def Definition) error {
	if _, ok := r.defs[def.Name]; ok {
		return &core.DuplicateError{Kind: "shader", Name: def.Name}
	}
	r.defs[def.Name] = def
	return nil
}

// Replace swaps the definition stored under def.Name and returns the one it
// replaced. The name must already be registered.
func (r *Registry) Replace(def Definition) (Definition, error) {
	prev, ok := r.defs[def.Name]
	if !ok {
		return Definition{}, &core.NotFoundError{Kind: "shader", Name: def.Name}
	}
	r.defs[def.Name] = def
	return prev, nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the registered shader names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse splits source into a Definition without registering it.
func Parse(source string) (Definition, error) {
	lines := lineSep.Split(source, -1)

	vertex := make([]string, 0, len(lines))
	fragment := make([]string, 0, len(lines))
	var vertexBody, fragmentBody bool

	name := ""
	current := sectionCommon

	for _, line := range lines {
		directive := false
		if m := directiveRe.FindStringSubmatch(line); m != nil {
			directive = true
			tokens := strings.Fields(m[1])
			keyword := ""
			if len(tokens) > 0 {
				keyword = tokens[0]
			}
			switch keyword {
			case "name":
				if len(tokens) < 2 {
					return Definition{}, &core.ConfigError{Op: "shader.Parse", Msg: "name directive without a name"}
				}
				if name != "" {
					return Definition{}, &core.ConfigError{Op: "shader.Parse", Msg: fmt.Sprintf("second name directive %q in shader %q", tokens[1], name)}
				}
				name = tokens[1]
			case "common":
				current = sectionCommon
			case "vertex":
				current = sectionVertex
			case "fragment":
				current = sectionFragment
			default:
				return Definition{}, &core.ConfigError{Op: "shader.Parse", Msg: fmt.Sprintf("bad directive: %q", keyword)}
			}
		}

		body := !directive && strings.TrimSpace(line) != ""

		switch current {
		case sectionCommon:
			vertex = append(vertex, line)
			fragment = append(fragment, line)
			vertexBody = vertexBody || body
			fragmentBody = fragmentBody || body
		case sectionVertex:
			vertex = append(vertex, line)
			fragment = append(fragment, "")
			vertexBody = vertexBody || body
		case sectionFragment:
			vertex = append(vertex, "")
			fragment = append(fragment, line)
			fragmentBody = fragmentBody || body
		}
	}

	if name == "" {
		return Definition{}, &core.ConfigError{Op: "shader.Parse", Msg: "no name"}
	}
	if !vertexBody {
		return Definition{}, &core.ConfigError{Op: "shader.Parse", Msg: "no vertex source: " + name}
	}
	if !fragmentBody {
		return Definition{}, &core.ConfigError{Op: "shader.Parse", Msg: "no fragment source: " + name}
	}

	return Definition{
		Name:     name,
		Vertex:   strings.Join(vertex, "\n"),
		Fragment: strings.Join(fragment, "\n"),
	}, nil
}
