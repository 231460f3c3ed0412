package glctx

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pst-renderer/core"
)

// program is a linked GL program and its introspected variables.
type program struct {
	name   string
	handle uint32
	vars   map[string]*Variable
	order  []*Variable // uniforms first, then attributes, in GL order

	// err is set when a restore failed to rebuild the program. The name
	// stays registered with a zero handle until a rebuild succeeds.
	err error
}

// CreateProgram compiles and links the shader definition registered as
// name. Attribute slots are assigned in the order the attributes are first
// declared in the vertex source, so vertex layouts packed by name stay the
// same whatever locations the driver would have picked.
func (c *Context) CreateProgram(name string) error {
	if name == "" {
		return &core.ConfigError{Op: "glctx.CreateProgram", Msg: "bad program name"}
	}
	if c.HasProgram(name) {
		return &core.DuplicateError{Kind: core.KindProgram.String(), Name: name}
	}
	if c.phase != core.PhaseInactive {
		return &core.PhaseError{Op: "glctx.CreateProgram", Expected: core.PhaseInactive, Actual: c.phase}
	}
	p, err := c.buildProgram(name)
	if err != nil {
		return err
	}
	c.programs[name] = p
	return nil
}

// RebuildProgram recompiles name from its current shader definition. On
// success the new program replaces the old one, which is released. On
// failure the old program stays in place and the build error is returned.
// If no program called name exists yet it is created.
func (c *Context) RebuildProgram(name string) error {
	old, ok := c.programs[name]
	if !ok {
		return c.CreateProgram(name)
	}
	if c.phase != core.PhaseInactive {
		return &core.PhaseError{Op: "glctx.RebuildProgram", Expected: core.PhaseInactive, Actual: c.phase}
	}
	p, err := c.buildProgram(name)
	if err != nil {
		return err
	}
	c.programs[name] = p
	if old.handle != 0 {
		c.gl.DeleteProgram(old.handle)
	}
	return nil
}

func (c *Context) buildProgram(name string) (_ *program, err error) {
	def, ok := c.shaders.Get(name)
	if !ok {
		return nil, &core.NotFoundError{Kind: "shader", Name: name}
	}
	gl, err := c.requireGL("glctx.CreateProgram")
	if err != nil {
		return nil, err
	}

	handle := gl.CreateProgram()
	var shaders []uint32
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
		if err != nil {
			gl.DeleteProgram(handle)
		}
	}()

	compile := func(stage uint32, source string, failed core.BuildStage) error {
		s := gl.CreateShader(stage)
		shaders = append(shaders, s)
		gl.ShaderSource(s, source)
		gl.CompileShader(s)
		if ok, log := gl.ShaderStatus(s); !ok {
			return &core.BuildError{Stage: failed, Program: name, Log: log}
		}
		gl.AttachShader(handle, s)
		return nil
	}
	if err := compile(VERTEX_SHADER, def.Vertex, core.StageCompileVertex); err != nil {
		return nil, err
	}
	if err := compile(FRAGMENT_SHADER, def.Fragment, core.StageCompileFragment); err != nil {
		return nil, err
	}

	// First pass: discover the active attributes and pin their slots.
	gl.LinkProgram(handle)
	if ok, log := gl.LinkStatus(handle); !ok {
		return nil, &core.BuildError{Stage: core.StageLink, Program: name, Log: log}
	}
	layout, err := attributeLayout(gl, handle, def.Vertex)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", name, err)
	}
	for i, attr := range layout {
		gl.BindAttribLocation(handle, uint32(i), attr)
	}

	// Second pass: relink with the pinned slots and validate.
	gl.LinkProgram(handle)
	if ok, log := gl.LinkStatus(handle); !ok {
		return nil, &core.BuildError{Stage: core.StageLink, Program: name, Log: log}
	}
	gl.ValidateProgram(handle)
	if ok, log := gl.ValidateStatus(handle); !ok {
		return nil, &core.BuildError{Stage: core.StageValidate, Program: name, Log: log}
	}

	p := &program{name: name, handle: handle, vars: make(map[string]*Variable)}
	if err := p.introspect(gl); err != nil {
		return nil, fmt.Errorf("program %q: %w", name, err)
	}

	if e := gl.GetError(); e != NO_ERROR {
		return nil, fmt.Errorf("program %q: unexpected GL error 0x%X", name, e)
	}

	c.log.Info("program built", "name", name, "variables", len(p.order), "attributes", len(layout))
	return p, nil
}

// inputDecl matches a vertex input declaration, with or without a layout
// qualifier, declaring one or more comma-separated names.
var inputDecl = regexp.MustCompile(`(?m)^[ \t]*(?:layout\s*\([^)]*\)\s*)?(?:attribute|in)\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+([^;]+);`)

var declaratorName = regexp.MustCompile(`^\s*(\w+)`)

// inputPositions maps each declared vertex input to the byte offset of its
// name in src.
func inputPositions(src string) map[string]int {
	pos := make(map[string]int)
	for _, m := range inputDecl.FindAllStringSubmatchIndex(src, -1) {
		offset := m[2]
		for _, declarator := range strings.Split(src[m[2]:m[3]], ",") {
			if n := declaratorName.FindStringSubmatchIndex(declarator); n != nil {
				name := declarator[n[2]:n[3]]
				if _, seen := pos[name]; !seen {
					pos[name] = offset + n[2]
				}
			}
			offset += len(declarator) + 1
		}
	}
	return pos
}

// attributeLayout returns the active attributes of a linked program sorted
// by the position of their declaration in the vertex source.
func attributeLayout(gl GL, handle uint32, vertex string) ([]string, error) {
	type decl struct {
		name string
		pos  int
	}
	declared := inputPositions(vertex)
	n := gl.ActiveAttributes(handle)
	decls := make([]decl, 0, n)
	for i := 0; i < n; i++ {
		info := gl.ActiveAttrib(handle, i)
		name := strings.TrimSuffix(info.Name, "[0]")
		pos, ok := declared[name]
		if !ok {
			return nil, &core.NotFoundError{Kind: "attribute declaration", Name: name}
		}
		decls = append(decls, decl{name: name, pos: pos})
	}
	sort.SliceStable(decls, func(i, j int) bool { return decls[i].pos < decls[j].pos })

	layout := make([]string, len(decls))
	for i, d := range decls {
		layout[i] = d.name
	}
	return layout, nil
}
