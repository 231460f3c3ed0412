package glctx

import (
	"fmt"
	"strings"

	"pst-renderer/core"
)

// Variable is an active attribute or uniform of a program.
type Variable struct {
	Name      string
	Location  int32
	Type      uint32
	Attribute bool
	Arity     int // components: 1..4, or 4/9/16 for mat2/mat3/mat4
	Matrix    bool
	Float     bool
	Ready     bool
}

type typeInfo struct {
	arity  int
	matrix bool
	float  bool
}

var variableTypes = map[uint32]typeInfo{
	BYTE:           {1, false, false},
	UNSIGNED_BYTE:  {1, false, false},
	SHORT:          {1, false, false},
	UNSIGNED_SHORT: {1, false, false},
	INT:            {1, false, false},
	UNSIGNED_INT:   {1, false, false},
	FLOAT:          {1, false, true},
	BOOL:           {1, false, false},
	SAMPLER_2D:     {1, false, false},
	SAMPLER_CUBE:   {1, false, false},

	INT_VEC2:   {2, false, false},
	FLOAT_VEC2: {2, false, true},
	BOOL_VEC2:  {2, false, false},

	INT_VEC3:   {3, false, false},
	FLOAT_VEC3: {3, false, true},
	BOOL_VEC3:  {3, false, false},

	INT_VEC4:   {4, false, false},
	FLOAT_VEC4: {4, false, true},
	BOOL_VEC4:  {4, false, false},

	FLOAT_MAT2: {4, true, true},
	FLOAT_MAT3: {9, true, true},
	FLOAT_MAT4: {16, true, true},
}

// introspect fills the variable table: uniforms first, then attributes.
func (p *program) introspect(gl GL) error {
	p.vars = make(map[string]*Variable)
	p.order = p.order[:0]

	add := func(info ActiveInfo, attribute bool) error {
		// Arrays are reported as "name[0]"; GL resolves "name" to element 0.
		name := strings.TrimSuffix(info.Name, "[0]")
		if _, ok := p.vars[name]; ok {
			return &core.DuplicateError{Kind: "variable", Name: name}
		}
		t, ok := variableTypes[info.Type]
		if !ok {
			return &core.ConfigError{Op: "glctx.introspect", Msg: fmt.Sprintf("unknown variable type 0x%X for %q", info.Type, name)}
		}
		var loc int32
		if attribute {
			loc = gl.AttribLocation(p.handle, name)
		} else {
			loc = gl.UniformLocation(p.handle, name)
		}
		v := &Variable{
			Name:      name,
			Location:  loc,
			Type:      info.Type,
			Attribute: attribute,
			Arity:     t.arity,
			Matrix:    t.matrix,
			Float:     t.float,
		}
		p.vars[name] = v
		p.order = append(p.order, v)
		return nil
	}

	for i, n := 0, gl.ActiveUniforms(p.handle); i < n; i++ {
		if err := add(gl.ActiveUniform(p.handle, i), false); err != nil {
			return err
		}
	}
	for i, n := 0, gl.ActiveAttributes(p.handle); i < n; i++ {
		if err := add(gl.ActiveAttrib(p.handle, i), true); err != nil {
			return err
		}
	}
	return nil
}

// Variables returns a copy of the variable table of the program called name.
func (c *Context) Variables(name string) ([]Variable, error) {
	p, err := c.program(name)
	if err != nil {
		return nil, err
	}
	out := make([]Variable, len(p.order))
	for i, v := range p.order {
		out[i] = *v
	}
	return out, nil
}

// Variable returns the named variable of the active program.
func (c *Context) Variable(name string) (Variable, error) {
	v, err := c.variable("glctx.Variable", name)
	if err != nil {
		return Variable{}, err
	}
	return *v, nil
}

// HasVariable reports whether the active program has an active variable
// called name. Compilers drop unused uniforms, so callers feeding optional
// inputs check here first.
func (c *Context) HasVariable(name string) bool {
	if c.active == nil {
		return false
	}
	_, ok := c.active.vars[name]
	return ok
}

func (c *Context) variable(op, name string) (*Variable, error) {
	if c.active == nil {
		return nil, &core.PhaseError{Op: op, Expected: core.PhasePreparing, Actual: c.phase}
	}
	v, ok := c.active.vars[name]
	if !ok {
		return nil, &core.NotFoundError{Kind: "variable", Name: name}
	}
	return v, nil
}
