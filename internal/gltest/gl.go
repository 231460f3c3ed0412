// Package gltest provides an in-memory GL and surface for testing code built
// on glctx without a GPU.
//
// The fake compiles nothing. It reads declarations out of the shader text to
// decide which attributes and uniforms are active, fails a compile on any
// line starting with "#error", and tracks every object it hands out so
// tests can check for leaks and stale handles.
package gltest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pst-renderer/glctx"
)

// Call is one recorded GL call.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// TexImage is the storage last allocated for a texture.
type TexImage struct {
	InternalFormat uint32
	Width, Height  int
	Format, Type   uint32
	Pixels         []byte
}

type shaderObj struct {
	stage  uint32
	source string
	ok     bool
	log    string
}

type programObj struct {
	shaders   []uint32
	bindings  map[string]uint32 // pending BindAttribLocation calls
	linked    bool
	linkLog   string
	valid     bool
	attribs   []glctx.ActiveInfo
	uniforms  []glctx.ActiveInfo
	attribLoc map[string]int32
	uniLoc    map[string]int32
}

// GL is a fake glctx.GL.
type GL struct {
	// FailLink makes every link fail.
	FailLink bool
	// FailValidate makes every validation fail.
	FailValidate bool
	// IncompleteFramebuffer makes every completeness check fail.
	IncompleteFramebuffer bool
	// Exts is the advertised extension list.
	Exts []string

	Calls []Call
	// Stale records calls that referenced a handle that is not live.
	Stale []Call

	next       uint32
	generation int
	live       map[uint32]string
	shaders    map[uint32]*shaderObj
	programs   map[uint32]*programObj
	textures   map[uint32]TexImage
	buffers    map[uint32][]float32
	attached   map[uint32]uint32 // framebuffer -> texture
	errCode    uint32

	unit        uint32
	units       map[uint32]uint32
	framebuffer uint32
	arrayBuffer uint32
	program     uint32
}

var _ glctx.GL = (*GL)(nil)

// New returns an empty fake GL.
func New() *GL {
	g := &GL{}
	g.reset()
	return g
}

func (g *GL) reset() {
	g.live = make(map[uint32]string)
	g.shaders = make(map[uint32]*shaderObj)
	g.programs = make(map[uint32]*programObj)
	g.textures = make(map[uint32]TexImage)
	g.buffers = make(map[uint32][]float32)
	g.attached = make(map[uint32]uint32)
	g.units = make(map[uint32]uint32)
	g.unit, g.framebuffer, g.arrayBuffer, g.program = 0, 0, 0, 0
}

func (g *GL) record(name string, args ...any) {
	g.Calls = append(g.Calls, Call{Name: name, Args: args})
}

// check records the current call as stale unless h is zero or a live
// object of kind.
func (g *GL) check(kind string, h uint32) bool {
	if h == 0 || g.live[h] == kind {
		return true
	}
	g.Stale = append(g.Stale, g.Calls[len(g.Calls)-1])
	return false
}

func (g *GL) gen(kind string) uint32 {
	g.next++
	g.live[g.next] = kind
	g.record("Create"+kind, g.next)
	return g.next
}

func (g *GL) del(kind string, h uint32) {
	g.record("Delete"+kind, h)
	if h != 0 && g.check(kind, h) {
		delete(g.live, h)
	}
}

// Generation counts DiscardObjects calls.
func (g *GL) Generation() int { return g.generation }

// Live returns the number of live objects of kind ("Buffer", "Texture",
// "Framebuffer", "Renderbuffer", "Shader", "Program"), or of every kind
// when kind is empty.
func (g *GL) Live(kind string) int {
	n := 0
	for _, k := range g.live {
		if kind == "" || k == kind {
			n++
		}
	}
	return n
}

// IsLive reports whether h is a live object.
func (g *GL) IsLive(h uint32) bool {
	_, ok := g.live[h]
	return ok
}

// Find returns the recorded calls named name.
func (g *GL) Find(name string) []Call {
	var out []Call
	for _, c := range g.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call named name.
func (g *GL) Last(name string) (Call, bool) {
	for i := len(g.Calls) - 1; i >= 0; i-- {
		if g.Calls[i].Name == name {
			return g.Calls[i], true
		}
	}
	return Call{}, false
}

// ResetCalls forgets the recorded calls.
func (g *GL) ResetCalls() {
	g.Calls = nil
	g.Stale = nil
}

// SetError makes the next GetError return code.
func (g *GL) SetError(code uint32) { g.errCode = code }

// Texture returns the storage of texture h.
func (g *GL) Texture(h uint32) (TexImage, bool) {
	t, ok := g.textures[h]
	return t, ok
}

// BufferContents returns the data of buffer h.
func (g *GL) BufferContents(h uint32) []float32 { return g.buffers[h] }

// Attachment returns the texture attached to framebuffer h.
func (g *GL) Attachment(h uint32) uint32 { return g.attached[h] }

// BoundFramebuffer returns the current render target.
func (g *GL) BoundFramebuffer() uint32 { return g.framebuffer }

// CurrentProgram returns the program in use.
func (g *GL) CurrentProgram() uint32 { return g.program }

// AttribLocations returns the attribute slots of a linked program.
func (g *GL) AttribLocations(program uint32) map[string]int32 {
	p := g.programs[program]
	if p == nil {
		return nil
	}
	out := make(map[string]int32, len(p.attribLoc))
	for k, v := range p.attribLoc {
		out[k] = v
	}
	return out
}

func (g *GL) CreateBuffer() uint32       { return g.gen("Buffer") }
func (g *GL) DeleteBuffer(h uint32)      { g.del("Buffer", h); delete(g.buffers, h) }
func (g *GL) CreateFramebuffer() uint32  { return g.gen("Framebuffer") }
func (g *GL) DeleteFramebuffer(h uint32) { g.del("Framebuffer", h); delete(g.attached, h) }
func (g *GL) CreateRenderbuffer() uint32 { return g.gen("Renderbuffer") }
func (g *GL) DeleteRenderbuffer(h uint32) {
	g.del("Renderbuffer", h)
}
func (g *GL) CreateTexture() uint32  { return g.gen("Texture") }
func (g *GL) DeleteTexture(h uint32) { g.del("Texture", h); delete(g.textures, h) }

func (g *GL) CreateShader(stage uint32) uint32 {
	h := g.gen("Shader")
	g.shaders[h] = &shaderObj{stage: stage}
	return h
}

func (g *GL) ShaderSource(shader uint32, source string) {
	g.record("ShaderSource", shader)
	if s := g.shaders[shader]; g.check("Shader", shader) && s != nil {
		s.source = source
	}
}

func (g *GL) CompileShader(shader uint32) {
	g.record("CompileShader", shader)
	s := g.shaders[shader]
	if !g.check("Shader", shader) || s == nil {
		return
	}
	s.ok, s.log = true, ""
	for i, line := range strings.Split(s.source, "\n") {
		line = strings.TrimSpace(line)
		if msg, ok := strings.CutPrefix(line, "#error"); ok {
			s.ok = false
			s.log += fmt.Sprintf("ERROR: 0:%d: '#error' : %s\n", i+1, strings.TrimSpace(msg))
		}
	}
}

func (g *GL) ShaderStatus(shader uint32) (bool, string) {
	s := g.shaders[shader]
	if s == nil {
		return false, "no such shader"
	}
	return s.ok, s.log
}

func (g *GL) DeleteShader(shader uint32) {
	g.del("Shader", shader)
	delete(g.shaders, shader)
}

func (g *GL) CreateProgram() uint32 {
	h := g.gen("Program")
	g.programs[h] = &programObj{bindings: make(map[string]uint32)}
	return h
}

func (g *GL) AttachShader(program, shader uint32) {
	g.record("AttachShader", program, shader)
	if p := g.programs[program]; p != nil && g.check("Shader", shader) {
		p.shaders = append(p.shaders, shader)
	}
}

func (g *GL) BindAttribLocation(program, index uint32, name string) {
	g.record("BindAttribLocation", program, index, name)
	if p := g.programs[program]; p != nil {
		p.bindings[name] = index
	}
}

var (
	attribDecl  = regexp.MustCompile(`(?m)^\s*(?:layout\s*\(([^)]*)\)\s*)?(?:attribute|in)\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+([^;]+);`)
	layoutLoc   = regexp.MustCompile(`location\s*=\s*(\d+)`)
	uniformDecl = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*(?:\[(\d+)\])?\s*;`)
)

func (g *GL) LinkProgram(program uint32) {
	g.record("LinkProgram", program)
	p := g.programs[program]
	if !g.check("Program", program) || p == nil {
		return
	}
	p.linked, p.linkLog = false, ""
	var vertex, fragment string
	for _, h := range p.shaders {
		s := g.shaders[h]
		if s == nil || !s.ok {
			p.linkLog = "ERROR: attached shader not compiled"
			return
		}
		if s.stage == glctx.VERTEX_SHADER {
			vertex = s.source
		} else {
			fragment = s.source
		}
	}
	if vertex == "" || fragment == "" {
		p.linkLog = "ERROR: missing shader stage"
		return
	}
	if g.FailLink {
		p.linkLog = "ERROR: link failed"
		return
	}

	all := vertex + "\n" + fragment

	// Attributes are reported in reverse alphabetical order so that slot
	// assignment never matches declaration order by accident.
	// A layout location wins over BindAttribLocation, as in GL.
	p.attribs = p.attribs[:0]
	explicit := make(map[string]int32)
	for _, m := range attribDecl.FindAllStringSubmatch(vertex, -1) {
		for _, declarator := range strings.Split(m[3], ",") {
			name := strings.TrimSpace(declarator)
			if i := strings.IndexByte(name, '['); i >= 0 {
				name = strings.TrimSpace(name[:i])
			}
			if name == "" || !used(vertex, name) {
				continue
			}
			p.attribs = append(p.attribs, glctx.ActiveInfo{Name: name, Type: typeCode(m[2]), Size: 1})
			if l := layoutLoc.FindStringSubmatch(m[1]); l != nil {
				var slot int32
				fmt.Sscan(l[1], &slot)
				explicit[name] = slot
			}
		}
	}
	sort.Slice(p.attribs, func(i, j int) bool { return p.attribs[i].Name > p.attribs[j].Name })

	p.attribLoc = make(map[string]int32)
	taken := make(map[int32]bool)
	for _, a := range p.attribs {
		if slot, ok := explicit[a.Name]; ok {
			p.attribLoc[a.Name] = slot
			taken[slot] = true
		} else if slot, ok := p.bindings[a.Name]; ok {
			p.attribLoc[a.Name] = int32(slot)
			taken[int32(slot)] = true
		}
	}
	var free int32
	for _, a := range p.attribs {
		if _, ok := p.attribLoc[a.Name]; ok {
			continue
		}
		for taken[free] {
			free++
		}
		p.attribLoc[a.Name] = free
		taken[free] = true
	}

	p.uniforms = p.uniforms[:0]
	p.uniLoc = make(map[string]int32)
	var loc int32
	for _, m := range uniformDecl.FindAllStringSubmatch(all, -1) {
		name := m[2]
		if _, seen := p.uniLoc[name]; seen || !used(all, name) {
			continue
		}
		info := glctx.ActiveInfo{Name: name, Type: typeCode(m[1]), Size: 1}
		if m[3] != "" {
			fmt.Sscan(m[3], &info.Size)
			info.Name = name + "[0]"
		}
		p.uniforms = append(p.uniforms, info)
		p.uniLoc[name] = loc
		loc += info.Size
	}
	p.linked = true
}

// used reports whether name appears at least twice as a word in src: once
// declared and once referenced. Unreferenced variables are optimized away.
func used(src, name string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	return len(re.FindAllStringIndex(src, 2)) >= 2
}

func typeCode(t string) uint32 {
	switch t {
	case "float":
		return glctx.FLOAT
	case "vec2":
		return glctx.FLOAT_VEC2
	case "vec3":
		return glctx.FLOAT_VEC3
	case "vec4":
		return glctx.FLOAT_VEC4
	case "int":
		return glctx.INT
	case "uint":
		return glctx.UNSIGNED_INT
	case "ivec2":
		return glctx.INT_VEC2
	case "ivec3":
		return glctx.INT_VEC3
	case "ivec4":
		return glctx.INT_VEC4
	case "bool":
		return glctx.BOOL
	case "bvec2":
		return glctx.BOOL_VEC2
	case "bvec3":
		return glctx.BOOL_VEC3
	case "bvec4":
		return glctx.BOOL_VEC4
	case "mat2":
		return glctx.FLOAT_MAT2
	case "mat3":
		return glctx.FLOAT_MAT3
	case "mat4":
		return glctx.FLOAT_MAT4
	case "sampler2D":
		return glctx.SAMPLER_2D
	case "samplerCube":
		return glctx.SAMPLER_CUBE
	case "sampler3D":
		return 0x8B5F
	case "dmat2":
		return 0x8F46
	}
	return 0xFFFF
}

func (g *GL) LinkStatus(program uint32) (bool, string) {
	p := g.programs[program]
	if p == nil {
		return false, "no such program"
	}
	return p.linked, p.linkLog
}

func (g *GL) ValidateProgram(program uint32) {
	g.record("ValidateProgram", program)
	if p := g.programs[program]; p != nil {
		p.valid = p.linked && !g.FailValidate
	}
}

func (g *GL) ValidateStatus(program uint32) (bool, string) {
	p := g.programs[program]
	if p == nil {
		return false, "no such program"
	}
	if !p.valid {
		return false, "ERROR: validation failed"
	}
	return true, ""
}

func (g *GL) DeleteProgram(program uint32) {
	g.del("Program", program)
	delete(g.programs, program)
}

func (g *GL) UseProgram(program uint32) {
	g.record("UseProgram", program)
	g.check("Program", program)
	g.program = program
}

func (g *GL) ActiveAttributes(program uint32) int {
	if p := g.programs[program]; p != nil {
		return len(p.attribs)
	}
	return 0
}

func (g *GL) ActiveAttrib(program uint32, index int) glctx.ActiveInfo {
	return g.programs[program].attribs[index]
}

func (g *GL) ActiveUniforms(program uint32) int {
	if p := g.programs[program]; p != nil {
		return len(p.uniforms)
	}
	return 0
}

func (g *GL) ActiveUniform(program uint32, index int) glctx.ActiveInfo {
	return g.programs[program].uniforms[index]
}

func (g *GL) AttribLocation(program uint32, name string) int32 {
	if p := g.programs[program]; p != nil {
		if loc, ok := p.attribLoc[name]; ok {
			return loc
		}
	}
	return -1
}

func (g *GL) UniformLocation(program uint32, name string) int32 {
	if p := g.programs[program]; p != nil {
		if loc, ok := p.uniLoc[strings.TrimSuffix(name, "[0]")]; ok {
			return loc
		}
	}
	return -1
}

func (g *GL) Uniform1f(loc int32, x float32)          { g.record("Uniform1f", loc, x) }
func (g *GL) Uniform2f(loc int32, x, y float32)       { g.record("Uniform2f", loc, x, y) }
func (g *GL) Uniform3f(loc int32, x, y, z float32)    { g.record("Uniform3f", loc, x, y, z) }
func (g *GL) Uniform4f(loc int32, x, y, z, w float32) { g.record("Uniform4f", loc, x, y, z, w) }
func (g *GL) Uniform1i(loc int32, x int32)            { g.record("Uniform1i", loc, x) }
func (g *GL) Uniform2i(loc int32, x, y int32)         { g.record("Uniform2i", loc, x, y) }
func (g *GL) Uniform3i(loc int32, x, y, z int32)      { g.record("Uniform3i", loc, x, y, z) }
func (g *GL) Uniform4i(loc int32, x, y, z, w int32)   { g.record("Uniform4i", loc, x, y, z, w) }

func (g *GL) Uniform1fv(loc int32, v []float32) { g.record("Uniform1fv", loc, clone(v)) }
func (g *GL) Uniform2fv(loc int32, v []float32) { g.record("Uniform2fv", loc, clone(v)) }
func (g *GL) Uniform3fv(loc int32, v []float32) { g.record("Uniform3fv", loc, clone(v)) }
func (g *GL) Uniform4fv(loc int32, v []float32) { g.record("Uniform4fv", loc, clone(v)) }
func (g *GL) Uniform1iv(loc int32, v []int32)   { g.record("Uniform1iv", loc, clone(v)) }
func (g *GL) Uniform2iv(loc int32, v []int32)   { g.record("Uniform2iv", loc, clone(v)) }
func (g *GL) Uniform3iv(loc int32, v []int32)   { g.record("Uniform3iv", loc, clone(v)) }
func (g *GL) Uniform4iv(loc int32, v []int32)   { g.record("Uniform4iv", loc, clone(v)) }

func (g *GL) UniformMatrix2fv(loc int32, transpose bool, v []float32) {
	g.record("UniformMatrix2fv", loc, transpose, clone(v))
}

func (g *GL) UniformMatrix3fv(loc int32, transpose bool, v []float32) {
	g.record("UniformMatrix3fv", loc, transpose, clone(v))
}

func (g *GL) UniformMatrix4fv(loc int32, transpose bool, v []float32) {
	g.record("UniformMatrix4fv", loc, transpose, clone(v))
}

func (g *GL) VertexAttrib1f(i uint32, x float32)          { g.record("VertexAttrib1f", i, x) }
func (g *GL) VertexAttrib2f(i uint32, x, y float32)       { g.record("VertexAttrib2f", i, x, y) }
func (g *GL) VertexAttrib3f(i uint32, x, y, z float32)    { g.record("VertexAttrib3f", i, x, y, z) }
func (g *GL) VertexAttrib4f(i uint32, x, y, z, w float32) { g.record("VertexAttrib4f", i, x, y, z, w) }
func (g *GL) VertexAttrib1fv(i uint32, v []float32)       { g.record("VertexAttrib1fv", i, clone(v)) }
func (g *GL) VertexAttrib2fv(i uint32, v []float32)       { g.record("VertexAttrib2fv", i, clone(v)) }
func (g *GL) VertexAttrib3fv(i uint32, v []float32)       { g.record("VertexAttrib3fv", i, clone(v)) }
func (g *GL) VertexAttrib4fv(i uint32, v []float32)       { g.record("VertexAttrib4fv", i, clone(v)) }

func (g *GL) EnableVertexAttribArray(i uint32)  { g.record("EnableVertexAttribArray", i) }
func (g *GL) DisableVertexAttribArray(i uint32) { g.record("DisableVertexAttribArray", i) }

func (g *GL) VertexAttribPointer(i uint32, size int32, xtype uint32, normalized bool, stride, offset int) {
	g.record("VertexAttribPointer", i, size, xtype, normalized, stride, offset)
}

func (g *GL) BindBuffer(target, buf uint32) {
	g.record("BindBuffer", target, buf)
	g.check("Buffer", buf)
	if target == glctx.ARRAY_BUFFER {
		g.arrayBuffer = buf
	}
}

func (g *GL) BufferData(target uint32, data []float32, usage uint32) {
	g.record("BufferData", target, len(data), usage)
	if target == glctx.ARRAY_BUFFER && g.arrayBuffer != 0 {
		g.buffers[g.arrayBuffer] = clone(data)
	}
}

func (g *GL) BufferSubData(target uint32, offset int, data []float32) {
	g.record("BufferSubData", target, offset, len(data))
	if target != glctx.ARRAY_BUFFER || g.arrayBuffer == 0 {
		return
	}
	buf := g.buffers[g.arrayBuffer]
	start := offset / 4
	if start+len(data) > len(buf) {
		g.errCode = 0x0501 // GL_INVALID_VALUE
		return
	}
	copy(buf[start:], data)
}

func (g *GL) BindFramebuffer(fbo uint32) {
	g.record("BindFramebuffer", fbo)
	g.check("Framebuffer", fbo)
	g.framebuffer = fbo
}

func (g *GL) FramebufferTexture2D(attachment, tex uint32) {
	g.record("FramebufferTexture2D", attachment, tex)
	g.check("Texture", tex)
	if g.framebuffer != 0 {
		g.attached[g.framebuffer] = tex
	}
}

func (g *GL) CheckFramebufferStatus() uint32 {
	g.record("CheckFramebufferStatus")
	if g.IncompleteFramebuffer || (g.framebuffer != 0 && g.attached[g.framebuffer] == 0) {
		return 0x8CD6 // GL_FRAMEBUFFER_INCOMPLETE_ATTACHMENT
	}
	return glctx.FRAMEBUFFER_COMPLETE
}

func (g *GL) ActiveTexture(unit uint32) {
	g.record("ActiveTexture", unit)
	g.unit = unit - glctx.TEXTURE0
}

func (g *GL) BindTexture(tex uint32) {
	g.record("BindTexture", g.unit, tex)
	g.check("Texture", tex)
	g.units[g.unit] = tex
}

// BoundTexture returns the texture bound to unit.
func (g *GL) BoundTexture(unit uint32) uint32 { return g.units[unit] }

func (g *GL) TexParameteri(pname uint32, param int32) {
	g.record("TexParameteri", pname, param)
}

func (g *GL) TexImage2D(internalFormat uint32, width, height int, format, xtype uint32, pixels []byte) {
	g.record("TexImage2D", internalFormat, width, height, format, xtype)
	tex := g.units[g.unit]
	if tex == 0 {
		g.errCode = 0x0502 // GL_INVALID_OPERATION
		return
	}
	g.textures[tex] = TexImage{
		InternalFormat: internalFormat,
		Width:          width,
		Height:         height,
		Format:         format,
		Type:           xtype,
		Pixels:         clone(pixels),
	}
}

func (g *GL) Viewport(x, y, w, h int)        { g.record("Viewport", x, y, w, h) }
func (g *GL) Scissor(x, y, w, h int)         { g.record("Scissor", x, y, w, h) }
func (g *GL) ClearColor(r, gr, b, a float32) { g.record("ClearColor", r, gr, b, a) }
func (g *GL) ClearDepth(d float32)           { g.record("ClearDepth", d) }
func (g *GL) ClearStencil(s int32)           { g.record("ClearStencil", s) }
func (g *GL) Clear(mask uint32)              { g.record("Clear", mask) }
func (g *GL) Enable(capability uint32)       { g.record("Enable", capability) }
func (g *GL) Disable(capability uint32)      { g.record("Disable", capability) }

func (g *GL) DrawArrays(mode uint32, first, count int) {
	g.record("DrawArrays", mode, first, count)
	if g.program == 0 {
		g.errCode = 0x0502
	}
}

func (g *GL) Extensions() []string { return g.Exts }

func (g *GL) GetError() uint32 {
	code := g.errCode
	g.errCode = glctx.NO_ERROR
	return code
}

func (g *GL) DiscardObjects() {
	g.record("DiscardObjects")
	g.generation++
	g.reset()
}

func clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append([]T(nil), s...)
}
