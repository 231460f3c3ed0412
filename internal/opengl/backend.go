// Package opengl implements glctx.GL on OpenGL 4.1 core through go-gl, and
// a glfw window implementing glctx.Surface.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"pst-renderer/glctx"
)

// Backend forwards glctx.GL calls to the current OpenGL context. Objects
// it creates are tracked so DiscardObjects can release them.
type Backend struct {
	vao     uint32
	objects map[objectKey]struct{}
	version string
}

type objectKind int

const (
	objBuffer objectKind = iota
	objFramebuffer
	objRenderbuffer
	objTexture
	objProgram
)

type objectKey struct {
	kind   objectKind
	handle uint32
}

var _ glctx.GL = (*Backend)(nil)

// NewBackend loads the GL entry points. The window's context must be
// current on the calling thread.
func NewBackend() (*Backend, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	b := &Backend{
		objects: make(map[objectKey]struct{}),
		version: gl.GoStr(gl.GetString(gl.VERSION)),
	}
	b.bindVertexArray()
	return b, nil
}

// Version returns the GL_VERSION string of the context.
func (b *Backend) Version() string { return b.version }

// Core profiles need a bound vertex array for any attribute state. One is
// shared by every program.
func (b *Backend) bindVertexArray() {
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)
}

func (b *Backend) track(kind objectKind, h uint32) uint32 {
	b.objects[objectKey{kind, h}] = struct{}{}
	return h
}

func (b *Backend) untrack(kind objectKind, h uint32) {
	delete(b.objects, objectKey{kind, h})
}

func (b *Backend) CreateBuffer() uint32 {
	var h uint32
	gl.GenBuffers(1, &h)
	return b.track(objBuffer, h)
}

func (b *Backend) DeleteBuffer(h uint32) {
	b.untrack(objBuffer, h)
	gl.DeleteBuffers(1, &h)
}

func (b *Backend) CreateFramebuffer() uint32 {
	var h uint32
	gl.GenFramebuffers(1, &h)
	return b.track(objFramebuffer, h)
}

func (b *Backend) DeleteFramebuffer(h uint32) {
	b.untrack(objFramebuffer, h)
	gl.DeleteFramebuffers(1, &h)
}

func (b *Backend) CreateRenderbuffer() uint32 {
	var h uint32
	gl.GenRenderbuffers(1, &h)
	return b.track(objRenderbuffer, h)
}

func (b *Backend) DeleteRenderbuffer(h uint32) {
	b.untrack(objRenderbuffer, h)
	gl.DeleteRenderbuffers(1, &h)
}

func (b *Backend) CreateTexture() uint32 {
	var h uint32
	gl.GenTextures(1, &h)
	return b.track(objTexture, h)
}

func (b *Backend) DeleteTexture(h uint32) {
	b.untrack(objTexture, h)
	gl.DeleteTextures(1, &h)
}

func (b *Backend) CreateShader(stage uint32) uint32 { return gl.CreateShader(stage) }

func (b *Backend) ShaderSource(shader uint32, source string) {
	csrc, free := gl.Strs(cstr(source))
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
}

func (b *Backend) CompileShader(shader uint32) { gl.CompileShader(shader) }

func (b *Backend) ShaderStatus(shader uint32) (bool, string) {
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLen int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
	log := strings.Repeat("\x00", int(logLen+1))
	gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
	return false, strings.TrimRight(log, "\x00")
}

func (b *Backend) DeleteShader(shader uint32) { gl.DeleteShader(shader) }

func (b *Backend) CreateProgram() uint32 { return b.track(objProgram, gl.CreateProgram()) }

func (b *Backend) AttachShader(program, shader uint32) { gl.AttachShader(program, shader) }

func (b *Backend) BindAttribLocation(program, index uint32, name string) {
	gl.BindAttribLocation(program, index, gl.Str(cstr(name)))
}

func (b *Backend) LinkProgram(program uint32) { gl.LinkProgram(program) }

func (b *Backend) LinkStatus(program uint32) (bool, string) {
	return programStatus(program, gl.LINK_STATUS)
}

func (b *Backend) ValidateProgram(program uint32) { gl.ValidateProgram(program) }

func (b *Backend) ValidateStatus(program uint32) (bool, string) {
	return programStatus(program, gl.VALIDATE_STATUS)
}

func programStatus(program, pname uint32) (bool, string) {
	var status int32
	gl.GetProgramiv(program, pname, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLen int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
	log := strings.Repeat("\x00", int(logLen+1))
	gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
	return false, strings.TrimRight(log, "\x00")
}

func (b *Backend) DeleteProgram(program uint32) {
	b.untrack(objProgram, program)
	gl.DeleteProgram(program)
}

func (b *Backend) UseProgram(program uint32) { gl.UseProgram(program) }

func (b *Backend) ActiveAttributes(program uint32) int {
	var n int32
	gl.GetProgramiv(program, gl.ACTIVE_ATTRIBUTES, &n)
	return int(n)
}

func (b *Backend) ActiveAttrib(program uint32, index int) glctx.ActiveInfo {
	var maxLen int32
	gl.GetProgramiv(program, gl.ACTIVE_ATTRIBUTE_MAX_LENGTH, &maxLen)
	return activeInfo(maxLen, func(bufSize int32, length, size *int32, xtype *uint32, name *uint8) {
		gl.GetActiveAttrib(program, uint32(index), bufSize, length, size, xtype, name)
	})
}

func (b *Backend) ActiveUniforms(program uint32) int {
	var n int32
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORMS, &n)
	return int(n)
}

func (b *Backend) ActiveUniform(program uint32, index int) glctx.ActiveInfo {
	var maxLen int32
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLen)
	return activeInfo(maxLen, func(bufSize int32, length, size *int32, xtype *uint32, name *uint8) {
		gl.GetActiveUniform(program, uint32(index), bufSize, length, size, xtype, name)
	})
}

func activeInfo(maxLen int32, get func(bufSize int32, length, size *int32, xtype *uint32, name *uint8)) glctx.ActiveInfo {
	if maxLen < 1 {
		maxLen = 1
	}
	buf := make([]uint8, maxLen)
	var length, size int32
	var xtype uint32
	get(maxLen, &length, &size, &xtype, &buf[0])
	return glctx.ActiveInfo{Name: string(buf[:length]), Type: xtype, Size: size}
}

func (b *Backend) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(cstr(name)))
}

func (b *Backend) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(cstr(name)))
}

func (b *Backend) Uniform1f(loc int32, x float32)          { gl.Uniform1f(loc, x) }
func (b *Backend) Uniform2f(loc int32, x, y float32)       { gl.Uniform2f(loc, x, y) }
func (b *Backend) Uniform3f(loc int32, x, y, z float32)    { gl.Uniform3f(loc, x, y, z) }
func (b *Backend) Uniform4f(loc int32, x, y, z, w float32) { gl.Uniform4f(loc, x, y, z, w) }
func (b *Backend) Uniform1i(loc int32, x int32)            { gl.Uniform1i(loc, x) }
func (b *Backend) Uniform2i(loc int32, x, y int32)         { gl.Uniform2i(loc, x, y) }
func (b *Backend) Uniform3i(loc int32, x, y, z int32)      { gl.Uniform3i(loc, x, y, z) }
func (b *Backend) Uniform4i(loc int32, x, y, z, w int32)   { gl.Uniform4i(loc, x, y, z, w) }

func (b *Backend) Uniform1fv(loc int32, v []float32) { gl.Uniform1fv(loc, int32(len(v)), &v[0]) }
func (b *Backend) Uniform2fv(loc int32, v []float32) { gl.Uniform2fv(loc, int32(len(v)/2), &v[0]) }
func (b *Backend) Uniform3fv(loc int32, v []float32) { gl.Uniform3fv(loc, int32(len(v)/3), &v[0]) }
func (b *Backend) Uniform4fv(loc int32, v []float32) { gl.Uniform4fv(loc, int32(len(v)/4), &v[0]) }
func (b *Backend) Uniform1iv(loc int32, v []int32)   { gl.Uniform1iv(loc, int32(len(v)), &v[0]) }
func (b *Backend) Uniform2iv(loc int32, v []int32)   { gl.Uniform2iv(loc, int32(len(v)/2), &v[0]) }
func (b *Backend) Uniform3iv(loc int32, v []int32)   { gl.Uniform3iv(loc, int32(len(v)/3), &v[0]) }
func (b *Backend) Uniform4iv(loc int32, v []int32)   { gl.Uniform4iv(loc, int32(len(v)/4), &v[0]) }

// Matrices are column-major, the layout of mgl32.Mat4.
func (b *Backend) UniformMatrix2fv(loc int32, transpose bool, v []float32) {
	gl.UniformMatrix2fv(loc, int32(len(v)/4), transpose, &v[0])
}

func (b *Backend) UniformMatrix3fv(loc int32, transpose bool, v []float32) {
	gl.UniformMatrix3fv(loc, int32(len(v)/9), transpose, &v[0])
}

func (b *Backend) UniformMatrix4fv(loc int32, transpose bool, v []float32) {
	gl.UniformMatrix4fv(loc, int32(len(v)/16), transpose, &v[0])
}

func (b *Backend) VertexAttrib1f(index uint32, x float32)          { gl.VertexAttrib1f(index, x) }
func (b *Backend) VertexAttrib2f(index uint32, x, y float32)       { gl.VertexAttrib2f(index, x, y) }
func (b *Backend) VertexAttrib3f(index uint32, x, y, z float32)    { gl.VertexAttrib3f(index, x, y, z) }
func (b *Backend) VertexAttrib4f(index uint32, x, y, z, w float32) { gl.VertexAttrib4f(index, x, y, z, w) }
func (b *Backend) VertexAttrib1fv(index uint32, v []float32)       { gl.VertexAttrib1fv(index, &v[0]) }
func (b *Backend) VertexAttrib2fv(index uint32, v []float32)       { gl.VertexAttrib2fv(index, &v[0]) }
func (b *Backend) VertexAttrib3fv(index uint32, v []float32)       { gl.VertexAttrib3fv(index, &v[0]) }
func (b *Backend) VertexAttrib4fv(index uint32, v []float32)       { gl.VertexAttrib4fv(index, &v[0]) }

func (b *Backend) EnableVertexAttribArray(index uint32)  { gl.EnableVertexAttribArray(index) }
func (b *Backend) DisableVertexAttribArray(index uint32) { gl.DisableVertexAttribArray(index) }

func (b *Backend) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride, offset int) {
	gl.VertexAttribPointerWithOffset(index, size, xtype, normalized, int32(stride), uintptr(offset))
}

func (b *Backend) BindBuffer(target, buf uint32) { gl.BindBuffer(target, buf) }

func (b *Backend) BufferData(target uint32, data []float32, usage uint32) {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BufferData(target, len(data)*4, ptr, usage)
}

func (b *Backend) BufferSubData(target uint32, offset int, data []float32) {
	if len(data) == 0 {
		return
	}
	gl.BufferSubData(target, offset, len(data)*4, gl.Ptr(data))
}

func (b *Backend) BindFramebuffer(fbo uint32) { gl.BindFramebuffer(gl.FRAMEBUFFER, fbo) }

func (b *Backend) FramebufferTexture2D(attachment, tex uint32) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, gl.TEXTURE_2D, tex, 0)
}

func (b *Backend) CheckFramebufferStatus() uint32 {
	return gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
}

func (b *Backend) ActiveTexture(unit uint32) { gl.ActiveTexture(unit) }
func (b *Backend) BindTexture(tex uint32)    { gl.BindTexture(gl.TEXTURE_2D, tex) }

func (b *Backend) TexParameteri(pname uint32, param int32) {
	gl.TexParameteri(gl.TEXTURE_2D, pname, param)
}

func (b *Backend) TexImage2D(internalFormat uint32, width, height int, format, xtype uint32, pixels []byte) {
	var ptr unsafe.Pointer
	if len(pixels) > 0 {
		ptr = unsafe.Pointer(&pixels[0])
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(internalFormat), int32(width), int32(height), 0, format, xtype, ptr)
}

func (b *Backend) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (b *Backend) Scissor(x, y, width, height int) {
	gl.Scissor(int32(x), int32(y), int32(width), int32(height))
}

func (b *Backend) ClearColor(r, g, bl, a float32) { gl.ClearColor(r, g, bl, a) }
func (b *Backend) ClearDepth(d float32)           { gl.ClearDepth(float64(d)) }
func (b *Backend) ClearStencil(s int32)           { gl.ClearStencil(s) }
func (b *Backend) Clear(mask uint32)              { gl.Clear(mask) }
func (b *Backend) Enable(capability uint32)       { gl.Enable(capability) }
func (b *Backend) Disable(capability uint32)      { gl.Disable(capability) }

func (b *Backend) DrawArrays(mode uint32, first, count int) {
	gl.DrawArrays(mode, int32(first), int32(count))
}

func (b *Backend) Extensions() []string {
	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	exts := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		exts = append(exts, gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i))))
	}
	return exts
}

func (b *Backend) GetError() uint32 { return gl.GetError() }

// DiscardObjects deletes every object still alive and resets the bindings,
// leaving the context as a freshly created one would be.
func (b *Backend) DiscardObjects() {
	gl.UseProgram(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	for key := range b.objects {
		h := key.handle
		switch key.kind {
		case objBuffer:
			gl.DeleteBuffers(1, &h)
		case objFramebuffer:
			gl.DeleteFramebuffers(1, &h)
		case objRenderbuffer:
			gl.DeleteRenderbuffers(1, &h)
		case objTexture:
			gl.DeleteTextures(1, &h)
		case objProgram:
			gl.DeleteProgram(h)
		}
	}
	b.objects = make(map[objectKey]struct{})

	gl.DeleteVertexArrays(1, &b.vao)
	b.bindVertexArray()
}

// cstr null-terminates s for the C API.
func cstr(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}
