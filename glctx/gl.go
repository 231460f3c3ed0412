package glctx

// Enum values used by the context. They match the OpenGL numbering so a
// backend can pass them straight through.
const (
	// Primitive modes
	POINTS         = 0x0000
	LINES          = 0x0001
	LINE_LOOP      = 0x0002
	LINE_STRIP     = 0x0003
	TRIANGLES      = 0x0004
	TRIANGLE_STRIP = 0x0005
	TRIANGLE_FAN   = 0x0006

	// Scalar types
	BYTE           = 0x1400
	UNSIGNED_BYTE  = 0x1401
	SHORT          = 0x1402
	UNSIGNED_SHORT = 0x1403
	INT            = 0x1404
	UNSIGNED_INT   = 0x1405
	FLOAT          = 0x1406

	// Variable types reported by program introspection
	FLOAT_VEC2   = 0x8B50
	FLOAT_VEC3   = 0x8B51
	FLOAT_VEC4   = 0x8B52
	INT_VEC2     = 0x8B53
	INT_VEC3     = 0x8B54
	INT_VEC4     = 0x8B55
	BOOL         = 0x8B56
	BOOL_VEC2    = 0x8B57
	BOOL_VEC3    = 0x8B58
	BOOL_VEC4    = 0x8B59
	FLOAT_MAT2   = 0x8B5A
	FLOAT_MAT3   = 0x8B5B
	FLOAT_MAT4   = 0x8B5C
	SAMPLER_2D   = 0x8B5E
	SAMPLER_CUBE = 0x8B60

	// Shader stages
	FRAGMENT_SHADER = 0x8B30
	VERTEX_SHADER   = 0x8B31

	// Buffer targets and usage
	ARRAY_BUFFER         = 0x8892
	ELEMENT_ARRAY_BUFFER = 0x8893
	STATIC_DRAW          = 0x88E4
	DYNAMIC_DRAW         = 0x88E8

	// Textures
	TEXTURE_2D         = 0x0DE1
	TEXTURE0           = 0x84C0
	TEXTURE_MAG_FILTER = 0x2800
	TEXTURE_MIN_FILTER = 0x2801
	TEXTURE_WRAP_S     = 0x2802
	TEXTURE_WRAP_T     = 0x2803
	NEAREST            = 0x2600
	LINEAR             = 0x2601
	REPEAT             = 0x2901
	CLAMP_TO_EDGE      = 0x812F
	MIRRORED_REPEAT    = 0x8370
	RGBA               = 0x1908
	RGBA8              = 0x8058
	RGBA16F            = 0x881A
	RGBA32F            = 0x8814

	// Framebuffers
	FRAMEBUFFER          = 0x8D40
	COLOR_ATTACHMENT0    = 0x8CE0
	FRAMEBUFFER_COMPLETE = 0x8CD5

	// Clear bits
	DEPTH_BUFFER_BIT   = 0x00000100
	STENCIL_BUFFER_BIT = 0x00000400
	COLOR_BUFFER_BIT   = 0x00004000

	// Capabilities
	BLEND              = 0x0BE2
	DEPTH_TEST         = 0x0B71
	SCISSOR_TEST       = 0x0C11
	PROGRAM_POINT_SIZE = 0x8642

	NO_ERROR = 0
)

// ActiveInfo describes one active attribute or uniform of a linked program.
type ActiveInfo struct {
	Name string
	Type uint32
	Size int32
}

// GL is the subset of the OpenGL API driven by a Context. Handles are the
// raw GL object names; zero means "none". Implementations are not required
// to be safe for concurrent use: a Context only calls them from the frame
// thread.
type GL interface {
	CreateBuffer() uint32
	DeleteBuffer(buf uint32)
	CreateFramebuffer() uint32
	DeleteFramebuffer(fbo uint32)
	CreateRenderbuffer() uint32
	DeleteRenderbuffer(rbo uint32)
	CreateTexture() uint32
	DeleteTexture(tex uint32)

	CreateShader(stage uint32) uint32
	ShaderSource(shader uint32, source string)
	CompileShader(shader uint32)
	// ShaderStatus reports whether the last compile succeeded, with its info log.
	ShaderStatus(shader uint32) (bool, string)
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	BindAttribLocation(program, index uint32, name string)
	LinkProgram(program uint32)
	// LinkStatus reports whether the last link succeeded, with its info log.
	LinkStatus(program uint32) (bool, string)
	ValidateProgram(program uint32)
	// ValidateStatus reports whether the last validation succeeded, with its info log.
	ValidateStatus(program uint32) (bool, string)
	DeleteProgram(program uint32)
	UseProgram(program uint32)

	ActiveAttributes(program uint32) int
	ActiveAttrib(program uint32, index int) ActiveInfo
	ActiveUniforms(program uint32) int
	ActiveUniform(program uint32, index int) ActiveInfo
	AttribLocation(program uint32, name string) int32
	UniformLocation(program uint32, name string) int32

	Uniform1f(loc int32, x float32)
	Uniform2f(loc int32, x, y float32)
	Uniform3f(loc int32, x, y, z float32)
	Uniform4f(loc int32, x, y, z, w float32)
	Uniform1i(loc int32, x int32)
	Uniform2i(loc int32, x, y int32)
	Uniform3i(loc int32, x, y, z int32)
	Uniform4i(loc int32, x, y, z, w int32)
	Uniform1fv(loc int32, v []float32)
	Uniform2fv(loc int32, v []float32)
	Uniform3fv(loc int32, v []float32)
	Uniform4fv(loc int32, v []float32)
	Uniform1iv(loc int32, v []int32)
	Uniform2iv(loc int32, v []int32)
	Uniform3iv(loc int32, v []int32)
	Uniform4iv(loc int32, v []int32)
	UniformMatrix2fv(loc int32, transpose bool, v []float32)
	UniformMatrix3fv(loc int32, transpose bool, v []float32)
	UniformMatrix4fv(loc int32, transpose bool, v []float32)

	VertexAttrib1f(index uint32, x float32)
	VertexAttrib2f(index uint32, x, y float32)
	VertexAttrib3f(index uint32, x, y, z float32)
	VertexAttrib4f(index uint32, x, y, z, w float32)
	VertexAttrib1fv(index uint32, v []float32)
	VertexAttrib2fv(index uint32, v []float32)
	VertexAttrib3fv(index uint32, v []float32)
	VertexAttrib4fv(index uint32, v []float32)
	EnableVertexAttribArray(index uint32)
	DisableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride, offset int)

	BindBuffer(target, buf uint32)
	BufferData(target uint32, data []float32, usage uint32)
	BufferSubData(target uint32, offset int, data []float32)

	BindFramebuffer(fbo uint32)
	FramebufferTexture2D(attachment, tex uint32)
	CheckFramebufferStatus() uint32

	ActiveTexture(unit uint32)
	BindTexture(tex uint32)
	TexParameteri(pname uint32, param int32)
	// TexImage2D allocates level 0 of the bound 2D texture; pixels may be nil.
	TexImage2D(internalFormat uint32, width, height int, format, xtype uint32, pixels []byte)

	Viewport(x, y, width, height int)
	Scissor(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	ClearDepth(d float32)
	ClearStencil(s int32)
	Clear(mask uint32)
	Enable(capability uint32)
	Disable(capability uint32)
	DrawArrays(mode uint32, first, count int)

	Extensions() []string
	GetError() uint32

	// DiscardObjects forgets every object created so far. It is called when
	// a lost context is restored, before the context recreates its
	// resources, so that no handle of the previous generation survives.
	DiscardObjects()
}

// LossListener receives context loss notifications from a Surface.
type LossListener interface {
	// ContextLost is called when the surface loses its GL context. Returning
	// true suppresses the surface's default handling so that a later
	// ContextRestored can be delivered.
	ContextLost() bool
	// ContextRestored is called once a fresh GL context is current.
	ContextRestored()
}

// Surface is a drawable that owns a GL context.
type Surface interface {
	// GL acquires the surface's graphics context.
	GL() (GL, error)
	// Size returns the drawable size in pixels.
	Size() (width, height int)
	// SubscribeContextLoss registers l as the surface's only loss listener,
	// replacing any previous one. The returned function removes it.
	SubscribeContextLoss(l LossListener) (cancel func())
}

// LossSimulator is implemented by surfaces that can lose and restore their
// context on request, for testing recovery paths.
type LossSimulator interface {
	LoseContext()
	RestoreContext()
}
