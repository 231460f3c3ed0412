package core

import "fmt"

// Color is a linear RGBA colour.
type Color struct {
	R, G, B, A float32
}

var ColorBlack = Color{0, 0, 0, 1}

// Vec returns the colour as a 4-element slice, the layout GL vector uploads expect.
func (c Color) Vec() []float32 {
	return []float32{c.R, c.G, c.B, c.A}
}

// Phase is the state of the draw state machine.
type Phase int

const (
	PhaseInactive Phase = iota
	PhasePreparing
	PhaseDrawing
)

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhasePreparing:
		return "preparing"
	case PhaseDrawing:
		return "drawing"
	}
	return fmt.Sprintf("unknown (%d)", int(p))
}

// ResourceKind enumerates the GPU object kinds addressable by name.
type ResourceKind int

const (
	KindBuffer ResourceKind = iota
	KindFramebuffer
	KindRenderbuffer
	KindTexture
	KindProgram
)

// ResourceKinds lists every kind in restoration order. Programs come last
// so that everything they might reference already exists.
var ResourceKinds = []ResourceKind{KindBuffer, KindFramebuffer, KindRenderbuffer, KindTexture, KindProgram}

func (k ResourceKind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindFramebuffer:
		return "framebuffer"
	case KindRenderbuffer:
		return "renderbuffer"
	case KindTexture:
		return "texture"
	case KindProgram:
		return "program"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// TextureOptions describes sampling parameters and storage of a 2D texture.
// Zero values select the defaults: NEAREST filtering, CLAMP_TO_EDGE
// wrapping, RGBA / RGBA / UNSIGNED_BYTE storage.
type TextureOptions struct {
	Width  int
	Height int

	Filter    uint32 // applies to both min and mag unless overridden
	MinFilter uint32
	MagFilter uint32

	Wrap  uint32 // applies to both S and T unless overridden
	WrapS uint32
	WrapT uint32

	InternalFormat uint32
	Format         uint32
	Type           uint32

	FlipY bool
}

// Diagnostic is one compiler message mapped to a line of source text.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d: %s", d.Line, d.Message)
}
