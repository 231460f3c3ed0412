package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

// assertVec3 compares with an absolute tolerance. mgl32's ApproxEqual
// switches to a relative test near zero.
func assertVec3(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d of %v", i, got)
	}
}

func TestOrbitCameraPosition(t *testing.T) {
	c := NewOrbitCamera(mgl32.Vec3{}, 2, mgl32.DegToRad(60), 1)
	c.Pitch = 0
	c.UpdatePosition()
	assertVec3(t, mgl32.Vec3{0, 0, 2}, c.Position)

	c.Orbit(mgl32.DegToRad(90), 0)
	assertVec3(t, mgl32.Vec3{2, 0, 0}, c.Position)

	c.Orbit(0, 10)
	assert.Equal(t, float32(1.5), c.Pitch)

	c.Zoom(-5)
	assert.Equal(t, float32(0.1), c.Distance)
	assert.InDelta(t, 0.1, c.Position.Len(), 1e-5)
}

func TestCameraMatrices(t *testing.T) {
	c := NewOrbitCamera(mgl32.Vec3{}, 3, mgl32.DegToRad(45), 1)
	c.Pitch = 0
	c.UpdatePosition()

	// The target lands in the middle of the screen.
	clip := c.ViewProjectionMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip.X()/clip.W(), 1e-5)
	assert.InDelta(t, 0, clip.Y()/clip.W(), 1e-5)

	before := c.ProjectionMatrix()
	c.UpdateAspectRatio(1600, 800)
	assert.Equal(t, float32(2), c.AspectRatio)
	assert.NotEqual(t, before, c.ProjectionMatrix())

	assertVec3(t, mgl32.Vec3{0, 0, -1}, c.Forward())
}
