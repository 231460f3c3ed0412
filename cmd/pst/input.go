package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"pst-renderer/internal/opengl"
	"pst-renderer/scene"
)

// orbitInput turns left mouse drags into camera orbits.
type orbitInput struct {
	lookSpeed  float32
	lastX      float64
	lastY      float64
	firstMouse bool
}

func newOrbitInput() *orbitInput {
	return &orbitInput{lookSpeed: 0.005, firstMouse: true}
}

func (in *orbitInput) update(window *opengl.Window, camera *scene.OrbitCamera) {
	if !window.IsMouseButtonPressed(glfw.MouseButtonLeft) {
		in.firstMouse = true
		return
	}
	x, y := window.GetCursorPos()
	if in.firstMouse {
		in.lastX, in.lastY = x, y
		in.firstMouse = false
	}
	camera.Orbit(float32(x-in.lastX)*in.lookSpeed, float32(y-in.lastY)*in.lookSpeed)
	in.lastX, in.lastY = x, y
}
