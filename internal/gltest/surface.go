package gltest

import (
	"errors"

	"pst-renderer/glctx"
)

// Surface is a fake glctx.Surface backed by a fake GL. It can lose and
// restore its context on request.
type Surface struct {
	W, H int
	// Fail, when set, is returned by GL.
	Fail error

	gl        *GL
	listener  glctx.LossListener
	lost      bool
	prevented bool
}

var (
	_ glctx.Surface       = (*Surface)(nil)
	_ glctx.LossSimulator = (*Surface)(nil)
)

// NewSurface returns a surface of the given size with a fresh fake GL.
func NewSurface(w, h int) *Surface {
	return &Surface{W: w, H: h, gl: New()}
}

// Fake returns the surface's fake GL.
func (s *Surface) Fake() *GL { return s.gl }

func (s *Surface) GL() (glctx.GL, error) {
	if s.Fail != nil {
		return nil, s.Fail
	}
	if s.lost {
		return nil, errors.New("gltest: context is lost")
	}
	return s.gl, nil
}

func (s *Surface) Size() (int, int) { return s.W, s.H }

func (s *Surface) SubscribeContextLoss(l glctx.LossListener) func() {
	s.listener = l
	return func() {
		if s.listener == l {
			s.listener = nil
		}
	}
}

// Subscribed reports whether a loss listener is registered.
func (s *Surface) Subscribed() bool { return s.listener != nil }

// LoseContext drops the context and notifies the listener.
func (s *Surface) LoseContext() {
	if s.lost {
		return
	}
	s.lost = true
	s.prevented = s.listener != nil && s.listener.ContextLost()
}

// RestoreContext brings the context back. The listener is only told when
// it kept the context restorable on loss.
func (s *Surface) RestoreContext() {
	if !s.lost {
		return
	}
	s.lost = false
	if s.prevented && s.listener != nil {
		s.listener.ContextRestored()
	}
	s.prevented = false
}

// Lost reports whether the context is currently lost.
func (s *Surface) Lost() bool { return s.lost }
