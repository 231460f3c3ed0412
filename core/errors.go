package core

import (
	"errors"
	"fmt"
)

// ErrContextLost is returned by operations that need a live GL context while
// the surface has lost it.
var ErrContextLost = errors.New("graphics context lost")

// ConfigError reports a missing or invalid option, or malformed input text.
type ConfigError struct {
	Op  string
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// PhaseError reports a draw-sequence call made outside its required phase.
type PhaseError struct {
	Op       string
	Expected Phase
	Actual   Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: out of phase: expected to be %s but was %s", e.Op, e.Expected, e.Actual)
}

// NotFoundError reports a reference to an unregistered named resource,
// shader definition or program variable.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found: %q", e.Kind, e.Name)
}

// DuplicateError reports an attempt to register a name twice.
type DuplicateError struct {
	Kind string
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s name: %q", e.Kind, e.Name)
}

// BuildStage identifies the step of a program build that failed.
type BuildStage string

const (
	StageCompileVertex   BuildStage = "compile-vertex"
	StageCompileFragment BuildStage = "compile-fragment"
	StageLink            BuildStage = "link"
	StageValidate        BuildStage = "validate"
)

// BuildError carries the driver info log of a failed compile, link or
// validate step.
type BuildError struct {
	Stage   BuildStage
	Program string
	Log     string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("program %q: %s failed: %s", e.Program, e.Stage, e.Log)
}

// BindingError is returned when a draw is made ready with a variable that
// never received a value.
type BindingError struct {
	Program  string
	Variable string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("program %q: variable not ready: %s", e.Program, e.Variable)
}
