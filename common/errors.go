package common

import (
	"errors"
	"fmt"
)

// Pipeline stages, used in errors, logs and metrics.
const (
	StageRequest    = "request"
	StageConfig     = "config"
	StageSynthesize = "synthesizing"
	StageCapture    = "capturing"
	StageAssemble   = "assembling"
)

// ErrorKind classifies a stage error.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConfig     ErrorKind = "config"
	KindStage      ErrorKind = "stage"
	KindResource   ErrorKind = "resource"
)

var (
	// ErrNoInput is returned by assembly when there are no capture results.
	ErrNoInput = errors.New("no input")

	// ErrInvalidTransition is returned when a run state change is not allowed.
	ErrInvalidTransition = errors.New("invalid run state transition")
)

// CommandLog captures one external command invocation.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// StageError is a stage-aware failure reported to callers of a run.
type StageError struct {
	Stage      string     `json:"stage"`
	Kind       ErrorKind  `json:"kind"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog,omitempty"`
	Err        error      `json:"-"`
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", e.Stage, e.Message)
	if e.CommandLog.Command != "" {
		msg = fmt.Sprintf("%s (cmd=%s exit=%d)", msg, e.CommandLog.Command, e.CommandLog.ExitCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithCommand attaches the failing command invocation.
func (e *StageError) WithCommand(log CommandLog) *StageError {
	e.CommandLog = log
	return e
}

// ValidationError reports a rejected request.
func ValidationError(message string) *StageError {
	return &StageError{Stage: StageRequest, Kind: KindValidation, Message: message}
}

// ConfigError reports a configuration problem detected before any stage starts.
func ConfigError(message string, cause error) *StageError {
	return &StageError{Stage: StageConfig, Kind: KindConfig, Message: message, Err: cause}
}

// StageFailure reports a fatal error inside a stage.
func StageFailure(stage, message string, cause error) *StageError {
	return &StageError{Stage: stage, Kind: KindStage, Message: message, Err: cause}
}

// ResourceError reports a filesystem or other resource failure inside a stage.
func ResourceError(stage, message string, cause error) *StageError {
	return &StageError{Stage: stage, Kind: KindResource, Message: message, Err: cause}
}

// AsStageError returns the first *StageError in err's chain.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// StageOf returns the stage recorded in err, or "" when err carries none.
func StageOf(err error) string {
	if se, ok := AsStageError(err); ok {
		return se.Stage
	}
	return ""
}

// KindOf returns the error kind recorded in err, defaulting to KindStage.
func KindOf(err error) ErrorKind {
	if se, ok := AsStageError(err); ok {
		return se.Kind
	}
	return KindStage
}
