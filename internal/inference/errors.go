package inference

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid or inconsistent request parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Stage names the phase of a generation session that failed.
type Stage string

const (
	StageRender  Stage = "render"
	StageEncode  Stage = "encode"
	StagePrefill Stage = "prefill"
	StageDecode  Stage = "decode"
)

// SessionError wraps a failure that aborted a generation session, tagged
// with the stage it occurred in.
type SessionError struct {
	Stage Stage
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// ErrSessionFinished is returned when Next is called on a session that has
// already completed, failed, or been cancelled.
var ErrSessionFinished = errors.New("inference: session already finished")
