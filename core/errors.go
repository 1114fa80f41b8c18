package core

import (
	"errors"
	"fmt"
)

// Tool execution error codes.
const (
	CodeUnknownTool      = "UNKNOWN_TOOL"
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeExecution        = "EXECUTION_ERROR"
	CodeInvalidResult    = "INVALID_RESULT"
	CodePanic            = "PANIC"
)

// NotFoundError is returned when an invocation references an unregistered flow.
type NotFoundError struct {
	Flow string `json:"flow"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("flow %q not found", e.Flow)
}

// InvalidInputError reports caller-supplied input that failed validation.
// No backend call has been made when it is returned.
type InvalidInputError struct {
	Flow string `json:"flow"`
	Path string `json:"path,omitempty"`
	Err  error  `json:"-"`
}

func (e *InvalidInputError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid input for flow %q at %s", e.Flow, e.Path)
	}
	return fmt.Sprintf("invalid input for flow %q: %v", e.Flow, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// GenerationRefusedError reports that the generation backend withheld content
// for policy or safety reasons.
type GenerationRefusedError struct {
	Flow   string `json:"flow"`
	Reason string `json:"reason,omitempty"`
}

func (e *GenerationRefusedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("generation refused for flow %q", e.Flow)
	}
	return fmt.Sprintf("generation refused for flow %q: %s", e.Flow, e.Reason)
}

// OutputContractViolationError reports output that does not conform to the
// flow's declared output schema. The offending output is never returned.
type OutputContractViolationError struct {
	Flow string `json:"flow"`
	Path string `json:"path,omitempty"`
	Err  error  `json:"-"`
}

func (e *OutputContractViolationError) Error() string {
	return fmt.Sprintf("flow %q produced invalid output: %v", e.Flow, e.Err)
}

func (e *OutputContractViolationError) Unwrap() error { return e.Err }

// ToolExecutionError represents an unexpected failure while dispatching a
// tool call. Expected business failures are encoded in the tool's output
// instead.
type ToolExecutionError struct {
	Tool    string `json:"tool"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ToolExecutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// UpstreamUnavailableError wraps transport level failures talking to the
// generation backend or a partner service. Callers may retry.
type UpstreamUnavailableError struct {
	Service string `json:"service"`
	Err     error  `json:"-"`
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }

// UnsupportedModalityError reports a request for an output modality the
// configured backend cannot produce. No generation call has been made.
type UnsupportedModalityError struct {
	Provider string `json:"provider"`
	Modality string `json:"modality"`
}

func (e *UnsupportedModalityError) Error() string {
	return fmt.Sprintf("%s backend does not support %s output", e.Provider, e.Modality)
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	var upstream *UpstreamUnavailableError
	return errors.As(err, &upstream)
}

// IsTyped reports whether err belongs to the invocation failure taxonomy.
func IsTyped(err error) bool {
	var (
		nf  *NotFoundError
		ii  *InvalidInputError
		gr  *GenerationRefusedError
		ocv *OutputContractViolationError
		te  *ToolExecutionError
		uu  *UpstreamUnavailableError
		um  *UnsupportedModalityError
	)
	return errors.As(err, &nf) || errors.As(err, &ii) || errors.As(err, &gr) ||
		errors.As(err, &ocv) || errors.As(err, &te) || errors.As(err, &uu) || errors.As(err, &um)
}
