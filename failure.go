package mediacrop

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkazuta/mediacrop/imagecrop"
	"github.com/mkazuta/mediacrop/videotrim"
)

// FailureKind classifies an operation failure for programmatic handling.
type FailureKind string

const (
	// FailureInvalidRegion means the crop rectangle is empty or out of bounds.
	FailureInvalidRegion FailureKind = "invalid_region"
	// FailureUnsupportedFormat means the input's pixel layout or encoding is
	// not handled.
	FailureUnsupportedFormat FailureKind = "unsupported_format"
	// FailureDependencyUnavailable means the external video tool is missing
	// or unusable. Image operations are unaffected by this state.
	FailureDependencyUnavailable FailureKind = "dependency_unavailable"
	// FailureExternalTool means the external tool ran but did not produce a
	// usable result.
	FailureExternalTool FailureKind = "external_tool_failure"
	// FailureTimeout means the external tool exceeded its time ceiling and
	// was killed.
	FailureTimeout FailureKind = "timeout"
	// FailureInvalidTimeRange means the trim range violates
	// 0 <= start < end <= duration.
	FailureInvalidTimeRange FailureKind = "invalid_time_range"
	// FailureUnknownMediaKind means the input is neither an image nor a video.
	FailureUnknownMediaKind FailureKind = "unknown_media_kind"
	// FailureCancelled means the caller's context ended the operation.
	FailureCancelled FailureKind = "cancelled"
	// FailureInternal covers unexpected errors (I/O on validated paths etc.).
	FailureInternal FailureKind = "internal"
)

// Failure is the structured error every Router operation returns. It wraps
// the underlying component error, so errors.Is/As against the component
// sentinels keeps working through it.
type Failure struct {
	// Kind classifies the failure.
	Kind FailureKind
	// Message is a human-readable description.
	Message string
	// ExitCode is the external tool's exit status for FailureExternalTool.
	ExitCode int
	// Guidance carries installation instructions for
	// FailureDependencyUnavailable, suitable for direct display.
	Guidance string
	// Err is the underlying error.
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts the *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// classify maps component errors onto the uniform failure model.
func classify(err error) *Failure {
	var toolErr *videotrim.ToolError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, imagecrop.ErrRegionOutOfBounds),
		errors.Is(err, imagecrop.ErrEmptyRegion),
		errors.Is(err, videotrim.ErrInvalidCrop):
		return &Failure{Kind: FailureInvalidRegion, Message: err.Error(), Err: err}
	case errors.Is(err, imagecrop.ErrUnsupportedFormat):
		return &Failure{Kind: FailureUnsupportedFormat, Message: err.Error(), Err: err}
	case errors.Is(err, videotrim.ErrDependencyUnavailable):
		return &Failure{Kind: FailureDependencyUnavailable, Message: err.Error(), Err: err}
	case errors.Is(err, videotrim.ErrInvalidTimeRange):
		return &Failure{Kind: FailureInvalidTimeRange, Message: err.Error(), Err: err}
	case errors.Is(err, videotrim.ErrTimeout):
		return &Failure{Kind: FailureTimeout, Message: err.Error(), Err: err}
	case errors.As(err, &toolErr):
		return &Failure{
			Kind:     FailureExternalTool,
			Message:  err.Error(),
			ExitCode: toolErr.ExitCode,
			Err:      err,
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Failure{Kind: FailureCancelled, Message: err.Error(), Err: err}
	default:
		return &Failure{Kind: FailureInternal, Message: err.Error(), Err: err}
	}
}
