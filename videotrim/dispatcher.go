// Package videotrim extracts temporal (and optionally spatial) subranges of
// video files by delegating to the external video tool as a child process.
// It depends only on the tool's command-line conventions, exit codes and
// stderr text; there is no library linkage, so the tool stays swappable.
package videotrim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mkazuta/mediacrop/capability"
	"github.com/mkazuta/mediacrop/toolexec"
)

// Static errors for trim operations.
var (
	// ErrDependencyUnavailable is returned when the external video tool is
	// not usable. No child process is spawned in that case.
	ErrDependencyUnavailable = errors.New("external video tool unavailable")
	// ErrInvalidTimeRange is returned when the requested range violates
	// 0 <= start < end <= duration.
	ErrInvalidTimeRange = errors.New("invalid time range")
	// ErrInvalidCrop is returned when the crop rectangle does not lie within
	// the source video dimensions.
	ErrInvalidCrop = errors.New("crop rectangle out of video bounds")
	// ErrTimeout is returned when the child process exceeded the configured
	// ceiling and was killed.
	ErrTimeout = errors.New("external video tool timed out")
)

// ToolError reports a failed external tool invocation, carrying the exit
// code and captured stderr for diagnostics.
type ToolError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("external tool failed (exit %d): %v\nargs: %v\nstderr: %s",
		e.ExitCode, e.Err, e.Args, e.Stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Range is a temporal subrange in fractional seconds.
type Range struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtfield=Start"`
}

// Duration returns the nominal output duration.
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// CropRect is an optional spatial crop applied to every output frame, in
// pixel coordinates of the source video.
type CropRect struct {
	X      int `json:"x" validate:"gte=0"`
	Y      int `json:"y" validate:"gte=0"`
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

// Request describes one trim operation.
type Request struct {
	// Input is the path to the source video. Never overwritten.
	Input string
	// Range is the temporal subrange to extract.
	Range Range
	// Crop, when non-nil, restricts the output to a spatial region.
	Crop *CropRect
	// Duration is the known source duration in seconds. When zero it is
	// probed from the file before validation.
	Duration float64
}

// Artifact is the successful outcome of a trim: a fresh output file owned by
// the caller.
type Artifact struct {
	// Path is the location of the trimmed video.
	Path string
	// Duration is the output duration in seconds, probed from the artifact
	// when possible, nominal otherwise.
	Duration float64
}

// DefaultTrimTimeout bounds a single trim invocation.
const DefaultTrimTimeout = 5 * time.Minute

// StatusSource yields the current capability status of the external tool.
// *capability.Probe implements it; tests substitute a fixed status.
type StatusSource interface {
	Status(ctx context.Context) capability.Status
}

// TempStore is the slice of the storage port the dispatcher needs for its
// output workspace: where to write trim outputs and how to remove them on
// failure. storage.Storage implementations satisfy it.
type TempStore interface {
	TempDir() string
	CleanupTemp(ctx context.Context, paths []string) error
}

// FixedStatus is a StatusSource that always reports the same status.
type FixedStatus capability.Status

// Status implements StatusSource.
func (s FixedStatus) Status(context.Context) capability.Status {
	return capability.Status(s)
}

// Dispatcher builds, invokes and supervises external tool command lines for
// trim requests. One child process per Trim call; the dispatcher itself
// holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	runner      toolexec.Runner
	caps        StatusSource
	store       TempStore
	ffmpegPath  string
	ffprobePath string
	tempDir     string
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithFFmpegPath overrides the ffmpeg binary path.
func WithFFmpegPath(path string) Option {
	return func(d *Dispatcher) {
		if path != "" {
			d.ffmpegPath = path
		}
	}
}

// WithFFprobePath overrides the ffprobe binary path.
func WithFFprobePath(path string) Option {
	return func(d *Dispatcher) {
		if path != "" {
			d.ffprobePath = path
		}
	}
}

// WithTempDir sets the directory output artifacts are written to.
func WithTempDir(dir string) Option {
	return func(d *Dispatcher) {
		if dir != "" {
			d.tempDir = dir
		}
	}
}

// WithTempStore routes the output workspace through the given store: outputs
// are written to its TempDir and failure-path cleanup goes through
// CleanupTemp.
func WithTempStore(store TempStore) Option {
	return func(d *Dispatcher) {
		if store != nil {
			d.store = store
			d.tempDir = store.TempDir()
		}
	}
}

// WithTimeout overrides the per-invocation ceiling.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher. If runner is nil a real subprocess
// runner is used; caps must not be nil.
func NewDispatcher(runner toolexec.Runner, caps StatusSource, opts ...Option) *Dispatcher {
	if runner == nil {
		runner = toolexec.NewExecRunner()
	}
	d := &Dispatcher{
		runner:      runner,
		caps:        caps,
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		tempDir:     os.TempDir(),
		timeout:     DefaultTrimTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trim extracts req.Range (and optionally req.Crop) from the input into a
// fresh temporary output file. The temporary file is removed on every
// failure and cancellation path.
func (d *Dispatcher) Trim(ctx context.Context, req Request) (*Artifact, error) {
	st := d.caps.Status(ctx)
	if !st.Available() {
		return nil, fmt.Errorf("%w: %s. %s", ErrDependencyUnavailable, st.Detail, st.Guidance)
	}

	// One ceiling over the whole probe/validate/spawn sequence, so a wedged
	// metadata probe cannot hang the trim any more than the tool itself can.
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	duration := req.Duration
	if duration <= 0 {
		probed, err := d.ProbeDuration(runCtx, req.Input)
		if err != nil {
			if cerr := d.ceilingErr(ctx, runCtx); cerr != nil {
				return nil, cerr
			}
			return nil, fmt.Errorf("probe source duration: %w", err)
		}
		duration = probed
	}
	if err := validateRange(req.Range, duration); err != nil {
		return nil, err
	}
	if req.Crop != nil {
		if err := d.validateCrop(runCtx, req.Input, *req.Crop); err != nil {
			if cerr := d.ceilingErr(ctx, runCtx); cerr != nil {
				return nil, cerr
			}
			return nil, err
		}
	}

	output := d.outputPath(req.Input)
	args := buildTrimArgs(req, output)

	d.logger.Debug("invoking external video tool",
		slog.String("input", req.Input),
		slog.String("output", output),
		slog.Float64("start", req.Range.Start),
		slog.Float64("end", req.Range.End),
	)

	out, err := d.runner.Run(runCtx, d.ffmpegPath, args...)
	if err != nil {
		d.cleanup(output)
		if cerr := d.ceilingErr(ctx, runCtx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	if out.ExitCode != 0 {
		d.cleanup(output)
		return nil, &ToolError{
			Args:     args,
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
			Err:      fmt.Errorf("exit status %d", out.ExitCode),
		}
	}

	info, statErr := os.Stat(output)
	if statErr != nil || info.Size() == 0 {
		d.cleanup(output)
		return nil, &ToolError{
			Args:     args,
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
			Err:      errors.New("tool exited cleanly but produced no output"),
		}
	}

	artifact := &Artifact{Path: output, Duration: req.Range.Duration()}
	if probed, err := d.ProbeDuration(runCtx, output); err == nil {
		artifact.Duration = probed
	}

	d.logger.Info("trim complete",
		slog.String("output", output),
		slog.Float64("duration", artifact.Duration),
	)
	return artifact, nil
}

// validateRange enforces 0 <= start < end <= duration.
func validateRange(r Range, duration float64) error {
	if r.Start < 0 {
		return fmt.Errorf("%w: start %.3f is negative", ErrInvalidTimeRange, r.Start)
	}
	if r.End <= r.Start {
		return fmt.Errorf("%w: start %.3f, end %.3f", ErrInvalidTimeRange, r.Start, r.End)
	}
	if r.End > duration {
		return fmt.Errorf("%w: end %.3f exceeds duration %.3f", ErrInvalidTimeRange, r.End, duration)
	}
	return nil
}

// validateCrop checks the rectangle against the probed video dimensions.
func (d *Dispatcher) validateCrop(ctx context.Context, input string, c CropRect) error {
	if c.X < 0 || c.Y < 0 || c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: rect (%d,%d) %dx%d", ErrInvalidCrop, c.X, c.Y, c.Width, c.Height)
	}
	w, h, err := d.ProbeDimensions(ctx, input)
	if err != nil {
		return fmt.Errorf("probe source dimensions: %w", err)
	}
	if c.X+c.Width > w || c.Y+c.Height > h {
		return fmt.Errorf("%w: rect (%d,%d) %dx%d, video %dx%d",
			ErrInvalidCrop, c.X, c.Y, c.Width, c.Height, w, h)
	}
	return nil
}

// buildTrimArgs constructs the ffmpeg command line. Seeking with -ss before
// -i keeps the seek fast; -t carries the output duration; the output is
// always a fresh path, never the source.
func buildTrimArgs(req Request, output string) []string {
	args := []string{
		"-y",
		"-ss", formatSeconds(req.Range.Start),
		"-i", req.Input,
		"-t", formatSeconds(req.Range.Duration()),
	}
	if req.Crop != nil {
		filter := fmt.Sprintf("crop=%d:%d:%d:%d",
			req.Crop.Width, req.Crop.Height, req.Crop.X, req.Crop.Y)
		args = append(args, "-vf", filter)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		output,
	)
	return args
}

// formatSeconds renders a fractional-second offset with millisecond
// precision, the granularity the tool honors.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// outputPath returns a unique temporary path for the trim output. Unique
// names are what keep concurrent requests collision-free.
func (d *Dispatcher) outputPath(input string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(d.tempDir, fmt.Sprintf("trim-%s%s", uuid.NewString(), ext))
}

// ceilingErr maps context expiry during a supervised step onto the trim
// error model. Caller cancellation wins over the dispatcher's own ceiling.
func (d *Dispatcher) ceilingErr(ctx, runCtx context.Context) error {
	if ctx.Err() != nil {
		// Caller cancellation: the child was killed, not detached.
		return fmt.Errorf("trim cancelled: %w", ctx.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
	}
	return nil
}

// cleanup removes a failed or cancelled trim output, through the store when
// one is wired. Runs detached from the request context so cancellation never
// leaves the file behind.
func (d *Dispatcher) cleanup(path string) {
	var err error
	if d.store != nil {
		err = d.store.CleanupTemp(context.Background(), []string{path})
	} else if err = os.Remove(path); os.IsNotExist(err) {
		err = nil
	}
	if err != nil {
		d.logger.Warn("failed to remove temporary output",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
