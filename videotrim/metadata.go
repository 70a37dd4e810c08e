package videotrim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ProbeDuration queries the source duration in seconds via the external
// tool's metadata command.
func (d *Dispatcher) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	out, err := d.runner.Run(ctx, d.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("metadata query: %w", err)
	}
	if out.ExitCode != 0 {
		return 0, &ToolError{
			Args:     args,
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
			Err:      fmt.Errorf("exit status %d", out.ExitCode),
		}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(out.Stdout), err)
	}
	return duration, nil
}

// ProbeDimensions queries the width and height of the first video stream.
func (d *Dispatcher) ProbeDimensions(ctx context.Context, path string) (width, height int, err error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	}
	out, err := d.runner.Run(ctx, d.ffprobePath, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("metadata query: %w", err)
	}
	if out.ExitCode != 0 {
		return 0, 0, &ToolError{
			Args:     args,
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
			Err:      fmt.Errorf("exit status %d", out.ExitCode),
		}
	}

	if _, err := fmt.Sscanf(strings.TrimSpace(out.Stdout), "%dx%d", &width, &height); err != nil {
		return 0, 0, fmt.Errorf("parse dimensions %q: %w", strings.TrimSpace(out.Stdout), err)
	}
	return width, height, nil
}
