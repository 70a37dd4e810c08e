// Package capability determines at runtime whether the external video tool
// (ffmpeg) is present and usable. Probing never fails the process: a missing
// or broken binary yields an Unavailable status with a human-readable
// diagnostic, so hosts can warn at startup and keep image-only workflows.
package capability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mkazuta/mediacrop/toolexec"
)

// State reports whether the external video tool can be used.
type State string

const (
	// StateAvailable means the tool responded to a version query.
	StateAvailable State = "available"
	// StateUnavailable means the tool could not be spawned or query it.
	StateUnavailable State = "unavailable"
)

// Status is the cached result of a probe.
type Status struct {
	// State is the availability of the external tool.
	State State
	// Version is the parsed tool version when available, e.g. "6.1.1".
	Version string
	// Detail is a human-readable diagnostic when unavailable.
	Detail string
	// Guidance is platform-specific installation guidance when unavailable.
	Guidance string
}

// Available reports whether video operations can be dispatched.
func (s Status) Available() bool {
	return s.State == StateAvailable
}

// DefaultProbeTimeout bounds the version query so a broken PATH entry can
// never hang a caller.
const DefaultProbeTimeout = 3 * time.Second

// Probe lazily computes and caches the availability of the external video
// tool. The cached status is recomputed only on an explicit Reprobe, never
// silently mid-session. Safe for concurrent use.
type Probe struct {
	runner  toolexec.Runner
	binary  string
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	probed bool
	status Status
}

// Option configures a Probe.
type Option func(*Probe)

// WithTimeout overrides the version-query timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Probe) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger used for probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Probe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProbe creates a Probe for the given tool binary. If binary is empty it
// defaults to "ffmpeg" (resolved via PATH). If runner is nil, a real
// subprocess runner is used.
func NewProbe(runner toolexec.Runner, binary string, opts ...Option) *Probe {
	if runner == nil {
		runner = toolexec.NewExecRunner()
	}
	if binary == "" {
		binary = "ffmpeg"
	}
	p := &Probe{
		runner:  runner,
		binary:  binary,
		timeout: DefaultProbeTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Status returns the cached status, probing on first use.
func (p *Probe) Status(ctx context.Context) Status {
	p.mu.RLock()
	if p.probed {
		st := p.status
		p.mu.RUnlock()
		return st
	}
	p.mu.RUnlock()

	return p.Reprobe(ctx)
}

// Reprobe forces a fresh probe, replacing the cached status. Intended for
// explicit re-checks after the host changes PATH or installs the tool.
func (p *Probe) Reprobe(ctx context.Context) Status {
	st := p.run(ctx)

	p.mu.Lock()
	p.probed = true
	p.status = st
	p.mu.Unlock()

	if st.Available() {
		p.logger.Info("external video tool available",
			slog.String("binary", p.binary),
			slog.String("version", st.Version),
		)
	} else {
		p.logger.Warn("external video tool unavailable",
			slog.String("binary", p.binary),
			slog.String("detail", st.Detail),
		)
	}
	return st
}

// run executes the version query. It never returns an error: every failure
// mode is folded into an Unavailable status.
func (p *Probe) run(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.runner.Run(ctx, p.binary, "-version")
	if err != nil {
		return Status{
			State:    StateUnavailable,
			Detail:   fmt.Sprintf("version query failed: %v", err),
			Guidance: InstallGuidance(),
		}
	}
	if out.ExitCode != 0 {
		return Status{
			State:    StateUnavailable,
			Detail:   fmt.Sprintf("version query exited with code %d: %s", out.ExitCode, firstLine(out.Stderr)),
			Guidance: InstallGuidance(),
		}
	}

	return Status{
		State:   StateAvailable,
		Version: parseVersion(out.Stdout),
	}
}

// parseVersion extracts the version token from output shaped like
// "ffmpeg version 6.1.1 Copyright ...". Returns "" when the shape is
// unexpected; availability does not depend on parseability.
func parseVersion(stdout string) string {
	fields := strings.Fields(firstLine(stdout))
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
