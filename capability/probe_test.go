package capability

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mkazuta/mediacrop/toolexec"
)

// fakeRunner returns a scripted outcome and records invocations.
type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	gotName string
	gotArgs []string

	outcome toolexec.Outcome
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (toolexec.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotName = name
	f.gotArgs = args
	return f.outcome, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const versionBanner = "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers\nbuilt with gcc\n"

func TestProbe_Available(t *testing.T) {
	runner := &fakeRunner{outcome: toolexec.Outcome{Stdout: versionBanner}}
	p := NewProbe(runner, "")

	st := p.Status(context.Background())
	if !st.Available() {
		t.Fatalf("expected available, got %+v", st)
	}
	if st.Version != "6.1.1" {
		t.Errorf("expected version 6.1.1, got %q", st.Version)
	}
	if runner.gotName != "ffmpeg" {
		t.Errorf("expected default binary ffmpeg, got %q", runner.gotName)
	}
	if len(runner.gotArgs) != 1 || runner.gotArgs[0] != "-version" {
		t.Errorf("expected version query args, got %v", runner.gotArgs)
	}
}

func TestProbe_SpawnFailureMapsToUnavailable(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exec: \"ffmpeg\": executable file not found in $PATH")}
	p := NewProbe(runner, "ffmpeg")

	st := p.Status(context.Background())
	if st.Available() {
		t.Fatal("expected unavailable status")
	}
	if st.Detail == "" {
		t.Error("expected a diagnostic detail")
	}
	if st.Guidance == "" {
		t.Error("expected installation guidance")
	}
}

func TestProbe_NonZeroExitMapsToUnavailable(t *testing.T) {
	runner := &fakeRunner{outcome: toolexec.Outcome{ExitCode: 127, Stderr: "not found\n"}}
	p := NewProbe(runner, "ffmpeg")

	st := p.Status(context.Background())
	if st.Available() {
		t.Fatal("expected unavailable status")
	}
	if !strings.Contains(st.Detail, "127") {
		t.Errorf("detail should carry the exit code, got %q", st.Detail)
	}
}

func TestProbe_StatusIsCached(t *testing.T) {
	runner := &fakeRunner{outcome: toolexec.Outcome{Stdout: versionBanner}}
	p := NewProbe(runner, "ffmpeg")

	first := p.Status(context.Background())
	second := p.Status(context.Background())

	if runner.callCount() != 1 {
		t.Errorf("expected exactly one probe invocation, got %d", runner.callCount())
	}
	if first != second {
		t.Errorf("cached statuses differ: %+v vs %+v", first, second)
	}
}

func TestProbe_ReprobeRefreshes(t *testing.T) {
	runner := &fakeRunner{err: errors.New("binary missing")}
	p := NewProbe(runner, "ffmpeg")

	if st := p.Status(context.Background()); st.Available() {
		t.Fatal("expected unavailable before install")
	}

	// Simulate the tool appearing on PATH, then force a re-probe.
	runner.mu.Lock()
	runner.err = nil
	runner.outcome = toolexec.Outcome{Stdout: versionBanner}
	runner.mu.Unlock()

	if st := p.Status(context.Background()); st.Available() {
		t.Fatal("plain Status must not silently refresh the cache")
	}
	if st := p.Reprobe(context.Background()); !st.Available() {
		t.Fatalf("expected available after reprobe, got %+v", st)
	}
	if runner.callCount() != 2 {
		t.Errorf("expected two probe invocations, got %d", runner.callCount())
	}
}

func TestProbe_ConcurrentReadsDuringReprobe(t *testing.T) {
	runner := &fakeRunner{outcome: toolexec.Outcome{Stdout: versionBanner}}
	p := NewProbe(runner, "ffmpeg")
	p.Status(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Status(context.Background())
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = p.Reprobe(context.Background())
	}()
	wg.Wait()
}

func TestProbe_TimeoutOption(t *testing.T) {
	p := NewProbe(&fakeRunner{}, "ffmpeg", WithTimeout(250*time.Millisecond))
	if p.timeout != 250*time.Millisecond {
		t.Errorf("expected timeout override, got %v", p.timeout)
	}

	// Non-positive values keep the default.
	p = NewProbe(&fakeRunner{}, "ffmpeg", WithTimeout(0))
	if p.timeout != DefaultProbeTimeout {
		t.Errorf("expected default timeout, got %v", p.timeout)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{versionBanner, "6.1.1"},
		{"ffmpeg version n7.0-29-g1234 Copyright\n", "n7.0-29-g1234"},
		{"garbage output", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := parseVersion(tc.in); got != tc.want {
			t.Errorf("parseVersion(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInstallGuidancePerPlatform(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "brew install ffmpeg"},
		{"linux", "apt install ffmpeg"},
		{"windows", "winget"},
		{"plan9", "ffmpeg.org"},
	}
	for _, tc := range tests {
		if got := installGuidanceFor(tc.goos); !strings.Contains(got, tc.want) {
			t.Errorf("installGuidanceFor(%q) = %q, want it to mention %q", tc.goos, got, tc.want)
		}
	}
}
