// Package mediacrop is a media region-extraction core: it crops images
// natively and trims or crops videos by delegating to an external
// command-line tool (ffmpeg), degrading gracefully when that tool is absent.
//
// The Router is the single entry point for host applications. Image requests
// are served in-process with no external dependencies; video requests are
// dispatched to the external tool only when the capability probe reports it
// available.
package mediacrop

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/mkazuta/mediacrop/capability"
	"github.com/mkazuta/mediacrop/config"
	"github.com/mkazuta/mediacrop/imagecrop"
	"github.com/mkazuta/mediacrop/storage"
	"github.com/mkazuta/mediacrop/toolexec"
	"github.com/mkazuta/mediacrop/videotrim"
)

// MediaReference identifies one input file. It is created by the caller and
// read-only to the core; paths are expected to exist and be readable.
type MediaReference struct {
	// Path is the location of the input file.
	Path string `validate:"required"`
	// Kind is the media kind when the caller already knows it. Left empty,
	// the Router detects it by sniffing content first, then extension.
	Kind Kind
	// Size is the input size in bytes, informational.
	Size int64
}

// Params carries the crop and/or trim parameters for one request.
type Params struct {
	// Crop is the pixel region to extract. Required for images; optional
	// spatial restriction for videos.
	Crop *imagecrop.Region `validate:"omitempty"`
	// Trim is the temporal range to extract. Required for videos, ignored
	// for images.
	Trim *videotrim.Range `validate:"omitempty"`
	// Duration is the known source duration in seconds, when the caller has
	// it. Zero means the dispatcher probes it.
	Duration float64 `validate:"gte=0"`
}

// Result is the successful outcome of Process: exactly one of Image and
// Video is set, matching Kind. The core retains no reference to it.
type Result struct {
	Kind Kind
	// Image is the cropped pixel buffer for image inputs.
	Image *image.NRGBA
	// Video is the trimmed artifact for video inputs. The caller owns the
	// file and is responsible for removing it.
	Video *videotrim.Artifact
}

// Router inspects an input's media kind and routes the request to the image
// crop engine or the video trim dispatcher. It holds no per-request state;
// concurrent Process calls are independent.
type Router struct {
	probe      *capability.Probe
	dispatcher *videotrim.Dispatcher
	store      storage.Storage
	validate   *validator.Validate
	logger     *slog.Logger
}

// New wires a Router from configuration: storage backend, capability probe
// and trim dispatcher, sharing one subprocess runner.
func New(cfg *config.Config, logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := newStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	runner := toolexec.NewExecRunner()
	probe := capability.NewProbe(runner, cfg.FFmpegPath,
		capability.WithTimeout(cfg.ProbeTimeout),
		capability.WithLogger(logger),
	)
	dispatcher := videotrim.NewDispatcher(runner, probe,
		videotrim.WithFFmpegPath(cfg.FFmpegPath),
		videotrim.WithFFprobePath(cfg.FFprobePath),
		videotrim.WithTempStore(store),
		videotrim.WithTimeout(cfg.TrimTimeout),
		videotrim.WithLogger(logger),
	)

	return NewRouter(probe, dispatcher, store, logger), nil
}

// NewRouter assembles a Router from explicit components. Tests substitute a
// probe with a fake runner or a dispatcher with a scripted one.
func NewRouter(probe *capability.Probe, dispatcher *videotrim.Dispatcher, store storage.Storage, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		probe:      probe,
		dispatcher: dispatcher,
		store:      store,
		validate:   validator.New(),
		logger:     logger,
	}
}

func newStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3(cfg.TempDir, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 artifact publication configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}
	return storage.NewLocal(cfg.TempDir)
}

// Capability returns the cached status of the external video tool, probing
// on first use. Hosts call this once at startup and surface an Unavailable
// status as a non-fatal warning.
func (r *Router) Capability(ctx context.Context) capability.Status {
	return r.probe.Status(ctx)
}

// RecheckCapability forces a fresh probe, e.g. after the host changed PATH.
func (r *Router) RecheckCapability(ctx context.Context) capability.Status {
	return r.probe.Reprobe(ctx)
}

// Process routes one request to the image crop engine or the video trim
// dispatcher. Every failure is returned as a *Failure; no component error
// escapes unclassified.
func (r *Router) Process(ctx context.Context, ref MediaReference, params Params) (*Result, error) {
	if err := r.validate.Struct(ref); err != nil {
		return nil, &Failure{Kind: FailureInternal, Message: err.Error(), Err: err}
	}
	if err := r.validate.Struct(params); err != nil {
		return nil, r.classifyValidation(params, err)
	}

	kind := ref.Kind
	if kind == "" || kind == KindUnknown {
		kind = DetectKind(ref.Path)
	}

	switch kind {
	case KindImage:
		return r.processImage(ref, params)
	case KindVideo:
		return r.processVideo(ctx, ref, params)
	default:
		return nil, &Failure{
			Kind:    FailureUnknownMediaKind,
			Message: fmt.Sprintf("cannot determine media kind of %s", ref.Path),
		}
	}
}

func (r *Router) processImage(ref MediaReference, params Params) (*Result, error) {
	if params.Crop == nil {
		return nil, &Failure{
			Kind:    FailureInvalidRegion,
			Message: "image request without a crop region",
		}
	}

	f, err := os.Open(ref.Path)
	if err != nil {
		return nil, classify(fmt.Errorf("open %s: %w", ref.Path, err))
	}
	defer func() { _ = f.Close() }()

	img, err := imagecrop.Decode(f)
	if err != nil {
		return nil, classify(err)
	}

	cropped, err := imagecrop.Crop(img, *params.Crop)
	if err != nil {
		return nil, classify(err)
	}

	r.logger.Debug("image cropped",
		slog.String("path", ref.Path),
		slog.Int("width", params.Crop.Width),
		slog.Int("height", params.Crop.Height),
	)
	return &Result{Kind: KindImage, Image: cropped}, nil
}

func (r *Router) processVideo(ctx context.Context, ref MediaReference, params Params) (*Result, error) {
	if params.Trim == nil {
		return nil, &Failure{
			Kind:    FailureInvalidTimeRange,
			Message: "video request without a time range",
		}
	}

	req := videotrim.Request{
		Input:    ref.Path,
		Range:    *params.Trim,
		Duration: params.Duration,
	}
	if params.Crop != nil {
		req.Crop = &videotrim.CropRect{
			X:      params.Crop.X,
			Y:      params.Crop.Y,
			Width:  params.Crop.Width,
			Height: params.Crop.Height,
		}
	}

	artifact, err := r.dispatcher.Trim(ctx, req)
	if err != nil {
		f := classify(err)
		if f.Kind == FailureDependencyUnavailable {
			f.Guidance = capability.InstallGuidance()
		}
		return nil, f
	}
	return &Result{Kind: KindVideo, Video: artifact}, nil
}

// SaveImage encodes a cropped image as PNG into the storage workspace and
// returns the file's path. The name hint keeps the temp file recognizable;
// the caller owns the file.
func (r *Router) SaveImage(ctx context.Context, img *image.NRGBA, name string) (string, error) {
	if img == nil {
		return "", fmt.Errorf("save image: nil image")
	}
	if name == "" {
		name = "crop"
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	path, err := r.store.SaveTemp(ctx, name, &buf)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}

	r.logger.Debug("image saved",
		slog.String("path", path),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()),
	)
	return path, nil
}

// Publish uploads a trim artifact through the configured storage backend and
// returns its URL. With local-only storage it fails with
// storage.ErrRemoteNotConfigured.
func (r *Router) Publish(ctx context.Context, artifact *videotrim.Artifact) (string, error) {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	url, err := r.store.Publish(ctx, filepath.Base(artifact.Path), f)
	if err != nil {
		return "", err
	}

	r.logger.Info("artifact published",
		slog.String("path", artifact.Path),
		slog.String("url", url),
	)
	return url, nil
}

// classifyValidation maps a request validation error onto the failure kind
// of the offending parameter block.
func (r *Router) classifyValidation(params Params, err error) *Failure {
	if params.Trim != nil {
		if vErr := r.validate.Struct(*params.Trim); vErr != nil {
			return &Failure{Kind: FailureInvalidTimeRange, Message: vErr.Error(), Err: err}
		}
	}
	return &Failure{Kind: FailureInvalidRegion, Message: err.Error(), Err: err}
}
