package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/config"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
)

// ErrNativeEngineUnavailable indicates that the native backend was not built in.
var ErrNativeEngineUnavailable = errors.New("engine: native backend unavailable")

// Factory opens sessions for incoming streams.
type Factory struct {
	log  *slog.Logger
	lib  rhino.Library
	opts rhino.Options

	stubFrames int
}

// New resolves engine assets and loads the native library. The returned
// Factory is never nil: when the native engine cannot be used it produces
// stub sessions and the cause is returned alongside.
func New(cfg config.Config, logger *slog.Logger) (*Factory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "engine.factory")
	stub := newStubFactory(cfg, logger)

	if cfg.UseStubEngine {
		logger.Warn("stub engine forced by configuration")
		return stub, nil
	}
	if !rhino.NativeAvailable() {
		logger.Warn("native backend disabled at build time; using stub engine")
		return stub, ErrNativeEngineUnavailable
	}

	return newNative(cfg, logger, stub, rhino.OpenLibrary)
}

func newNative(cfg config.Config, logger *slog.Logger, stub *Factory, load func(string) (rhino.Library, error)) (*Factory, error) {
	opts, err := resolveOptions(cfg)
	if err != nil {
		logger.Warn("engine assets unavailable; using stub engine", "error", err)
		return stub, err
	}

	lib, err := load(opts.LibraryPath)
	if err != nil {
		logger.Error("native library load failed; using stub", "error", err, "library_path", opts.LibraryPath)
		return stub, err
	}

	logger.Info("native engine ready",
		"version", lib.Version(),
		"library_path", opts.LibraryPath,
		"model_path", opts.ModelPath,
		"context_path", opts.ContextPath,
	)
	return &Factory{log: logger, lib: lib, opts: opts}, nil
}

// NewWithLibrary returns a Factory backed by an already loaded library.
// Asset paths in cfg are used as given.
func NewWithLibrary(lib rhino.Library, cfg config.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		log:  logger,
		lib:  lib,
		opts: sessionOptions(cfg),
	}
}

func newStubFactory(cfg config.Config, logger *slog.Logger) *Factory {
	frames := cfg.StubFinalizeFrames
	if frames <= 0 {
		frames = config.DefaultStubFinalizeFrames
	}
	return &Factory{log: logger, stubFrames: frames}
}

// Native reports whether sessions are backed by the engine library.
func (f *Factory) Native() bool { return f.lib != nil }

// ContextName is the file name of the configured context, or "stub".
func (f *Factory) ContextName() string {
	if f.lib == nil {
		return "stub"
	}
	return filepath.Base(f.opts.ContextPath)
}

// NewSession opens a session for one stream.
func (f *Factory) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.lib == nil {
		return NewStubSession(f.log, f.stubFrames), nil
	}
	opts := f.opts
	opts.Logger = f.log
	session, err := rhino.OpenWithLibrary(f.lib, opts)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func sessionOptions(cfg config.Config) rhino.Options {
	return rhino.Options{
		AccessKey:           cfg.AccessKey,
		LibraryPath:         cfg.LibraryPath,
		ModelPath:           cfg.ModelPath,
		ContextPath:         cfg.ContextPath,
		Sensitivity:         cfg.Sensitivity,
		EndpointDurationSec: cfg.EndpointDurationSec,
		RequireEndpoint:     cfg.RequireEndpoint,
	}
}

// resolveOptions fills library and model paths from the asset directory when
// they are not configured explicitly.
func resolveOptions(cfg config.Config) (rhino.Options, error) {
	opts := sessionOptions(cfg)
	if opts.LibraryPath == "" {
		path, err := rhino.DefaultLibraryPath(cfg.AssetDir)
		if err != nil {
			return rhino.Options{}, fmt.Errorf("engine: resolve library: %w", err)
		}
		opts.LibraryPath = path
	}
	if opts.ModelPath == "" {
		opts.ModelPath = rhino.DefaultModelPath(cfg.AssetDir)
	}
	return opts, nil
}
