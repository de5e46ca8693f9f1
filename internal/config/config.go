package config

import (
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultListenAddr is used when the adapter runner does not inject an explicit address.
	DefaultListenAddr          = "127.0.0.1:50051"
	DefaultLogLevel            = "info"
	DefaultAssetDir            = "resources"
	DefaultSensitivity         = 0.5
	DefaultEndpointDurationSec = 1.0
	DefaultStubFinalizeFrames  = 30
)

// Config captures bootstrap configuration gathered from an optional YAML
// file, the injected JSON payload (`NUPI_MODULE_CONFIG`) and environment
// variables.
type Config struct {
	ListenAddr  string
	LogLevel    string
	MetricsAddr string

	AccessKey   string
	AssetDir    string
	LibraryPath string
	ModelPath   string
	ContextPath string

	Sensitivity         float32
	EndpointDurationSec float32
	RequireEndpoint     bool

	UseStubEngine bool
	// StubFinalizeFrames is how many frames the stub engine consumes per
	// utterance.
	StubFinalizeFrames int
}

// Validate applies defaults, checks required fields, and rejects out-of-range
// values. Engine assets are only required when the native engine is used.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	if c.AssetDir == "" {
		c.AssetDir = DefaultAssetDir
	}
	if c.StubFinalizeFrames == 0 {
		c.StubFinalizeFrames = DefaultStubFinalizeFrames
	}
	if c.StubFinalizeFrames < 0 {
		return fmt.Errorf("config: stub_finalize_frames must be > 0, got %d", c.StubFinalizeFrames)
	}
	if isNaN(c.Sensitivity) || c.Sensitivity < 0 || c.Sensitivity > 1 {
		return fmt.Errorf("config: sensitivity must be within [0, 1], got %v", c.Sensitivity)
	}
	if isNaN(c.EndpointDurationSec) || c.EndpointDurationSec < 0.5 || c.EndpointDurationSec > 5 {
		return fmt.Errorf("config: endpoint_duration_sec must be within [0.5, 5], got %v", c.EndpointDurationSec)
	}
	if c.UseStubEngine {
		return nil
	}
	if c.AccessKey == "" {
		return fmt.Errorf("config: access key is required (PV_ACCESS_KEY)")
	}
	if c.ContextPath == "" {
		return fmt.Errorf("config: context path is required (RHINO_CONTEXT_PATH)")
	}
	return nil
}

func isNaN(v float32) bool { return math.IsNaN(float64(v)) }
