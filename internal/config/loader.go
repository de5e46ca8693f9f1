package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from a YAML file and environment variables.
// Tests can override Lookup and ReadFile to inject deterministic inputs.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
}

// fileConfig is shared by the YAML file and the JSON payload. Pointer fields
// distinguish "absent" from zero values.
type fileConfig struct {
	ListenAddr          string   `yaml:"listen_addr" json:"listen_addr"`
	LogLevel            string   `yaml:"log_level" json:"log_level"`
	MetricsAddr         string   `yaml:"metrics_addr" json:"metrics_addr"`
	AccessKey           string   `yaml:"access_key" json:"access_key"`
	AssetDir            string   `yaml:"asset_dir" json:"asset_dir"`
	LibraryPath         string   `yaml:"library_path" json:"library_path"`
	ModelPath           string   `yaml:"model_path" json:"model_path"`
	ContextPath         string   `yaml:"context_path" json:"context_path"`
	Sensitivity         *float32 `yaml:"sensitivity" json:"sensitivity"`
	EndpointDurationSec *float32 `yaml:"endpoint_duration_sec" json:"endpoint_duration_sec"`
	RequireEndpoint     *bool    `yaml:"require_endpoint" json:"require_endpoint"`
	UseStubEngine       *bool    `yaml:"use_stub_engine" json:"use_stub_engine"`
	StubFinalizeFrames  *int     `yaml:"stub_finalize_frames" json:"stub_finalize_frames"`
}

// Load retrieves the adapter configuration and validates it.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	cfg := Config{
		ListenAddr:          DefaultListenAddr,
		Sensitivity:         DefaultSensitivity,
		EndpointDurationSec: DefaultEndpointDurationSec,
		RequireEndpoint:     true,
	}

	if path, ok := l.Lookup("NUPI_CONFIG_FILE"); ok && strings.TrimSpace(path) != "" {
		raw, err := l.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var payload fileConfig
		if err := yaml.Unmarshal(raw, &payload); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
		payload.apply(&cfg)
	}

	if raw, ok := l.Lookup("NUPI_MODULE_CONFIG"); ok && strings.TrimSpace(raw) != "" {
		var payload fileConfig
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return Config{}, fmt.Errorf("config: decode NUPI_MODULE_CONFIG: %w", err)
		}
		payload.apply(&cfg)
	}

	overrideString(l.Lookup, "NUPI_ADAPTER_LISTEN_ADDR", &cfg.ListenAddr)
	overrideString(l.Lookup, "NUPI_LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "NUPI_METRICS_ADDR", &cfg.MetricsAddr)
	overrideString(l.Lookup, "PV_ACCESS_KEY", &cfg.AccessKey)
	overrideString(l.Lookup, "RHINO_ASSET_DIR", &cfg.AssetDir)
	overrideString(l.Lookup, "RHINO_LIBRARY_PATH", &cfg.LibraryPath)
	overrideString(l.Lookup, "RHINO_MODEL_PATH", &cfg.ModelPath)
	overrideString(l.Lookup, "RHINO_CONTEXT_PATH", &cfg.ContextPath)
	if err := overrideFloat(l.Lookup, "RHINO_SENSITIVITY", &cfg.Sensitivity); err != nil {
		return Config{}, err
	}
	if err := overrideFloat(l.Lookup, "RHINO_ENDPOINT_DURATION_SEC", &cfg.EndpointDurationSec); err != nil {
		return Config{}, err
	}
	if err := overrideBool(l.Lookup, "RHINO_REQUIRE_ENDPOINT", &cfg.RequireEndpoint); err != nil {
		return Config{}, err
	}
	if err := overrideBool(l.Lookup, "NUPI_USE_STUB_ENGINE", &cfg.UseStubEngine); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (p fileConfig) apply(cfg *Config) {
	setString(&cfg.ListenAddr, p.ListenAddr)
	setString(&cfg.LogLevel, p.LogLevel)
	setString(&cfg.MetricsAddr, p.MetricsAddr)
	setString(&cfg.AccessKey, p.AccessKey)
	setString(&cfg.AssetDir, p.AssetDir)
	setString(&cfg.LibraryPath, p.LibraryPath)
	setString(&cfg.ModelPath, p.ModelPath)
	setString(&cfg.ContextPath, p.ContextPath)
	if p.Sensitivity != nil {
		cfg.Sensitivity = *p.Sensitivity
	}
	if p.EndpointDurationSec != nil {
		cfg.EndpointDurationSec = *p.EndpointDurationSec
	}
	if p.RequireEndpoint != nil {
		cfg.RequireEndpoint = *p.RequireEndpoint
	}
	if p.UseStubEngine != nil {
		cfg.UseStubEngine = *p.UseStubEngine
	}
	if p.StubFinalizeFrames != nil {
		cfg.StubFinalizeFrames = *p.StubFinalizeFrames
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float32) error {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	*target = float32(parsed)
	return nil
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", key, err)
	}
	*target = parsed
	return nil
}
