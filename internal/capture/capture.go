// Package capture records 16-bit mono audio from a capture device.
package capture

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

const defaultBuffer = 64

// Config selects the capture device and format.
type Config struct {
	SampleRate int
	// DeviceIndex selects a device from ListDevices. A negative value, or an
	// index past the end of the list, uses the default device.
	DeviceIndex int
	// Buffer is the number of callback chunks queued before new audio is
	// dropped.
	Buffer int
}

// DeviceInfo names one capture device.
type DeviceInfo struct {
	Index int
	Name  string
}

// Device delivers captured pcm_s16le chunks on a channel. The capture
// callback never blocks: when the consumer falls behind chunks are dropped
// and counted.
type Device struct {
	log    *slog.Logger
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	chunks chan []byte

	dropped   atomic.Uint64
	closeOnce sync.Once
}

func backends() []malgo.Backend {
	switch runtime.GOOS {
	case "windows":
		return []malgo.Backend{malgo.BackendWinmm}
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	}
	return nil
}

// Open initialises the capture device. Call Start to begin recording and
// Close to release it.
func Open(cfg Config, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("capture: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	log := logger.With("component", "capture")

	mctx, err := malgo.InitContext(backends(), malgo.ContextConfig{}, func(message string) {
		log.Debug("audio backend", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("capture: init context: %w", err)
	}

	d := &Device{
		log:    log,
		ctx:    mctx,
		chunks: make(chan []byte, cfg.Buffer),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	if cfg.DeviceIndex >= 0 {
		infos, err := mctx.Devices(malgo.Capture)
		if err != nil {
			d.freeContext()
			return nil, fmt.Errorf("capture: list devices: %w", err)
		}
		if cfg.DeviceIndex < len(infos) {
			deviceConfig.Capture.DeviceID = infos[cfg.DeviceIndex].ID.Pointer()
			log.Info("using capture device", "index", cfg.DeviceIndex, "name", deviceName(infos[cfg.DeviceIndex]))
		} else {
			log.Warn("capture device index out of range; using default device",
				"index", cfg.DeviceIndex,
				"devices", len(infos),
			)
		}
	}

	dev, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: d.onData})
	if err != nil {
		d.freeContext()
		return nil, fmt.Errorf("capture: init device: %w", err)
	}
	d.dev = dev
	return d, nil
}

// Start begins delivering audio.
func (d *Device) Start() error {
	if err := d.dev.Start(); err != nil {
		return fmt.Errorf("capture: start device: %w", err)
	}
	return nil
}

// Chunks is closed by Close.
func (d *Device) Chunks() <-chan []byte { return d.chunks }

// Dropped returns the number of chunks discarded because the consumer was
// too slow.
func (d *Device) Dropped() uint64 { return d.dropped.Load() }

// Close stops capture, releases the device and closes the chunk channel.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		if d.dev != nil {
			d.dev.Uninit()
		}
		d.freeContext()
		close(d.chunks)
		if n := d.dropped.Load(); n > 0 {
			d.log.Warn("capture chunks dropped", "count", n)
		}
	})
	return nil
}

func (d *Device) freeContext() {
	if d.ctx == nil {
		return
	}
	_ = d.ctx.Uninit()
	d.ctx.Free()
	d.ctx = nil
}

// onData runs on the audio thread. The input buffer is reused by the backend
// and must be copied.
func (d *Device) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	chunk := make([]byte, len(input))
	copy(chunk, input)
	select {
	case d.chunks <- chunk:
	default:
		d.dropped.Add(1)
	}
}

// ListDevices returns the available capture devices.
func ListDevices() ([]DeviceInfo, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: init context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("capture: list devices: %w", err)
	}
	out := make([]DeviceInfo, len(infos))
	for i, info := range infos {
		out[i] = DeviceInfo{Index: i, Name: deviceName(info)}
	}
	return out, nil
}

func deviceName(info malgo.DeviceInfo) string {
	return strings.ReplaceAll(info.Name(), "\x00", "")
}
