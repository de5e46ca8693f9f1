package rhino

import (
	"fmt"
	"sync"
)

// InitParams are the arguments handed to the engine init entry point.
type InitParams struct {
	AccessKey           string
	ModelPath           string
	ContextPath         string
	Sensitivity         float32
	EndpointDurationSec float32
	RequireEndpoint     bool
}

// Library is the engine entry-point table. Strings and arrays returned by the
// engine are copied into Go memory before a method returns.
type Library interface {
	SetSDK(name string)
	Init(params InitParams) (Instance, Status)
	Version() string
	FrameLength() int
	SampleRate() int
	// ErrorStack drains the engine's diagnostic buffer.
	ErrorStack() ([]string, Status)
}

// Instance is a single engine handle. Implementations are not safe for
// concurrent use.
type Instance interface {
	Process(pcm []int16) (bool, Status)
	IsUnderstood() (bool, Status)
	// GetIntent copies the intent and slots out of the engine and releases
	// the engine-owned slot arrays before returning.
	GetIntent() (string, map[string]string, Status)
	Reset() Status
	ContextInfo() (string, Status)
	Delete()
}

var libraries = struct {
	sync.Mutex
	byPath map[string]Library
}{byPath: make(map[string]Library)}

// OpenLibrary loads the engine shared library at path. Each path is loaded at
// most once per process.
func OpenLibrary(path string) (Library, error) {
	libraries.Lock()
	defer libraries.Unlock()

	if lib, ok := libraries.byPath[path]; ok {
		return lib, nil
	}
	lib, err := loadNativeLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("rhino: load library %s: %w", path, err)
	}
	libraries.byPath[path] = lib
	return lib, nil
}
