package rhino

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupportedPlatform is returned when no engine library exists for the
// host OS and CPU.
var ErrUnsupportedPlatform = errors.New("rhino: unsupported platform")

const (
	libraryBaseName = "libpv_rhino"
	modelRelPath    = "lib/common/rhino_params.pv"
)

// Platform identifies the host for asset selection. Machine is the uname
// machine on macOS and Windows, and the resolved board/CPU name on Linux
// (e.g. "x86_64", "cortex-a72-aarch64", "beaglebone").
type Platform struct {
	OS      string
	Machine string
}

var (
	platformOnce sync.Once
	platformVal  Platform
	platformErr  error
)

// CurrentPlatform detects the host platform on first use and caches the
// result for the life of the process.
func CurrentPlatform() (Platform, error) {
	platformOnce.Do(func() {
		platformVal, platformErr = detectPlatform()
	})
	return platformVal, platformErr
}

// LibraryRelPath maps a platform to the engine library path relative to the
// asset root.
func LibraryRelPath(p Platform) (string, error) {
	switch p.OS {
	case "darwin":
		switch p.Machine {
		case "x86_64", "arm64":
			return "lib/mac/" + p.Machine + "/" + libraryBaseName + ".dylib", nil
		}
	case "linux":
		switch {
		case p.Machine == "x86_64":
			return "lib/linux/x86_64/" + libraryBaseName + ".so", nil
		case jetsonMachines[p.Machine]:
			return "lib/jetson/" + p.Machine + "/" + libraryBaseName + ".so", nil
		case raspberryPiMachines[p.Machine]:
			return "lib/raspberry-pi/" + p.Machine + "/" + libraryBaseName + ".so", nil
		case p.Machine == "beaglebone":
			return "lib/beaglebone/" + libraryBaseName + ".so", nil
		}
	case "windows":
		switch p.Machine {
		case "amd64", "x86_64":
			return "lib/windows/amd64/" + libraryBaseName + ".dll", nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, p.OS, p.Machine)
}

// DefaultLibraryPath returns the engine library for the current platform
// under root.
func DefaultLibraryPath(root string) (string, error) {
	p, err := CurrentPlatform()
	if err != nil {
		return "", err
	}
	rel, err := LibraryRelPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// DefaultModelPath returns the model parameters file under root.
func DefaultModelPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(modelRelPath))
}

var raspberryPiMachines = map[string]bool{
	"arm11":              true,
	"cortex-a7":          true,
	"cortex-a53":         true,
	"cortex-a72":         true,
	"cortex-a53-aarch64": true,
	"cortex-a72-aarch64": true,
}

var jetsonMachines = map[string]bool{
	"cortex-a57-aarch64": true,
}

// cpuPartNames maps the "CPU part" field of /proc/cpuinfo to board names.
var cpuPartNames = map[string]string{
	"0xb76": "arm11",
	"0xc07": "cortex-a7",
	"0xd03": "cortex-a53",
	"0xd07": "cortex-a57",
	"0xd08": "cortex-a72",
	"0xc08": "beaglebone",
}

// linuxMachine resolves the uname machine and /proc/cpuinfo contents to the
// name used in the asset tree.
func linuxMachine(machine, cpuinfo string) (string, error) {
	var suffix string
	switch machine {
	case "x86_64":
		return machine, nil
	case "aarch64":
		suffix = "-aarch64"
	case "armv7l", "armv6l":
	default:
		return "", fmt.Errorf("%w: cpu architecture %q", ErrUnsupportedPlatform, machine)
	}

	part := cpuPart(cpuinfo)
	if part == "" {
		return "", fmt.Errorf("rhino: cannot identify cpu part for %s", machine)
	}

	switch name := cpuPartNames[part]; name {
	case "arm11", "cortex-a7", "beaglebone":
		return name, nil
	case "cortex-a53", "cortex-a57", "cortex-a72":
		return name + suffix, nil
	}

	if machine == "armv7l" {
		slog.Warn("cpu is not officially supported; falling back to the arm11 library",
			"component", "rhino.platform",
			"cpu_part", part,
		)
		return "arm11", nil
	}
	return "", fmt.Errorf("%w: cpu part %s", ErrUnsupportedPlatform, part)
}

func cpuPart(cpuinfo string) string {
	scanner := bufio.NewScanner(strings.NewReader(cpuinfo))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "CPU part") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		return strings.ToLower(fields[len(fields)-1])
	}
	return ""
}
