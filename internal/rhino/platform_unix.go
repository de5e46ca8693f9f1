//go:build unix

package rhino

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

func detectPlatform() (Platform, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return Platform{}, fmt.Errorf("rhino: uname: %w", err)
	}
	machine := unix.ByteSliceToString(uts.Machine[:])

	if runtime.GOOS != "linux" {
		return Platform{OS: runtime.GOOS, Machine: machine}, nil
	}

	var cpuinfo []byte
	if machine != "x86_64" {
		data, err := os.ReadFile("/proc/cpuinfo")
		if err != nil {
			return Platform{}, fmt.Errorf("rhino: read cpuinfo: %w", err)
		}
		cpuinfo = data
	}
	resolved, err := linuxMachine(machine, string(cpuinfo))
	if err != nil {
		return Platform{}, err
	}
	return Platform{OS: "linux", Machine: resolved}, nil
}
