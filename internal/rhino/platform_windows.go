//go:build windows

package rhino

import "runtime"

func detectPlatform() (Platform, error) {
	return Platform{OS: "windows", Machine: runtime.GOARCH}, nil
}
