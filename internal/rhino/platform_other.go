//go:build !unix && !windows

package rhino

import (
	"fmt"
	"runtime"
)

func detectPlatform() (Platform, error) {
	return Platform{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
}
