//go:build !cgo

package rhino

// NativeAvailable reports whether the dynamic loader backend is compiled in.
func NativeAvailable() bool { return false }

func loadNativeLibrary(string) (Library, error) {
	return nil, ErrNativeUnavailable
}
