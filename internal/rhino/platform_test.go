package rhino

import (
	"errors"
	"path/filepath"
	"testing"
)

const piCPUInfo = `processor	: 0
model name	: ARMv7 Processor rev 4 (v7l)
CPU implementer	: 0x41
CPU architecture: 7
CPU variant	: 0x0
CPU part	: 0xD08
CPU revision	: 3
`

func cpuInfoWithPart(part string) string {
	return "processor\t: 0\nCPU part\t: " + part + "\n"
}

func TestLinuxMachine(t *testing.T) {
	cases := []struct {
		machine string
		cpuinfo string
		want    string
	}{
		{"x86_64", "", "x86_64"},
		{"armv7l", piCPUInfo, "cortex-a72"},
		{"aarch64", piCPUInfo, "cortex-a72-aarch64"},
		{"armv6l", cpuInfoWithPart("0xb76"), "arm11"},
		{"armv7l", cpuInfoWithPart("0xc07"), "cortex-a7"},
		{"aarch64", cpuInfoWithPart("0xd03"), "cortex-a53-aarch64"},
		{"aarch64", cpuInfoWithPart("0xd07"), "cortex-a57-aarch64"},
		{"armv7l", cpuInfoWithPart("0xc08"), "beaglebone"},
		{"armv7l", cpuInfoWithPart("0xfff"), "arm11"},
	}
	for _, tc := range cases {
		got, err := linuxMachine(tc.machine, tc.cpuinfo)
		if err != nil {
			t.Fatalf("linuxMachine(%q) error: %v", tc.machine, err)
		}
		if got != tc.want {
			t.Fatalf("linuxMachine(%q) = %q, want %q", tc.machine, got, tc.want)
		}
	}
}

func TestLinuxMachineUnsupported(t *testing.T) {
	if _, err := linuxMachine("riscv64", ""); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform for riscv64, got %v", err)
	}
	if _, err := linuxMachine("aarch64", cpuInfoWithPart("0xfff")); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform for unknown aarch64 part, got %v", err)
	}
	if _, err := linuxMachine("aarch64", "processor : 0\n"); err == nil {
		t.Fatalf("expected error when cpu part is missing")
	}
}

func TestLibraryRelPath(t *testing.T) {
	cases := []struct {
		platform Platform
		want     string
	}{
		{Platform{"linux", "x86_64"}, "lib/linux/x86_64/libpv_rhino.so"},
		{Platform{"linux", "cortex-a72-aarch64"}, "lib/raspberry-pi/cortex-a72-aarch64/libpv_rhino.so"},
		{Platform{"linux", "arm11"}, "lib/raspberry-pi/arm11/libpv_rhino.so"},
		{Platform{"linux", "cortex-a57-aarch64"}, "lib/jetson/cortex-a57-aarch64/libpv_rhino.so"},
		{Platform{"linux", "beaglebone"}, "lib/beaglebone/libpv_rhino.so"},
		{Platform{"darwin", "x86_64"}, "lib/mac/x86_64/libpv_rhino.dylib"},
		{Platform{"darwin", "arm64"}, "lib/mac/arm64/libpv_rhino.dylib"},
		{Platform{"windows", "amd64"}, "lib/windows/amd64/libpv_rhino.dll"},
	}
	for _, tc := range cases {
		got, err := LibraryRelPath(tc.platform)
		if err != nil {
			t.Fatalf("LibraryRelPath(%+v) error: %v", tc.platform, err)
		}
		if got != tc.want {
			t.Fatalf("LibraryRelPath(%+v) = %q, want %q", tc.platform, got, tc.want)
		}
	}

	for _, p := range []Platform{{"freebsd", "amd64"}, {"linux", "cortex-a57"}, {"windows", "arm64"}} {
		if _, err := LibraryRelPath(p); !errors.Is(err, ErrUnsupportedPlatform) {
			t.Fatalf("expected ErrUnsupportedPlatform for %+v, got %v", p, err)
		}
	}
}

func TestDefaultModelPath(t *testing.T) {
	want := filepath.Join("assets", "lib", "common", "rhino_params.pv")
	if got := DefaultModelPath("assets"); got != want {
		t.Fatalf("DefaultModelPath = %q, want %q", got, want)
	}
}

func TestCurrentPlatformIsCached(t *testing.T) {
	p1, err1 := CurrentPlatform()
	p2, err2 := CurrentPlatform()
	if p1 != p2 || (err1 == nil) != (err2 == nil) {
		t.Fatalf("CurrentPlatform changed between calls: %+v/%v vs %+v/%v", p1, err1, p2, err2)
	}
}
