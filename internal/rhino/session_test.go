package rhino_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino/rhinotest"
)

func writeAsset(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("asset"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	return path
}

func testOptions(t *testing.T) rhino.Options {
	t.Helper()
	dir := t.TempDir()
	return rhino.Options{
		AccessKey:           "test-access-key",
		ModelPath:           writeAsset(t, dir, "rhino_params.pv"),
		ContextPath:         writeAsset(t, dir, "coffee_maker_linux.rhn"),
		Sensitivity:         rhino.DefaultSensitivity,
		EndpointDurationSec: rhino.DefaultEndpointDurationSec,
		RequireEndpoint:     true,
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func openTestSession(t *testing.T, lib *rhinotest.Library) *rhino.Session {
	t.Helper()
	s, err := rhino.OpenWithLibrary(lib, testOptions(t))
	if err != nil {
		t.Fatalf("OpenWithLibrary error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func frame(s *rhino.Session) []int16 {
	return make([]int16, s.FrameLength())
}

// feedUntilFinalized processes up to max frames and returns the 1-based index
// of the frame that finalized, or 0.
func feedUntilFinalized(t *testing.T, s *rhino.Session, max int) int {
	t.Helper()
	for i := 1; i <= max; i++ {
		finalized, err := s.Process(frame(s))
		if err != nil {
			t.Fatalf("Process frame %d error: %v", i, err)
		}
		if finalized {
			return i
		}
	}
	return 0
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func TestOpenValidatesBeforeNativeCalls(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*rhino.Options)
	}{
		{"empty access key", func(o *rhino.Options) { o.AccessKey = "" }},
		{"missing model", func(o *rhino.Options) { o.ModelPath = filepath.Join(t.TempDir(), "missing.pv") }},
		{"missing context", func(o *rhino.Options) { o.ContextPath = filepath.Join(t.TempDir(), "missing.rhn") }},
		{"context is a directory", func(o *rhino.Options) { o.ContextPath = t.TempDir() }},
		{"sensitivity below range", func(o *rhino.Options) { o.Sensitivity = -0.1 }},
		{"sensitivity above range", func(o *rhino.Options) { o.Sensitivity = 1.1 }},
		{"endpoint below range", func(o *rhino.Options) { o.EndpointDurationSec = 0.4 }},
		{"endpoint above range", func(o *rhino.Options) { o.EndpointDurationSec = 5.1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lib := rhinotest.New()
			opts := testOptions(t)
			tc.mutate(&opts)

			_, err := rhino.OpenWithLibrary(lib, opts)
			assertKind(t, err, rhino.ErrInvalidArgument)

			var rerr *rhino.Error
			if !errors.As(err, &rerr) || len(rerr.MessageStack) != 0 {
				t.Fatalf("expected local error without stack, got %#v", err)
			}
			if lib.Calls(rhinotest.OpInit) != 0 || lib.SDK() != "" {
				t.Fatalf("engine touched during validation")
			}
		})
	}
}

func TestOpenAcceptsRangeBoundaries(t *testing.T) {
	lib := rhinotest.New()
	opts := testOptions(t)
	opts.Sensitivity = 1
	opts.EndpointDurationSec = rhino.MinEndpointDurationSec

	s, err := rhino.OpenWithLibrary(lib, opts)
	if err != nil {
		t.Fatalf("OpenWithLibrary error: %v", err)
	}
	defer s.Close()

	opts.Sensitivity = 0
	opts.EndpointDurationSec = rhino.MaxEndpointDurationSec
	s2, err := rhino.OpenWithLibrary(lib, opts)
	if err != nil {
		t.Fatalf("OpenWithLibrary error at upper bounds: %v", err)
	}
	defer s2.Close()
}

func TestOpenRequiresLibraryFile(t *testing.T) {
	opts := testOptions(t)
	opts.LibraryPath = filepath.Join(t.TempDir(), "libpv_rhino.so")

	_, err := rhino.Open(opts)
	assertKind(t, err, rhino.ErrInvalidArgument)
	if !strings.Contains(err.Error(), "engine library not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpenWithNilLibrary(t *testing.T) {
	_, err := rhino.OpenWithLibrary(nil, testOptions(t))
	assertKind(t, err, rhino.ErrInvalidArgument)
}

func TestOpenCachesEngineProperties(t *testing.T) {
	lib := rhinotest.New()
	lib.FrameLen = 480
	lib.Rate = 16000
	lib.VersionString = "3.0.1"

	s := openTestSession(t, lib)

	if s.FrameLength() != 480 || s.SampleRate() != 16000 || s.Version() != "3.0.1" {
		t.Fatalf("unexpected properties: frame=%d rate=%d version=%q", s.FrameLength(), s.SampleRate(), s.Version())
	}
	if s.ContextInfo() != rhinotest.DefaultContextInfo {
		t.Fatalf("unexpected context info: %q", s.ContextInfo())
	}
	if s.Phase() != rhino.PhaseListening {
		t.Fatalf("expected listening phase, got %s", s.Phase())
	}
	if lib.SDK() != "go" {
		t.Fatalf("expected sdk tag go, got %q", lib.SDK())
	}
	if lib.Calls(rhinotest.OpContextInfo) != 1 {
		t.Fatalf("expected one context info call, got %d", lib.Calls(rhinotest.OpContextInfo))
	}
}

func TestOpenPassesParameters(t *testing.T) {
	lib := rhinotest.New()
	opts := testOptions(t)
	opts.Sensitivity = 0.25
	opts.EndpointDurationSec = 2
	opts.RequireEndpoint = false

	var captured rhino.InitParams
	probe := &paramsProbe{Library: lib, params: &captured}
	s, err := rhino.OpenWithLibrary(probe, opts)
	if err != nil {
		t.Fatalf("OpenWithLibrary error: %v", err)
	}
	defer s.Close()

	want := rhino.InitParams{
		AccessKey:           opts.AccessKey,
		ModelPath:           opts.ModelPath,
		ContextPath:         opts.ContextPath,
		Sensitivity:         0.25,
		EndpointDurationSec: 2,
		RequireEndpoint:     false,
	}
	if captured != want {
		t.Fatalf("unexpected init params: got %+v want %+v", captured, want)
	}
}

type paramsProbe struct {
	*rhinotest.Library
	params *rhino.InitParams
}

func (p *paramsProbe) Init(params rhino.InitParams) (rhino.Instance, rhino.Status) {
	*p.params = params
	return p.Library.Init(params)
}

func TestOpenInitFailureCarriesStack(t *testing.T) {
	lib := rhinotest.New()
	lib.Fail[rhinotest.OpInit] = rhino.StatusActivationError
	lib.Stack = []string{"AccessKey is invalid", "activation failed"}

	_, err := rhino.OpenWithLibrary(lib, testOptions(t))
	assertKind(t, err, rhino.ErrActivation)

	var rerr *rhino.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *rhino.Error, got %T", err)
	}
	if len(rerr.MessageStack) != 2 || rerr.MessageStack[0] != "AccessKey is invalid" {
		t.Fatalf("unexpected message stack: %v", rerr.MessageStack)
	}
	if !strings.Contains(err.Error(), "\n  [1] activation failed") {
		t.Fatalf("stack missing from error text: %q", err.Error())
	}
	if lib.Live() != 0 {
		t.Fatalf("expected no live handles, got %d", lib.Live())
	}
}

func TestRepeatedInitFailuresReportEqualStacks(t *testing.T) {
	lib := rhinotest.New()
	lib.Fail[rhinotest.OpInit] = rhino.StatusActivationError

	opts := testOptions(t)
	opts.AccessKey = "invalid"

	_, err1 := rhino.OpenWithLibrary(lib, opts)
	_, err2 := rhino.OpenWithLibrary(lib, opts)

	var e1, e2 *rhino.Error
	if !errors.As(err1, &e1) || !errors.As(err2, &e2) {
		t.Fatalf("expected *rhino.Error values, got %v and %v", err1, err2)
	}
	if len(e1.MessageStack) == 0 || len(e1.MessageStack) != len(e2.MessageStack) {
		t.Fatalf("stack lengths differ: %d vs %d", len(e1.MessageStack), len(e2.MessageStack))
	}
	for i := range e1.MessageStack {
		if e1.MessageStack[i] != e2.MessageStack[i] {
			t.Fatalf("stack entry %d differs: %q vs %q", i, e1.MessageStack[i], e2.MessageStack[i])
		}
	}
	if lib.Live() != 0 {
		t.Fatalf("failed constructions left %d live handles", lib.Live())
	}
}

func TestOpenContextInfoFailureReleasesHandle(t *testing.T) {
	lib := rhinotest.New()
	lib.Fail[rhinotest.OpContextInfo] = rhino.StatusRuntimeError

	_, err := rhino.OpenWithLibrary(lib, testOptions(t))
	assertKind(t, err, rhino.ErrRuntime)
	if lib.Live() != 0 {
		t.Fatalf("expected handle to be deleted, got %d live", lib.Live())
	}
}

func TestProcessRejectsWrongFrameLength(t *testing.T) {
	lib := rhinotest.New()
	s := openTestSession(t, lib)

	for _, n := range []int{0, s.FrameLength() - 1, s.FrameLength() + 1} {
		_, err := s.Process(make([]int16, n))
		assertKind(t, err, rhino.ErrInvalidArgument)
	}
	if calls := lib.Calls(rhinotest.OpProcess); calls != 0 {
		t.Fatalf("expected no native process calls, got %d", calls)
	}
}

func TestFinalizeThenInferenceIsReusable(t *testing.T) {
	lib := rhinotest.New()
	s := openTestSession(t, lib)

	for pass := 1; pass <= 2; pass++ {
		if got := feedUntilFinalized(t, s, 10); got != lib.FinalizeAfter {
			t.Fatalf("pass %d: finalized at frame %d, want %d", pass, got, lib.FinalizeAfter)
		}
		if s.Phase() != rhino.PhaseFinalized {
			t.Fatalf("pass %d: expected finalized phase, got %s", pass, s.Phase())
		}

		inference, err := s.GetInference()
		if err != nil {
			t.Fatalf("pass %d: GetInference error: %v", pass, err)
		}
		if !inference.IsUnderstood || inference.Intent != "orderBeverage" {
			t.Fatalf("pass %d: unexpected inference: %+v", pass, inference)
		}
		want := map[string]string{"beverage": "americano", "numberOfShots": "double shot", "size": "medium"}
		if len(inference.Slots) != len(want) {
			t.Fatalf("pass %d: unexpected slots: %v", pass, inference.Slots)
		}
		for k, v := range want {
			if inference.Slots[k] != v {
				t.Fatalf("pass %d: slot %s = %q, want %q", pass, k, inference.Slots[k], v)
			}
		}
		if s.Phase() != rhino.PhaseListening {
			t.Fatalf("pass %d: expected listening after GetInference, got %s", pass, s.Phase())
		}
	}
}

func TestNotUnderstoodHasNoIntentOrSlots(t *testing.T) {
	lib := rhinotest.New()
	lib.Understood = false
	s := openTestSession(t, lib)

	if feedUntilFinalized(t, s, 10) == 0 {
		t.Fatalf("expected finalization")
	}
	inference, err := s.GetInference()
	if err != nil {
		t.Fatalf("GetInference error: %v", err)
	}
	if inference.IsUnderstood || inference.Intent != "" {
		t.Fatalf("unexpected inference: %+v", inference)
	}
	if inference.Slots == nil || len(inference.Slots) != 0 {
		t.Fatalf("expected empty non-nil slots, got %#v", inference.Slots)
	}
	if lib.Calls(rhinotest.OpGetIntent) != 0 {
		t.Fatalf("get_intent must not be called for an unrecognised utterance")
	}
}

func TestProcessAfterFinalizeRequiresReset(t *testing.T) {
	lib := rhinotest.New()
	s := openTestSession(t, lib)

	feedUntilFinalized(t, s, 10)
	before := lib.Calls(rhinotest.OpProcess)

	_, err := s.Process(frame(s))
	assertKind(t, err, rhino.ErrInvalidState)
	if lib.Calls(rhinotest.OpProcess) != before {
		t.Fatalf("engine called while finalized")
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if _, err := s.Process(frame(s)); err != nil {
		t.Fatalf("Process after Reset error: %v", err)
	}
}

func TestGetInferenceBeforeFinalize(t *testing.T) {
	s := openTestSession(t, rhinotest.New())

	_, err := s.GetInference()
	assertKind(t, err, rhino.ErrInvalidState)
}

func TestResetIsIdempotent(t *testing.T) {
	lib := rhinotest.New()
	s := openTestSession(t, lib)

	for i := 0; i < 2; i++ {
		if err := s.Reset(); err != nil {
			t.Fatalf("Reset %d error: %v", i, err)
		}
		if s.Phase() != rhino.PhaseListening {
			t.Fatalf("expected listening, got %s", s.Phase())
		}
	}
}

func TestResetDiscardsTruncatedUtterance(t *testing.T) {
	lib := rhinotest.New()
	lib.FinalizeAfter = 4
	s := openTestSession(t, lib)

	for i := 0; i < 3; i++ {
		if finalized, err := s.Process(frame(s)); err != nil || finalized {
			t.Fatalf("truncated pass frame %d: finalized=%v err=%v", i, finalized, err)
		}
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset error: %v", err)
	}

	if got := feedUntilFinalized(t, s, 10); got != 4 {
		t.Fatalf("expected full utterance to finalize at frame 4, got %d", got)
	}
	if _, err := s.GetInference(); err != nil {
		t.Fatalf("GetInference error: %v", err)
	}
}

func TestGetInferenceIsAllOrNothing(t *testing.T) {
	lib := rhinotest.New()
	s := openTestSession(t, lib)
	feedUntilFinalized(t, s, 10)

	lib.Fail[rhinotest.OpGetIntent] = rhino.StatusRuntimeError
	inference, err := s.GetInference()
	assertKind(t, err, rhino.ErrRuntime)
	if inference.Intent != "" || inference.Slots != nil {
		t.Fatalf("expected zero inference on failure, got %+v", inference)
	}
	if lib.Calls(rhinotest.OpReset) != 0 {
		t.Fatalf("reset must not run after a failed step")
	}
	if s.Phase() != rhino.PhaseFinalized {
		t.Fatalf("expected session to stay finalized, got %s", s.Phase())
	}

	delete(lib.Fail, rhinotest.OpGetIntent)
	if _, err := s.GetInference(); err != nil {
		t.Fatalf("GetInference retry error: %v", err)
	}
}

func TestProcessFailureAttachesStack(t *testing.T) {
	lib := rhinotest.New()
	s := openTestSession(t, lib)
	lib.Fail[rhinotest.OpProcess] = rhino.StatusInvalidState

	_, err := s.Process(frame(s))
	assertKind(t, err, rhino.ErrInvalidState)

	var rerr *rhino.Error
	if !errors.As(err, &rerr) || len(rerr.MessageStack) != len(lib.Stack) {
		t.Fatalf("expected engine stack on error, got %#v", err)
	}
}

func TestErrorStackUnavailable(t *testing.T) {
	lib := rhinotest.New()
	s := openTestSession(t, lib)
	lib.Fail[rhinotest.OpProcess] = rhino.StatusRuntimeError
	lib.Fail[rhinotest.OpErrorStack] = rhino.StatusOutOfMemory

	_, err := s.Process(frame(s))
	assertKind(t, err, rhino.ErrRuntime)
	if !strings.Contains(err.Error(), "error stack unavailable: OUT_OF_MEMORY") {
		t.Fatalf("unexpected error text: %q", err.Error())
	}
}

func TestClosedSessionFailsFast(t *testing.T) {
	lib := rhinotest.New()
	s, err := rhino.OpenWithLibrary(lib, testOptions(t))
	if err != nil {
		t.Fatalf("OpenWithLibrary error: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if lib.Live() != 0 {
		t.Fatalf("expected handle released, got %d live", lib.Live())
	}
	if s.Phase() != rhino.PhaseClosed {
		t.Fatalf("expected closed phase, got %s", s.Phase())
	}

	_, err = s.Process(frame(s))
	assertKind(t, err, rhino.ErrInvalidState)
	_, err = s.GetInference()
	assertKind(t, err, rhino.ErrInvalidState)
	assertKind(t, s.Reset(), rhino.ErrInvalidState)

	if err := s.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if lib.Calls(rhinotest.OpProcess) != 0 {
		t.Fatalf("engine called after close")
	}
}

func TestInferenceSlotNamesSorted(t *testing.T) {
	inf := rhino.Inference{Slots: map[string]string{"size": "medium", "beverage": "americano", "numberOfShots": "double shot"}}
	got := strings.Join(inf.SlotNames(), ",")
	if got != "beverage,numberOfShots,size" {
		t.Fatalf("unexpected order: %s", got)
	}
}
