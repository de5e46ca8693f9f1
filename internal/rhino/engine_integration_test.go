package rhino_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/audio"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
)

// Real-engine tests run only when an access key and the engine assets are
// available:
//
//	PV_ACCESS_KEY      activation key
//	RHINO_ASSET_DIR    directory holding lib/ (defaults to a "resources"
//	                   directory found by walking up from the package)
//	RHINO_TEST_CONTEXT context file (.rhn) for the coffee maker demo
//	RHINO_TEST_AUDIO   16 kHz mono WAV asking for a drink
//	RHINO_TEST_OUT_OF_CONTEXT_AUDIO
//	                   16 kHz mono WAV outside the coffee maker context

func locateFixture(t *testing.T, env, rel string) string {
	t.Helper()
	if path := os.Getenv(env); path != "" {
		return path
	}
	dir, err := os.Getwd()
	if err != nil {
		t.Skipf("cannot resolve working directory: %v", err)
	}
	for {
		candidate := filepath.Join(dir, rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Skipf("fixture %s not found; set %s", rel, env)
		}
		dir = parent
	}
}

func realOptions(t *testing.T) rhino.Options {
	t.Helper()
	if !rhino.NativeAvailable() {
		t.Skip("native backend not built (cgo disabled)")
	}
	key := os.Getenv("PV_ACCESS_KEY")
	if key == "" {
		t.Skip("PV_ACCESS_KEY not set")
	}
	root := locateFixture(t, "RHINO_ASSET_DIR", "resources")
	contextPath := locateFixture(t, "RHINO_TEST_CONTEXT", filepath.Join("resources", "contexts", "coffee_maker.rhn"))

	library, err := rhino.DefaultLibraryPath(root)
	if errors.Is(err, rhino.ErrUnsupportedPlatform) {
		t.Skipf("no engine library for this host: %v", err)
	}
	if err != nil {
		t.Fatalf("DefaultLibraryPath error: %v", err)
	}

	opts := rhino.DefaultOptions(key, contextPath)
	opts.LibraryPath = library
	opts.ModelPath = rhino.DefaultModelPath(root)
	return opts
}

func runWAV(t *testing.T, s *rhino.Session, path string) (rhino.Inference, bool) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audio: %v", err)
	}
	defer f.Close()

	r, err := audio.NewWAVFrameReader(f, s.FrameLength(), s.SampleRate())
	if err != nil {
		t.Fatalf("NewWAVFrameReader error: %v", err)
	}
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rhino.Inference{}, false
		}
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		finalized, err := s.Process(frame)
		if err != nil {
			t.Fatalf("Process error: %v", err)
		}
		if finalized {
			inference, err := s.GetInference()
			if err != nil {
				t.Fatalf("GetInference error: %v", err)
			}
			return inference, true
		}
	}
}

func TestRealEngineUnderstandsUtterance(t *testing.T) {
	opts := realOptions(t)
	wavPath := locateFixture(t, "RHINO_TEST_AUDIO", filepath.Join("resources", "audio_samples", "test_within_context.wav"))

	s, err := rhino.Open(opts)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer s.Close()

	if s.Version() == "" || s.FrameLength() <= 0 || s.SampleRate() <= 0 || s.ContextInfo() == "" {
		t.Fatalf("unexpected session properties: version=%q frame=%d rate=%d",
			s.Version(), s.FrameLength(), s.SampleRate())
	}

	for run := 0; run < 2; run++ {
		inference, ok := runWAV(t, s, wavPath)
		if !ok {
			t.Fatalf("run %d: utterance never finalized", run)
		}
		assertOrderDrink(t, inference)
	}
}

func assertOrderDrink(t *testing.T, inference rhino.Inference) {
	t.Helper()
	if !inference.IsUnderstood || inference.Intent != "orderDrink" {
		t.Fatalf("unexpected inference %+v", inference)
	}
	want := map[string]string{
		"sugarAmount":   "some sugar",
		"milkAmount":    "lots of milk",
		"coffeeDrink":   "americano",
		"numberOfShots": "double shot",
		"size":          "medium",
	}
	if len(inference.Slots) != len(want) {
		t.Fatalf("unexpected slots %v", inference.Slots)
	}
	for k, v := range want {
		if inference.Slots[k] != v {
			t.Fatalf("slot %s = %q, want %q", k, inference.Slots[k], v)
		}
	}
}

func TestRealEngineRejectsOutOfContextUtterance(t *testing.T) {
	opts := realOptions(t)
	wavPath := locateFixture(t, "RHINO_TEST_OUT_OF_CONTEXT_AUDIO", filepath.Join("resources", "audio_samples", "test_out_of_context.wav"))

	s, err := rhino.Open(opts)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer s.Close()

	inference, ok := runWAV(t, s, wavPath)
	if !ok {
		t.Fatalf("utterance never finalized")
	}
	if inference.IsUnderstood || inference.Intent != "" || len(inference.Slots) != 0 {
		t.Fatalf("expected not understood, got %+v", inference)
	}
}

func TestRealEngineResetDiscardsTruncatedUtterance(t *testing.T) {
	opts := realOptions(t)
	wavPath := locateFixture(t, "RHINO_TEST_AUDIO", filepath.Join("resources", "audio_samples", "test_within_context.wav"))

	s, err := rhino.Open(opts)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer s.Close()

	f, err := os.Open(wavPath)
	if err != nil {
		t.Fatalf("open audio: %v", err)
	}
	r, err := audio.NewWAVFrameReader(f, s.FrameLength(), s.SampleRate())
	if err != nil {
		f.Close()
		t.Fatalf("NewWAVFrameReader error: %v", err)
	}
	var frames [][]int16
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			f.Close()
			t.Fatalf("read frame: %v", err)
		}
		frames = append(frames, frame)
	}
	f.Close()

	// Feed the first quarter of the utterance, then abandon it.
	for _, frame := range frames[:len(frames)/4] {
		finalized, err := s.Process(frame)
		if err != nil {
			t.Fatalf("Process error: %v", err)
		}
		if finalized {
			break
		}
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset error: %v", err)
	}

	inference, ok := runWAV(t, s, wavPath)
	if !ok {
		t.Fatalf("utterance never finalized after reset")
	}
	assertOrderDrink(t, inference)
}

func TestRealEngineReportsStackForBadKey(t *testing.T) {
	opts := realOptions(t)
	opts.AccessKey = "invalid"

	var first, second *rhino.Error
	for _, dst := range []**rhino.Error{&first, &second} {
		_, err := rhino.Open(opts)
		if err == nil {
			t.Fatalf("expected Open to fail with an invalid key")
		}
		if !errors.As(err, dst) {
			t.Fatalf("expected *rhino.Error, got %T", err)
		}
	}
	if len(first.MessageStack) == 0 {
		t.Fatalf("expected a non-empty message stack")
	}
	if len(first.MessageStack) != len(second.MessageStack) {
		t.Fatalf("stack depth changed between attempts: %d vs %d", len(first.MessageStack), len(second.MessageStack))
	}
}
