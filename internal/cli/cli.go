// Package cli holds the flags and output shared by the demo commands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
)

// SessionFlags are the engine flags common to every demo.
type SessionFlags struct {
	AccessKey        string
	LibraryPath      string
	ModelPath        string
	ContextPath      string
	Sensitivity      float32
	EndpointDuration float32
	RequireEndpoint  bool
	ShowContext      bool
	Verbose          bool
}

// Register adds the session flags to cmd.
func (f *SessionFlags) Register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.AccessKey, "access_key", os.Getenv("PV_ACCESS_KEY"), "AccessKey obtained from the Picovoice Console (default $PV_ACCESS_KEY)")
	flags.StringVar(&f.LibraryPath, "library_path", "", "Path to the engine library (default: bundled library for this platform)")
	flags.StringVar(&f.ModelPath, "model_path", "", "Path to the model parameters file (.pv)")
	flags.StringVar(&f.ContextPath, "context_path", "", "Path to the context file (.rhn)")
	flags.Float32Var(&f.Sensitivity, "sensitivity", rhino.DefaultSensitivity,
		"Inference sensitivity within [0, 1]. Higher values give fewer misses at the cost of more false inferences")
	flags.Float32Var(&f.EndpointDuration, "endpoint_duration", rhino.DefaultEndpointDurationSec,
		"Seconds of silence, within [0.5, 5], that end an utterance")
	flags.BoolVar(&f.RequireEndpoint, "require_endpoint", true,
		"Wait for trailing silence before finalizing an inference")
	flags.BoolVar(&f.ShowContext, "show_context", false, "Print the context source and exit")
	flags.BoolVarP(&f.Verbose, "verbose", "v", false, "Log engine activity to stderr")
}

// Options converts the flags to session options. Relative paths are made
// absolute and unset asset paths keep the platform defaults.
func (f *SessionFlags) Options(logger *slog.Logger) (rhino.Options, error) {
	if f.ContextPath == "" {
		return rhino.Options{}, errors.New("--context_path is required")
	}
	contextPath, err := filepath.Abs(f.ContextPath)
	if err != nil {
		return rhino.Options{}, fmt.Errorf("resolve context path: %w", err)
	}

	opts := rhino.DefaultOptions(f.AccessKey, contextPath)
	if f.LibraryPath != "" {
		if opts.LibraryPath, err = filepath.Abs(f.LibraryPath); err != nil {
			return rhino.Options{}, fmt.Errorf("resolve library path: %w", err)
		}
	}
	if f.ModelPath != "" {
		if opts.ModelPath, err = filepath.Abs(f.ModelPath); err != nil {
			return rhino.Options{}, fmt.Errorf("resolve model path: %w", err)
		}
	}
	opts.Sensitivity = f.Sensitivity
	opts.EndpointDurationSec = f.EndpointDuration
	opts.RequireEndpoint = f.RequireEndpoint
	opts.Logger = logger
	return opts, nil
}

// Logger writes warnings, or everything with --verbose, to w.
func (f *SessionFlags) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if f.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// OpenSession opens a session from the flags, translating activation failures
// into readable messages.
func (f *SessionFlags) OpenSession(logger *slog.Logger) (*rhino.Session, error) {
	opts, err := f.Options(logger)
	if err != nil {
		return nil, err
	}
	s, err := rhino.Open(opts)
	if err != nil {
		return nil, FriendlyError(err)
	}
	return s, nil
}

// FriendlyError prefixes activation failures with an explanation of what the
// AccessKey problem is.
func FriendlyError(err error) error {
	var msg string
	switch {
	case errors.Is(err, rhino.ErrActivationLimitReached):
		msg = "AccessKey has reached its device limit"
	case errors.Is(err, rhino.ErrActivationThrottled):
		msg = "AccessKey has been throttled"
	case errors.Is(err, rhino.ErrActivationRefused):
		msg = "AccessKey was refused"
	case errors.Is(err, rhino.ErrActivation):
		msg = "AccessKey is invalid or failed to activate"
	default:
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// PrintInference writes an inference in the demo output format. Slots are
// listed in name order.
func PrintInference(w io.Writer, inference rhino.Inference) {
	if !inference.IsUnderstood {
		fmt.Fprintln(w, "Didn't understand the command")
		return
	}
	fmt.Fprintln(w, "{")
	fmt.Fprintf(w, "  intent : '%s'\n", inference.Intent)
	fmt.Fprintln(w, "  slots : {")
	for _, name := range inference.SlotNames() {
		fmt.Fprintf(w, "    %s : '%s'\n", name, inference.Slots[name])
	}
	fmt.Fprintln(w, "  }")
	fmt.Fprintln(w, "}")
}

// PrintContext writes the context source followed by a one-line summary per
// intent.
func PrintContext(w io.Writer, info string) error {
	fmt.Fprintln(w, strings.TrimRight(info, "\n"))
	summary, err := rhino.ParseContextInfo(info)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	for _, intent := range summary.Intents {
		fmt.Fprintf(w, "%s: %d expression(s)\n", intent, len(summary.Expressions[intent]))
	}
	slots := make([]string, 0, len(summary.Slots))
	for slot := range summary.Slots {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	for _, slot := range slots {
		fmt.Fprintf(w, "$%s: %s\n", slot, strings.Join(summary.Slots[slot], ", "))
	}
	return nil
}
