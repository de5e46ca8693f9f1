package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/audio"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/capture"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/cli"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
)

var (
	sessionFlags     cli.SessionFlags
	audioDeviceIndex int
	outputPath       string
	showAudioDevices bool
)

var rootCmd = &cobra.Command{
	Use:   "micdemo",
	Short: "Infer intents from live microphone audio",
	Long: `micdemo captures audio from a microphone and prints an inference every
time the engine finalizes an utterance. Press Ctrl+C to stop.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	sessionFlags.Register(rootCmd)
	flags := rootCmd.Flags()
	flags.IntVar(&audioDeviceIndex, "audio_device_index", -1, "Index of capture device to use")
	flags.StringVar(&outputPath, "output_path", "", "Path to recorded audio (for debugging)")
	flags.BoolVar(&showAudioDevices, "show_audio_devices", false, "Display all available capture devices")
}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if showAudioDevices {
		devices, err := capture.ListDevices()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Capture Devices")
		for _, d := range devices {
			fmt.Fprintf(out, "    %d: %s\n", d.Index, d.Name)
		}
		return nil
	}

	logger := sessionFlags.Logger(cmd.ErrOrStderr())
	session, err := sessionFlags.OpenSession(logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if sessionFlags.ShowContext {
		return cli.PrintContext(out, session.ContextInfo())
	}

	var recording *audio.WAVWriter
	if outputPath != "" {
		path, err := filepath.Abs(outputPath)
		if err != nil {
			return fmt.Errorf("resolve output path: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output audio at %s: %w", path, err)
		}
		defer f.Close()
		recording = audio.NewWAVWriter(f, session.SampleRate())
		defer recording.Close()
	}

	device, err := capture.Open(capture.Config{
		SampleRate:  session.SampleRate(),
		DeviceIndex: audioDeviceIndex,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// Closing the device ends the chunk channel and with it the worker.
	g.Go(func() error {
		<-gctx.Done()
		return device.Close()
	})
	g.Go(func() error {
		return listen(session, device.Chunks(), recording, out)
	})

	if err := device.Start(); err != nil {
		stop()
		_ = g.Wait()
		return err
	}
	fmt.Fprintln(out, "Listening... press Ctrl+C to stop.")

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// listen is the only goroutine that touches the session.
func listen(session *rhino.Session, chunks <-chan []byte, recording *audio.WAVWriter, out io.Writer) error {
	frames := audio.NewFrameAssembler(session.FrameLength())
	for chunk := range chunks {
		for _, frame := range frames.Push(chunk) {
			if recording != nil {
				if err := recording.WriteFrame(frame); err != nil {
					return err
				}
			}

			if err := step(session, frame, out); err != nil {
				fmt.Fprintf(out, "Error: %v\n", cli.FriendlyError(err))
				if err := session.Reset(); err != nil {
					return fmt.Errorf("failed to reset after engine error: %w", err)
				}
				frames.Reset()
				break
			}
		}
	}
	return nil
}

// step processes one frame and prints the inference when it finalizes.
func step(session *rhino.Session, frame []int16, out io.Writer) error {
	finalized, err := session.Process(frame)
	if err != nil || !finalized {
		return err
	}
	inference, err := session.GetInference()
	if err != nil {
		return fmt.Errorf("failed to get inference: %w", err)
	}
	cli.PrintInference(out, inference)
	return nil
}
