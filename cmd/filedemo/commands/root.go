package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/audio"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/cli"
)

var (
	sessionFlags   cli.SessionFlags
	inputAudioPath string
)

var rootCmd = &cobra.Command{
	Use:   "filedemo",
	Short: "Infer an intent from a WAV file",
	Long: `filedemo feeds a WAV file to the speech-to-intent engine frame by frame
and prints the first inference it produces.

The file must contain mono, 16-bit linear PCM at 16 kHz. A trailing partial
frame is ignored.`,
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
	rootCmd.Flags().StringVar(&inputAudioPath, "input_audio_path", "", "Path to input audio file (mono, WAV, 16-bit, 16kHz)")
}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if !sessionFlags.ShowContext && inputAudioPath == "" {
		return errors.New("--input_audio_path is required")
	}

	session, err := sessionFlags.OpenSession(sessionFlags.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer session.Close()

	if sessionFlags.ShowContext {
		return cli.PrintContext(out, session.ContextInfo())
	}

	path, err := filepath.Abs(inputAudioPath)
	if err != nil {
		return fmt.Errorf("resolve input audio path: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open input audio at %s: %w", path, err)
	}
	defer f.Close()

	frames, err := audio.NewWAVFrameReader(f, session.FrameLength(), session.SampleRate())
	if err != nil {
		return err
	}

	for {
		frame, err := frames.Next()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out, "Reached the end of the file before an inference was finalized.")
			return nil
		}
		if err != nil {
			return err
		}

		finalized, err := session.Process(frame)
		if err != nil {
			return err
		}
		if !finalized {
			continue
		}

		inference, err := session.GetInference()
		if err != nil {
			return fmt.Errorf("failed to get inference: %w", err)
		}
		cli.PrintInference(out, inference)
		return nil
	}
}
