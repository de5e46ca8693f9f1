// filedemo runs speech-to-intent inference on a WAV file.
//
// Usage:
//
//	filedemo --access_key $KEY --context_path coffee_maker.rhn --input_audio_path request.wav
//
// The input must be mono, 16-bit PCM at the engine sample rate (16 kHz).
package main

import (
	"fmt"
	"os"

	"github.com/nupi-ai/plugin-intent-local-rhino/cmd/filedemo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
