// micdemo runs speech-to-intent inference on live microphone audio until
// interrupted.
//
// Usage:
//
//	micdemo --show_audio_devices
//	micdemo --access_key $KEY --context_path coffee_maker.rhn [--audio_device_index 1] [--output_path debug.wav]
package main

import (
	"fmt"
	"os"

	"github.com/nupi-ai/plugin-intent-local-rhino/cmd/micdemo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
