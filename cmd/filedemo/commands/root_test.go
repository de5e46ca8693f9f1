package commands

import (
	"strings"
	"testing"
)

func TestRunRequiresInputAudio(t *testing.T) {
	rootCmd.SetArgs([]string{"--access_key", "key", "--context_path", "coffee.rhn"})
	err := Execute()
	if err == nil || !strings.Contains(err.Error(), "--input_audio_path") {
		t.Fatalf("expected missing input error, got %v", err)
	}
}
