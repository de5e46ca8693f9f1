package intentapi

import (
	"strings"
	"testing"

	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	if codec == nil {
		t.Fatalf("codec %q not registered", CodecName)
	}
	if codec.Name() != CodecName {
		t.Fatalf("unexpected codec name %q", codec.Name())
	}
}

func TestCodecEncodesAudioAsBase64(t *testing.T) {
	data, err := Codec{}.Marshal(&StreamIntentsRequest{StreamId: "mic", Audio: []byte{0x01, 0x02, 0x03}})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if got := string(data); !strings.Contains(got, `"audio":"AQID"`) || strings.Contains(got, "reset") {
		t.Fatalf("unexpected encoding: %s", got)
	}

	var decoded StreamIntentsRequest
	if err := (Codec{}).Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if decoded.GetStreamId() != "mic" || len(decoded.GetAudio()) != 3 || decoded.GetAudio()[2] != 0x03 {
		t.Fatalf("unexpected decoded request: %+v", decoded)
	}
}

func TestCodecRejectsMalformedInput(t *testing.T) {
	var resp StreamIntentsResponse
	err := Codec{}.Unmarshal([]byte(`{"sequence":"x"`), &resp)
	if err == nil || !strings.Contains(err.Error(), "intentapi: unmarshal") {
		t.Fatalf("expected wrapped unmarshal error, got %v", err)
	}
}

func TestNilGetters(t *testing.T) {
	var req *StreamIntentsRequest
	if req.GetSessionId() != "" || req.GetAudio() != nil || req.GetReset() || req.GetClose() || req.GetMetadata() != nil {
		t.Fatalf("nil request getters must return zero values")
	}
	var resp *StreamIntentsResponse
	if resp.GetSequence() != 0 || resp.GetReady() != nil || resp.GetInference() != nil || resp.GetError() != nil {
		t.Fatalf("nil response getters must return zero values")
	}
}
