package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
)

type stubSpeechAPI struct {
	input  *polly.SynthesizeSpeechInput
	output *polly.SynthesizeSpeechOutput
	err    error
}

func (s *stubSpeechAPI) SynthesizeSpeech(_ context.Context, params *polly.SynthesizeSpeechInput, _ ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	s.input = params
	return s.output, s.err
}

func TestPollySynthesizerSynthesize(t *testing.T) {
	stub := &stubSpeechAPI{
		output: &polly.SynthesizeSpeechOutput{
			AudioStream: io.NopCloser(bytes.NewReader([]byte("mp3-bytes"))),
		},
	}

	synth := NewPollySynthesizerWithClient(stub, "Emma")

	audio, err := synth.Synthesize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if stub.input == nil || stub.input.Text == nil || *stub.input.Text != "hello world" {
		t.Fatalf("unexpected input %+v", stub.input)
	}
	if stub.input.OutputFormat != pollytypes.OutputFormatMp3 {
		t.Fatalf("expected mp3 output format, got %v", stub.input.OutputFormat)
	}
	if stub.input.VoiceId != pollytypes.VoiceId("Emma") {
		t.Fatalf("expected Emma voice, got %v", stub.input.VoiceId)
	}
}

func TestPollySynthesizerNoAudio(t *testing.T) {
	stub := &stubSpeechAPI{output: &polly.SynthesizeSpeechOutput{}}
	synth := NewPollySynthesizerWithClient(stub, "Emma")

	if _, err := synth.Synthesize(context.Background(), "hello"); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestPollySynthesizerEmptyStream(t *testing.T) {
	stub := &stubSpeechAPI{
		output: &polly.SynthesizeSpeechOutput{AudioStream: io.NopCloser(bytes.NewReader(nil))},
	}
	synth := NewPollySynthesizerWithClient(stub, "Emma")

	if _, err := synth.Synthesize(context.Background(), "hello"); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}
