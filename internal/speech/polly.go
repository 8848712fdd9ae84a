package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// ErrNoAudio indicates the synthesis call succeeded but produced no audio bytes.
var ErrNoAudio = errors.New("speech synthesis returned no audio")

// SpeechAPI is the subset of the Polly client used by the synthesizer.
type SpeechAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollySynthesizer converts script text to MP3 audio via AWS Polly.
type PollySynthesizer struct {
	client SpeechAPI
	voice  pollytypes.VoiceId
}

// NewPollySynthesizer configures a synthesizer targeting the given region and voice.
func NewPollySynthesizer(ctx context.Context, region, voice string) (*PollySynthesizer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	if strings.TrimSpace(voice) == "" {
		voice = "Emma"
	}

	return &PollySynthesizer{
		client: polly.NewFromConfig(awsCfg),
		voice:  pollytypes.VoiceId(voice),
	}, nil
}

// NewPollySynthesizerWithClient wires a pre-built client. Used by tests.
func NewPollySynthesizerWithClient(client SpeechAPI, voice string) *PollySynthesizer {
	return &PollySynthesizer{client: client, voice: pollytypes.VoiceId(voice)}
}

// Synthesize renders the provided text to MP3 bytes.
func (s *PollySynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("speech synthesizer unavailable")
	}

	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: pollytypes.OutputFormatMp3,
		VoiceId:      s.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}

	if out.AudioStream == nil {
		return nil, ErrNoAudio
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read audio stream: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}

	return audio, nil
}
