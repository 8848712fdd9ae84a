package podcasts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/podwave/backend/internal/logging"
	"github.com/podwave/backend/internal/models"
)

const (
	// optionCount is the number of candidate scripts generated per prompt.
	optionCount = 6
	// optionWordLimit caps each candidate at its first N whitespace-separated words.
	optionWordLimit = 20

	audioKeyPrefix = "audio/"
)

// ScriptGenerator produces one candidate script for a prompt.
type ScriptGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer renders script text to audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioStorage persists audio blobs and serves them at public URLs.
type AudioStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// DurationProber derives the playback duration of a local audio file.
type DurationProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// PodcastStore captures the persistence needed by the creation workflow.
type PodcastStore interface {
	Create(ctx context.Context, podcast models.Podcast) error
	FindByID(ctx context.Context, id string) (models.Podcast, error)
	Delete(ctx context.Context, id string) error
}

// TimingStore records workflow latency samples.
type TimingStore interface {
	RecordTiming(ctx context.Context, sample models.TimingLog) error
}

// Service orchestrates the podcast-creation workflow: option generation,
// speech synthesis, blob upload, duration probing and persistence.
type Service struct {
	Generator   ScriptGenerator
	Synthesizer SpeechSynthesizer
	Storage     AudioStorage
	Prober      DurationProber
	Podcasts    PodcastStore
	Timings     TimingStore

	// Fetch retrieves an uploaded audio file by its public URL. Defaults to
	// a plain HTTP GET when nil.
	Fetch func(ctx context.Context, url string) (io.ReadCloser, error)

	NowFunc func() time.Time
}

// GenerateOptions fires the fixed-size generation fan-out for the prompt and
// returns the truncated candidates plus the fan-out's wall-clock duration.
func (s *Service) GenerateOptions(ctx context.Context, prompt string) ([]string, time.Duration, error) {
	if s.Generator == nil {
		return nil, 0, fmt.Errorf("script generator unavailable")
	}

	start := s.now()

	g, groupCtx := errgroup.WithContext(ctx)
	options := make([]string, optionCount)
	for i := range options {
		g.Go(func() error {
			text, err := s.Generator.Generate(groupCtx, prompt)
			if err != nil {
				return fmt.Errorf("generate option: %w", err)
			}
			options[i] = truncateWords(text, optionWordLimit)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	elapsed := s.now().Sub(start)
	s.recordTiming(ctx, models.ProcessGeneration, elapsed)

	return options, elapsed, nil
}

// Create runs the synthesis workflow for a chosen script and persists the
// resulting podcast. The returned duration covers synthesis through
// persistence and is also recorded as a timing sample.
func (s *Service) Create(ctx context.Context, ownerID, script, title, description string) (models.Podcast, time.Duration, error) {
	if s.Synthesizer == nil || s.Storage == nil || s.Prober == nil || s.Podcasts == nil {
		return models.Podcast{}, 0, fmt.Errorf("podcast workflow dependencies unavailable")
	}

	start := s.now()
	logger := logging.FromContext(ctx)

	audio, err := s.Synthesizer.Synthesize(ctx, script)
	if err != nil {
		return models.Podcast{}, 0, fmt.Errorf("synthesize script: %w", err)
	}

	key := audioKeyPrefix + uuid.NewString() + ".mp3"
	audioURL, err := s.Storage.Save(ctx, key, bytes.NewReader(audio))
	if err != nil {
		return models.Podcast{}, 0, fmt.Errorf("upload audio: %w", err)
	}
	if audioURL == "" {
		return models.Podcast{}, 0, fmt.Errorf("upload audio: storage returned no location")
	}

	duration, err := s.probeDuration(ctx, audioURL)
	if err != nil {
		return models.Podcast{}, 0, fmt.Errorf("probe audio duration: %w", err)
	}

	podcast := models.Podcast{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		AudioURL:    audioURL,
		Duration:    duration,
		OwnerID:     ownerID,
		CreatedAt:   s.now(),
	}

	if err := s.Podcasts.Create(ctx, podcast); err != nil {
		// The uploaded blob is now orphaned; there is no rollback across
		// workflow steps, so leave a trail for manual cleanup.
		logger.Error("persist podcast after upload", "error", err, "orphanedKey", key)
		return models.Podcast{}, 0, fmt.Errorf("persist podcast: %w", err)
	}

	elapsed := s.now().Sub(start)
	s.recordTiming(ctx, models.ProcessSynthesis, elapsed)

	return podcast, elapsed, nil
}

// Delete removes a podcast and, best-effort, its backing audio blob. The blob
// is not touched when the record does not exist.
func (s *Service) Delete(ctx context.Context, id string) error {
	podcast, err := s.Podcasts.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if key := blobKeyFromURL(podcast.AudioURL); key != "" && s.Storage != nil {
		if err := s.Storage.Delete(ctx, key); err != nil {
			logging.FromContext(ctx).Warn("delete audio blob", "podcastId", id, "key", key, "error", err)
		}
	}

	return s.Podcasts.Delete(ctx, id)
}

// probeDuration downloads the uploaded file to a uniquely named temporary
// location, probes it, and removes the file on every exit path.
func (s *Service) probeDuration(ctx context.Context, audioURL string) (float64, error) {
	fetch := s.Fetch
	if fetch == nil {
		fetch = defaultFetch
	}

	body, err := fetch(ctx, audioURL)
	if err != nil {
		return 0, fmt.Errorf("fetch uploaded audio: %w", err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "podwave-probe-*.mp3")
	if err != nil {
		return 0, fmt.Errorf("create temp audio file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write temp audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp audio file: %w", err)
	}

	return s.Prober.Probe(ctx, tmpPath)
}

func (s *Service) recordTiming(ctx context.Context, process string, elapsed time.Duration) {
	if s.Timings == nil {
		return
	}

	sample := models.TimingLog{
		ID:             uuid.NewString(),
		ProcessName:    process,
		DurationMillis: float64(elapsed) / float64(time.Millisecond),
		RecordedAt:     s.now(),
	}

	// Timing samples feed rolling averages only; losing one is not worth
	// failing the user-visible request.
	if err := s.Timings.RecordTiming(ctx, sample); err != nil {
		logging.FromContext(ctx).Warn("record timing sample", "process", process, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func defaultFetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	return resp.Body, nil
}

func truncateWords(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}

func blobKeyFromURL(audioURL string) string {
	trimmed := strings.TrimRight(audioURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return ""
	}
	return audioKeyPrefix + trimmed[idx+1:]
}
