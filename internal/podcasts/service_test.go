package podcasts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/podwave/backend/internal/models"
	"github.com/podwave/backend/internal/repositories"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type fakeSynthesizer struct {
	audio []byte
	err   error
}

func (s *fakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	return s.audio, s.err
}

type fakeStorage struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
	baseURL string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte), baseURL: "https://cdn.example.com"}
}

func (s *fakeStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.saved[name] = data
	return s.baseURL + "/" + name, nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeProber struct {
	duration float64
	err      error
	probed   []string
}

func (p *fakeProber) Probe(_ context.Context, path string) (float64, error) {
	p.probed = append(p.probed, path)
	return p.duration, p.err
}

type fakePodcastStore struct {
	podcasts  map[string]models.Podcast
	createErr error
}

func newFakePodcastStore() *fakePodcastStore {
	return &fakePodcastStore{podcasts: make(map[string]models.Podcast)}
}

func (s *fakePodcastStore) Create(_ context.Context, podcast models.Podcast) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.podcasts[podcast.ID] = podcast
	return nil
}

func (s *fakePodcastStore) FindByID(_ context.Context, id string) (models.Podcast, error) {
	podcast, ok := s.podcasts[id]
	if !ok {
		return models.Podcast{}, repositories.ErrNotFound
	}
	return podcast, nil
}

func (s *fakePodcastStore) Delete(_ context.Context, id string) error {
	if _, ok := s.podcasts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.podcasts, id)
	return nil
}

type fakeTimingStore struct {
	samples []models.TimingLog
	err     error
}

func (s *fakeTimingStore) RecordTiming(_ context.Context, sample models.TimingLog) error {
	if s.err != nil {
		return s.err
	}
	s.samples = append(s.samples, sample)
	return nil
}

func fetchFromStorage(storage *fakeStorage) func(ctx context.Context, url string) (io.ReadCloser, error) {
	return func(_ context.Context, url string) (io.ReadCloser, error) {
		key := strings.TrimPrefix(url, storage.baseURL+"/")
		data, ok := storage.saved[key]
		if !ok {
			return nil, fmt.Errorf("no object for %s", url)
		}
		return io.NopCloser(strings.NewReader(string(data))), nil
	}
}

func TestServiceGenerateOptions(t *testing.T) {
	generator := &fakeGenerator{text: "one two three"}
	timings := &fakeTimingStore{}
	svc := &Service{Generator: generator, Timings: timings}

	options, duration, err := svc.GenerateOptions(context.Background(), "a prompt")
	if err != nil {
		t.Fatalf("GenerateOptions() error = %v", err)
	}

	if len(options) != 6 {
		t.Fatalf("expected 6 options, got %d", len(options))
	}
	if generator.calls != 6 {
		t.Fatalf("expected 6 generator calls, got %d", generator.calls)
	}
	for _, opt := range options {
		if opt != "one two three" {
			t.Fatalf("unexpected option %q", opt)
		}
	}
	if duration < 0 {
		t.Fatalf("expected non-negative duration, got %v", duration)
	}

	if len(timings.samples) != 1 {
		t.Fatalf("expected 1 timing sample, got %d", len(timings.samples))
	}
	if timings.samples[0].ProcessName != models.ProcessGeneration {
		t.Fatalf("unexpected process name %q", timings.samples[0].ProcessName)
	}
}

func TestServiceGenerateOptionsTruncatesTwentyWords(t *testing.T) {
	long := strings.Repeat("word ", 50)
	generator := &fakeGenerator{text: long}
	svc := &Service{Generator: generator, Timings: &fakeTimingStore{}}

	options, _, err := svc.GenerateOptions(context.Background(), "a prompt")
	if err != nil {
		t.Fatalf("GenerateOptions() error = %v", err)
	}

	for _, opt := range options {
		if got := len(strings.Fields(opt)); got != 20 {
			t.Fatalf("expected 20 words, got %d", got)
		}
	}
}

func TestServiceGenerateOptionsGeneratorFailure(t *testing.T) {
	generator := &fakeGenerator{err: errors.New("upstream down")}
	timings := &fakeTimingStore{}
	svc := &Service{Generator: generator, Timings: timings}

	if _, _, err := svc.GenerateOptions(context.Background(), "a prompt"); err == nil {
		t.Fatal("expected error when generator fails")
	}
	if len(timings.samples) != 0 {
		t.Fatalf("expected no timing sample on failure, got %d", len(timings.samples))
	}
}

func TestServiceGenerateOptionsTimingFailureIsNotFatal(t *testing.T) {
	generator := &fakeGenerator{text: "ok"}
	svc := &Service{Generator: generator, Timings: &fakeTimingStore{err: errors.New("db down")}}

	if _, _, err := svc.GenerateOptions(context.Background(), "a prompt"); err != nil {
		t.Fatalf("expected success despite timing failure, got %v", err)
	}
}

func TestServiceCreate(t *testing.T) {
	storage := newFakeStorage()
	store := newFakePodcastStore()
	timings := &fakeTimingStore{}
	svc := &Service{
		Synthesizer: &fakeSynthesizer{audio: []byte("mp3")},
		Storage:     storage,
		Prober:      &fakeProber{duration: 42.5},
		Podcasts:    store,
		Timings:     timings,
		Fetch:       fetchFromStorage(storage),
	}

	podcast, duration, err := svc.Create(context.Background(), "user-1", "a script", "Title", "Desc")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if podcast.Duration != 42.5 {
		t.Fatalf("unexpected podcast duration %v", podcast.Duration)
	}
	if podcast.OwnerID != "user-1" || podcast.Title != "Title" || podcast.Description != "Desc" {
		t.Fatalf("unexpected podcast %+v", podcast)
	}
	if !strings.HasPrefix(podcast.AudioURL, storage.baseURL+"/audio/") || !strings.HasSuffix(podcast.AudioURL, ".mp3") {
		t.Fatalf("unexpected audio url %q", podcast.AudioURL)
	}
	if duration < 0 {
		t.Fatalf("expected non-negative duration, got %v", duration)
	}

	if _, err := store.FindByID(context.Background(), podcast.ID); err != nil {
		t.Fatalf("expected podcast to be persisted: %v", err)
	}
	if len(timings.samples) != 1 || timings.samples[0].ProcessName != models.ProcessSynthesis {
		t.Fatalf("unexpected timing samples %+v", timings.samples)
	}
}

func TestServiceCreateRemovesTempProbeFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TMPDIR", tmpDir)

	storage := newFakeStorage()
	svc := &Service{
		Synthesizer: &fakeSynthesizer{audio: []byte("mp3")},
		Storage:     storage,
		Prober:      &fakeProber{duration: 1},
		Podcasts:    newFakePodcastStore(),
		Timings:     &fakeTimingStore{},
		Fetch:       fetchFromStorage(storage),
	}

	if _, _, err := svc.Create(context.Background(), "user-1", "script", "Title", ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp probe file to be removed, found %d entries", len(entries))
	}
}

func TestServiceCreateRemovesTempProbeFileOnProbeFailure(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TMPDIR", tmpDir)

	storage := newFakeStorage()
	svc := &Service{
		Synthesizer: &fakeSynthesizer{audio: []byte("mp3")},
		Storage:     storage,
		Prober:      &fakeProber{err: errors.New("bad container")},
		Podcasts:    newFakePodcastStore(),
		Timings:     &fakeTimingStore{},
		Fetch:       fetchFromStorage(storage),
	}

	if _, _, err := svc.Create(context.Background(), "user-1", "script", "Title", ""); err == nil {
		t.Fatal("expected error when probing fails")
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp probe file to be removed, found %d entries", len(entries))
	}
}

func TestServiceCreateSynthesisFailure(t *testing.T) {
	storage := newFakeStorage()
	svc := &Service{
		Synthesizer: &fakeSynthesizer{err: errors.New("no audio")},
		Storage:     storage,
		Prober:      &fakeProber{},
		Podcasts:    newFakePodcastStore(),
		Timings:     &fakeTimingStore{},
	}

	if _, _, err := svc.Create(context.Background(), "user-1", "script", "Title", ""); err == nil {
		t.Fatal("expected error when synthesis fails")
	}
	if len(storage.saved) != 0 {
		t.Fatal("expected no upload after synthesis failure")
	}
}

func TestServiceCreatePersistFailureLeavesBlob(t *testing.T) {
	storage := newFakeStorage()
	store := newFakePodcastStore()
	store.createErr = errors.New("insert failed")
	svc := &Service{
		Synthesizer: &fakeSynthesizer{audio: []byte("mp3")},
		Storage:     storage,
		Prober:      &fakeProber{duration: 1},
		Podcasts:    store,
		Timings:     &fakeTimingStore{},
		Fetch:       fetchFromStorage(storage),
	}

	if _, _, err := svc.Create(context.Background(), "user-1", "script", "Title", ""); err == nil {
		t.Fatal("expected error when persistence fails")
	}

	// No rollback of the uploaded blob; it is only logged for cleanup.
	if len(storage.saved) != 1 {
		t.Fatalf("expected the uploaded blob to remain, got %d", len(storage.saved))
	}
	if len(storage.deleted) != 0 {
		t.Fatalf("expected no blob deletion, got %v", storage.deleted)
	}
}

func TestServiceDelete(t *testing.T) {
	storage := newFakeStorage()
	store := newFakePodcastStore()
	store.podcasts["pod-1"] = models.Podcast{
		ID:       "pod-1",
		AudioURL: "https://cdn.example.com/audio/abc123.mp3",
	}

	svc := &Service{Storage: storage, Podcasts: store}

	if err := svc.Delete(context.Background(), "pod-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(storage.deleted) != 1 || storage.deleted[0] != "audio/abc123.mp3" {
		t.Fatalf("unexpected deleted keys %v", storage.deleted)
	}
	if _, err := store.FindByID(context.Background(), "pod-1"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected record to be removed, got %v", err)
	}
}

func TestServiceDeleteMissingPodcastSkipsStorage(t *testing.T) {
	storage := newFakeStorage()
	svc := &Service{Storage: storage, Podcasts: newFakePodcastStore()}

	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(storage.deleted) != 0 {
		t.Fatalf("expected no storage call for missing record, got %v", storage.deleted)
	}
}

func TestBlobKeyFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/audio/abc.mp3", "audio/abc.mp3"},
		{"audio/abc.mp3", "audio/abc.mp3"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := blobKeyFromURL(tc.url); got != tc.want {
			t.Fatalf("blobKeyFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
