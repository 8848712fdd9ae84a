package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/podwave/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		TokenSecret:    "test-secret",
		TokenTTL:       time.Hour,
		GeminiAPIKey:   "test-key",
		GeminiModel:    "gemini-1.5-flash",
		GeminiTimeout:  time.Second,
		PollyVoice:     "Emma",
		FFProbePath:    "ffprobe",
		FFProbeTimeout: time.Second,
		ObjectStore: config.ObjectStoreConfig{
			Bucket:   "test-bucket",
			Endpoint: "http://localhost:9000",
			Region:   "us-east-1",
		},
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if deps.Tokens == nil {
		t.Fatal("expected token manager to be configured")
	}
	if deps.Workflow == nil {
		t.Fatal("expected podcast workflow to be configured")
	}
	if deps.Podcasts == nil {
		t.Fatal("expected podcast repository to be configured")
	}
	if deps.Analytics == nil {
		t.Fatal("expected analytics service to be configured")
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter to be configured")
	}
}
