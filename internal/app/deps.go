package app

import (
	"context"
	"fmt"
	"time"

	"github.com/podwave/backend/internal/analytics"
	"github.com/podwave/backend/internal/auth"
	"github.com/podwave/backend/internal/config"
	"github.com/podwave/backend/internal/db"
	"github.com/podwave/backend/internal/genai"
	"github.com/podwave/backend/internal/handlers"
	"github.com/podwave/backend/internal/media"
	"github.com/podwave/backend/internal/middleware"
	"github.com/podwave/backend/internal/podcasts"
	"github.com/podwave/backend/internal/repositories"
	"github.com/podwave/backend/internal/speech"
	"github.com/podwave/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	synthesizer, err := speech.NewPollySynthesizer(ctx, cfg.ObjectStore.Region, cfg.PollyVoice)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure speech synthesizer: %w", err)
	}

	audioStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure audio storage: %w", err)
	}

	podcastRepo := repositories.NewPostgresPodcastRepository(pool)
	analyticsRepo := repositories.NewPostgresAnalyticsRepository(pool)

	workflow := &podcasts.Service{
		Generator:   genai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout),
		Synthesizer: synthesizer,
		Storage:     audioStore,
		Prober:      media.NewFFProbeProber(cfg.FFProbePath, cfg.FFProbeTimeout),
		Podcasts:    podcastRepo,
		Timings:     analyticsRepo,
	}

	analyticsService := &analytics.Service{
		Sessions: analyticsRepo,
		Timings:  analyticsRepo,
		Metrics:  analyticsRepo,
	}

	return handlers.Dependencies{
		Users:       repositories.NewPostgresUserRepository(pool),
		Tokens:      auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL),
		Workflow:    workflow,
		Podcasts:    podcastRepo,
		Analytics:   analyticsService,
		AuthLimiter: middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
	}, nil
}
