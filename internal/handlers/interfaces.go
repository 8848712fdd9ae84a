package handlers

import (
	"context"
	"time"

	"github.com/podwave/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// TokenManager issues and verifies bearer tokens for users.
type TokenManager interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

// PodcastWorkflow runs the multi-step creation and deletion workflows.
type PodcastWorkflow interface {
	GenerateOptions(ctx context.Context, prompt string) ([]string, time.Duration, error)
	Create(ctx context.Context, ownerID, script, title, description string) (models.Podcast, time.Duration, error)
	Delete(ctx context.Context, id string) error
}

// PodcastStore captures read and update operations on stored podcasts.
type PodcastStore interface {
	FindByID(ctx context.Context, id string) (models.Podcast, error)
	List(ctx context.Context) ([]models.Podcast, error)
	Update(ctx context.Context, id string, title, description *string) (models.Podcast, error)
}

// AnalyticsProvider answers listening analytics and platform-metric queries.
type AnalyticsProvider interface {
	TrackListen(ctx context.Context, userID, podcastID string, listenedSeconds float64) error
	UserListenTime(ctx context.Context, userID, podcastID string) (float64, error)
	PodcastListenTime(ctx context.Context, podcastID string) (float64, error)
	PodcastMetrics(ctx context.Context, userID string) (models.PodcastMetrics, error)
	AverageTiming(ctx context.Context, processName string, start, end time.Time) (float64, error)
}
