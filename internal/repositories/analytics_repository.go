package repositories

import (
	"context"
	"time"

	"github.com/podwave/backend/internal/models"
)

// SessionRepository defines the data access contract for listening sessions.
type SessionRepository interface {
	FindSessionSince(ctx context.Context, userID, podcastID string, since time.Time) (models.ListeningSession, error)
	CreateSession(ctx context.Context, session models.ListeningSession) error
	AppendListenEvent(ctx context.Context, sessionID string, listenedSeconds float64, at time.Time) error
	SumUserListenTime(ctx context.Context, userID, podcastID string) (float64, error)
	SumPodcastListenTime(ctx context.Context, podcastID string) (float64, error)
}

// TimingRepository persists and aggregates workflow latency samples.
type TimingRepository interface {
	RecordTiming(ctx context.Context, sample models.TimingLog) error
	AverageTiming(ctx context.Context, processName string, start, end time.Time) (float64, error)
}

// MetricsRepository exposes the aggregate counts behind the metrics endpoint.
type MetricsRepository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountPodcasts(ctx context.Context) (int64, error)
	CountPodcastsByOwner(ctx context.Context, ownerID string) (int64, error)
	CountUploadingUsers(ctx context.Context) (int64, error)
	SumPodcastDurations(ctx context.Context) (float64, error)
	SumPodcastDurationsByOwner(ctx context.Context, ownerID string) (float64, error)
}
