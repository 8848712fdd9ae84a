package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/podwave/backend/internal/models"
	"github.com/podwave/backend/internal/repositories"
)

// DefaultWindow is the trailing window used for timing averages when the
// caller does not supply a range.
const DefaultWindow = 24 * time.Hour

// Service answers the listening-analytics and platform-metrics queries.
type Service struct {
	Sessions repositories.SessionRepository
	Timings  repositories.TimingRepository
	Metrics  repositories.MetricsRepository

	NowFunc func() time.Time
}

// TrackListen finds or creates today's session for (user, podcast), appends
// one listen event and adds its seconds to the running total. Duplicate calls
// double-count; the caller is trusted to report each slice once.
func (s *Service) TrackListen(ctx context.Context, userID, podcastID string, listenedSeconds float64) error {
	if s.Sessions == nil {
		return fmt.Errorf("session store unavailable")
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	session, err := s.Sessions.FindSessionSince(ctx, userID, podcastID, dayStart)
	if errors.Is(err, repositories.ErrNotFound) {
		session = models.ListeningSession{
			ID:           uuid.NewString(),
			UserID:       userID,
			PodcastID:    podcastID,
			SessionStart: now,
		}
		if err := s.Sessions.CreateSession(ctx, session); err != nil {
			return fmt.Errorf("create listening session: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("find listening session: %w", err)
	}

	return s.Sessions.AppendListenEvent(ctx, session.ID, listenedSeconds, now)
}

// UserListenTime sums listened seconds across all of the user's sessions for
// the podcast.
func (s *Service) UserListenTime(ctx context.Context, userID, podcastID string) (float64, error) {
	return s.Sessions.SumUserListenTime(ctx, userID, podcastID)
}

// PodcastListenTime sums listened seconds across every user's sessions for
// the podcast.
func (s *Service) PodcastListenTime(ctx context.Context, podcastID string) (float64, error) {
	return s.Sessions.SumPodcastListenTime(ctx, podcastID)
}

// PodcastMetrics aggregates platform-wide counts and durations plus the
// querying user's share of them.
func (s *Service) PodcastMetrics(ctx context.Context, userID string) (models.PodcastMetrics, error) {
	if s.Metrics == nil {
		return models.PodcastMetrics{}, fmt.Errorf("metrics store unavailable")
	}

	totalUsers, err := s.Metrics.CountUsers(ctx)
	if err != nil {
		return models.PodcastMetrics{}, fmt.Errorf("count users: %w", err)
	}

	totalPodcasts, err := s.Metrics.CountPodcasts(ctx)
	if err != nil {
		return models.PodcastMetrics{}, fmt.Errorf("count podcasts: %w", err)
	}

	userPodcasts, err := s.Metrics.CountPodcastsByOwner(ctx, userID)
	if err != nil {
		return models.PodcastMetrics{}, fmt.Errorf("count user podcasts: %w", err)
	}

	uploadingUsers, err := s.Metrics.CountUploadingUsers(ctx)
	if err != nil {
		return models.PodcastMetrics{}, fmt.Errorf("count uploading users: %w", err)
	}

	totalDuration, err := s.Metrics.SumPodcastDurations(ctx)
	if err != nil {
		return models.PodcastMetrics{}, fmt.Errorf("sum durations: %w", err)
	}

	userDuration, err := s.Metrics.SumPodcastDurationsByOwner(ctx, userID)
	if err != nil {
		return models.PodcastMetrics{}, fmt.Errorf("sum user durations: %w", err)
	}

	metrics := models.PodcastMetrics{
		TotalUsers:                totalUsers,
		TotalPodcasts:             totalPodcasts,
		UserPodcasts:              userPodcasts,
		TotalDurationAllPodcasts:  totalDuration,
		TotalDurationUserPodcasts: userDuration,
	}
	if totalUsers > 0 {
		metrics.AvgPodcastsPerUser = float64(totalPodcasts) / float64(totalUsers)
	}
	if uploadingUsers > 0 {
		metrics.AvgPodcastsPerUploadingUser = float64(totalPodcasts) / float64(uploadingUsers)
	}

	return metrics, nil
}

// AverageTiming reports the mean sample duration for a process within
// [start, end]. Zero times fall back to the trailing 24-hour window. No
// matching samples yields 0.
func (s *Service) AverageTiming(ctx context.Context, processName string, start, end time.Time) (float64, error) {
	if s.Timings == nil {
		return 0, fmt.Errorf("timing store unavailable")
	}

	if end.IsZero() {
		end = s.now()
	}
	if start.IsZero() {
		start = end.Add(-DefaultWindow)
	}

	average, err := s.Timings.AverageTiming(ctx, processName, start, end)
	if err != nil {
		return 0, fmt.Errorf("average timing: %w", err)
	}

	return math.Round(average*100) / 100, nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
