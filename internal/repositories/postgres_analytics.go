package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/podwave/backend/internal/db"
	"github.com/podwave/backend/internal/models"
)

// PostgresAnalyticsRepository persists listening sessions, listen events and
// workflow timing samples, and answers the aggregate queries behind the
// analytics endpoints.
type PostgresAnalyticsRepository struct {
	pool db.Pool
}

// NewPostgresAnalyticsRepository constructs an analytics repository backed by PostgreSQL.
func NewPostgresAnalyticsRepository(pool db.Pool) *PostgresAnalyticsRepository {
	return &PostgresAnalyticsRepository{pool: pool}
}

// FindSessionSince returns the most recent session for (user, podcast) that
// started at or after the provided instant.
func (r *PostgresAnalyticsRepository) FindSessionSince(ctx context.Context, userID, podcastID string, since time.Time) (models.ListeningSession, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ListeningSession{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, user_id, podcast_id, session_start, total_listened_seconds
        FROM listening_sessions
        WHERE user_id = $1 AND podcast_id = $2 AND session_start >= $3
        ORDER BY session_start DESC
        LIMIT 1
    `, userID, podcastID, since)

	var session models.ListeningSession
	if err := row.Scan(&session.ID, &session.UserID, &session.PodcastID, &session.SessionStart, &session.TotalListenedSeconds); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ListeningSession{}, ErrNotFound
		}
		return models.ListeningSession{}, fmt.Errorf("select listening session: %w", err)
	}

	return session, nil
}

// CreateSession stores a new listening session.
func (r *PostgresAnalyticsRepository) CreateSession(ctx context.Context, session models.ListeningSession) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO listening_sessions (id, user_id, podcast_id, session_start, total_listened_seconds)
        VALUES ($1, $2, $3, $4, $5)
    `, session.ID, session.UserID, session.PodcastID, session.SessionStart, session.TotalListenedSeconds)
	if err != nil {
		return fmt.Errorf("insert listening session: %w", err)
	}

	return nil
}

// AppendListenEvent records one listen event and adds its seconds to the
// session's running total in a single transaction, keeping the session
// invariant (total == sum of events) intact per write.
func (r *PostgresAnalyticsRepository) AppendListenEvent(ctx context.Context, sessionID string, listenedSeconds float64, at time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin listen event transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
        UPDATE listening_sessions
        SET total_listened_seconds = total_listened_seconds + $2
        WHERE id = $1
    `, sessionID, listenedSeconds)
	if err != nil {
		return fmt.Errorf("update session total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO listen_events (session_id, listened_seconds, event_at)
        VALUES ($1, $2, $3)
    `, sessionID, listenedSeconds, at); err != nil {
		return fmt.Errorf("insert listen event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit listen event: %w", err)
	}

	return nil
}

// SumUserListenTime totals listened seconds across all of one user's sessions
// for a podcast.
func (r *PostgresAnalyticsRepository) SumUserListenTime(ctx context.Context, userID, podcastID string) (float64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT COALESCE(SUM(total_listened_seconds), 0)
        FROM listening_sessions
        WHERE user_id = $1 AND podcast_id = $2
    `, userID, podcastID)

	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum user listen time: %w", err)
	}

	return total, nil
}

// SumPodcastListenTime totals listened seconds across all sessions for a podcast.
func (r *PostgresAnalyticsRepository) SumPodcastListenTime(ctx context.Context, podcastID string) (float64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT COALESCE(SUM(total_listened_seconds), 0)
        FROM listening_sessions
        WHERE podcast_id = $1
    `, podcastID)

	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum podcast listen time: %w", err)
	}

	return total, nil
}

// RecordTiming appends one workflow latency sample.
func (r *PostgresAnalyticsRepository) RecordTiming(ctx context.Context, sample models.TimingLog) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO timing_logs (id, process_name, duration_millis, recorded_at)
        VALUES ($1, $2, $3, $4)
    `, sample.ID, sample.ProcessName, sample.DurationMillis, sample.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert timing log: %w", err)
	}

	return nil
}

// AverageTiming returns the mean duration of samples for the process within
// [start, end], or 0 when no samples match.
func (r *PostgresAnalyticsRepository) AverageTiming(ctx context.Context, processName string, start, end time.Time) (float64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT COALESCE(AVG(duration_millis), 0)
        FROM timing_logs
        WHERE process_name = $1 AND recorded_at >= $2 AND recorded_at <= $3
    `, processName, start, end)

	var average float64
	if err := row.Scan(&average); err != nil {
		return 0, fmt.Errorf("average timing: %w", err)
	}

	return average, nil
}

// CountUsers returns the total number of registered users.
func (r *PostgresAnalyticsRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM users`)
}

// CountPodcasts returns the total number of podcasts.
func (r *PostgresAnalyticsRepository) CountPodcasts(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM podcasts`)
}

// CountPodcastsByOwner returns the number of podcasts owned by one user.
func (r *PostgresAnalyticsRepository) CountPodcastsByOwner(ctx context.Context, ownerID string) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(*) FROM podcasts WHERE owner_id = $1`, ownerID)
}

// CountUploadingUsers returns the number of users with at least one podcast.
func (r *PostgresAnalyticsRepository) CountUploadingUsers(ctx context.Context) (int64, error) {
	return r.countRow(ctx, `SELECT COUNT(DISTINCT owner_id) FROM podcasts`)
}

// SumPodcastDurations returns the combined duration of every podcast.
func (r *PostgresAnalyticsRepository) SumPodcastDurations(ctx context.Context) (float64, error) {
	return r.sumRow(ctx, `SELECT COALESCE(SUM(duration_seconds), 0) FROM podcasts`)
}

// SumPodcastDurationsByOwner returns the combined duration of one user's podcasts.
func (r *PostgresAnalyticsRepository) SumPodcastDurationsByOwner(ctx context.Context, ownerID string) (float64, error) {
	return r.sumRow(ctx, `SELECT COALESCE(SUM(duration_seconds), 0) FROM podcasts WHERE owner_id = $1`, ownerID)
}

func (r *PostgresAnalyticsRepository) countRow(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	if err := conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}

func (r *PostgresAnalyticsRepository) sumRow(ctx context.Context, query string, args ...any) (float64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var sum float64
	if err := conn.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum rows: %w", err)
	}
	return sum, nil
}

var _ SessionRepository = (*PostgresAnalyticsRepository)(nil)
var _ TimingRepository = (*PostgresAnalyticsRepository)(nil)
var _ MetricsRepository = (*PostgresAnalyticsRepository)(nil)
