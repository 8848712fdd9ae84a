package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/podwave/backend/internal/db"
	"github.com/podwave/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4)
    `, user.ID, user.Email, user.Password, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at
        FROM users
        WHERE email = $1
    `, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at
        FROM users
        WHERE id = $1
    `, id)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// PostgresPodcastRepository provides PostgreSQL-backed persistence for podcasts.
type PostgresPodcastRepository struct {
	pool db.Pool
}

// NewPostgresPodcastRepository constructs a podcast repository backed by PostgreSQL.
func NewPostgresPodcastRepository(pool db.Pool) *PostgresPodcastRepository {
	return &PostgresPodcastRepository{pool: pool}
}

// Create stores a new podcast record.
func (r *PostgresPodcastRepository) Create(ctx context.Context, podcast models.Podcast) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO podcasts (id, title, description, audio_url, duration_seconds, owner_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, podcast.ID, podcast.Title, podcast.Description, podcast.AudioURL, podcast.Duration, podcast.OwnerID, podcast.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert podcast: %w", err)
	}

	return nil
}

// FindByID returns a podcast with its owner's email populated.
func (r *PostgresPodcastRepository) FindByID(ctx context.Context, id string) (models.Podcast, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Podcast{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT p.id, p.title, p.description, p.audio_url, p.duration_seconds, p.owner_id, u.email, p.created_at
        FROM podcasts p
        JOIN users u ON u.id = p.owner_id
        WHERE p.id = $1
    `, id)

	var podcast models.Podcast
	if err := row.Scan(&podcast.ID, &podcast.Title, &podcast.Description, &podcast.AudioURL, &podcast.Duration, &podcast.OwnerID, &podcast.OwnerEmail, &podcast.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Podcast{}, ErrNotFound
		}
		return models.Podcast{}, fmt.Errorf("select podcast: %w", err)
	}

	return podcast, nil
}

// List returns all podcasts, newest first, owner emails populated.
func (r *PostgresPodcastRepository) List(ctx context.Context) ([]models.Podcast, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT p.id, p.title, p.description, p.audio_url, p.duration_seconds, p.owner_id, u.email, p.created_at
        FROM podcasts p
        JOIN users u ON u.id = p.owner_id
        ORDER BY p.created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("query podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []models.Podcast
	for rows.Next() {
		var podcast models.Podcast
		if err := rows.Scan(&podcast.ID, &podcast.Title, &podcast.Description, &podcast.AudioURL, &podcast.Duration, &podcast.OwnerID, &podcast.OwnerEmail, &podcast.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan podcast: %w", err)
		}
		podcasts = append(podcasts, podcast)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate podcasts: %w", err)
	}

	return podcasts, nil
}

// Update applies a partial update of title and description. Nil fields keep
// their stored values.
func (r *PostgresPodcastRepository) Update(ctx context.Context, id string, title, description *string) (models.Podcast, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Podcast{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE podcasts
        SET title = COALESCE($2, title),
            description = COALESCE($3, description)
        WHERE id = $1
    `, id, title, description)
	if err != nil {
		return models.Podcast{}, fmt.Errorf("update podcast: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.Podcast{}, ErrNotFound
	}

	conn.Release()
	return r.FindByID(ctx, id)
}

// Delete removes a podcast record.
func (r *PostgresPodcastRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM podcasts
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("delete podcast: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ PodcastRepository = (*PostgresPodcastRepository)(nil)
