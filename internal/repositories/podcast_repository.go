package repositories

import (
	"context"

	"github.com/podwave/backend/internal/models"
)

// PodcastRepository defines the data access contract for podcasts.
type PodcastRepository interface {
	Create(ctx context.Context, podcast models.Podcast) error
	FindByID(ctx context.Context, id string) (models.Podcast, error)
	List(ctx context.Context) ([]models.Podcast, error)
	Update(ctx context.Context, id string, title, description *string) (models.Podcast, error)
	Delete(ctx context.Context, id string) error
}
