package repositories

import (
	"context"

	"github.com/chrisdamba/coastersim/internal/models"
)

type RideEventRepository interface {
	EnsureSchema(ctx context.Context) error
	BulkCreate(ctx context.Context, events []*models.RideEventRecord) error
	Create(ctx context.Context, event *models.RideEventRecord) error
	CountByRun(ctx context.Context, runID string) (int, error)
	DeleteRun(ctx context.Context, runID string) error
}
