package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when COASTERSIM_TEST_DATABASE_URL is set.
func newTestRepository(t *testing.T) *RideEventRepository {
	t.Helper()

	connString := os.Getenv("COASTERSIM_TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("COASTERSIM_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewRideEventRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func TestRideEventRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	runID := uuid.NewString()
	t.Cleanup(func() { _ = repo.DeleteRun(ctx, runID) })

	now := time.Now().UTC()
	events := []*models.RideEventRecord{
		{RunID: runID, Topic: models.TopicBoardingEvents, EventType: "board", CarID: 0, PassengerID: 3, Passengers: 1, OccurredAt: now, Payload: []byte(`{"eventType":"board"}`)},
		{RunID: runID, Topic: models.TopicCarEvents, EventType: "run_start", CarID: 0, PassengerID: -1, Passengers: 4, OccurredAt: now, Payload: []byte(`{"eventType":"run_start"}`)},
	}
	require.NoError(t, repo.BulkCreate(ctx, events))
	require.NoError(t, repo.Create(ctx, &models.RideEventRecord{
		RunID: runID, Topic: models.TopicRotationEvents, EventType: "rotate", CarID: 0, PassengerID: -1, OccurredAt: now, Payload: []byte(`{}`),
	}))

	count, err := repo.CountByRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, repo.DeleteRun(ctx, runID))
	count, err = repo.CountByRun(ctx, runID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewPoolRejectsBadConnString(t *testing.T) {
	_, err := NewPool(context.Background(), "host=localhost port=notaport")
	assert.Error(t, err)
}
