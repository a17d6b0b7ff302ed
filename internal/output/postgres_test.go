package output

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRideEventRepository struct {
	mock.Mock
}

func (m *mockRideEventRepository) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRideEventRepository) BulkCreate(ctx context.Context, events []*models.RideEventRecord) error {
	return m.Called(ctx, events).Error(0)
}

func (m *mockRideEventRepository) Create(ctx context.Context, event *models.RideEventRecord) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockRideEventRepository) CountByRun(ctx context.Context, runID string) (int, error) {
	args := m.Called(ctx, runID)
	return args.Int(0), args.Error(1)
}

func (m *mockRideEventRepository) DeleteRun(ctx context.Context, runID string) error {
	return m.Called(ctx, runID).Error(0)
}

const boardMessage = `{"timestamp":1717243200000,"eventType":"board","runId":"run-1","carId":2,"passengerId":5,"passengers":3}`

func TestPostgresOutputBatchesWrites(t *testing.T) {
	repo := &mockRideEventRepository{}
	out := NewPostgresOutputWithRepository(context.Background(), repo, 2)

	var stored []*models.RideEventRecord
	repo.On("BulkCreate", mock.Anything, mock.AnythingOfType("[]*models.RideEventRecord")).
		Run(func(args mock.Arguments) {
			stored = append(stored, args.Get(1).([]*models.RideEventRecord)...)
		}).
		Return(nil)

	require.NoError(t, out.WriteMessage(models.TopicBoardingEvents, []byte(boardMessage)))
	repo.AssertNotCalled(t, "BulkCreate", mock.Anything, mock.Anything)

	require.NoError(t, out.WriteMessage(models.TopicCarEvents, []byte(`{"timestamp":1717243201000,"eventType":"run_start","runId":"run-1","carId":2,"passengers":4}`)))
	repo.AssertNumberOfCalls(t, "BulkCreate", 1)

	require.NoError(t, out.WriteMessage(models.TopicBoardingEvents, []byte(boardMessage)))
	require.NoError(t, out.Close())
	repo.AssertNumberOfCalls(t, "BulkCreate", 2)

	require.Len(t, stored, 3)
	first := stored[0]
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, models.TopicBoardingEvents, first.Topic)
	assert.Equal(t, "board", first.EventType)
	assert.Equal(t, 2, first.CarID)
	assert.Equal(t, 5, first.PassengerID)
	assert.Equal(t, 3, first.Passengers)
	assert.Equal(t, time.UnixMilli(1717243200000).UTC(), first.OccurredAt)
	assert.JSONEq(t, boardMessage, string(first.Payload))

	assert.Equal(t, -1, stored[1].PassengerID, "car events carry no passenger")
}

func TestPostgresOutputSurfacesRepositoryErrors(t *testing.T) {
	repo := &mockRideEventRepository{}
	out := NewPostgresOutputWithRepository(context.Background(), repo, 1)
	repo.On("BulkCreate", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	err := out.WriteMessage(models.TopicBoardingEvents, []byte(boardMessage))
	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresOutputRejectsMalformedMessages(t *testing.T) {
	out := NewPostgresOutputWithRepository(context.Background(), &mockRideEventRepository{}, 10)
	assert.Error(t, out.WriteMessage(models.TopicCarEvents, []byte("not json")))
}

func TestPostgresOutputCloseWithoutEvents(t *testing.T) {
	repo := &mockRideEventRepository{}
	out := NewPostgresOutputWithRepository(context.Background(), repo, 10)

	assert.NoError(t, out.Close())
	repo.AssertNotCalled(t, "BulkCreate", mock.Anything, mock.Anything)
}
