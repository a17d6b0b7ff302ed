package output

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/chrisdamba/coastersim/internal/repositories"
	"github.com/chrisdamba/coastersim/internal/repositories/postgres"
)

const defaultBatchSize = 100

// PostgresOutput buffers ride events and stores them in batches through a
// RideEventRepository.
type PostgresOutput struct {
	ctx       context.Context
	repo      repositories.RideEventRepository
	batchSize int
	release   func()

	mu      sync.Mutex
	pending []*models.RideEventRecord
}

// NewPostgresOutput connects to the configured database and makes sure the
// ride_events table exists.
func NewPostgresOutput(ctx context.Context, config *models.DatabaseConfig) (*PostgresOutput, error) {
	pool, err := postgres.NewPool(ctx, config.ConnString())
	if err != nil {
		return nil, err
	}

	repo := postgres.NewRideEventRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	out := NewPostgresOutputWithRepository(ctx, repo, defaultBatchSize)
	out.release = pool.Close
	return out, nil
}

func NewPostgresOutputWithRepository(ctx context.Context, repo repositories.RideEventRepository, batchSize int) *PostgresOutput {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PostgresOutput{
		ctx:       ctx,
		repo:      repo,
		batchSize: batchSize,
	}
}

// rideEventHeader holds the fields every serialised ride event carries.
type rideEventHeader struct {
	Timestamp   int64  `json:"timestamp"`
	EventType   string `json:"eventType"`
	RunID       string `json:"runId"`
	CarID       int    `json:"carId"`
	PassengerID *int   `json:"passengerId"`
	Passengers  int    `json:"passengers"`
}

func (p *PostgresOutput) WriteMessage(topic string, msg []byte) error {
	var header rideEventHeader
	if err := json.Unmarshal(msg, &header); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", topic, err)
	}

	passengerID := -1
	if header.PassengerID != nil {
		passengerID = *header.PassengerID
	}

	record := &models.RideEventRecord{
		RunID:       header.RunID,
		Topic:       topic,
		EventType:   header.EventType,
		CarID:       header.CarID,
		PassengerID: passengerID,
		Passengers:  header.Passengers,
		OccurredAt:  time.UnixMilli(header.Timestamp).UTC(),
		Payload:     append([]byte(nil), msg...),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, record)
	if len(p.pending) < p.batchSize {
		return nil
	}
	return p.flushLocked()
}

func (p *PostgresOutput) flushLocked() error {
	if len(p.pending) == 0 {
		return nil
	}
	if err := p.repo.BulkCreate(p.ctx, p.pending); err != nil {
		return fmt.Errorf("failed to insert %d ride events: %w", len(p.pending), err)
	}
	p.pending = nil
	return nil
}

func (p *PostgresOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.flushLocked()
	if p.release != nil {
		p.release()
		p.release = nil
	}
	return err
}
