package postgres

import (
	"context"
	"fmt"

	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createRideEventsTable = `
	CREATE TABLE IF NOT EXISTS ride_events (
		id           BIGSERIAL PRIMARY KEY,
		run_id       TEXT        NOT NULL,
		topic        TEXT        NOT NULL,
		event_type   TEXT        NOT NULL,
		car_id       INTEGER     NOT NULL,
		passenger_id INTEGER     NOT NULL,
		passengers   INTEGER     NOT NULL,
		occurred_at  TIMESTAMPTZ NOT NULL,
		payload      JSONB       NOT NULL
	)`

const createRideEventsIndex = `CREATE INDEX IF NOT EXISTS ride_events_run_id_idx ON ride_events (run_id)`

const insertRideEvent = `
	INSERT INTO ride_events (
		run_id, topic, event_type, car_id, passenger_id, passengers, occurred_at, payload
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type RideEventRepository struct {
	pool *pgxpool.Pool
}

func NewRideEventRepository(pool *pgxpool.Pool) *RideEventRepository {
	return &RideEventRepository{pool: pool}
}

// NewPool connects to connString and pings the database.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}

func (r *RideEventRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createRideEventsTable, createRideEventsIndex} {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ride_events schema: %w", err)
		}
	}
	return nil
}

func (r *RideEventRepository) BulkCreate(ctx context.Context, events []*models.RideEventRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, event := range events {
		_, err = tx.Exec(ctx, insertRideEvent,
			event.RunID,
			event.Topic,
			event.EventType,
			event.CarID,
			event.PassengerID,
			event.Passengers,
			event.OccurredAt,
			event.Payload,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *RideEventRepository) Create(ctx context.Context, event *models.RideEventRecord) error {
	_, err := r.pool.Exec(ctx, insertRideEvent,
		event.RunID,
		event.Topic,
		event.EventType,
		event.CarID,
		event.PassengerID,
		event.Passengers,
		event.OccurredAt,
		event.Payload,
	)
	return err
}

func (r *RideEventRepository) CountByRun(ctx context.Context, runID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ride_events WHERE run_id = $1", runID).Scan(&count)
	return count, err
}

func (r *RideEventRepository) DeleteRun(ctx context.Context, runID string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM ride_events WHERE run_id = $1", runID)
	return err
}
