package models

import "time"

// RideEventRecord is the persisted form of one serialised ride event.
type RideEventRecord struct {
	RunID       string    `json:"run_id"`
	Topic       string    `json:"topic"`
	EventType   string    `json:"event_type"`
	CarID       int       `json:"car_id"`
	PassengerID int       `json:"passenger_id"`
	Passengers  int       `json:"passengers"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     []byte    `json:"payload"`
}
