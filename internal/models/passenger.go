package models

import "time"

// Passenger is one rider of a simulation run. ID is the protocol-level
// passenger id; TicketID is unique across runs.
type Passenger struct {
	ID          int       `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	CarID       int       `json:"car_id"`
	ArrivedAt   time.Time `json:"arrived_at"`
	BoardedAt   time.Time `json:"boarded_at,omitempty"`
	UnboardedAt time.Time `json:"unboarded_at,omitempty"`
}

// WaitDuration is the time between arrival and boarding, zero until boarded.
func (p *Passenger) WaitDuration() time.Duration {
	if p.BoardedAt.IsZero() {
		return 0
	}
	return p.BoardedAt.Sub(p.ArrivedAt)
}
