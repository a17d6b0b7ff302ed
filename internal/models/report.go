package models

import "time"

type CarStats struct {
	CarID    int `json:"car_id"`
	Capacity int `json:"capacity"`
	Cycles   int `json:"cycles"`
	Served   int `json:"served"`
	PeakLoad int `json:"peak_load"`
}

// Report summarises one simulation run.
type Report struct {
	RunID            string        `json:"run_id"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       time.Time     `json:"finished_at"`
	Cars             int           `json:"cars"`
	SeatsPerCar      int           `json:"seats_per_car"`
	Passengers       int           `json:"passengers"`
	PassengersServed int           `json:"passengers_served"`
	Abandoned        int           `json:"abandoned"`
	EventsWritten    int           `json:"events_written"`
	AverageWait      time.Duration `json:"average_wait"`
	CarStats         []CarStats    `json:"car_stats"`
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
