package simulator

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/chrisdamba/coastersim/internal/coaster"
	"github.com/chrisdamba/coastersim/internal/factories"
	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFlushInterval = 50 * time.Millisecond
	flushBatchSize       = 500
)

type Simulator struct {
	Config     *models.Config
	RunID      string
	Passengers []*models.Passenger
	Rng        *rand.Rand
	EventQueue *models.EventQueue

	log           *log.Entry
	stdout        io.Writer
	progressOut   io.Writer
	output        OutputDestination
	flushInterval time.Duration
	eventsWritten int
}

func NewSimulator(config *models.Config) *Simulator {
	runID := uuid.NewString()
	return &Simulator{
		Config:        config,
		RunID:         runID,
		Rng:           rand.New(rand.NewSource(config.Seed)),
		EventQueue:    models.NewEventQueue(),
		log:           log.WithField("run_id", runID),
		stdout:        os.Stdout,
		progressOut:   os.Stderr,
		flushInterval: defaultFlushInterval,
	}
}

// Run starts one car driver per car and one task per passenger, waits until
// every passenger has boarded, shuts the park down and waits for all rides
// to finish. Cancelling ctx turns away passengers who have not queued yet;
// those already queued still ride.
func (s *Simulator) Run(ctx context.Context) (report *models.Report, err error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}

	dest, err := s.determineOutputDestination(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := dest.Close(); cerr != nil {
			s.log.WithError(cerr).Error("Failed to close output destination")
			if err == nil {
				err = fmt.Errorf("failed to close output destination: %w", cerr)
			}
		}
	}()

	startedAt := time.Now()
	s.Passengers = factories.NewPassengerFactory(s.Config.Seed).CreatePassengers(s.Config.Passengers)
	gate := newBoardingGate(len(s.Passengers))

	sink := newEventSink(s.EventQueue, s.Passengers, gate)
	opts := []coaster.Option{
		coaster.WithRecorder(sink),
		coaster.WithRideTimer(newUniformRideTimer(s.Config.Seed+1, s.Config.MinRideDuration, s.Config.MaxRideDuration)),
		coaster.WithLogger(s.log),
	}
	if s.Config.InvariantChecks {
		opts = append(opts, coaster.WithInvariantChecks())
	}

	park, cars, err := coaster.NewRoster(s.Config.Cars, s.Config.SeatsPerCar, opts...)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{
		"cars":          len(cars),
		"seats_per_car": s.Config.SeatsPerCar,
		"passengers":    len(s.Passengers),
		"output":        s.Config.OutputDestination,
	}).Info("Simulation starting")

	stopFlush := make(chan struct{})
	flushDone := make(chan struct{})
	go s.flushEvents(dest, stopFlush, flushDone)

	bar := s.newProgressBar(len(s.Passengers))

	var drivers errgroup.Group
	for _, car := range cars {
		car := car
		drivers.Go(func() error {
			coaster.RunCarDriver(car, park)
			return nil
		})
	}

	var riders errgroup.Group
	delays := arrivalDelays(s.Rng, len(s.Passengers), s.Config.PassengerArrivalJitter)
	for i, passenger := range s.Passengers {
		passenger, delay := passenger, delays[i]
		riders.Go(func() error {
			return s.ride(ctx, park, passenger, delay, gate, bar)
		})
	}

	<-gate.Done()
	s.log.Debug("All passengers settled, shutting the park down")
	coaster.Shutdown(cars)

	ridersErr := riders.Wait()
	if err := drivers.Wait(); err != nil && ridersErr == nil {
		ridersErr = err
	}

	close(stopFlush)
	<-flushDone
	_ = bar.Finish()

	report = s.buildReport(startedAt, cars, sink)
	s.log.WithFields(log.Fields{
		"served":         report.PassengersServed,
		"abandoned":      report.Abandoned,
		"events_written": report.EventsWritten,
		"average_wait":   report.AverageWait,
		"duration":       report.Duration(),
	}).Info("Simulation completed")

	if ridersErr != nil {
		return report, ridersErr
	}
	if ctx.Err() != nil {
		return report, fmt.Errorf("simulation interrupted: %w", ctx.Err())
	}
	return report, nil
}

func (s *Simulator) ride(ctx context.Context, park *coaster.Park, p *models.Passenger, delay time.Duration, gate *boardingGate, bar *progressbar.ProgressBar) error {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	if ctx.Err() != nil {
		p.Status = models.PassengerStatusAbandoned
		gate.settle()
		s.log.WithField("passenger", p.ID).Debug("Passenger left before queueing")
		return nil
	}

	p.ArrivedAt = time.Now()
	p.Status = models.PassengerStatusQueued
	car := coaster.RunPassenger(p.ID, park)

	s.log.WithFields(log.Fields{
		"passenger": p.ID,
		"car":       car.ID(),
		"wait":      p.WaitDuration(),
	}).Debug("Passenger finished ride")
	_ = bar.Add(1)
	return nil
}

func (s *Simulator) flushEvents(dest OutputDestination, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.writeBatch(dest)
		case <-stop:
			for s.writeBatch(dest) > 0 {
			}
			return
		}
	}
}

func (s *Simulator) writeBatch(dest OutputDestination) int {
	batch := s.EventQueue.DequeueBatch(flushBatchSize)
	for _, event := range batch {
		eventMsg, err := s.serializeEvent(*event)
		if err != nil {
			s.log.WithError(err).Error("Error serializing event")
			continue
		}
		if err := dest.WriteMessage(eventMsg.Topic, eventMsg.Message); err != nil {
			s.log.WithError(err).WithField("topic", eventMsg.Topic).Warn("Failed to write message")
			continue
		}
		s.eventsWritten++
	}
	return len(batch)
}

func (s *Simulator) newProgressBar(total int) *progressbar.ProgressBar {
	if !s.Config.ShowProgress || total == 0 {
		return progressbar.DefaultSilent(int64(total), "riding")
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(s.progressOut),
		progressbar.OptionSetDescription("riding"),
		progressbar.OptionSetItsString("passengers"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(s.progressOut)
		}),
	)
}

func (s *Simulator) buildReport(startedAt time.Time, cars []*coaster.Car, sink *eventSink) *models.Report {
	report := &models.Report{
		RunID:         s.RunID,
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
		Cars:          len(cars),
		SeatsPerCar:   s.Config.SeatsPerCar,
		Passengers:    len(s.Passengers),
		EventsWritten: s.eventsWritten,
	}

	var totalWait time.Duration
	for _, p := range s.Passengers {
		switch p.Status {
		case models.PassengerStatusCompleted:
			report.PassengersServed++
			totalWait += p.WaitDuration()
		case models.PassengerStatusAbandoned:
			report.Abandoned++
		}
	}
	if report.PassengersServed > 0 {
		report.AverageWait = totalWait / time.Duration(report.PassengersServed)
	}

	for _, car := range cars {
		report.CarStats = append(report.CarStats, models.CarStats{
			CarID:    car.ID(),
			Capacity: car.Capacity(),
			Cycles:   car.Cycles(),
			Served:   car.Served(),
			PeakLoad: sink.PeakLoad(car.ID()),
		})
	}
	return report
}
