package simulator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chrisdamba/coastersim/internal/coaster"
	"github.com/chrisdamba/coastersim/internal/models"
)

func (s *Simulator) serializeEvent(event models.Event) (EventMessage, error) {
	e, ok := event.Data.(coaster.Event)
	if !ok {
		return EventMessage{}, fmt.Errorf("unexpected event payload %T", event.Data)
	}

	topic := TopicFor(e.Type)
	var eventData interface{}

	switch e.Type {
	case coaster.EventBoard, coaster.EventUnboard:
		passenger, err := s.passenger(e.PassengerID)
		if err != nil {
			return EventMessage{}, err
		}
		boarding := BoardingEvent{
			Timestamp:     e.Time.UnixMilli(),
			EventType:     string(e.Type),
			RunID:         s.RunID,
			CarID:         int64(e.CarID),
			Passengers:    int64(e.Passengers),
			Cycle:         int64(e.Cycle),
			PassengerID:   int64(passenger.ID),
			TicketID:      passenger.TicketID,
			PassengerName: passenger.Name,
		}
		if e.Type == coaster.EventBoard {
			boarding.WaitMs = e.Time.Sub(passenger.ArrivedAt).Milliseconds()
		}
		eventData = boarding

	case coaster.EventRotate:
		if e.Rotation == nil {
			return EventMessage{}, fmt.Errorf("rotate event for car %d has no rotation", e.CarID)
		}
		eventData = RotationEvent{
			Timestamp:  e.Time.UnixMilli(),
			EventType:  string(e.Type),
			RunID:      s.RunID,
			CarID:      int64(e.CarID),
			Passengers: int64(e.Passengers),
			Loading:    int64(e.Rotation.Loading),
			Unloading:  int64(e.Rotation.Unloading),
			Waiting:    joinIDs(e.Rotation.Waiting),
			Running:    joinIDs(e.Rotation.Running),
		}

	default:
		eventData = CarEvent{
			Timestamp:  e.Time.UnixMilli(),
			EventType:  string(e.Type),
			RunID:      s.RunID,
			CarID:      int64(e.CarID),
			Passengers: int64(e.Passengers),
			Cycle:      int64(e.Cycle),
		}
	}

	msg, err := json.Marshal(eventData)
	if err != nil {
		return EventMessage{}, fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}
	return EventMessage{Topic: topic, Message: msg}, nil
}

func (s *Simulator) passenger(id int) (*models.Passenger, error) {
	if id < 0 || id >= len(s.Passengers) {
		return nil, fmt.Errorf("unknown passenger %d", id)
	}
	return s.Passengers[id], nil
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// boardingGate closes Done once every passenger has either boarded or
// given up before queueing.
type boardingGate struct {
	remaining atomic.Int64
	done      chan struct{}
	once      sync.Once
}

func newBoardingGate(passengers int) *boardingGate {
	g := &boardingGate{done: make(chan struct{})}
	g.remaining.Store(int64(passengers))
	if passengers == 0 {
		g.once.Do(func() { close(g.done) })
	}
	return g
}

func (g *boardingGate) settle() {
	if g.remaining.Add(-1) == 0 {
		g.once.Do(func() { close(g.done) })
	}
}

func (g *boardingGate) Done() <-chan struct{} { return g.done }

// eventSink is the park's Recorder. It queues every event for the output
// flusher and keeps the passengers' ride timestamps current. Board and
// Unboard run on the passenger's own goroutine, so each passenger record is
// only written by its owner.
type eventSink struct {
	queue      *models.EventQueue
	passengers []*models.Passenger
	gate       *boardingGate

	mu       sync.Mutex
	peakLoad map[int]int
}

func newEventSink(queue *models.EventQueue, passengers []*models.Passenger, gate *boardingGate) *eventSink {
	return &eventSink{
		queue:      queue,
		passengers: passengers,
		gate:       gate,
		peakLoad:   make(map[int]int),
	}
}

func (s *eventSink) Record(e coaster.Event) {
	s.queue.Enqueue(&models.Event{Time: e.Time, Type: string(e.Type), Data: e})

	switch e.Type {
	case coaster.EventBoard:
		if p := s.lookup(e.PassengerID); p != nil {
			p.BoardedAt = e.Time
			p.CarID = e.CarID
			p.Status = models.PassengerStatusBoarded
		}
		s.gate.settle()
	case coaster.EventUnboard:
		if p := s.lookup(e.PassengerID); p != nil {
			p.UnboardedAt = e.Time
			p.Status = models.PassengerStatusCompleted
		}
	case coaster.EventLoadComplete:
		s.mu.Lock()
		if e.Passengers > s.peakLoad[e.CarID] {
			s.peakLoad[e.CarID] = e.Passengers
		}
		s.mu.Unlock()
	}
}

// PeakLoad is the largest number of riders carID has left the station with.
func (s *eventSink) PeakLoad(carID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peakLoad[carID]
}

func (s *eventSink) lookup(id int) *models.Passenger {
	if id < 0 || id >= len(s.passengers) {
		return nil
	}
	return s.passengers[id]
}
