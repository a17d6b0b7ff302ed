package coaster

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrisdamba/coastersim/internal/invariant"
	"github.com/sirupsen/logrus"
)

type State string

const (
	StateLoading         State = "loading"
	StateFull            State = "full"
	StateRunning         State = "running"
	StateAtUnloadStation State = "at_unload_station"
	StateUnloading       State = "unloading"
	StateEmpty           State = "empty"
	StateExited          State = "exited"
)

// Car is a capacity-gated group of seats. Passengers call Board, Ride and
// Unboard; the car's own driver task calls Load, Run and Unload.
type Car struct {
	id       int
	capacity int

	mu         sync.Mutex
	isFull     *sync.Cond
	isEmpty    *sync.Cond
	passengers int
	terminated bool
	state      State
	cycles     int
	served     int

	// closed is set while the car is not the park's loading car.
	closed      atomic.Bool
	riders      *Signal
	unloadReady *Signal

	timer    RideTimer
	recorder Recorder
	now      func() time.Time
	log      *logrus.Entry
}

func NewCar(id, capacity int, opts ...Option) *Car {
	return newCar(id, capacity, buildOptions(opts))
}

func newCar(id, capacity int, o *options) *Car {
	c := &Car{
		id:          id,
		capacity:    capacity,
		state:       StateLoading,
		riders:      NewSignal(0),
		unloadReady: NewSignal(0),
		timer:       o.timer,
		recorder:    o.recorder,
		now:         o.now,
		log:         o.log.WithField("car", id),
	}
	c.isFull = sync.NewCond(&c.mu)
	c.isEmpty = sync.NewCond(&c.mu)
	return c
}

func (c *Car) ID() int       { return c.id }
func (c *Car) Capacity() int { return c.capacity }

func (c *Car) Passengers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passengers
}

func (c *Car) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

func (c *Car) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cycles is the number of completed load/run/unload cycles.
func (c *Car) Cycles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

// Served is the number of passengers that have unboarded this car.
func (c *Car) Served() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.served
}

// Board takes a seat for passengerID. It returns false without changing
// anything when the car is full, terminated, or not currently loading; the
// caller is expected to queue for a car again.
func (c *Car) Board(passengerID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminated || c.closed.Load() || c.passengers >= c.capacity {
		return false
	}

	c.passengers++
	c.record(EventBoard, passengerID)
	c.log.WithField("passenger", passengerID).Debug("passenger boarded")

	if c.passengers == c.capacity {
		c.isFull.Signal()
	}
	return true
}

// Ride blocks a boarded passenger until Unload releases it.
func (c *Car) Ride() {
	c.riders.Wait()
}

func (c *Car) Unboard(passengerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	invariant.Checkf(c.passengers > 0, "passenger %d unboarded empty car %d", passengerID, c.id)

	c.passengers--
	c.served++
	c.record(EventUnboard, passengerID)
	c.log.WithField("passenger", passengerID).Debug("passenger disembarked")

	if c.passengers == 0 {
		c.isEmpty.Signal()
	}
}

// Load blocks until the car is full or has been terminated. It returns
// false only when the car is terminated and empty, which ends the driver
// loop. A terminated car that already holds passengers still runs them.
func (c *Car) Load() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateLoading
	for c.passengers < c.capacity && !c.terminated {
		c.isFull.Wait()
	}

	if c.passengers == 0 {
		c.state = StateExited
		c.record(EventCarExit, NoPassenger)
		c.log.WithField("cycles", c.cycles).Info("car terminated")
		return false
	}

	c.state = StateFull
	c.record(EventLoadComplete, NoPassenger)
	return true
}

// Run holds the car on the track for its ride duration, then until the
// park signals that the unloading station is free for it.
func (c *Car) Run() {
	c.mu.Lock()
	c.state = StateRunning
	c.record(EventRunStart, NoPassenger)
	c.mu.Unlock()
	c.log.Debug("now running")

	time.Sleep(c.timer.RideDuration(c.id))
	c.unloadReady.Wait()

	c.mu.Lock()
	c.state = StateAtUnloadStation
	c.record(EventRunFinish, NoPassenger)
	c.mu.Unlock()
	c.log.Debug("finished")
}

// Unload releases every boarded passenger's Ride exactly once and waits for
// all of them to unboard.
func (c *Car) Unload() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateUnloading
	c.record(EventUnloadStart, NoPassenger)
	c.riders.PostN(c.passengers)

	for c.passengers > 0 {
		c.isEmpty.Wait()
	}

	c.cycles++
	c.state = StateEmpty
	c.record(EventUnloadComplete, NoPassenger)
}

// Terminate asks the car to leave its driver loop at the next Load that
// finds it empty. Calling it more than once has no further effect.
func (c *Car) Terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminated {
		return
	}
	c.terminated = true
	c.record(EventTerminate, NoPassenger)
	c.isFull.Broadcast()
}

// UnloadReady lets a running car through to the unloading station.
func (c *Car) UnloadReady() {
	c.unloadReady.Post()
}

func (c *Car) openBoarding()  { c.closed.Store(false) }
func (c *Car) closeBoarding() { c.closed.Store(true) }

// record must be called with c.mu held.
func (c *Car) record(t EventType, passengerID int) {
	c.recorder.Record(Event{
		Type:        t,
		CarID:       c.id,
		PassengerID: passengerID,
		Passengers:  c.passengers,
		Cycle:       c.cycles,
		Time:        c.now(),
	})
}
