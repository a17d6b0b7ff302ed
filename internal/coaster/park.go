package coaster

import (
	"fmt"
	"sync"
	"time"

	"github.com/chrisdamba/coastersim/internal/invariant"
	"github.com/sirupsen/logrus"
)

// Park rotates cars between the loading station, the track and the
// unloading station. Exactly one car loads at a time and exactly one
// unloads at a time; the rest wait in FIFO queues.
type Park struct {
	mu        sync.Mutex
	seats     *Signal
	roster    []*Car
	loading   *Car
	unloading *Car
	// waiting holds empty cars queued for the loading station.
	waiting []*Car
	// running holds full cars queued for the unloading station.
	running []*Car

	checks   bool
	recorder Recorder
	now      func() time.Time
	log      *logrus.Entry
}

// NewRoster allocates carCount cars of seatsPerCar seats, addressed by
// index, and a park whose first car is loading.
func NewRoster(carCount, seatsPerCar int, opts ...Option) (*Park, []*Car, error) {
	if carCount <= 0 {
		return nil, nil, fmt.Errorf("%w: car count must be positive, got %d", ErrInvalidConfiguration, carCount)
	}
	if seatsPerCar <= 0 {
		return nil, nil, fmt.Errorf("%w: seats per car must be positive, got %d", ErrInvalidConfiguration, seatsPerCar)
	}

	o := buildOptions(opts)
	cars := make([]*Car, carCount)
	for i := range cars {
		cars[i] = newCar(i, seatsPerCar, o)
	}
	return newPark(cars, o), cars, nil
}

func newPark(cars []*Car, o *options) *Park {
	p := &Park{
		seats:    NewSignal(0),
		roster:   cars,
		checks:   o.checks,
		recorder: o.recorder,
		now:      o.now,
		log:      o.log.WithField("component", "park"),
	}

	for _, c := range cars {
		c.closeBoarding()
	}
	if len(cars) > 0 {
		p.setLoading(cars[0])
		p.waiting = append(p.waiting, cars[1:]...)
	}
	p.verify()
	return p
}

// QueueForCar blocks until a seat is available on the loading car and
// returns that car. The seat is not reserved: Board may still fail, in
// which case the passenger queues again.
func (p *Park) QueueForCar() *Car {
	for {
		p.seats.Wait()

		p.mu.Lock()
		c := p.loading
		p.mu.Unlock()

		if c != nil {
			return c
		}
	}
}

// StartCar is called by the loading car once Load returns true. The car
// goes straight to the unloading station if it is free, otherwise it joins
// the running queue. The next waiting car, if any, starts loading.
func (p *Park) StartCar(c *Car) {
	p.mu.Lock()
	defer p.mu.Unlock()

	invariant.Checkf(p.loading == c, "car %d started while not loading", c.id)

	c.closeBoarding()
	if p.unloading == nil {
		p.unloading = c
		c.UnloadReady()
	} else {
		p.running = append(p.running, c)
	}

	if len(p.waiting) > 0 {
		next := p.waiting[0]
		p.waiting = p.waiting[1:]
		p.setLoading(next)
	} else {
		p.loading = nil
		p.seats.Drain()
	}

	p.rotated(c)
}

// ReturnCar is called by the unloading car once Unload returns. The car
// loads again if the station is free, otherwise it joins the waiting
// queue. The head of the running queue, if any, is let through to unload.
func (p *Park) ReturnCar(c *Car) {
	p.mu.Lock()
	defer p.mu.Unlock()

	invariant.Checkf(p.unloading == c, "car %d returned while not unloading", c.id)

	if p.loading == nil {
		p.setLoading(c)
	} else {
		p.waiting = append(p.waiting, c)
	}

	if len(p.running) > 0 {
		p.unloading = p.running[0]
		p.running = p.running[1:]
		p.unloading.UnloadReady()
	} else {
		p.unloading = nil
	}

	p.rotated(c)
}

func (p *Park) Snapshot() Rotation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rotation()
}

// SeatsAvailable reports the current count of the boardable-seat signal.
func (p *Park) SeatsAvailable() int {
	return p.seats.Count()
}

// setLoading must be called with p.mu held.
func (p *Park) setLoading(c *Car) {
	p.loading = c
	c.openBoarding()
	p.seats.Arm(c.capacity)
}

func (p *Park) rotated(c *Car) {
	p.verify()

	r := p.rotation()
	p.recorder.Record(Event{
		Type:        EventRotate,
		CarID:       c.id,
		PassengerID: NoPassenger,
		Rotation:    &r,
		Time:        p.now(),
	})
	p.log.WithFields(logrus.Fields{
		"car":       c.id,
		"loading":   r.Loading,
		"unloading": r.Unloading,
		"waiting":   r.Waiting,
		"running":   r.Running,
	}).Debug("rotation")
}

func (p *Park) rotation() Rotation {
	r := Rotation{
		Loading:   NoCar,
		Unloading: NoCar,
		Waiting:   make([]int, 0, len(p.waiting)),
		Running:   make([]int, 0, len(p.running)),
	}
	if p.loading != nil {
		r.Loading = p.loading.id
	}
	if p.unloading != nil {
		r.Unloading = p.unloading.id
	}
	for _, c := range p.waiting {
		r.Waiting = append(r.Waiting, c.id)
	}
	for _, c := range p.running {
		r.Running = append(r.Running, c.id)
	}
	return r
}

// verify checks that every car of the roster sits in exactly one slot.
func (p *Park) verify() {
	if !p.checks {
		return
	}
	ids := p.rotation().CarIDs()
	invariant.Checkf(len(ids) == len(p.roster), "rotation holds %d cars, roster has %d", len(ids), len(p.roster))

	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		invariant.Checkf(id >= 0 && id < len(p.roster), "unknown car %d in rotation", id)
		invariant.Checkf(!seen[id], "car %d appears twice in rotation", id)
		seen[id] = true
	}
}
