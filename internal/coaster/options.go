package coaster

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrInvalidConfiguration is returned before any task is started when the
// roster cannot be built.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// RideTimer decides how long a car spends on the track each run.
type RideTimer interface {
	RideDuration(carID int) time.Duration
}

// FixedRide runs every car for the same duration.
type FixedRide time.Duration

func (d FixedRide) RideDuration(int) time.Duration { return time.Duration(d) }

type options struct {
	recorder Recorder
	timer    RideTimer
	log      *logrus.Entry
	checks   bool
	now      func() time.Time
}

type Option func(*options)

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func WithRideTimer(t RideTimer) Option {
	return func(o *options) {
		if t != nil {
			o.timer = t
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithInvariantChecks verifies rotation conservation after every park
// mutation.
func WithInvariantChecks() Option {
	return func(o *options) { o.checks = true }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		recorder: nopRecorder{},
		timer:    FixedRide(0),
		log:      logrus.NewEntry(logrus.StandardLogger()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
