package coaster

import "time"

type EventType string

const (
	EventBoard          EventType = "board"
	EventUnboard        EventType = "unboard"
	EventLoadComplete   EventType = "load_complete"
	EventRunStart       EventType = "run_start"
	EventRunFinish      EventType = "run_finish"
	EventUnloadStart    EventType = "unload_start"
	EventUnloadComplete EventType = "unload_complete"
	EventCarExit        EventType = "car_exit"
	EventTerminate      EventType = "terminate"
	EventRotate         EventType = "rotate"
)

// NoPassenger marks events that are not about a particular passenger.
const NoPassenger = -1

// Event is one observable step of the boarding protocol.
type Event struct {
	Type        EventType
	CarID       int
	PassengerID int
	// Passengers is the car's passenger count right after the step.
	Passengers int
	Cycle      int
	// Rotation is set on EventRotate only.
	Rotation *Rotation
	Time     time.Time
}

// Recorder receives protocol events. Record is called with a Car or Park
// lock held, so implementations must return promptly and must not call
// back into either.
type Recorder interface {
	Record(Event)
}

type RecorderFunc func(Event)

func (f RecorderFunc) Record(e Event) { f(e) }

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}

// Rotation is a copy of the park's four rotation slots as car ids.
// Loading and Unloading are NoCar when the slot is empty.
type Rotation struct {
	Loading   int
	Unloading int
	Waiting   []int
	Running   []int
}

const NoCar = -1

// CarIDs returns every car id held by the rotation, slot by slot.
func (r Rotation) CarIDs() []int {
	ids := make([]int, 0, len(r.Waiting)+len(r.Running)+2)
	if r.Loading != NoCar {
		ids = append(ids, r.Loading)
	}
	if r.Unloading != NoCar {
		ids = append(ids, r.Unloading)
	}
	ids = append(ids, r.Waiting...)
	return append(ids, r.Running...)
}
