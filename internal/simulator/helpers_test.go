package simulator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chrisdamba/coastersim/internal/coaster"
	"github.com/chrisdamba/coastersim/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serializerFixture() (*Simulator, time.Time) {
	arrived := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	sim := &Simulator{
		RunID: "run-1",
		Passengers: []*models.Passenger{
			{ID: 0, TicketID: "ticket-a", Name: "Ada Lovelace", ArrivedAt: arrived, CarID: -1},
			{ID: 1, TicketID: "ticket-b", Name: "Alan Turing", ArrivedAt: arrived, CarID: -1},
		},
	}
	return sim, arrived
}

func TestSerializeBoardEvent(t *testing.T) {
	sim, arrived := serializerFixture()
	boardedAt := arrived.Add(250 * time.Millisecond)

	msg, err := sim.serializeEvent(models.Event{Data: coaster.Event{
		Type:        coaster.EventBoard,
		CarID:       1,
		PassengerID: 1,
		Passengers:  2,
		Cycle:       3,
		Time:        boardedAt,
	}})
	require.NoError(t, err)
	assert.Equal(t, models.TopicBoardingEvents, msg.Topic)

	var event BoardingEvent
	require.NoError(t, json.Unmarshal(msg.Message, &event))
	assert.Equal(t, BoardingEvent{
		Timestamp:     boardedAt.UnixMilli(),
		EventType:     "board",
		RunID:         "run-1",
		CarID:         1,
		Passengers:    2,
		Cycle:         3,
		PassengerID:   1,
		TicketID:      "ticket-b",
		PassengerName: "Alan Turing",
		WaitMs:        250,
	}, event)
}

func TestSerializeUnboardEventHasNoWait(t *testing.T) {
	sim, arrived := serializerFixture()

	msg, err := sim.serializeEvent(models.Event{Data: coaster.Event{
		Type:        coaster.EventUnboard,
		PassengerID: 0,
		Time:        arrived.Add(time.Second),
	}})
	require.NoError(t, err)

	var event BoardingEvent
	require.NoError(t, json.Unmarshal(msg.Message, &event))
	assert.Equal(t, "unboard", event.EventType)
	assert.Zero(t, event.WaitMs)
}

func TestSerializeRotateEvent(t *testing.T) {
	sim, now := serializerFixture()

	msg, err := sim.serializeEvent(models.Event{Data: coaster.Event{
		Type:        coaster.EventRotate,
		CarID:       0,
		PassengerID: coaster.NoPassenger,
		Rotation: &coaster.Rotation{
			Loading:   1,
			Unloading: coaster.NoCar,
			Waiting:   []int{2, 3},
			Running:   []int{0},
		},
		Time: now,
	}})
	require.NoError(t, err)
	assert.Equal(t, models.TopicRotationEvents, msg.Topic)
	assert.JSONEq(t, `{
		"timestamp": 1717243200000,
		"eventType": "rotate",
		"runId": "run-1",
		"carId": 0,
		"passengers": 0,
		"loading": 1,
		"unloading": -1,
		"waiting": "2,3",
		"running": "0"
	}`, string(msg.Message))
}

func TestSerializeCarEvent(t *testing.T) {
	sim, now := serializerFixture()

	for _, eventType := range []coaster.EventType{
		coaster.EventLoadComplete,
		coaster.EventRunStart,
		coaster.EventRunFinish,
		coaster.EventUnloadStart,
		coaster.EventUnloadComplete,
		coaster.EventTerminate,
		coaster.EventCarExit,
	} {
		t.Run(string(eventType), func(t *testing.T) {
			msg, err := sim.serializeEvent(models.Event{Data: coaster.Event{
				Type:        eventType,
				CarID:       2,
				PassengerID: coaster.NoPassenger,
				Passengers:  4,
				Cycle:       1,
				Time:        now,
			}})
			require.NoError(t, err)
			assert.Equal(t, models.TopicCarEvents, msg.Topic)

			var event CarEvent
			require.NoError(t, json.Unmarshal(msg.Message, &event))
			assert.Equal(t, string(eventType), event.EventType)
			assert.Equal(t, int64(2), event.CarID)
			assert.Equal(t, int64(4), event.Passengers)
		})
	}
}

func TestSerializeEventErrors(t *testing.T) {
	sim, now := serializerFixture()

	_, err := sim.serializeEvent(models.Event{Data: "not a ride event"})
	assert.Error(t, err)

	_, err = sim.serializeEvent(models.Event{Data: coaster.Event{Type: coaster.EventBoard, PassengerID: 9, Time: now}})
	assert.ErrorContains(t, err, "unknown passenger 9")

	_, err = sim.serializeEvent(models.Event{Data: coaster.Event{Type: coaster.EventRotate, Time: now}})
	assert.Error(t, err)
}

func TestEventSinkTracksPassengers(t *testing.T) {
	sim, arrived := serializerFixture()
	queue := models.NewEventQueue()
	gate := newBoardingGate(2)
	sink := newEventSink(queue, sim.Passengers, gate)

	sink.Record(coaster.Event{Type: coaster.EventBoard, CarID: 1, PassengerID: 0, Time: arrived.Add(time.Second)})
	assert.Equal(t, models.PassengerStatusBoarded, sim.Passengers[0].Status)
	assert.Equal(t, 1, sim.Passengers[0].CarID)
	assert.Equal(t, time.Second, sim.Passengers[0].WaitDuration())
	assert.False(t, isDone(gate))

	sink.Record(coaster.Event{Type: coaster.EventBoard, CarID: 1, PassengerID: 1, Time: arrived.Add(2 * time.Second)})
	assert.True(t, isDone(gate))

	sink.Record(coaster.Event{Type: coaster.EventUnboard, CarID: 1, PassengerID: 0, Time: arrived.Add(3 * time.Second)})
	assert.Equal(t, models.PassengerStatusCompleted, sim.Passengers[0].Status)
	assert.Equal(t, arrived.Add(3*time.Second), sim.Passengers[0].UnboardedAt)

	sink.Record(coaster.Event{Type: coaster.EventLoadComplete, CarID: 1, PassengerID: coaster.NoPassenger, Passengers: 2, Time: arrived})
	sink.Record(coaster.Event{Type: coaster.EventLoadComplete, CarID: 1, PassengerID: coaster.NoPassenger, Passengers: 1, Time: arrived})
	assert.Equal(t, 2, sink.PeakLoad(1))
	assert.Zero(t, sink.PeakLoad(0))
	assert.Equal(t, 5, queue.Len())
}

func TestBoardingGateWithoutPassengers(t *testing.T) {
	assert.True(t, isDone(newBoardingGate(0)))
}

func TestJoinIDs(t *testing.T) {
	assert.Equal(t, "", joinIDs(nil))
	assert.Equal(t, "4", joinIDs([]int{4}))
	assert.Equal(t, "1,0,2", joinIDs([]int{1, 0, 2}))
}

func isDone(g *boardingGate) bool {
	select {
	case <-g.Done():
		return true
	default:
		return false
	}
}
