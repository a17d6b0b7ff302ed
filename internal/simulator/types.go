package simulator

import (
	"fmt"

	"github.com/chrisdamba/coastersim/internal/coaster"
	"github.com/chrisdamba/coastersim/internal/models"
)

// EventMessage is a serialised event ready for an OutputDestination.
type EventMessage struct {
	Topic   string
	Message []byte
}

// BoardingEvent represents a passenger boarding or leaving a car
type BoardingEvent struct {
	Timestamp     int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType     string `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID         string `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	CarID         int64  `json:"carId" parquet:"name=carId,type=INT64"`
	Passengers    int64  `json:"passengers" parquet:"name=passengers,type=INT64"`
	Cycle         int64  `json:"cycle" parquet:"name=cycle,type=INT64"`
	PassengerID   int64  `json:"passengerId" parquet:"name=passengerId,type=INT64"`
	TicketID      string `json:"ticketId" parquet:"name=ticketId,type=BYTE_ARRAY,convertedtype=UTF8"`
	PassengerName string `json:"passengerName" parquet:"name=passengerName,type=BYTE_ARRAY,convertedtype=UTF8"`
	WaitMs        int64  `json:"waitMs" parquet:"name=waitMs,type=INT64"`
}

// CarEvent represents a car moving through its load/run/unload cycle
type CarEvent struct {
	Timestamp  int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType  string `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID      string `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	CarID      int64  `json:"carId" parquet:"name=carId,type=INT64"`
	Passengers int64  `json:"passengers" parquet:"name=passengers,type=INT64"`
	Cycle      int64  `json:"cycle" parquet:"name=cycle,type=INT64"`
}

// RotationEvent captures the park's rotation slots after a car moved.
// Waiting and Running list car ids, head first, comma separated.
type RotationEvent struct {
	Timestamp  int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType  string `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunID      string `json:"runId" parquet:"name=runId,type=BYTE_ARRAY,convertedtype=UTF8"`
	CarID      int64  `json:"carId" parquet:"name=carId,type=INT64"`
	Passengers int64  `json:"passengers" parquet:"name=passengers,type=INT64"`
	Loading    int64  `json:"loading" parquet:"name=loading,type=INT64"`
	Unloading  int64  `json:"unloading" parquet:"name=unloading,type=INT64"`
	Waiting    string `json:"waiting" parquet:"name=waiting,type=BYTE_ARRAY,convertedtype=UTF8"`
	Running    string `json:"running" parquet:"name=running,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// TopicFor maps a protocol event type onto its output topic.
func TopicFor(eventType coaster.EventType) string {
	switch eventType {
	case coaster.EventBoard, coaster.EventUnboard:
		return models.TopicBoardingEvents
	case coaster.EventRotate:
		return models.TopicRotationEvents
	default:
		return models.TopicCarEvents
	}
}

// newTopicRecord returns a pointer to an empty record of the topic's type.
func newTopicRecord(topic string) (interface{}, error) {
	switch topic {
	case models.TopicBoardingEvents:
		return new(BoardingEvent), nil
	case models.TopicCarEvents:
		return new(CarEvent), nil
	case models.TopicRotationEvents:
		return new(RotationEvent), nil
	default:
		return nil, fmt.Errorf("unknown topic: %s", topic)
	}
}
