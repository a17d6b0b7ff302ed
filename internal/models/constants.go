package models

const (
	TopicBoardingEvents = "boarding_events"
	TopicCarEvents      = "car_events"
	TopicRotationEvents = "rotation_events"

	PassengerStatusArrived   = "arrived"
	PassengerStatusQueued    = "queued"
	PassengerStatusBoarded   = "boarded"
	PassengerStatusCompleted = "completed"
	PassengerStatusAbandoned = "abandoned"
)
