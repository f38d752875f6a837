package entities

// NotificationEvent carries the same fields as a booking_logs row. One event
// is emitted per terminal pipeline outcome, whatever the status.
type NotificationEvent struct {
	TargetDate   string
	TargetTime   string
	BookedTime   string
	Playground   string
	Status       string
	ErrorMessage string
	Duration     int // minutes
}
