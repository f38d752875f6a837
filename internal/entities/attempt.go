package entities

// Terminal statuses of a booking attempt. BookingCreated is the one interim
// status: it is written right after the provider accepts the booking and
// before payment confirmation, so a crash between the two cannot lead to a
// second booking for the same rule and date.
const (
	StatusSuccess        = "success"
	StatusFailed         = "failed"
	StatusPaymentFailed  = "payment_failed"
	StatusNoSlots        = "no_slots"
	StatusSkipped        = "skipped"
	StatusCancelled      = "cancelled"
	StatusBookingCreated = "booking_created"
)

// AttemptRequest is the input of one execution pipeline run. RuleID is nil
// for manual bookings fired from the dashboard.
type AttemptRequest struct {
	RuleID          *int
	TargetDate      string // YYYY-MM-DD
	TargetTime      string // HH:MM
	Duration        int    // minutes
	Activity        string
	PlaygroundOrder []string

	// Optional search window (HH:MM). Empty means the whole day.
	From string
	To   string
}

// AttemptResult mirrors one booking_logs row and is returned synchronously
// to manual callers.
type AttemptResult struct {
	Status       string `json:"status"`
	TargetDate   string `json:"target_date"`
	TargetTime   string `json:"target_time"`
	BookedTime   string `json:"booked_time,omitempty"`
	Playground   string `json:"playground,omitempty"`
	BookingID    string `json:"booking_id,omitempty"`
	Price        int    `json:"price,omitempty"` // cents per participant
	Duration     int    `json:"duration,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}
