package entities

// Slot is a bookable time+playground combination returned by the provider
// for a single date. It only lives for the duration of one pipeline run.
type Slot struct {
	StartAt      string `json:"startAt"`  // HH:MM, club-local
	Duration     int    `json:"duration"` // seconds
	Price        int    `json:"price"`    // cents per participant
	PriceID      string `json:"price_id"` // provider's block-price identifier
	PlaygroundID string `json:"playground_id"`
	Playground   string `json:"playground"`
}

// Booking is an upcoming reservation as listed by the provider.
type Booking struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	StartAt    string `json:"start_at"`
	Duration   int    `json:"duration"` // minutes
	Playground string `json:"playground"`
	Price      int    `json:"price"`
	Canceled   bool   `json:"canceled"`
}

// CreatedBooking is the provider's answer to a booking creation: the booking
// itself plus the Stripe client secret needed to confirm its payment.
type CreatedBooking struct {
	ID                  string
	Price               int
	PaymentClientSecret string
}
