package doinsport

// Wire types for the DoInSport v3 API (API Platform, hydra collections).
// Only the fields the engine reads are declared.

type loginResponse struct {
	Token string `json:"token"`
}

type meResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type planningResponse struct {
	Members []planningPlayground `json:"hydra:member"`
}

type planningPlayground struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Activities []planningBlocks `json:"activities"`
}

type planningBlocks struct {
	Slots []planningSlot `json:"slots"`
}

type planningSlot struct {
	StartAt string          `json:"startAt"` // HH:MM
	Prices  []planningPrice `json:"prices"`
}

type planningPrice struct {
	ID                  string `json:"id"`
	Duration            int    `json:"duration"` // seconds
	PricePerParticipant int    `json:"pricePerParticipant"`
	Bookable            bool   `json:"bookable"`
}

type bookingRequest struct {
	StartAt             string `json:"startAt"` // "YYYY-MM-DD HH:MM"
	Playground          string `json:"playground"`
	TimetableBlockPrice string `json:"timetableBlockPrice"`
	Activity            string `json:"activity"`
	UserClient          string `json:"userClient"`
	Name                string `json:"name"`
}

type bookingResponse struct {
	ID                  string `json:"id"`
	PricePerParticipant int    `json:"pricePerParticipant"`
	PaymentMetadata     struct {
		ClientSecret string `json:"clientSecret"`
	} `json:"paymentMetadata"`
}

type bookingListResponse struct {
	Members []bookingMember `json:"hydra:member"`
}

type bookingMember struct {
	ID                  string `json:"id"`
	StartAt             string `json:"startAt"` // "YYYY-MM-DD HH:MM"
	Duration            int    `json:"duration"` // seconds
	Canceled            bool   `json:"canceled"`
	PricePerParticipant int    `json:"pricePerParticipant"`
	Playground          struct {
		Name string `json:"name"`
	} `json:"playground"`
}

type apiError struct {
	Message     string `json:"message"`
	Description string `json:"hydra:description"`
}
