package doinsport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sdlvbooker/internal/entities"
)

const DefaultBaseURL = "https://api-v3.doinsport.club"

// CredentialsFunc returns the club account to book with. Called on every
// login so dashboard credential updates take effect without a restart.
type CredentialsFunc func() (email, password string, err error)

// Client talks to the DoInSport booking platform. It keeps the JWT cached
// and re-logs in shortly before it expires.
type Client struct {
	hc      *http.Client
	baseURL string
	clubID  string
	creds   CredentialsFunc

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	userID   string
}

func New(baseURL, clubID string, creds CredentialsFunc) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		hc:      &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		clubID:  clubID,
		creds:   creds,
	}
}

// Authenticate forces a fresh login. Used by the credentials test endpoint.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.login(ctx)
}

// getToken returns a valid bearer token, re-logging in when the cached one
// expires within the next minute.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp.Add(-time.Minute)) {
		return c.token, nil
	}
	if err := c.login(ctx); err != nil {
		return "", err
	}
	return c.token, nil
}

// login must be called with c.mu held.
func (c *Client) login(ctx context.Context) error {
	email, password, err := c.creds()
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if email == "" {
		return fmt.Errorf("no DoInSport credentials configured")
	}

	body, _ := json.Marshal(map[string]string{"username": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/client_login_check", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("login failed: %s", readAPIError(res))
	}

	var lr loginResponse
	if err := json.NewDecoder(res.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(lr.Token, claims); err != nil {
		return fmt.Errorf("decoding token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fmt.Errorf("token carries no exp claim")
	}

	c.token = lr.Token
	c.tokenExp = exp.Time
	c.userID = ""
	log.Printf("[DoInSport] Logged in as %s (token valid until %s)", email, exp.Time.Format(time.RFC3339))
	return nil
}

// me returns the authenticated client's ID, cached per token.
func (c *Client) me(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.userID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var m meResponse
	if err := c.getJSON(ctx, "/me", nil, &m); err != nil {
		return "", fmt.Errorf("fetching profile: %w", err)
	}
	c.mu.Lock()
	c.userID = m.ID
	c.mu.Unlock()
	return m.ID, nil
}

// SearchSlots returns bookable slots for the date, flattened across
// playgrounds in the provider's order. Empty from/to means the whole day.
// duration (minutes) of 0 keeps every price option.
func (c *Client) SearchSlots(ctx context.Context, date, from, to string, duration int) ([]entities.Slot, error) {
	query := url.Values{}
	query.Set("club.id", c.clubID)
	if from != "" {
		query.Set("from", from)
	}
	if to != "" {
		query.Set("to", to)
	}

	var pr planningResponse
	if err := c.getJSON(ctx, "/clubs/playgrounds/plannings/"+date, query, &pr); err != nil {
		return nil, fmt.Errorf("searching slots for %s: %w", date, err)
	}

	var slots []entities.Slot
	for _, pg := range pr.Members {
		for _, block := range pg.Activities {
			for _, s := range block.Slots {
				for _, p := range s.Prices {
					if !p.Bookable {
						continue
					}
					if duration > 0 && p.Duration != duration*60 {
						continue
					}
					slots = append(slots, entities.Slot{
						StartAt:      s.StartAt,
						Duration:     p.Duration,
						Price:        p.PricePerParticipant,
						PriceID:      p.ID,
						PlaygroundID: pg.ID,
						Playground:   pg.Name,
					})
				}
			}
		}
	}
	return slots, nil
}

// CreateBooking books the slot and returns the provider booking ID together
// with the Stripe client secret of its pending payment.
func (c *Client) CreateBooking(ctx context.Context, date string, slot entities.Slot, activity string) (*entities.CreatedBooking, error) {
	userID, err := c.me(ctx)
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(bookingRequest{
		StartAt:             fmt.Sprintf("%s %s", date, slot.StartAt),
		Playground:          slot.PlaygroundID,
		TimetableBlockPrice: slot.PriceID,
		Activity:            activity,
		UserClient:          userID,
		Name:                slot.Playground,
	})

	var br bookingResponse
	if err := c.doJSON(ctx, http.MethodPost, "/clubs/bookings", payload, &br); err != nil {
		return nil, fmt.Errorf("creating booking: %w", err)
	}
	return &entities.CreatedBooking{
		ID:                  br.ID,
		Price:               br.PricePerParticipant,
		PaymentClientSecret: br.PaymentMetadata.ClientSecret,
	}, nil
}

// CancelBooking flags an existing booking as canceled on the provider side.
func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	payload := []byte(`{"canceled":true}`)
	if err := c.doJSON(ctx, http.MethodPut, "/clubs/bookings/"+bookingID, payload, nil); err != nil {
		return fmt.Errorf("cancelling booking %s: %w", bookingID, err)
	}
	return nil
}

// ListUpcoming returns the account's future, non-canceled bookings.
func (c *Client) ListUpcoming(ctx context.Context) ([]entities.Booking, error) {
	userID, err := c.me(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("userClient.id", userID)
	query.Set("canceled", "false")
	query.Set("startAt[after]", time.Now().Format("2006-01-02 15:04"))
	query.Set("order[startAt]", "asc")

	var blr bookingListResponse
	if err := c.getJSON(ctx, "/clubs/bookings", query, &blr); err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}

	var out []entities.Booking
	for _, m := range blr.Members {
		date, startAt := splitStartAt(m.StartAt)
		out = append(out, entities.Booking{
			ID:         m.ID,
			Date:       date,
			StartAt:    startAt,
			Duration:   m.Duration / 60,
			Playground: m.Playground.Name,
			Price:      m.PricePerParticipant,
			Canceled:   m.Canceled,
		})
	}
	return out, nil
}

func splitStartAt(s string) (date, clock string) {
	if len(s) >= 16 {
		return s[:10], s[11:16]
	}
	return s, ""
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.doRequest(ctx, http.MethodGet, u, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	return c.doRequest(ctx, method, c.baseURL+path, body, out)
}

func (c *Client) doRequest(ctx context.Context, method, u string, body []byte, out any) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("%s (status=%d)", readAPIError(res), res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func readAPIError(res *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var e apiError
	if err := json.Unmarshal(b, &e); err == nil {
		if e.Description != "" {
			return e.Description
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return http.StatusText(res.StatusCode)
}
