package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/stripe/stripe-go/v78"
)

// StripeService confirms a booking's PaymentIntent the way the club's mobile
// app does: stripe.confirmCardPayment() inside a real browser, which lets
// 3-D-Secure complete frictionlessly via browser fingerprinting. Plain HTTP
// cannot do this, so each call drives a disposable headless Chrome session
// against our own confirmation page.
type StripeService struct {
	PublishableKey string
	Account        string // connected account of the club
	SourceID       string // saved card source to charge
	ConfirmURL     string // local page embedding Stripe.js

	mu sync.Mutex
}

func NewStripeService(publishableKey, account, sourceID, confirmURL string) *StripeService {
	return &StripeService{
		PublishableKey: publishableKey,
		Account:        account,
		SourceID:       sourceID,
		ConfirmURL:     confirmURL,
	}
}

const (
	pageReadyTimeout = 10 * time.Second
	confirmTimeout   = 15 * time.Second
)

// Confirm drives one browser session to completion. The session is never
// reused across calls and is torn down on every exit path. Overlapping calls
// queue on the internal mutex even though the pipeline already serializes.
func (s *StripeService) Confirm(ctx context.Context, clientSecret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PublishableKey == "" || s.Account == "" || s.SourceID == "" {
		return fmt.Errorf("missing Stripe configuration (STRIPE_PK, STRIPE_ACCOUNT, STRIPE_SOURCE_ID)")
	}
	if clientSecret == "" {
		return fmt.Errorf("booking has no payment client secret")
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, confirmTimeout)
	defer cancelRun()

	expr := fmt.Sprintf("window.confirmPayment(%q, %q, %q, %q)",
		s.PublishableKey, s.Account, clientSecret, s.SourceID)

	var raw json.RawMessage
	err := chromedp.Run(runCtx,
		chromedp.Navigate(s.ConfirmURL),
		chromedp.Poll("window.stripeReady === true", nil, chromedp.WithPollingTimeout(pageReadyTimeout)),
		chromedp.Evaluate(expr, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		// Navigation or readiness failure: the bridge itself broke before
		// Stripe could answer.
		return fmt.Errorf("stripe confirmation session: %w", err)
	}
	return mapConfirmResult(raw)
}

type confirmResult struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	PaymentIntent json.RawMessage `json:"paymentIntent"`
}

// mapConfirmResult translates the Stripe.js answer: an SDK error fails the
// payment, as does any terminal PaymentIntent state other than succeeded.
func mapConfirmResult(raw json.RawMessage) error {
	var res confirmResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return fmt.Errorf("unreadable confirmation result: %w", err)
	}
	if res.Error != nil {
		return fmt.Errorf("stripe confirmCardPayment failed: %s", res.Error.Message)
	}

	var pi stripe.PaymentIntent
	if len(res.PaymentIntent) > 0 {
		if err := json.Unmarshal(res.PaymentIntent, &pi); err != nil {
			return fmt.Errorf("unreadable payment intent: %w", err)
		}
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("payment not succeeded: %s", pi.Status)
	}

	log.Printf("[Stripe] Payment confirmed via Stripe.js, status: succeeded")
	return nil
}
