package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapConfirmResult(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "succeeded intent",
			raw:  `{"paymentIntent":{"id":"pi_1","status":"succeeded"}}`,
		},
		{
			name:    "stripe js error",
			raw:     `{"error":{"message":"Your card was declined."}}`,
			wantErr: "Your card was declined.",
		},
		{
			name:    "requires_action is not success",
			raw:     `{"paymentIntent":{"id":"pi_1","status":"requires_action"}}`,
			wantErr: "payment not succeeded: requires_action",
		},
		{
			name:    "empty result",
			raw:     `{}`,
			wantErr: "payment not succeeded",
		},
		{
			name:    "garbage",
			raw:     `["nope"]`,
			wantErr: "unreadable confirmation result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapConfirmResult(json.RawMessage(tt.raw))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfirmRequiresConfiguration(t *testing.T) {
	svc := NewStripeService("", "", "", "http://localhost/stripe-confirm.html")
	err := svc.Confirm(context.Background(), "pi_secret")
	assert.ErrorContains(t, err, "missing Stripe configuration")
}

func TestConfirmRequiresClientSecret(t *testing.T) {
	svc := NewStripeService("pk_test", "acct_1", "src_1", "http://localhost/stripe-confirm.html")
	err := svc.Confirm(context.Background(), "")
	assert.ErrorContains(t, err, "no payment client secret")
}
