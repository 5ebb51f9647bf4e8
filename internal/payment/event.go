// Package payment verifies and decodes asynchronous events delivered by the
// payment processor.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

// Event types the storefront acts on. Any other type is acknowledged and ignored.
const (
	EventPaymentSucceeded = string(stripe.EventTypePaymentIntentSucceeded)
	EventPaymentFailed    = string(stripe.EventTypePaymentIntentPaymentFailed)
)

// ErrMalformedEvent is returned when a verified body is not a usable event.
var ErrMalformedEvent = errors.New("malformed payment event")

// Event is a processor notification about a payment.
type Event struct {
	ID      string
	Type    string
	Payment Payment
}

// Payment is the processor's view of a payment attempt.
type Payment struct {
	ID             string
	Amount         decimal.Decimal
	Currency       string
	Method         string
	Metadata       map[string]string
	FailureMessage string
}

// Meta returns a trimmed metadata value, or "" when absent.
func (p Payment) Meta(key string) string {
	return strings.TrimSpace(p.Metadata[key])
}

// fromStripe maps a verified processor event onto Event. Payment intent
// amounts arrive in minor units.
func fromStripe(se stripe.Event) (*Event, error) {
	if se.ID == "" || se.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}

	event := &Event{ID: se.ID, Type: string(se.Type)}
	if !isPaymentType(event.Type) {
		return event, nil
	}

	if se.Data == nil || len(se.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing payment object", ErrMalformedEvent)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(se.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if pi.ID == "" {
		return nil, fmt.Errorf("%w: missing payment id", ErrMalformedEvent)
	}

	event.Payment = Payment{
		ID:       pi.ID,
		Amount:   decimal.New(pi.Amount, -2),
		Currency: strings.ToLower(string(pi.Currency)),
		Method:   "card",
		Metadata: pi.Metadata,
	}
	if len(pi.PaymentMethodTypes) > 0 {
		event.Payment.Method = pi.PaymentMethodTypes[0]
	}
	if event.Payment.Metadata == nil {
		event.Payment.Metadata = map[string]string{}
	}
	if pi.LastPaymentError != nil {
		event.Payment.FailureMessage = pi.LastPaymentError.Msg
	}

	return event, nil
}

func isPaymentType(t string) bool {
	return t == EventPaymentSucceeded || t == EventPaymentFailed
}
