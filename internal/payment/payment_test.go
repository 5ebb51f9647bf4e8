package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test"

const succeededBody = `{
	"id": "evt_1",
	"object": "event",
	"type": "payment_intent.succeeded",
	"data": {"object": {
		"id": "pi_123",
		"object": "payment_intent",
		"amount": 177000,
		"currency": "INR",
		"payment_method_types": ["upi", "card"],
		"metadata": {"userId": "user_1", "cartId": " 8d6f5b8e-1f0a-4c1e-9a4d-2a8d0d5b7c11 "}
	}}
}`

func construct(t *testing.T, body string) (*Event, error) {
	t.Helper()
	v := NewVerifier(testSecret, 5*time.Minute)
	return v.ConstructEvent([]byte(body), v.Sign([]byte(body), time.Now()))
}

func TestConstructEvent(t *testing.T) {
	event, err := construct(t, succeededBody)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Equal(t, "pi_123", event.Payment.ID)
	assert.Equal(t, "1770", event.Payment.Amount.String())
	assert.Equal(t, "inr", event.Payment.Currency)
	assert.Equal(t, "upi", event.Payment.Method)
	assert.Equal(t, "user_1", event.Payment.Meta("userId"))
	assert.Equal(t, "8d6f5b8e-1f0a-4c1e-9a4d-2a8d0d5b7c11", event.Payment.Meta("cartId"))
	assert.Empty(t, event.Payment.Meta("offerId"))
}

func TestConstructEvent_Failed(t *testing.T) {
	body := `{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{
		"id":"pi_9","amount":5050,"currency":"inr",
		"last_payment_error":{"message":"Your card was declined."}}}}`

	event, err := construct(t, body)
	require.NoError(t, err)

	assert.Equal(t, "50.5", event.Payment.Amount.String())
	assert.Equal(t, "card", event.Payment.Method)
	assert.Equal(t, "Your card was declined.", event.Payment.FailureMessage)
	assert.NotNil(t, event.Payment.Metadata)
}

func TestConstructEvent_UnrelatedType(t *testing.T) {
	event, err := construct(t, `{"id":"evt_3","type":"customer.created","data":{"object":{}}}`)
	require.NoError(t, err)
	assert.Equal(t, "customer.created", event.Type)
}

func TestConstructEvent_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json"},
		{name: "missing id", body: `{"type":"payment_intent.succeeded"}`},
		{name: "missing type", body: `{"id":"evt_1"}`},
		{name: "payment without data", body: `{"id":"evt_1","type":"payment_intent.succeeded"}`},
		{name: "payment without id", body: `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"amount":10}}}`},
		{name: "amount not integer", body: `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":"ten"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := construct(t, tt.body)
			assert.ErrorIs(t, err, ErrMalformedEvent)
			assert.NotErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestVerifier_RejectsBadSignatures(t *testing.T) {
	now := time.Now()
	body := []byte(succeededBody)

	v := NewVerifier(testSecret, 5*time.Minute)
	other := NewVerifier("whsec_other", 5*time.Minute)

	valid := v.Sign(body, now)

	tests := []struct {
		name    string
		body    []byte
		header  string
		wantErr bool
	}{
		{name: "valid", body: body, header: valid},
		{name: "valid within tolerance", body: body, header: v.Sign(body, now.Add(-4*time.Minute))},
		{name: "additional stale signature", body: body, header: valid + ",v1=deadbeef"},
		{name: "empty header", body: body, header: "", wantErr: true},
		{name: "tampered body", body: []byte(strings.Replace(succeededBody, "177000", "100", 1)), header: valid, wantErr: true},
		{name: "wrong secret", body: body, header: other.Sign(body, now), wantErr: true},
		{name: "too old", body: body, header: v.Sign(body, now.Add(-6*time.Minute)), wantErr: true},
		{name: "no timestamp", body: body, header: "v1=" + strings.SplitN(valid, "v1=", 2)[1], wantErr: true},
		{name: "no signature", body: body, header: "t=1773576000", wantErr: true},
		{name: "garbage", body: body, header: "garbage", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := v.ConstructEvent(tt.body, tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSignature)
				assert.Nil(t, event)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "pi_123", event.Payment.ID)
		})
	}
}

func TestVerifier_ZeroToleranceSkipsFreshness(t *testing.T) {
	v := NewVerifier(testSecret, 0)
	body := []byte(`{"id":"evt_1","type":"customer.created"}`)

	header := v.Sign(body, time.Now().Add(-24*time.Hour))

	_, err := v.ConstructEvent(body, header)
	assert.NoError(t, err)
}

func TestVerifier_AcceptsProcessorSignedPayload(t *testing.T) {
	body := []byte(succeededBody)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})

	event, err := NewVerifier(testSecret, time.Minute).ConstructEvent(body, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
}
