package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader carries the event signature.
const SignatureHeader = "Stripe-Signature"

// ErrInvalidSignature is returned for any body whose signature does not verify.
var ErrInvalidSignature = errors.New("invalid payment event signature")

// Verifier checks the processor's signature on raw event bodies and decodes
// the events it vouches for.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a verifier. A non-positive tolerance disables the
// timestamp freshness check.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: secret, tolerance: tolerance}
}

// ConstructEvent verifies header against body and decodes the event. Nothing
// in body is read before the signature checks out.
func (v *Verifier) ConstructEvent(body []byte, header string) (*Event, error) {
	se, err := webhook.ConstructEventWithOptions(body, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreTolerance:          v.tolerance <= 0,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	return fromStripe(se)
}

// Sign produces a header value for body at the given time.
func (v *Verifier) Sign(body []byte, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    v.secret,
		Timestamp: at,
	}).Header
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
