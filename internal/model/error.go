package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string         `json:"error"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON    = "INVALID_JSON"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorised   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"

	ErrCodeOfferNotFound     = "OFFER_NOT_FOUND"
	ErrCodeOfferInactive     = "OFFER_INACTIVE"
	ErrCodeOfferNotStarted   = "OFFER_NOT_STARTED"
	ErrCodeOfferExpired      = "OFFER_EXPIRED"
	ErrCodeOfferUsageLimit   = "OFFER_USAGE_LIMIT_REACHED"
	ErrCodeOfferMinimumOrder = "OFFER_MINIMUM_ORDER_NOT_MET"
	ErrCodeOfferCodeConflict = "OFFER_CODE_CONFLICT"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeEmptyCart         = "EMPTY_CART"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeMediaDisabled     = "MEDIA_DISABLED"
)

// DomainError is a business rule violation that is safe to show to the caller.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches on the error code so that errors carrying a call-specific
// message still satisfy errors.Is against the package sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error carrying structured details.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// InvalidInput builds an INVALID_INPUT error with a specific message.
func InvalidInput(message string) *DomainError {
	return NewDomainError(ErrCodeInvalidInput, message)
}

// Common domain errors
var (
	ErrInvalidInput      = NewDomainError(ErrCodeInvalidInput, "Invalid input")
	ErrOfferNotFound     = NewDomainError(ErrCodeOfferNotFound, "Invalid discount code")
	ErrOfferInactive     = NewDomainError(ErrCodeOfferInactive, "This discount code is no longer active")
	ErrOfferNotStarted   = NewDomainError(ErrCodeOfferNotStarted, "This discount code is not active yet")
	ErrOfferExpired      = NewDomainError(ErrCodeOfferExpired, "This discount code has expired")
	ErrOfferUsageLimit   = NewDomainError(ErrCodeOfferUsageLimit, "This discount code has been fully redeemed")
	ErrOfferMinimumOrder = NewDomainError(ErrCodeOfferMinimumOrder, "Order amount is below the minimum required for this code")
	ErrOfferCodeConflict = NewDomainError(ErrCodeOfferCodeConflict, "An offer with this code already exists")
	ErrProductNotFound   = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrEmptyCart         = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrMediaDisabled     = NewDomainError(ErrCodeMediaDisabled, "Image uploads are not configured")
)
