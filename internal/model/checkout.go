package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment metadata keys attached to the processor payment at checkout and read
// back when the payment event arrives.
const (
	MetaUserID         = "userId"
	MetaCartID         = "cartId"
	MetaEmail          = "email"
	MetaFirstName      = "firstName"
	MetaLastName       = "lastName"
	MetaOfferID        = "offerId"
	MetaDiscountAmount = "discountAmount"
	MetaShippingAmount = "shippingAmount"
	MetaOrderID        = "orderId"
)

// QuoteRequest asks for the final price of the caller's cart.
type QuoteRequest struct {
	Code *string `json:"code,omitempty" validate:"omitempty,max=64"`
}

// Quote is the priced checkout the client uses to initiate payment.
type Quote struct {
	CartID         uuid.UUID         `json:"cartId"`
	Lines          []CartLine        `json:"lines"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DiscountAmount decimal.Decimal   `json:"discountAmount"`
	ShippingAmount decimal.Decimal   `json:"shippingAmount"`
	TaxAmount      decimal.Decimal   `json:"taxAmount"`
	TotalAmount    decimal.Decimal   `json:"totalAmount"`
	Offer          *OfferValidation  `json:"offer,omitempty"`
	Metadata       map[string]string `json:"metadata"`
}
