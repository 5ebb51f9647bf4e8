package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order represents a customer order materialised from a completed payment.
// Buyer fields are a snapshot taken at order time.
type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	OrderNumber       string          `json:"orderNumber" db:"order_number"`
	UserID            string          `json:"userId" db:"user_id"`
	UserEmail         string          `json:"userEmail" db:"user_email"`
	UserName          string          `json:"userName" db:"user_name"`
	Status            OrderStatus     `json:"status" db:"status"`
	Subtotal          decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxAmount         decimal.Decimal `json:"taxAmount" db:"tax_amount"`
	ShippingAmount    decimal.Decimal `json:"shippingAmount" db:"shipping_amount"`
	DiscountAmount    decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	TotalAmount       decimal.Decimal `json:"totalAmount" db:"total_amount"`
	OfferID           *uuid.UUID      `json:"offerId,omitempty" db:"offer_id"`
	ProviderPaymentID string          `json:"-" db:"provider_payment_id"`
	Items             []OrderItem     `json:"items"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order. UnitPrice is frozen at order time.
type OrderItem struct {
	ID          uuid.UUID       `json:"-" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	ProductID   string          `json:"productId" db:"product_id"`
	ProductName string          `json:"productName" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"lineTotal" db:"line_total"`
}

// PaymentStatus is the provider-reported outcome of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment records a processor event against an order.
type Payment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	OrderID           *uuid.UUID      `json:"orderId,omitempty" db:"order_id"`
	UserID            string          `json:"userId" db:"user_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Currency          string          `json:"currency" db:"currency"`
	Status            PaymentStatus   `json:"status" db:"status"`
	Method            string          `json:"method" db:"method"`
	Provider          string          `json:"provider" db:"provider"`
	ProviderPaymentID string          `json:"providerPaymentId" db:"provider_payment_id"`
	FailureReason     *string         `json:"failureReason,omitempty" db:"failure_reason"`
	ProcessedAt       time.Time       `json:"processedAt" db:"processed_at"`
}
