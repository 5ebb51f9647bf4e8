package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an item in the catalogue.
type Product struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Category  string          `json:"category" db:"category"`
	ImageURL  *string         `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// ProductQuery selects a page of the catalogue. An empty category matches
// every product.
type ProductQuery struct {
	Category string
	Limit    int
	Offset   int
}
