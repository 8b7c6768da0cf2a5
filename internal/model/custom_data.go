package model

import "github.com/shopspring/decimal"

// CustomData carries the business details of an event.
type CustomData struct {
	// Value is the monetary value of the event, summed by the Graph API.
	Value    *decimal.Decimal
	Currency *string

	ContentName     *string
	ContentCategory *string
	ContentID       *string
	ContentType     *string
	OrderID         *string
	PredictedLTV    *decimal.Decimal
	NumItems        *int
	SearchString    *string
	Description     *string
	Level           *string
	MaxRatingValue  *int
	// PaymentInfoAvailable is 0 or 1.
	PaymentInfoAvailable *int
	RegistrationMethod   *string
	// Success is 0 or 1.
	Success *int

	Extra map[string]any
}
