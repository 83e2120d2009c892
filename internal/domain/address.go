package domain

import "github.com/google/uuid"

// Address is referenced by orders, never owned by them.
type Address struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Line1       string    `json:"line1"`
	Line2       string    `json:"line2,omitempty"`
	City        string    `json:"city"`
	Region      string    `json:"region,omitempty"`
	PostalCode  string    `json:"postal_code"`
	CountryCode string    `json:"country_code"`
}
