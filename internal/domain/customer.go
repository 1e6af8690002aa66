package domain

import "time"

// Customer is a persisted customer record. Name carries a uniqueness
// constraint in the store; Code is the POS-assigned customer code used to
// disambiguate on collision.
type Customer struct {
	ID        string    `json:"id"`
	Code      string    `json:"code,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is one physical shop location. SiteCode is the short code the POS
// system stamps on its records and the first half of the invoice natural key.
type Store struct {
	ID        string    `json:"id"`
	SiteCode  string    `json:"site_code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
