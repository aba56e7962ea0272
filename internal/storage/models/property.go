package models

import "time"

// Property is the rental property that calendar sources and events belong to.
// Only the fields the calendar engine needs are modelled here.
type Property struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
