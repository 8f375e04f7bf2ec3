package places

import (
	"strings"

	"telegram-places-bot/geo"
)

// DefaultCategories are the categories the city dataset is organized by.
var DefaultCategories = []string{
	"Hotels",
	"Restaurants",
	"Cafes",
	"Shopping",
	"Entertainment",
	"Education",
	"Healthcare",
	"Banks",
	"Sports",
	"Cultural",
}

// DefaultHubCategories are the transport hub kinds of the hubs dataset.
var DefaultHubCategories = []string{
	"taxi_stand",
	"transit_hub",
	"bus_terminal",
	"train_station",
	"airport_terminal",
}

// Place is one point of interest. Places are immutable once loaded.
type Place struct {
	ID           string           `json:"id,omitempty"`
	Name         string           `json:"name" validate:"required"`
	Category     string           `json:"category" validate:"required"`
	Area         string           `json:"area,omitempty"`
	Coordinates  *geo.Coordinates `json:"coordinates,omitempty" validate:"omitempty"`
	Description  string           `json:"description,omitempty"`
	OpeningHours string           `json:"opening_hours,omitempty"`
	Contact      Contact          `json:"contact"`
	Amenities    []string         `json:"amenities,omitempty"`
}

// Contact holds optional contact details of a place.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// HasCoordinates reports whether the place can take part in proximity queries.
func (p Place) HasCoordinates() bool {
	return p.Coordinates != nil && p.Coordinates.Valid()
}

// InCategory matches the category case-insensitively.
func (p Place) InCategory(category string) bool {
	return strings.EqualFold(p.Category, category)
}

// IsEmpty reports whether the contact carries no details at all.
func (c Contact) IsEmpty() bool {
	return c.Phone == "" && c.Email == "" && c.Website == ""
}
