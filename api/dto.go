package api

import (
	"telegram-places-bot/geo"
	"telegram-places-bot/nearby"
	"telegram-places-bot/places"
)

// PlaceResponse is one search result.
type PlaceResponse struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Area           string          `json:"area,omitempty"`
	Lat            *float64        `json:"lat,omitempty"`
	Lon            *float64        `json:"lon,omitempty"`
	Description    string          `json:"description,omitempty"`
	OpeningHours   string          `json:"opening_hours,omitempty"`
	Contact        *places.Contact `json:"contact,omitempty"`
	Amenities      []string        `json:"amenities,omitempty"`
	DistanceKm     *float64        `json:"distance_km,omitempty"`
	Distance       string          `json:"distance,omitempty"`
	WalkingMinutes *int            `json:"walking_minutes,omitempty"`
	MapsURL        string          `json:"maps_url,omitempty"`
}

func toPlaceResponse(r nearby.Result) PlaceResponse {
	p := r.Place
	out := PlaceResponse{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Area:         p.Area,
		Description:  p.Description,
		OpeningHours: p.OpeningHours,
		Amenities:    p.Amenities,
	}
	if !p.Contact.IsEmpty() {
		contact := p.Contact
		out.Contact = &contact
	}
	if p.HasCoordinates() {
		lat, lon := p.Coordinates.Lat, p.Coordinates.Lon
		out.Lat, out.Lon = &lat, &lon
		out.MapsURL = p.Coordinates.MapsURL()
	}
	if r.HasDistance() {
		km := *r.DistanceKm
		walking := geo.WalkingMinutes(km)
		out.DistanceKm = &km
		out.Distance = geo.FormatDistance(km)
		out.WalkingMinutes = &walking
	}
	return out
}
