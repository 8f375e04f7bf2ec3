package format

import (
	"fmt"
	"strings"
	"unicode"

	"telegram-places-bot/callback"
	"telegram-places-bot/geo"
	"telegram-places-bot/nearby"
	"telegram-places-bot/paginate"
)

// AllHubs is the hub category token that lists every hub.
const AllHubs = "all"

var hubLabels = map[string]string{
	"taxi_stand":       "🚖 Taxi Stand",
	"transit_hub":      "🚉 Transit Hub",
	"bus_terminal":     "🚌 Bus Terminal",
	"train_station":    "🚂 Train Station",
	"airport_terminal": "✈️ Airport Terminal",
	AllHubs:            "🔄 All Options",
}

// HubLabel returns the display name of a hub category.
func HubLabel(category string) string {
	if l, ok := hubLabels[strings.ToLower(category)]; ok {
		return l
	}
	return "🚏 " + hubTitle(category)
}

func hubTitle(category string) string {
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// HubsMenu renders the transport hub categories.
func HubsMenu(categories []nearby.CategoryCount) Message {
	rows := make([][]Button, 0, len(categories)+2)
	for _, c := range categories {
		rows = append(rows, row(Button{
			Text: fmt.Sprintf("%s (%d)", HubLabel(c.Name), c.Count),
			Data: callback.Page(callback.HubCategory, c.Name, 1),
		}))
	}
	rows = append(rows,
		row(Button{Text: HubLabel(AllHubs), Data: callback.Page(callback.HubCategory, AllHubs, 1)}),
		backToMenu(),
	)

	return Message{
		Text: "🚉 *Transport Hubs*\n\n" +
			"Select a transport hub category to explore.\n" +
			"Share your location with /findme first to see distances and travel times.",
		Markdown: true,
		Buttons:  rows,
	}
}

// HubResults renders one page of transport hubs. Hubs with a distance get walking and driving
// estimates.
func HubResults(category string, w paginate.Window[nearby.Result]) Message {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🚏 *Transport Hubs - %s*\n", escapeMarkdown(hubTitle(category))))
	builder.WriteString(fmt.Sprintf("Page %d of %d\n\n", w.Page, w.TotalPages))

	for _, r := range w.Items {
		hub := r.Place
		builder.WriteString(fmt.Sprintf("🏢 *%s*\n", escapeMarkdown(hub.Name)))
		if r.HasDistance() {
			km := *r.DistanceKm
			builder.WriteString(fmt.Sprintf("📍 Distance: %s\n", geo.FormatDistance(km)))
			builder.WriteString(fmt.Sprintf("👣 Est. Walking Time: %d mins\n", geo.WalkingMinutes(km)))
			builder.WriteString(fmt.Sprintf("🚗 Est. Driving Time: %d mins\n", geo.DrivingMinutes(km)))
		}
		if hub.Description != "" {
			builder.WriteString(fmt.Sprintf("📝 %s\n", escapeMarkdown(hub.Description)))
		}
		if hub.OpeningHours != "" {
			builder.WriteString(fmt.Sprintf("🕒 Operating Hours: %s\n", escapeMarkdown(hub.OpeningHours)))
		}
		if len(hub.Amenities) > 0 {
			builder.WriteString(fmt.Sprintf("🚍 Services: %s\n", escapeMarkdown(strings.Join(hub.Amenities, ", "))))
		}
		if hub.HasCoordinates() {
			builder.WriteString(fmt.Sprintf("🔗 [View on Maps](%s)\n", hub.Coordinates.MapsURL()))
		}
		builder.WriteString("\n")
	}

	var rows [][]Button
	rows = appendRow(rows, navRow(callback.HubCategory, category, w.Page, w.HasPrev, w.HasNext))
	rows = append(rows,
		row(button("🔙 Back", callback.Hubs)),
		backToMenu(),
	)

	return Message{Text: builder.String(), Markdown: true, Buttons: rows}
}

// HubsEmpty is the reply to a hub category with no hubs.
func HubsEmpty(category string) Message {
	return Message{
		Text: fmt.Sprintf("No transport hubs found for %s.", hubTitle(category)),
		Buttons: [][]Button{
			row(button("🔙 Back", callback.Hubs)),
			backToMenu(),
		},
	}
}
