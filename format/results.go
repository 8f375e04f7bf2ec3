package format

import (
	"fmt"
	"strings"

	"telegram-places-bot/callback"
	"telegram-places-bot/geo"
	"telegram-places-bot/nearby"
	"telegram-places-bot/paginate"
)

// NearbyResults renders one page of the unfiltered nearby search.
func NearbyResults(w paginate.Window[nearby.Result]) Message {
	var builder strings.Builder
	builder.WriteString("🎯 *Nearest Places to You:*\n\n")
	writeEntries(&builder, w, true)
	writePageFooter(&builder, w)

	var rows [][]Button
	rows = appendRow(rows, navRow(callback.NearbyPage, "", w.Page, w.HasPrev, w.HasNext))
	rows = append(rows,
		row(button("📋 Browse by Category", callback.ShowCategories)),
		row(button("🔍 Search Again", callback.FindMe)),
		backToMenu(),
	)

	return Message{Text: builder.String(), Markdown: true, Buttons: rows}
}

// NoNearbyResults is the reply to a search that found nothing within the radius.
func NoNearbyResults(radiusKm float64) Message {
	return Message{
		Text: fmt.Sprintf("😔 No places found within %s.\n\n", geo.FormatDistance(radiusKm)) +
			"Would you like to:\n" +
			"• Browse places by category (shows all distances)\n" +
			"• Try a different location",
		Buttons: [][]Button{
			row(button("📋 Browse Categories", callback.ShowCategories)),
			row(button("🔍 Try Again", callback.FindMe)),
			backToMenu(),
		},
	}
}

// NearbyCategories renders the category list for a shared location.
func NearbyCategories(categories []nearby.CategoryCount) Message {
	rows := make([][]Button, 0, len(categories)+1)
	for _, c := range categories {
		rows = append(rows, row(Button{
			Text: categoryLabel(c),
			Data: callback.Encode(callback.Action{Kind: callback.NearbyCategory, Category: c.Name}),
		}))
	}
	rows = append(rows, row(Button{Text: "🔙 Back to Results", Data: callback.Page(callback.NearbyPage, "", 1)}))

	return Message{
		Text:    "Select a category to see the nearest places:",
		Buttons: rows,
	}
}

// NearbyCategoryResults renders one page of nearby places in a category.
func NearbyCategoryResults(category string, w paginate.Window[nearby.Result]) Message {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s *Nearest %s Places:*\n\n", CategoryEmoji(category), escapeMarkdown(category)))
	writeEntries(&builder, w, true)
	writePageFooter(&builder, w)

	var rows [][]Button
	rows = appendRow(rows, navRow(callback.NearbyCategoryPage, category, w.Page, w.HasPrev, w.HasNext))
	rows = append(rows,
		row(button("📋 Back to Categories", callback.ShowCategories)),
		backToMenu(),
	)

	return Message{Text: builder.String(), Markdown: true, Buttons: rows}
}

// NearbyCategoryEmpty is the reply to a category with no places.
func NearbyCategoryEmpty(category string) Message {
	return Message{
		Text: fmt.Sprintf("No %s places found.\nTry another category:", category),
		Buttons: [][]Button{
			row(button("📋 Back to Categories", callback.ShowCategories)),
			backToMenu(),
		},
	}
}

// BrowseCategories renders the category list for browsing without a location.
func BrowseCategories(categories []nearby.CategoryCount) Message {
	rows := make([][]Button, 0, len(categories)+1)
	for _, c := range categories {
		rows = append(rows, row(Button{
			Text: categoryLabel(c),
			Data: callback.Page(callback.BrowseCategory, c.Name, 1),
		}))
	}
	rows = append(rows, backToMenu())

	return Message{
		Text:     "🏢 *Categories*\n\nBrowse places by category:",
		Markdown: true,
		Buttons:  rows,
	}
}

// BrowseResults renders one page of a category without distances.
func BrowseResults(category string, w paginate.Window[nearby.Result]) Message {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s *%s in Addis Ababa*\n\n", CategoryEmoji(category), escapeMarkdown(category)))
	writeEntries(&builder, w, false)
	writePageFooter(&builder, w)

	var rows [][]Button
	rows = appendRow(rows, navRow(callback.BrowseCategory, category, w.Page, w.HasPrev, w.HasNext))
	rows = append(rows,
		row(button("📋 Back to Categories", callback.BrowseCategories)),
		backToMenu(),
	)

	return Message{Text: builder.String(), Markdown: true, Buttons: rows}
}

// BrowseEmpty is the reply to browsing a category with no places.
func BrowseEmpty(category string) Message {
	return Message{
		Text: fmt.Sprintf("No %s places found in the database.\nTry another category:", category),
		Buttons: [][]Button{
			row(button("📋 Back to Categories", callback.BrowseCategories)),
			backToMenu(),
		},
	}
}

func categoryLabel(c nearby.CategoryCount) string {
	return fmt.Sprintf("%s %s (%d)", CategoryEmoji(c.Name), c.Name, c.Count)
}

// writeEntries writes the numbered place entries of a page. Numbering continues across pages.
func writeEntries(builder *strings.Builder, w paginate.Window[nearby.Result], detailed bool) {
	for i, r := range w.Items {
		p := r.Place
		builder.WriteString(fmt.Sprintf("%d. %s *%s*\n", w.Offset()+i+1, CategoryEmoji(p.Category), escapeMarkdown(p.Name)))

		if p.Area != "" {
			builder.WriteString(fmt.Sprintf("📌 Area: %s\n", escapeMarkdown(p.Area)))
		}
		if r.HasDistance() {
			builder.WriteString(fmt.Sprintf("📏 %s\n", geo.FormatDistance(*r.DistanceKm)))
		}
		if p.Description != "" {
			builder.WriteString(fmt.Sprintf("ℹ️ %s\n", escapeMarkdown(p.Description)))
		}
		if p.OpeningHours != "" {
			builder.WriteString(fmt.Sprintf("🕒 %s\n", escapeMarkdown(p.OpeningHours)))
		}
		if detailed {
			if p.Contact.Phone != "" {
				builder.WriteString(fmt.Sprintf("📞 %s\n", escapeMarkdown(p.Contact.Phone)))
			}
			if p.Contact.Website != "" {
				builder.WriteString(fmt.Sprintf("🌐 %s\n", escapeMarkdown(p.Contact.Website)))
			}
		} else if len(p.Amenities) > 0 {
			builder.WriteString(fmt.Sprintf("✨ %s\n", escapeMarkdown(strings.Join(firstN(p.Amenities, 3), ", "))))
		}
		if p.HasCoordinates() {
			builder.WriteString(fmt.Sprintf("🔗 [View on Maps](%s)\n", p.Coordinates.MapsURL()))
		}
		builder.WriteString("\n")
	}
}

func writePageFooter(builder *strings.Builder, w paginate.Window[nearby.Result]) {
	if w.TotalPages > 1 {
		builder.WriteString(fmt.Sprintf("Page %d of %d", w.Page, w.TotalPages))
	}
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
