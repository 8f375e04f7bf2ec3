// Package callback defines the closed set of button actions and their compact wire form.
// Telegram limits callback data to 64 bytes, so every action encodes to a short
// "<tag>[:<category>][:<page>]" string.
package callback

import (
	"strconv"
	"strings"
)

// Kind identifies a button action.
type Kind int

const (
	Unknown Kind = iota
	// MainMenu shows the main menu and resets the conversation.
	MainMenu
	// Cancel aborts the find-me conversation.
	Cancel
	// Info shows the help text.
	Info
	// FindMe starts (or restarts) the location search.
	FindMe
	// ShowCategories shows the category list for the shared location.
	ShowCategories
	// NearbyCategory picks a category for the shared location.
	NearbyCategory
	// NearbyPage moves through the unfiltered nearby results.
	NearbyPage
	// NearbyCategoryPage moves through the category-filtered nearby results.
	NearbyCategoryPage
	// BrowseCategories lists categories for browsing without a location.
	BrowseCategories
	// BrowseCategory shows one page of a category without a location.
	BrowseCategory
	// Hubs shows the transport hubs menu.
	Hubs
	// HubCategory shows one page of a transport hub category.
	HubCategory
)

var tags = map[Kind]string{
	MainMenu:           "menu",
	Cancel:             "cancel",
	Info:               "info",
	FindMe:             "findme",
	ShowCategories:     "ncats",
	NearbyCategory:     "ncat",
	NearbyPage:         "npg",
	NearbyCategoryPage: "ncpg",
	BrowseCategories:   "bcats",
	BrowseCategory:     "bcat",
	Hubs:               "hubs",
	HubCategory:        "hub",
}

var kindsByTag = func() map[string]Kind {
	m := make(map[string]Kind, len(tags))
	for k, t := range tags {
		m[t] = k
	}
	return m
}()

// Action is a decoded button press.
type Action struct {
	Kind     Kind
	Category string
	Page     int
}

func (k Kind) hasCategory() bool {
	switch k {
	case NearbyCategory, NearbyCategoryPage, BrowseCategory, HubCategory:
		return true
	}
	return false
}

func (k Kind) hasPage() bool {
	switch k {
	case NearbyPage, NearbyCategoryPage, BrowseCategory, HubCategory:
		return true
	}
	return false
}

func (k Kind) String() string {
	if t, ok := tags[k]; ok {
		return t
	}
	return "unknown"
}

// Encode renders the action as callback data.
func Encode(a Action) string {
	tag, ok := tags[a.Kind]
	if !ok {
		return ""
	}

	parts := []string{tag}
	if a.Kind.hasCategory() {
		parts = append(parts, a.Category)
	}
	if a.Kind.hasPage() {
		parts = append(parts, strconv.Itoa(a.Page))
	}
	return strings.Join(parts, ":")
}

// Decode parses callback data. Anything malformed decodes to an Unknown action; a page that
// is not a number decodes to page 0, which the handlers reject as an invalid reference.
func Decode(data string) Action {
	parts := strings.Split(data, ":")
	kind, ok := kindsByTag[parts[0]]
	if !ok {
		return Action{Kind: Unknown}
	}

	want := 1
	if kind.hasCategory() {
		want++
	}
	if kind.hasPage() {
		want++
	}
	if len(parts) != want {
		return Action{Kind: Unknown}
	}

	a := Action{Kind: kind}
	i := 1
	if kind.hasCategory() {
		a.Category = parts[i]
		if a.Category == "" {
			return Action{Kind: Unknown}
		}
		i++
	}
	if kind.hasPage() {
		page, err := strconv.Atoi(parts[i])
		if err != nil {
			page = 0
		}
		a.Page = page
	}
	return a
}

// Data is shorthand for Encode(Action{Kind: k}).
func Data(k Kind) string {
	return Encode(Action{Kind: k})
}

// Page builds callback data for a paged action.
func Page(k Kind, category string, page int) string {
	return Encode(Action{Kind: k, Category: category, Page: page})
}
