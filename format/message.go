// Package format renders replies: display text plus a button layout. Every function here is
// pure, so the same input always produces the same message.
package format

import (
	"strings"

	"telegram-places-bot/callback"
)

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Message is a rendered reply.
//
// RequestLocation asks the gateway for a reply keyboard with a share-location button instead of
// inline buttons; RemoveKeyboard clears such a keyboard. Both take precedence over Buttons.
type Message struct {
	Text            string
	Buttons         [][]Button
	Markdown        bool
	RequestLocation bool
	RemoveKeyboard  bool
}

// Labels of the share-location reply keyboard.
const (
	ShareLocationLabel = "📍 Share Location"
	CancelLabel        = "❌ Cancel"
)

const defaultEmoji = "📍"

var categoryEmojis = map[string]string{
	"hotels":        "🏨",
	"restaurants":   "🍽️",
	"cafes":         "☕",
	"shopping":      "🛍️",
	"entertainment": "🎭",
	"education":     "📚",
	"healthcare":    "🏥",
	"banks":         "🏦",
	"sports":        "⚽",
	"cultural":      "🏛️",
}

// CategoryEmoji returns the emoji shown next to places of a category.
func CategoryEmoji(category string) string {
	if e, ok := categoryEmojis[strings.ToLower(category)]; ok {
		return e
	}
	return defaultEmoji
}

// escapeMarkdown escapes the characters that are special in Telegram's Markdown mode
// so dataset strings can't break the surrounding formatting.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(text)
}

func button(text string, kind callback.Kind) Button {
	return Button{Text: text, Data: callback.Data(kind)}
}

func row(buttons ...Button) []Button {
	return buttons
}

func backToMenu() []Button {
	return row(button("🔙 Back to Menu", callback.MainMenu))
}

// navRow builds the previous/next row of a paged list. It is omitted when there is only one page.
func navRow(kind callback.Kind, category string, page int, hasPrev, hasNext bool) []Button {
	var nav []Button
	if hasPrev {
		nav = append(nav, Button{Text: "⬅️ Previous", Data: callback.Page(kind, category, page-1)})
	}
	if hasNext {
		nav = append(nav, Button{Text: "Next ➡️", Data: callback.Page(kind, category, page+1)})
	}
	return nav
}

func appendRow(rows [][]Button, r []Button) [][]Button {
	if len(r) == 0 {
		return rows
	}
	return append(rows, r)
}
