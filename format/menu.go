package format

import (
	"fmt"

	"telegram-places-bot/callback"
)

// Version is shown on the info screen.
const Version = "1.0.0"

// MainMenu renders the welcome screen.
func MainMenu() Message {
	return Message{
		Text: "👋 *Welcome to Addis Places Bot!*\n\n" +
			"Discover the best locations in Addis Ababa:\n" +
			"• Find nearby places\n" +
			"• Browse by category\n" +
			"• Find transport hubs\n" +
			"• Get information",
		Markdown: true,
		Buttons: [][]Button{
			row(button("🔍 Find Nearby Places", callback.FindMe)),
			row(button("📋 Categories", callback.BrowseCategories)),
			row(button("🚉 Transport Hubs", callback.Hubs)),
			row(button("ℹ️ Info", callback.Info)),
		},
	}
}

// Info renders the help screen.
func Info() Message {
	return Message{
		Text: "🤖 *How to use Addis Places Bot*\n\n" +
			"*Commands:*\n" +
			"/start - Start the bot\n" +
			"/findme - Find nearby places\n" +
			"/categories - Browse by category\n" +
			"/transporthubs - Find transport hubs\n" +
			"/cancel - Cancel the current search\n" +
			"/info - Show this help message\n\n" +
			"*Features:*\n" +
			"• Tap '🔍 Find Nearby Places' and share your location\n" +
			"• Use '📋 Categories' to browse places by type\n" +
			"• Use '🚉 Transport Hubs' to find transport locations\n\n" +
			"*Version:* `" + Version + "`",
		Markdown: true,
		Buttons:  [][]Button{backToMenu()},
	}
}

// LocationPrompt asks the user to share a location.
func LocationPrompt(radiusKm float64) Message {
	return Message{
		Text: "📍 Please share your location to find nearby places.\n\n" +
			fmt.Sprintf("I'll show you the closest places within %.1fkm of your location.", radiusKm),
		RequestLocation: true,
	}
}

// LocationReprompt is sent when anything but a location arrives while one is expected.
func LocationReprompt() Message {
	return Message{
		Text:            "⚠️ Please use the Share Location button, or send /cancel to stop.",
		RequestLocation: true,
	}
}

// Searching acknowledges a received location and removes the location keyboard.
func Searching() Message {
	return Message{
		Text:           "🔍 Finding places near you...",
		RemoveKeyboard: true,
	}
}

// Cancelled acknowledges /cancel and removes the location keyboard.
func Cancelled() Message {
	return Message{
		Text:           "❌ Search cancelled.",
		RemoveKeyboard: true,
	}
}

// LocationHint is sent for a location that arrives outside of a search.
func LocationHint() Message {
	return Message{
		Text: "📍 Got your location, but there is no active search.\n" +
			"Tap the button below to find places near you.",
		Buttons: [][]Button{
			row(button("🔍 Find Nearby Places", callback.FindMe)),
			backToMenu(),
		},
	}
}

// StartOver is sent when a button refers to a search that no longer exists.
func StartOver() Message {
	return Message{
		Text: "🤔 That search has expired.\n\nStart a new search to continue:",
		Buttons: [][]Button{
			row(button("🔍 Find Nearby Places", callback.FindMe)),
			backToMenu(),
		},
	}
}

// NotUnderstood is the reply to input the bot has no use for.
func NotUnderstood() Message {
	return Message{
		Text:    "🤷 Sorry, I didn't understand that. Pick an option from the menu:",
		Buttons: [][]Button{backToMenu()},
	}
}

// DataUnavailable is sent when there is no places dataset to query.
func DataUnavailable() Message {
	return Message{
		Text:    "⚠️ Place information is temporarily unavailable. Please try again later.",
		Buttons: [][]Button{backToMenu()},
	}
}

// Failure is the generic reply for unexpected errors.
func Failure() Message {
	return Message{
		Text:    "😕 Something went wrong. Please try again.",
		Buttons: [][]Button{backToMenu()},
	}
}
