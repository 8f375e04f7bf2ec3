package conversation

import (
	"context"

	"telegram-places-bot/callback"
	"telegram-places-bot/format"
	"telegram-places-bot/geo"
)

// Commands understood by the bot.
const (
	CommandStart         = "start"
	CommandFindMe        = "findme"
	CommandCategories    = "categories"
	CommandTransportHubs = "transporthubs"
	CommandInfo          = "info"
	CommandHelp          = "help"
	CommandCancel        = "cancel"
)

// Event is an inbound user event. The set of implementations is closed.
type Event interface {
	User() int64
	isEvent()
}

// CommandEvent is a slash command without the leading slash.
type CommandEvent struct {
	UserID int64
	Name   string
}

// TextEvent is any plain text message.
type TextEvent struct {
	UserID int64
	Text   string
}

// LocationEvent is a shared location.
type LocationEvent struct {
	UserID      int64
	Coordinates geo.Coordinates
}

// ButtonEvent is a tap on an inline button, already decoded.
type ButtonEvent struct {
	UserID int64
	Action callback.Action
}

func (e CommandEvent) User() int64  { return e.UserID }
func (e TextEvent) User() int64     { return e.UserID }
func (e LocationEvent) User() int64 { return e.UserID }
func (e ButtonEvent) User() int64   { return e.UserID }

func (CommandEvent) isEvent()  {}
func (TextEvent) isEvent()     {}
func (LocationEvent) isEvent() {}
func (ButtonEvent) isEvent()   {}

// Gateway delivers replies to users.
type Gateway interface {
	SendReply(ctx context.Context, userID int64, msg format.Message) error
	EditLastMessage(ctx context.Context, userID int64, msg format.Message) error
}

// respond edits the message a button belongs to and sends a new message otherwise. Messages
// that change the reply keyboard can't be edits.
func respond(ctx context.Context, gw Gateway, ev Event, msg format.Message) error {
	if _, ok := ev.(ButtonEvent); ok && !msg.RequestLocation && !msg.RemoveKeyboard {
		return gw.EditLastMessage(ctx, ev.User(), msg)
	}
	return gw.SendReply(ctx, ev.User(), msg)
}
