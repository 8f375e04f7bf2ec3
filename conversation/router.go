package conversation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"telegram-places-bot/apperror"
	"telegram-places-bot/callback"
	"telegram-places-bot/format"
)

// Router is the single entry point for inbound events. It serializes the events of each user,
// dispatches them to the find-me Machine or the stateless Browser and turns every failure into a
// reply with a way back to the main menu.
type Router struct {
	store   *Store
	machine *Machine
	browser *Browser
	gateway Gateway
	logger  *zap.Logger
}

// NewRouter creates a Router.
func NewRouter(store *Store, machine *Machine, browser *Browser, gateway Gateway, logger *zap.Logger) *Router {
	return &Router{
		store:   store,
		machine: machine,
		browser: browser,
		gateway: gateway,
		logger:  logger,
	}
}

// Handle processes one event to completion. It never panics and never returns an error: failures
// are logged and answered.
func (r *Router) Handle(ctx context.Context, ev Event) {
	r.store.With(ev.User(), func(s *Session) {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Recovered from panic while handling event",
					zap.Int64("user_id", ev.User()),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				r.fail(ctx, s, ev, apperror.ErrInternal)
			}
		}()

		if err := r.dispatch(ctx, s, ev); err != nil {
			r.fail(ctx, s, ev, err)
		}
	})
}

func (r *Router) dispatch(ctx context.Context, s *Session, ev Event) error {
	switch e := ev.(type) {
	case CommandEvent:
		return r.command(ctx, s, e)
	case TextEvent:
		return r.machine.Text(ctx, s, e)
	case LocationEvent:
		return r.machine.Location(ctx, s, e)
	case ButtonEvent:
		return r.button(ctx, s, e)
	}
	return nil
}

func (r *Router) command(ctx context.Context, s *Session, e CommandEvent) error {
	r.logger.Debug("Command received", zap.Int64("user_id", e.UserID), zap.String("command", e.Name))

	switch e.Name {
	case CommandStart:
		r.machine.Reset(s, e.UserID)
		return respond(ctx, r.gateway, e, r.browser.MainMenu())
	case CommandFindMe:
		return r.machine.StartFindMe(ctx, s, e)
	case CommandCancel:
		return r.machine.Cancel(ctx, s, e)
	case CommandInfo, CommandHelp:
		return respond(ctx, r.gateway, e, r.browser.Info())
	case CommandCategories:
		return r.render(ctx, e, r.browser.Categories)
	case CommandTransportHubs:
		return r.render(ctx, e, r.browser.HubsMenu)
	}
	return respond(ctx, r.gateway, e, format.NotUnderstood())
}

func (r *Router) button(ctx context.Context, s *Session, e ButtonEvent) error {
	a := e.Action
	r.logger.Debug("Button pressed",
		zap.Int64("user_id", e.UserID),
		zap.String("data", callback.Encode(a)),
		zap.Stringer("state", s.State),
	)

	switch a.Kind {
	case callback.MainMenu:
		r.machine.Reset(s, e.UserID)
		return respond(ctx, r.gateway, e, r.browser.MainMenu())
	case callback.Cancel:
		return r.machine.Cancel(ctx, s, e)
	case callback.Info:
		return respond(ctx, r.gateway, e, r.browser.Info())
	case callback.FindMe:
		return r.machine.StartFindMe(ctx, s, e)
	case callback.ShowCategories, callback.NearbyCategory, callback.NearbyPage, callback.NearbyCategoryPage:
		return r.machine.Button(ctx, s, e)
	case callback.BrowseCategories:
		return r.render(ctx, e, r.browser.Categories)
	case callback.BrowseCategory:
		return r.render(ctx, e, func() (format.Message, error) {
			return r.browser.Category(a.Category, a.Page)
		})
	case callback.Hubs:
		return r.render(ctx, e, r.browser.HubsMenu)
	case callback.HubCategory:
		origin := s.Origin
		if !s.HasSearch() {
			origin = nil
		}
		return r.render(ctx, e, func() (format.Message, error) {
			return r.browser.Hubs(a.Category, a.Page, origin)
		})
	}

	r.logger.Warn("Unknown button", zap.Int64("user_id", e.UserID), zap.Stringer("state", s.State))
	return respond(ctx, r.gateway, e, format.NotUnderstood())
}

func (r *Router) render(ctx context.Context, ev Event, build func() (format.Message, error)) error {
	msg, err := build()
	if err != nil {
		return err
	}
	return respond(ctx, r.gateway, ev, msg)
}

// fail resets the session and tells the user something went wrong.
func (r *Router) fail(ctx context.Context, s *Session, ev Event, err error) {
	msg := format.Failure()
	if errors.Is(err, apperror.ErrDataUnavailable) {
		r.logger.Warn("Places data unavailable", zap.Int64("user_id", ev.User()), zap.Error(err))
		msg = format.DataUnavailable()
	} else {
		r.logger.Error("Failed to handle event", zap.Int64("user_id", ev.User()), zap.Error(err))
	}

	r.machine.Reset(s, ev.User())
	if sendErr := r.gateway.SendReply(ctx, ev.User(), msg); sendErr != nil {
		r.logger.Error("Failed to send error reply", zap.Int64("user_id", ev.User()), zap.Error(sendErr))
	}
}
