package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"telegram-places-bot/apperror"
	"telegram-places-bot/callback"
	"telegram-places-bot/format"
	"telegram-places-bot/geo"
	"telegram-places-bot/nearby"
)

// Querier answers proximity and category queries.
type Querier interface {
	FindNear(origin *geo.Coordinates, radiusKm *float64, category string) ([]nearby.Result, error)
	Browse(category string) ([]nearby.Result, error)
	Categories() ([]nearby.CategoryCount, error)
}

// Settings are the search parameters of the find-me flow.
type Settings struct {
	RadiusKm float64
	PageSize int
}

// Machine runs the find-me conversation: prompt for a location, show nearby results, narrow them
// down by category and page through them.
type Machine struct {
	engine   Querier
	gateway  Gateway
	settings Settings
	logger   *zap.Logger
}

// NewMachine creates a Machine.
func NewMachine(engine Querier, gateway Gateway, settings Settings, logger *zap.Logger) *Machine {
	return &Machine{
		engine:   engine,
		gateway:  gateway,
		settings: settings,
		logger:   logger,
	}
}

func (m *Machine) transition(s *Session, userID int64, to State) {
	if s.State != to {
		m.logger.Debug("State transition",
			zap.Int64("user_id", userID),
			zap.Stringer("from", s.State),
			zap.Stringer("to", to),
		)
	}
	s.State = to
}

// Reset passes through Terminal and lands in Idle with an empty session.
func (m *Machine) Reset(s *Session, userID int64) {
	m.transition(s, userID, Terminal)
	m.transition(s, userID, Idle)
	*s = newSession()
}

// StartFindMe asks for a location. It is accepted in every state and supersedes whatever the
// session was waiting for.
func (m *Machine) StartFindMe(ctx context.Context, s *Session, ev Event) error {
	m.transition(s, ev.User(), AwaitingLocation)
	s.Origin = nil
	s.Category = ""
	s.Page = 1

	m.logger.Info("Find nearby places initiated", zap.Int64("user_id", ev.User()))
	return m.gateway.SendReply(ctx, ev.User(), format.LocationPrompt(m.settings.RadiusKm))
}

// Cancel aborts the conversation.
func (m *Machine) Cancel(ctx context.Context, s *Session, ev Event) error {
	m.Reset(s, ev.User())
	if err := m.gateway.SendReply(ctx, ev.User(), format.Cancelled()); err != nil {
		return err
	}
	return m.gateway.SendReply(ctx, ev.User(), format.MainMenu())
}

// Location handles a shared location.
func (m *Machine) Location(ctx context.Context, s *Session, ev LocationEvent) error {
	if s.State != AwaitingLocation {
		return respond(ctx, m.gateway, ev, format.LocationHint())
	}
	if !ev.Coordinates.Valid() {
		m.logger.Warn("Received invalid location", zap.Int64("user_id", ev.UserID), zap.Stringer("location", ev.Coordinates))
		return respond(ctx, m.gateway, ev, format.LocationReprompt())
	}

	origin := ev.Coordinates
	m.logger.Info("Received location",
		zap.Int64("user_id", ev.UserID),
		zap.Float64("lat", origin.Lat),
		zap.Float64("lon", origin.Lon),
	)
	if err := m.gateway.SendReply(ctx, ev.UserID, format.Searching()); err != nil {
		return err
	}

	s.Origin = &origin
	s.Category = ""
	s.Page = 1
	m.transition(s, ev.UserID, ShowingResults)
	return m.showNearby(ctx, s, ev, 1)
}

// Text handles plain text.
func (m *Machine) Text(ctx context.Context, s *Session, ev TextEvent) error {
	if s.State == AwaitingLocation {
		if strings.TrimSpace(ev.Text) == format.CancelLabel {
			return m.Cancel(ctx, s, ev)
		}
		return respond(ctx, m.gateway, ev, format.LocationReprompt())
	}
	return respond(ctx, m.gateway, ev, format.NotUnderstood())
}

// Button handles the buttons of the find-me flow.
func (m *Machine) Button(ctx context.Context, s *Session, ev ButtonEvent) error {
	if !s.HasSearch() {
		return m.noSearch(ctx, s, ev)
	}

	switch ev.Action.Kind {
	case callback.ShowCategories:
		return m.showCategories(ctx, s, ev)
	case callback.NearbyCategory:
		return m.chooseCategory(ctx, s, ev, ev.Action.Category, 1)
	case callback.NearbyCategoryPage:
		return m.chooseCategory(ctx, s, ev, ev.Action.Category, ev.Action.Page)
	case callback.NearbyPage:
		m.transition(s, ev.UserID, ShowingResults)
		s.Category = ""
		return m.showNearby(ctx, s, ev, ev.Action.Page)
	}
	return respond(ctx, m.gateway, ev, format.NotUnderstood())
}

// noSearch answers a button that needs a location search the session doesn't have.
func (m *Machine) noSearch(ctx context.Context, s *Session, ev ButtonEvent) error {
	m.logger.Debug("Button without an active search",
		zap.Int64("user_id", ev.UserID),
		zap.Stringer("action", ev.Action.Kind),
		zap.Stringer("state", s.State),
	)
	if s.State == AwaitingLocation {
		return respond(ctx, m.gateway, ev, format.LocationReprompt())
	}
	return respond(ctx, m.gateway, ev, format.StartOver())
}

func (m *Machine) showNearby(ctx context.Context, s *Session, ev Event, page int) error {
	radius := m.settings.RadiusKm
	results, err := m.engine.FindNear(s.Origin, &radius, "")
	if err != nil {
		return fmt.Errorf("failed to find nearby places: %w", err)
	}
	if len(results) == 0 {
		s.Page = 1
		return respond(ctx, m.gateway, ev, format.NoNearbyResults(m.settings.RadiusKm))
	}

	w, err := pageWindow(results, m.settings.PageSize, page, m.logger.With(zap.Int64("user_id", ev.User())))
	if err != nil {
		return err
	}
	s.Page = w.Page
	return respond(ctx, m.gateway, ev, format.NearbyResults(w))
}

// showCategories shows the category list without leaving the search. Coming back from a
// category returns the session to ShowingResults.
func (m *Machine) showCategories(ctx context.Context, s *Session, ev ButtonEvent) error {
	categories, err := m.engine.Categories()
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	m.transition(s, ev.UserID, ShowingResults)
	s.Category = ""
	s.Page = 1
	return respond(ctx, m.gateway, ev, format.NearbyCategories(categories))
}

func (m *Machine) chooseCategory(ctx context.Context, s *Session, ev ButtonEvent, category string, page int) error {
	categories, err := m.engine.Categories()
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	canonical, ok := findCategory(categories, category)
	if !ok {
		m.logger.Warn("Unknown category requested",
			zap.Int64("user_id", ev.UserID),
			zap.String("category", category),
			zap.Error(apperror.ErrUnknownCategory),
		)
		m.transition(s, ev.UserID, ShowingResults)
		s.Category = ""
		return respond(ctx, m.gateway, ev, format.NearbyCategories(categories))
	}

	results, err := m.engine.FindNear(s.Origin, nil, canonical)
	if err != nil {
		return fmt.Errorf("failed to find nearby %s: %w", canonical, err)
	}
	m.transition(s, ev.UserID, BrowsingCategory)
	s.Category = canonical
	if len(results) == 0 {
		s.Page = 1
		return respond(ctx, m.gateway, ev, format.NearbyCategoryEmpty(canonical))
	}

	w, err := pageWindow(results, m.settings.PageSize, page, m.logger.With(zap.Int64("user_id", ev.UserID)))
	if err != nil {
		return err
	}
	s.Page = w.Page
	return respond(ctx, m.gateway, ev, format.NearbyCategoryResults(canonical, w))
}

func findCategory(categories []nearby.CategoryCount, name string) (string, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c.Name, true
		}
	}
	return "", false
}
