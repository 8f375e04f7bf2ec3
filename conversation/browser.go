package conversation

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"telegram-places-bot/apperror"
	"telegram-places-bot/format"
	"telegram-places-bot/geo"
	"telegram-places-bot/nearby"
	"telegram-places-bot/paginate"
)

// Browser renders the flows that need no conversation state: menus, category browsing and
// transport hubs.
type Browser struct {
	places      Querier
	hubs        Querier
	pageSize    int
	hubPageSize int
	logger      *zap.Logger
}

// NewBrowser creates a Browser over the places and transport hub datasets.
func NewBrowser(places, hubs Querier, pageSize, hubPageSize int, logger *zap.Logger) *Browser {
	return &Browser{
		places:      places,
		hubs:        hubs,
		pageSize:    pageSize,
		hubPageSize: hubPageSize,
		logger:      logger,
	}
}

func (b *Browser) MainMenu() format.Message {
	return format.MainMenu()
}

func (b *Browser) Info() format.Message {
	return format.Info()
}

// Categories lists the place categories with their counts.
func (b *Browser) Categories() (format.Message, error) {
	categories, err := b.places.Categories()
	if err != nil {
		return format.Message{}, fmt.Errorf("failed to list categories: %w", err)
	}
	return format.BrowseCategories(categories), nil
}

// Category shows one page of a category without distances, places without coordinates included.
// An unknown category shows the category list again; a page outside the list shows page 1.
func (b *Browser) Category(category string, page int) (format.Message, error) {
	categories, err := b.places.Categories()
	if err != nil {
		return format.Message{}, fmt.Errorf("failed to list categories: %w", err)
	}
	canonical, ok := findCategory(categories, category)
	if !ok {
		b.logger.Warn("Unknown category requested", zap.String("category", category))
		return format.BrowseCategories(categories), nil
	}

	results, err := b.places.Browse(canonical)
	if err != nil {
		return format.Message{}, fmt.Errorf("failed to browse %s: %w", canonical, err)
	}
	if len(results) == 0 {
		return format.BrowseEmpty(canonical), nil
	}

	w, err := pageWindow(results, b.pageSize, page, b.logger)
	if err != nil {
		return format.Message{}, err
	}
	return format.BrowseResults(canonical, w), nil
}

// HubsMenu lists the transport hub categories.
func (b *Browser) HubsMenu() (format.Message, error) {
	categories, err := b.hubs.Categories()
	if err != nil {
		return format.Message{}, fmt.Errorf("failed to list hub categories: %w", err)
	}
	return format.HubsMenu(categories), nil
}

// Hubs shows one page of transport hubs. With a known origin the hubs are sorted by distance
// and carry travel time estimates.
func (b *Browser) Hubs(category string, page int, origin *geo.Coordinates) (format.Message, error) {
	filter := category
	if category == format.AllHubs {
		filter = ""
	} else {
		categories, err := b.hubs.Categories()
		if err != nil {
			return format.Message{}, fmt.Errorf("failed to list hub categories: %w", err)
		}
		canonical, ok := findCategory(categories, category)
		if !ok {
			b.logger.Warn("Unknown hub category requested", zap.String("category", category))
			return format.HubsMenu(categories), nil
		}
		filter = canonical
		category = canonical
	}

	results, err := b.hubs.FindNear(origin, nil, filter)
	if err != nil {
		return format.Message{}, fmt.Errorf("failed to list hubs: %w", err)
	}
	if len(results) == 0 {
		return format.HubsEmpty(category), nil
	}

	w, err := pageWindow(results, b.hubPageSize, page, b.logger)
	if err != nil {
		return format.Message{}, err
	}
	return format.HubResults(category, w), nil
}

// pageWindow slices results at page. A page outside the result set is an invalid reference and
// falls back to page 1.
func pageWindow(results []nearby.Result, pageSize, page int, logger *zap.Logger) (paginate.Window[nearby.Result], error) {
	w, err := paginate.Paginate(results, pageSize, page)
	if err == nil && len(w.Items) > 0 {
		return w, nil
	}
	if err != nil && !errors.Is(err, apperror.ErrInvalidPage) {
		return w, fmt.Errorf("failed to paginate results: %w", err)
	}
	logger.Warn("Invalid page requested", zap.Int("page", page), zap.Int("results", len(results)))
	return paginate.Paginate(results, pageSize, 1)
}
