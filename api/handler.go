package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"telegram-places-bot/apperror"
	"telegram-places-bot/geo"
	"telegram-places-bot/nearby"
	"telegram-places-bot/paginate"
	"telegram-places-bot/places"
)

var validate = validator.New()

// Querier is a dataset the API can search.
type Querier interface {
	FindNear(origin *geo.Coordinates, radiusKm *float64, category string) ([]nearby.Result, error)
	Browse(category string) ([]nearby.Result, error)
	Categories() ([]nearby.CategoryCount, error)
	Snapshot() *places.Snapshot
}

// SearchQuery is the query string of the search endpoints. Without lat/lon the dataset is browsed
// in its stored order.
type SearchQuery struct {
	Lat      *float64 `query:"lat" validate:"required_with=Lon,omitempty,latitude"`
	Lon      *float64 `query:"lon" validate:"required_with=Lat,omitempty,longitude"`
	RadiusM  *float64 `query:"radius_m" validate:"omitempty,gt=0,lte=50000"`
	All      bool     `query:"all"`
	Category string   `query:"category" validate:"max=64"`
	Page     int      `query:"page" validate:"gte=0,lte=100000"`
	PageSize int      `query:"page_size" validate:"gte=0,lte=50"`
}

func (q SearchQuery) origin() *geo.Coordinates {
	if q.Lat == nil || q.Lon == nil {
		return nil
	}
	return &geo.Coordinates{Lat: *q.Lat, Lon: *q.Lon}
}

// Check pings a backing service for the health endpoint.
type Check func(ctx context.Context) error

const checkTimeout = 2 * time.Second

type Handler struct {
	places      Querier
	hubs        Querier
	radiusM     float64
	pageSize    int
	hubPageSize int
	checks      map[string]Check
	logger      *zap.Logger
}

// NewHandler creates the HTTP handlers. radiusM is the default search radius in meters.
func NewHandler(places, hubs Querier, radiusM float64, pageSize, hubPageSize int, logger *zap.Logger) *Handler {
	return &Handler{
		places:      places,
		hubs:        hubs,
		radiusM:     radiusM,
		pageSize:    pageSize,
		hubPageSize: hubPageSize,
		checks:      make(map[string]Check),
		logger:      logger,
	}
}

// AddCheck registers a dependency reported by /health. A failing dependency degrades the status
// but does not fail the check, since searches are served from memory.
func (h *Handler) AddCheck(name string, check Check) {
	h.checks[name] = check
}

type datasetHealth struct {
	Available bool      `json:"available"`
	Count     int       `json:"count"`
	Source    string    `json:"source,omitempty"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`
}

func healthOf(s *places.Snapshot) datasetHealth {
	return datasetHealth{
		Available: s.Available(),
		Count:     s.Len(),
		Source:    s.Source(),
		LoadedAt:  s.LoadedAt(),
	}
}

// Health reports 503 until the places dataset has been loaded. The hubs dataset is optional.
func (h *Handler) Health(c *fiber.Ctx) error {
	placesSnap := h.places.Snapshot()
	status := "ok"

	dependencies := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(c.UserContext(), checkTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			h.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			dependencies[name] = "down"
			status = "degraded"
			continue
		}
		dependencies[name] = "up"
	}

	if !placesSnap.Available() {
		status = "unavailable"
		c.Status(fiber.StatusServiceUnavailable)
	}

	return c.JSON(fiber.Map{
		"status":       status,
		"time":         time.Now().UTC(),
		"places":       healthOf(placesSnap),
		"hubs":         healthOf(h.hubs.Snapshot()),
		"dependencies": dependencies,
	})
}

// Categories lists the place categories with their counts.
func (h *Handler) Categories(c *fiber.Ctx) error {
	categories, err := h.places.Categories()
	if err != nil {
		return SendError(c, err)
	}
	return SendSuccess(c, fiber.Map{
		"categories": categories,
	}, &Meta{
		Total: len(categories),
	})
}

func (h *Handler) Places(c *fiber.Ctx) error {
	return h.search(c, h.places, h.pageSize)
}

func (h *Handler) Hubs(c *fiber.Ctx) error {
	return h.search(c, h.hubs, h.hubPageSize)
}

func (h *Handler) search(c *fiber.Ctx, dataset Querier, defaultPageSize int) error {
	var q SearchQuery
	if err := c.QueryParser(&q); err != nil {
		return SendError(c, apperror.ErrInvalidInput.WithMessage("Invalid query parameters"))
	}
	if err := validate.Struct(&q); err != nil {
		return SendError(c, validationError(err))
	}

	category := ""
	if q.Category != "" {
		canonical, err := canonicalCategory(dataset, q.Category)
		if err != nil {
			return SendError(c, err)
		}
		category = canonical
	}

	var radiusKm *float64
	origin := q.origin()
	if origin != nil && !q.All {
		radiusM := h.radiusM
		if q.RadiusM != nil {
			radiusM = *q.RadiusM
		}
		radiusKm = nearby.RadiusKm(radiusM)
	}

	var results []nearby.Result
	var err error
	if origin == nil {
		results, err = dataset.Browse(category)
	} else {
		results, err = dataset.FindNear(origin, radiusKm, category)
	}
	if err != nil {
		return SendError(c, err)
	}

	page, pageSize := q.Page, q.PageSize
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	w, err := paginate.Paginate(results, pageSize, page)
	if err != nil {
		return SendError(c, err)
	}

	return SendSuccess(c, paginate.Map(w, toPlaceResponse).Items, &Meta{
		Total:      w.Total,
		Page:       w.Page,
		Limit:      w.PageSize,
		TotalPages: w.TotalPages,
	})
}

func canonicalCategory(dataset Querier, category string) (string, error) {
	categories, err := dataset.Categories()
	if err != nil {
		return "", err
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, category) {
			return c.Name, nil
		}
	}
	return "", apperror.ErrUnknownCategory.WithMessage("Unknown category: " + category)
}

// validationError maps validator failures to the API's error codes.
func validationError(err error) *apperror.AppError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperror.ErrInvalidInput
	}

	fe := errs[0]
	switch fe.Field() {
	case "Lat", "Lon":
		return apperror.ErrInvalidCoordinates
	}
	return apperror.ErrInvalidInput.WithMessage("Invalid value for " + fe.Field())
}
