package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telegram-places-bot/callback"
	"telegram-places-bot/format"
	"telegram-places-bot/geo"
	"telegram-places-bot/nearby"
	"telegram-places-bot/places"
)

const user int64 = 42

type reply struct {
	edit bool
	msg  format.Message
}

type recorder struct {
	mu      sync.Mutex
	replies []reply
}

func (r *recorder) SendReply(ctx context.Context, userID int64, msg format.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply{msg: msg})
	return nil
}

func (r *recorder) EditLastMessage(ctx context.Context, userID int64, msg format.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply{edit: true, msg: msg})
	return nil
}

func (r *recorder) last(t *testing.T) reply {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.replies)
	return r.replies[len(r.replies)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replies)
}

type listSource []places.Place

func (s listSource) Read(ctx context.Context) ([]places.Place, error) { return s, nil }
func (s listSource) Name() string                                      { return "list" }

type harness struct {
	router *Router
	store  *Store
	gw     *recorder
}

func newHarness(t *testing.T, list, hubs []places.Place, pageSize int) *harness {
	t.Helper()
	logger := zap.NewNop()

	placesRepo := places.NewRepository(listSource(list), places.DefaultCategories, logger)
	if list != nil {
		_, err := placesRepo.Load(context.Background())
		require.NoError(t, err)
	}
	hubsRepo := places.NewRepository(listSource(hubs), places.DefaultHubCategories, logger)
	_, err := hubsRepo.Load(context.Background())
	require.NoError(t, err)

	return newHarnessWith(nearby.NewEngine(placesRepo, logger), nearby.NewEngine(hubsRepo, logger), pageSize)
}

func newHarnessWith(engine, hubs Querier, pageSize int) *harness {
	logger := zap.NewNop()
	gw := &recorder{}
	store := NewStore(time.Hour)
	machine := NewMachine(engine, gw, Settings{RadiusKm: 2, PageSize: pageSize}, logger)
	browser := NewBrowser(engine, hubs, pageSize, 3, logger)
	return &harness{
		router: NewRouter(store, machine, browser, gw, logger),
		store:  store,
		gw:     gw,
	}
}

func (h *harness) send(ev Event) {
	h.router.Handle(context.Background(), ev)
}

func (h *harness) press(kind callback.Kind, category string, page int) {
	h.send(ButtonEvent{UserID: user, Action: callback.Action{Kind: kind, Category: category, Page: page}})
}

func (h *harness) state() State {
	return h.store.Get(user).State
}

func at(lat, lon float64) *geo.Coordinates {
	return &geo.Coordinates{Lat: lat, Lon: lon}
}

func data(m format.Message) []string {
	var out []string
	for _, r := range m.Buttons {
		for _, b := range r {
			out = append(out, b.Data)
		}
	}
	return out
}

func sevenNearOrigin() []places.Place {
	var list []places.Place
	for i := 1; i <= 7; i++ {
		list = append(list, places.Place{
			Name:        fmt.Sprintf("Place %d", i),
			Category:    "Restaurants",
			Coordinates: at(0.001*float64(i), 0),
		})
	}
	return list
}

func TestRouter_FindMeFlowPaginates(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 6)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	assert.Equal(t, AwaitingLocation, h.state())
	assert.True(t, h.gw.last(t).msg.RequestLocation)

	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{Lat: 0, Lon: 0}})
	assert.Equal(t, ShowingResults, h.state())
	page1 := h.gw.last(t).msg
	assert.Contains(t, page1.Text, "6. 🍽️ *Place 6*")
	assert.NotContains(t, page1.Text, "Place 7")
	assert.Contains(t, data(page1), "npg:2")

	h.press(callback.NearbyPage, "", 2)
	assert.Equal(t, ShowingResults, h.state())
	last := h.gw.last(t)
	assert.True(t, last.edit)
	assert.Contains(t, last.msg.Text, "7. 🍽️ *Place 7*")
	assert.NotContains(t, data(last.msg), "npg:3")
	assert.Contains(t, data(last.msg), "npg:1")
	assert.Equal(t, 2, h.store.Get(user).Page)
}

func TestRouter_NothingWithinRadius(t *testing.T) {
	h := newHarness(t, []places.Place{
		{Name: "Far", Category: "Hotels", Coordinates: at(0.045, 0)},
	}, nil, 5)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})

	assert.Equal(t, ShowingResults, h.state())
	msg := h.gw.last(t).msg
	assert.Contains(t, msg.Text, "No places found within 2.0km")
	assert.Contains(t, data(msg), "findme")
	assert.Contains(t, data(msg), "ncats")
}

func TestRouter_CategoryWithoutPlaces(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})
	h.press(callback.ShowCategories, "", 0)
	assert.Equal(t, ShowingResults, h.state())

	h.press(callback.NearbyCategory, "Hotels", 0)
	assert.Equal(t, BrowsingCategory, h.state())
	msg := h.gw.last(t).msg
	assert.Contains(t, msg.Text, "No Hotels places found")
	assert.Contains(t, data(msg), "ncats")

	h.press(callback.ShowCategories, "", 0)
	assert.Equal(t, ShowingResults, h.state())
	assert.Contains(t, data(h.gw.last(t).msg), "ncat:Hotels")
}

func TestRouter_PageNavigationWhileIdle(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)

	h.press(callback.NearbyPage, "", 2)

	assert.Equal(t, Idle, h.state())
	msg := h.gw.last(t).msg
	assert.Equal(t, format.StartOver(), msg)
	assert.Contains(t, data(msg), "findme")
}

func TestRouter_CategoryPages(t *testing.T) {
	var list []places.Place
	for i := 1; i <= 4; i++ {
		list = append(list, places.Place{Name: fmt.Sprintf("Hotel %d", i), Category: "Hotels", Coordinates: at(0.01*float64(i), 0)})
	}
	h := newHarness(t, list, nil, 3)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})
	h.press(callback.NearbyCategory, "hotels", 0)

	s := h.store.Get(user)
	assert.Equal(t, BrowsingCategory, s.State)
	assert.Equal(t, "Hotels", s.Category)
	assert.Contains(t, data(h.gw.last(t).msg), "ncpg:Hotels:2")

	h.press(callback.NearbyCategoryPage, "Hotels", 2)
	assert.Contains(t, h.gw.last(t).msg.Text, "4. 🏨 *Hotel 4*")
	assert.Equal(t, 2, h.store.Get(user).Page)
}

func TestRouter_InvalidPageFallsBackToFirst(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})
	first := h.gw.last(t).msg

	for _, page := range []int{0, -1, 99, 1537228672809129303} {
		h.press(callback.NearbyPage, "", page)
		assert.Equal(t, first, h.gw.last(t).msg, "page %d", page)
		assert.Equal(t, ShowingResults, h.state())
		assert.Equal(t, 1, h.store.Get(user).Page)
	}
}

func TestRouter_HugePageFromCallbackData(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 6)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})
	first := h.gw.last(t).msg

	h.send(ButtonEvent{UserID: user, Action: callback.Decode("npg:1537228672809129303")})
	assert.Equal(t, first, h.gw.last(t).msg)
	assert.Equal(t, ShowingResults, h.state(), "the search survives")
	assert.Equal(t, 1, h.store.Get(user).Page)
}

func TestRouter_UnknownCategoryShowsCategoryList(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})
	h.press(callback.NearbyCategory, "Nightclubs", 0)

	assert.Equal(t, ShowingResults, h.state())
	assert.Contains(t, data(h.gw.last(t).msg), "ncat:Restaurants")
}

func TestRouter_AwaitingLocation(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)
	h.send(CommandEvent{UserID: user, Name: CommandFindMe})

	h.send(TextEvent{UserID: user, Text: "Bole"})
	assert.Equal(t, AwaitingLocation, h.state())
	assert.Equal(t, format.LocationReprompt(), h.gw.last(t).msg)

	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{Lat: 95, Lon: 0}})
	assert.Equal(t, AwaitingLocation, h.state())

	h.send(TextEvent{UserID: user, Text: format.CancelLabel})
	assert.Equal(t, Idle, h.state())
	assert.Equal(t, format.MainMenu(), h.gw.last(t).msg)
}

func TestRouter_FindMeSupersedesSearch(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)
	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})
	require.Equal(t, ShowingResults, h.state())

	h.press(callback.FindMe, "", 0)

	s := h.store.Get(user)
	assert.Equal(t, AwaitingLocation, s.State)
	assert.Nil(t, s.Origin)
	last := h.gw.last(t)
	assert.False(t, last.edit, "location keyboards are sent, not edited")
	assert.True(t, last.msg.RequestLocation)
}

func TestRouter_LocationOutsideSearch(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)

	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})

	assert.Equal(t, Idle, h.state())
	assert.Equal(t, format.LocationHint(), h.gw.last(t).msg)
}

func TestRouter_BackToMenuResets(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)
	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})

	h.press(callback.MainMenu, "", 0)

	s := h.store.Get(user)
	assert.Equal(t, Idle, s.State)
	assert.Nil(t, s.Origin)
	assert.Equal(t, format.MainMenu(), h.gw.last(t).msg)
}

func TestRouter_DataUnavailable(t *testing.T) {
	h := newHarness(t, nil, nil, 5)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})

	assert.Equal(t, Idle, h.state())
	assert.Equal(t, format.DataUnavailable(), h.gw.last(t).msg)

	h.send(CommandEvent{UserID: user, Name: CommandCategories})
	assert.Equal(t, format.DataUnavailable(), h.gw.last(t).msg)
}

type panickingQuerier struct{}

func (panickingQuerier) FindNear(*geo.Coordinates, *float64, string) ([]nearby.Result, error) {
	panic("index out of range")
}

func (panickingQuerier) Browse(string) ([]nearby.Result, error) {
	panic("index out of range")
}

func (panickingQuerier) Categories() ([]nearby.CategoryCount, error) {
	panic("index out of range")
}

func TestRouter_RecoversFromPanics(t *testing.T) {
	h := newHarnessWith(panickingQuerier{}, panickingQuerier{}, 5)

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	assert.NotPanics(t, func() {
		h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})
	})

	assert.Equal(t, Idle, h.state())
	assert.Equal(t, format.Failure(), h.gw.last(t).msg)

	// the session lock was released
	h.send(CommandEvent{UserID: user, Name: CommandStart})
	assert.Equal(t, format.MainMenu(), h.gw.last(t).msg)
}

func TestRouter_BrowseCategories(t *testing.T) {
	list := []places.Place{
		{Name: "Bank A", Category: "Banks", Coordinates: at(9.0, 38.7)},
		{Name: "Bank B", Category: "Banks", Coordinates: at(9.1, 38.7)},
		{Name: "Bank C", Category: "Banks", Coordinates: at(9.2, 38.7)},
	}
	h := newHarness(t, list, nil, 2)

	h.send(CommandEvent{UserID: user, Name: CommandCategories})
	assert.Contains(t, data(h.gw.last(t).msg), "bcat:Banks:1")

	h.press(callback.BrowseCategory, "Banks", 2)
	msg := h.gw.last(t).msg
	assert.Contains(t, msg.Text, "3. 🏦 *Bank C*")
	assert.Contains(t, data(msg), "bcat:Banks:1")
	assert.Equal(t, Idle, h.state(), "browsing needs no conversation state")

	h.press(callback.BrowseCategory, "Hotels", 1)
	assert.Contains(t, h.gw.last(t).msg.Text, "No Hotels places found")
}

func TestRouter_BrowseIncludesPlacesWithoutCoordinates(t *testing.T) {
	list := []places.Place{
		{Name: "Mapped Hotel", Category: "Hotels", Coordinates: at(9.0, 38.7)},
		{Name: "Unmapped Hotel", Category: "Hotels"},
	}
	h := newHarness(t, list, nil, 5)

	h.send(CommandEvent{UserID: user, Name: CommandCategories})
	var labels []string
	for _, r := range h.gw.last(t).msg.Buttons {
		for _, b := range r {
			labels = append(labels, b.Text)
		}
	}
	assert.Contains(t, labels, "🏨 Hotels (2)")

	h.press(callback.BrowseCategory, "Hotels", 1)
	msg := h.gw.last(t).msg
	assert.Contains(t, msg.Text, "1. 🏨 *Mapped Hotel*")
	assert.Contains(t, msg.Text, "2. 🏨 *Unmapped Hotel*")
	assert.NotContains(t, msg.Text, "📏")
}

func TestRouter_TransportHubs(t *testing.T) {
	hubs := []places.Place{
		{Name: "Far Stand", Category: "taxi_stand", Coordinates: at(0.02, 0)},
		{Name: "Near Stand", Category: "taxi_stand", Coordinates: at(0.01, 0)},
		{Name: "Lagare", Category: "train_station", Coordinates: at(0.03, 0)},
	}
	h := newHarness(t, sevenNearOrigin(), hubs, 5)

	h.send(CommandEvent{UserID: user, Name: CommandTransportHubs})
	assert.Contains(t, data(h.gw.last(t).msg), "hub:taxi_stand:1")

	h.press(callback.HubCategory, "taxi_stand", 1)
	text := h.gw.last(t).msg.Text
	assert.Less(t, strings.Index(text, "Far Stand"), strings.Index(text, "Near Stand"), "dataset order without a location")
	assert.NotContains(t, text, "Walking")

	h.send(CommandEvent{UserID: user, Name: CommandFindMe})
	h.send(LocationEvent{UserID: user, Coordinates: geo.Coordinates{}})
	h.press(callback.HubCategory, "taxi_stand", 1)
	text = h.gw.last(t).msg.Text
	assert.Less(t, strings.Index(text, "Near Stand"), strings.Index(text, "Far Stand"), "nearest first with a location")
	assert.Contains(t, text, "👣 Est. Walking Time")

	h.press(callback.HubCategory, format.AllHubs, 1)
	assert.Contains(t, h.gw.last(t).msg.Text, "Lagare")
}

func TestRouter_UnknownButton(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)

	h.send(ButtonEvent{UserID: user, Action: callback.Decode("cat_Hotels_0")})

	assert.Equal(t, Idle, h.state())
	assert.Equal(t, format.NotUnderstood(), h.gw.last(t).msg)
}

func TestRouter_UsersAreIndependent(t *testing.T) {
	h := newHarness(t, sevenNearOrigin(), nil, 5)

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			h.router.Handle(context.Background(), CommandEvent{UserID: id, Name: CommandFindMe})
			h.router.Handle(context.Background(), LocationEvent{UserID: id, Coordinates: geo.Coordinates{}})
		}(i)
	}
	wg.Wait()

	for i := int64(1); i <= 20; i++ {
		assert.Equal(t, ShowingResults, h.store.Get(i).State)
	}
	assert.Equal(t, 60, h.gw.count())
}
