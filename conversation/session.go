package conversation

import (
	"sync"
	"time"

	"telegram-places-bot/geo"
)

// State is where a user is in the find-me conversation.
type State int

const (
	Idle State = iota
	AwaitingLocation
	ShowingResults
	BrowsingCategory
	// Terminal is transient: it is entered on cancel or back-to-menu and immediately folded back to Idle.
	Terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingLocation:
		return "awaiting_location"
	case ShowingResults:
		return "showing_results"
	case BrowsingCategory:
		return "browsing_category"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

// Session is the per-user conversational context. It lives only in memory.
type Session struct {
	State     State
	Origin    *geo.Coordinates
	Category  string
	Page      int
	UpdatedAt time.Time
}

func newSession() Session {
	return Session{State: Idle, Page: 1}
}

// HasSearch reports whether the session holds a location search to page through.
func (s *Session) HasSearch() bool {
	return s.Origin != nil && (s.State == ShowingResults || s.State == BrowsingCategory)
}

type entry struct {
	mu      sync.Mutex
	session Session
}

// Store keeps one session per user. Events of one user are serialized; different users are
// handled independently.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a session store. Sessions idle for longer than ttl are dropped by Prune.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[int64]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (st *Store) entry(userID int64) *entry {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.entries[userID]
	if !ok {
		e = &entry{session: newSession()}
		st.entries[userID] = e
	}
	return e
}

// With runs fn with exclusive access to the user's session, creating an Idle one on first use.
func (st *Store) With(userID int64, fn func(s *Session)) {
	e := st.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(&e.session)
	e.session.UpdatedAt = st.now()
}

// Get returns a copy of the user's session.
func (st *Store) Get(userID int64) Session {
	e := st.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Len returns the number of tracked sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// Prune drops sessions that have been idle longer than the store's ttl.
func (st *Store) Prune() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for userID, e := range st.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.session.UpdatedAt.Before(cutoff) {
			delete(st.entries, userID)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}
