package mockapi

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/scoperival/internal/model"
)

// account is a registered user with their password hash.
type account struct {
	user model.User
	hash []byte
}

// memoryStore holds all backend state. Every method takes the lock; the
// values it returns are copies.
type memoryStore struct {
	mu sync.Mutex

	accounts map[string]account // keyed by email
	// owners maps competitor id to the owning user id.
	owners      map[string]string
	competitors map[string]model.Competitor
	changes     []model.Change
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts:    make(map[string]account),
		owners:      make(map[string]string),
		competitors: make(map[string]model.Competitor),
	}
}

// addAccount stores a new account. It returns false if the email is taken.
func (s *memoryStore) addAccount(a account) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.user.Email]; exists {
		return false
	}
	s.accounts[a.user.Email] = a
	return true
}

func (s *memoryStore) account(email string) (account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[email]
	return a, ok
}

func (s *memoryStore) addCompetitor(userID string, c model.Competitor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.owners[c.ID] = userID
	s.competitors[c.ID] = c
}

// competitor returns the competitor if it exists and belongs to userID.
func (s *memoryStore) competitor(userID, id string) (model.Competitor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owners[id] != userID {
		return model.Competitor{}, false
	}
	c, ok := s.competitors[id]
	return c, ok
}

// competitorsOf lists a user's competitors in creation order.
func (s *memoryStore) competitorsOf(userID string) []model.Competitor {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Competitor, 0)
	for id, owner := range s.owners {
		if owner == userID {
			out = append(out, cloneCompetitor(s.competitors[id]))
		}
	}
	slices.SortFunc(out, func(a, b model.Competitor) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// setPages replaces the tracked pages of a competitor.
func (s *memoryStore) setPages(userID, id string, pages []model.TrackedPage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owners[id] != userID {
		return false
	}
	c := s.competitors[id]
	c.TrackedPages = pages
	s.competitors[id] = c
	return true
}

// markScraped sets last_scraped on every page of a competitor.
func (s *memoryStore) markScraped(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.competitors[id]
	if !ok {
		return
	}
	pages := make([]model.TrackedPage, len(c.TrackedPages))
	for i, p := range c.TrackedPages {
		ts := at
		p.LastScraped = &ts
		pages[i] = p
	}
	c.TrackedPages = pages
	s.competitors[id] = c
}

// deleteCompetitor removes a competitor together with its changes.
func (s *memoryStore) deleteCompetitor(userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owners[id] != userID {
		return false
	}
	delete(s.owners, id)
	delete(s.competitors, id)
	s.changes = slices.DeleteFunc(s.changes, func(ch model.Change) bool {
		return ch.CompetitorID == id
	})
	return true
}

func (s *memoryStore) addChanges(changes ...model.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.changes = append(s.changes, changes...)
}

// changesOf returns a user's changes, newest first, at most limit.
func (s *memoryStore) changesOf(userID string, limit int) []model.Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Change, 0)
	for _, ch := range s.changes {
		if s.owners[ch.CompetitorID] == userID {
			out = append(out, ch)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Change) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cloneCompetitor(c model.Competitor) model.Competitor {
	c.TrackedPages = slices.Clone(c.TrackedPages)
	if c.TrackedPages == nil {
		c.TrackedPages = []model.TrackedPage{}
	}
	return c
}
