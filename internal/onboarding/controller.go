package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nao1215/scoperival/internal/apiclient"
	"github.com/nao1215/scoperival/internal/model"
	"github.com/nao1215/scoperival/internal/notify"
)

// Requester is the part of *apiclient.Client the controller needs.
type Requester interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Refresher reloads the competitor collection after pages were saved.
// *registry.Registry implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithRefresher sets the component signalled after a successful save.
func WithRefresher(r Refresher) Option {
	return func(c *Controller) { c.refresher = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller drives the onboarding of a single competitor at a time.
// It is safe for concurrent use; operations that are not valid in the
// current phase fail with ErrInvalidTransition.
type Controller struct {
	client    Requester
	refresher Refresher
	logger    *slog.Logger

	mu           sync.Mutex
	phase        Phase
	failedStep   Phase
	err          error
	competitorID string
	domain       string
	companyName  string
	suggestions  []model.PageSuggestion
	selected     map[string]bool
	// generation changes on Abandon so that late responses are dropped.
	generation uint64

	subs notify.Subscribers[State]
}

// New creates an Idle controller.
func New(client Requester, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs Create followed by Discover.
func (c *Controller) Start(ctx context.Context, nc model.NewCompetitor) ([]model.PageSuggestion, error) {
	if _, err := c.Create(ctx, nc); err != nil {
		return nil, err
	}
	return c.Discover(ctx)
}

// Create normalises the domain and creates the competitor with no pages.
// It is valid in Idle and after a failed Create.
func (c *Controller) Create(ctx context.Context, nc model.NewCompetitor) (string, error) {
	domain, err := NormalizeDomain(nc.Domain)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(nc.CompanyName)
	if name == "" {
		return "", ErrMissingCompanyName
	}

	c.mu.Lock()
	if c.phase != Idle && !(c.phase == Failed && c.failedStep == Creating) {
		defer c.mu.Unlock()
		return "", c.transitionError("create")
	}
	c.phase = Creating
	c.err = nil
	c.domain = domain
	c.companyName = name
	gen := c.generation
	c.mu.Unlock()
	c.publish()

	var competitor model.Competitor
	err = c.client.Post(ctx, "/competitors", model.NewCompetitor{Domain: domain, CompanyName: name}, &competitor)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return competitor.ID, ErrAbandoned
	}
	if err == nil && competitor.ID == "" {
		err = fmt.Errorf("create competitor: %w: response has no id", apiclient.ErrServer)
	}
	if err != nil {
		c.fail(Creating, err)
		c.mu.Unlock()
		c.publish()
		return "", fmt.Errorf("create competitor: %w", err)
	}
	c.phase = Created
	c.competitorID = competitor.ID
	if competitor.Domain != "" {
		c.domain = competitor.Domain
	}
	c.mu.Unlock()

	c.logger.Debug("competitor created", "competitor_id", competitor.ID, "domain", domain)
	c.publish()
	return competitor.ID, nil
}

// Discover asks the backend for candidate pages of the created competitor's
// domain and selects all of them. It is valid in Created and after a failed
// Discover; on success the controller is Selecting.
func (c *Controller) Discover(ctx context.Context) ([]model.PageSuggestion, error) {
	c.mu.Lock()
	if c.phase != Created && !(c.phase == Failed && c.failedStep == Discovering) {
		defer c.mu.Unlock()
		return nil, c.transitionError("discover")
	}
	c.phase = Discovering
	c.err = nil
	domain := c.domain
	gen := c.generation
	c.mu.Unlock()
	c.publish()

	var resp model.DiscoverResponse
	err := c.client.Post(ctx, "/competitors/discover-pages", model.DiscoverRequest{Domain: domain}, &resp)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return nil, ErrAbandoned
	}
	if err != nil {
		c.fail(Discovering, err)
		c.mu.Unlock()
		c.publish()
		return nil, fmt.Errorf("discover pages: %w", err)
	}

	c.suggestions = dedupeSuggestions(resp.Suggestions)
	c.selected = make(map[string]bool, len(c.suggestions))
	c.phase = Discovered
	c.mu.Unlock()
	c.publish()

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return nil, ErrAbandoned
	}
	for _, s := range c.suggestions {
		c.selected[s.URL] = true
	}
	c.phase = Selecting
	suggestions := append([]model.PageSuggestion(nil), c.suggestions...)
	c.mu.Unlock()

	c.logger.Debug("pages discovered", "domain", domain, "count", len(suggestions))
	c.publish()
	return suggestions, nil
}

// Select adds url to the selection. Selecting an already selected page is a
// no-op.
func (c *Controller) Select(url string) error {
	return c.mutateSelection("select", func() error {
		if !c.suggested(url) {
			return fmt.Errorf("%w: %s", ErrUnknownPage, url)
		}
		c.selected[url] = true
		return nil
	})
}

// Deselect removes url from the selection. Deselecting a page that is not
// selected is a no-op.
func (c *Controller) Deselect(url string) error {
	return c.mutateSelection("deselect", func() error {
		if !c.suggested(url) {
			return fmt.Errorf("%w: %s", ErrUnknownPage, url)
		}
		delete(c.selected, url)
		return nil
	})
}

// SelectAll selects every suggestion.
func (c *Controller) SelectAll() error {
	return c.mutateSelection("select all", func() error {
		for _, s := range c.suggestions {
			c.selected[s.URL] = true
		}
		return nil
	})
}

// DeselectAll clears the selection.
func (c *Controller) DeselectAll() error {
	return c.mutateSelection("deselect all", func() error {
		clear(c.selected)
		return nil
	})
}

func (c *Controller) mutateSelection(op string, fn func() error) error {
	c.mu.Lock()
	if c.phase != Selecting {
		defer c.mu.Unlock()
		return c.transitionError(op)
	}
	if err := fn(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	c.publish()
	return nil
}

// Save persists the selection as the competitor's page set. On success the
// controller resets to Idle and the refresher is signalled; a refresh
// failure is logged and does not fail the save. On failure the controller
// returns to Selecting with the selection intact.
func (c *Controller) Save(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.phase != Selecting {
		defer c.mu.Unlock()
		return "", c.transitionError("save")
	}
	pages := c.selectionLocked()
	// With nothing suggested an empty save is the only way to finish.
	if len(pages) == 0 && len(c.suggestions) > 0 {
		c.mu.Unlock()
		return "", ErrEmptySelection
	}
	c.phase = Saving
	id := c.competitorID
	gen := c.generation
	c.mu.Unlock()
	c.publish()

	var msg model.Message
	err := c.client.Post(ctx, apiclient.Path("competitors", id, "pages"), model.SavePagesRequest{URLs: pages}, &msg)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return "", ErrAbandoned
	}
	if err != nil {
		c.phase = Selecting
		c.mu.Unlock()
		c.publish()
		return "", fmt.Errorf("save pages: %w", err)
	}
	c.phase = Saved
	c.mu.Unlock()
	c.publish()

	c.logger.Debug("pages saved", "competitor_id", id, "count", len(pages))

	c.mu.Lock()
	if c.generation == gen {
		c.resetLocked()
	}
	c.mu.Unlock()
	c.publish()

	if c.refresher != nil {
		if err := c.refresher.Refresh(ctx); err != nil {
			c.logger.Warn("failed to refresh competitors after save", "error", err)
		}
	}
	return msg.Message, nil
}

// Abandon discards the flow and returns to Idle. Nothing is rolled back on
// the backend: a created competitor stays, with whatever pages were saved.
// Responses to requests still in flight are discarded.
func (c *Controller) Abandon() {
	c.mu.Lock()
	if c.phase == Idle {
		c.mu.Unlock()
		return
	}
	if c.competitorID != "" {
		c.logger.Debug("onboarding abandoned", "competitor_id", c.competitorID, "phase", c.phase.String())
	}
	c.resetLocked()
	c.mu.Unlock()
	c.publish()
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Phase:        c.phase,
		CompetitorID: c.competitorID,
		Domain:       c.domain,
		CompanyName:  c.companyName,
		Suggestions:  append([]model.PageSuggestion(nil), c.suggestions...),
		Selected:     c.selectionLocked(),
		FailedStep:   c.failedStep,
		Err:          c.err,
	}
}

// Subscribe registers fn to receive a State after every change.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	return c.subs.Add(fn)
}

func (c *Controller) publish() {
	c.subs.Publish(c.State())
}

// selectionLocked returns the selected pages in suggestion order.
func (c *Controller) selectionLocked() []model.PageSelection {
	pages := make([]model.PageSelection, 0, len(c.selected))
	for _, s := range c.suggestions {
		if c.selected[s.URL] {
			pages = append(pages, s.Selection())
		}
	}
	return pages
}

func (c *Controller) suggested(url string) bool {
	for _, s := range c.suggestions {
		if s.URL == url {
			return true
		}
	}
	return false
}

func (c *Controller) fail(step Phase, err error) {
	c.phase = Failed
	c.failedStep = step
	c.err = err
}

func (c *Controller) resetLocked() {
	c.phase = Idle
	c.failedStep = Idle
	c.err = nil
	c.competitorID = ""
	c.domain = ""
	c.companyName = ""
	c.suggestions = nil
	c.selected = nil
	c.generation++
}

func (c *Controller) transitionError(op string) error {
	if c.phase == Failed {
		return fmt.Errorf("%w: cannot %s after failed %s", ErrInvalidTransition, op, c.failedStep)
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, c.phase)
}

// dedupeSuggestions keeps the first suggestion for each URL.
func dedupeSuggestions(in []model.PageSuggestion) []model.PageSuggestion {
	seen := make(map[string]bool, len(in))
	out := make([]model.PageSuggestion, 0, len(in))
	for _, s := range in {
		if s.URL == "" || seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, s)
	}
	return out
}
