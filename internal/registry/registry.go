package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/scoperival/internal/apiclient"
	"github.com/nao1215/scoperival/internal/model"
	"github.com/nao1215/scoperival/internal/notify"
)

// Requester is the part of *apiclient.Client the registry needs.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// ConfirmFunc asks the user whether competitor c may be deleted.
type ConfirmFunc func(ctx context.Context, c model.Competitor) (bool, error)

// AlwaysConfirm approves every deletion. It backs the CLI's --yes flag.
func AlwaysConfirm(context.Context, model.Competitor) (bool, error) { return true, nil }

// ScanJournal records the outcome of every scan. *database.LocalDB
// implements it.
type ScanJournal interface {
	RecordScan(ctx context.Context, rec model.ScanRecord) error
}

// Option configures a Registry.
type Option func(*Registry)

// WithConfirm sets the deletion confirmation. Without one, Remove always
// returns ErrNotConfirmed.
func WithConfirm(fn ConfirmFunc) Option {
	return func(r *Registry) { r.confirm = fn }
}

// WithJournal records scans in j.
func WithJournal(j ScanJournal) Option {
	return func(r *Registry) { r.journal = j }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// Snapshot is an immutable view of a Registry.
type Snapshot struct {
	Competitors []model.Competitor

	// Scanning lists the ids with a scan in flight, sorted.
	Scanning []string
}

// Registry is the authoritative client-side competitor collection.
type Registry struct {
	client  Requester
	confirm ConfirmFunc
	journal ScanJournal
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	competitors []model.Competitor
	inFlight    map[string]struct{}

	subs notify.Subscribers[Snapshot]
}

// New creates an empty registry. Call List to load it.
func New(client Requester, opts ...Option) *Registry {
	r := &Registry{
		client:   client,
		logger:   slog.Default(),
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List fetches the full collection and replaces the local one with it.
// On failure the previous collection is kept.
func (r *Registry) List(ctx context.Context) ([]model.Competitor, error) {
	var competitors []model.Competitor
	if err := r.client.Get(ctx, "/competitors", &competitors); err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	if competitors == nil {
		competitors = []model.Competitor{}
	}

	r.mu.Lock()
	r.competitors = competitors
	r.mu.Unlock()

	r.publish()
	return slices.Clone(competitors), nil
}

// Refresh is List without the result.
func (r *Registry) Refresh(ctx context.Context) error {
	_, err := r.List(ctx)
	return err
}

// Remove deletes competitor id after confirmation, then refreshes.
// A declined confirmation returns ErrNotConfirmed and sends nothing.
// A failed delete leaves the collection unchanged.
func (r *Registry) Remove(ctx context.Context, id string) error {
	target, ok := r.Lookup(id)
	if !ok {
		target = model.Competitor{ID: id}
	}

	if r.confirm == nil {
		return ErrNotConfirmed
	}
	confirmed, err := r.confirm(ctx, target)
	if err != nil {
		return fmt.Errorf("confirm deletion: %w", err)
	}
	if !confirmed {
		return ErrNotConfirmed
	}

	var msg model.Message
	if err := r.client.Delete(ctx, apiclient.Path("competitors", id), &msg); err != nil {
		return fmt.Errorf("delete competitor %s: %w", id, err)
	}
	r.logger.Debug("competitor deleted", "competitor_id", id)

	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("failed to refresh competitors after delete", "error", err)
	}
	return nil
}

// Scan triggers a scan of competitor id. While that scan is in flight,
// further calls for the same id return ErrScanInProgress immediately.
// On success the collection is refreshed so that last-scraped times
// update; a failed refresh is logged only.
func (r *Registry) Scan(ctx context.Context, id string) (model.ScanResult, error) {
	result, err := r.scan(ctx, id)
	if err != nil {
		return result, err
	}
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("failed to refresh competitors after scan", "competitor_id", id, "error", err)
	}
	return result, nil
}

func (r *Registry) scan(ctx context.Context, id string) (model.ScanResult, error) {
	if !r.acquire(id) {
		return model.ScanResult{}, fmt.Errorf("%w: %s", ErrScanInProgress, id)
	}
	defer r.release(id)

	start := r.now()
	var result model.ScanResult
	err := r.client.Post(ctx, apiclient.Path("competitors", id, "scan"), nil, &result)
	r.record(ctx, id, result, err, r.now().Sub(start))

	if err != nil {
		return model.ScanResult{}, fmt.Errorf("scan competitor %s: %w", id, err)
	}
	r.logger.Debug("scan completed", "competitor_id", id, "changes", len(result.Changes))
	return result, nil
}

func (r *Registry) acquire(id string) bool {
	r.mu.Lock()
	if _, busy := r.inFlight[id]; busy {
		r.mu.Unlock()
		return false
	}
	r.inFlight[id] = struct{}{}
	r.mu.Unlock()
	r.publish()
	return true
}

func (r *Registry) release(id string) {
	r.mu.Lock()
	delete(r.inFlight, id)
	r.mu.Unlock()
	r.publish()
}

func (r *Registry) record(ctx context.Context, id string, result model.ScanResult, scanErr error, elapsed time.Duration) {
	if r.journal == nil {
		return
	}

	rec := model.ScanRecord{
		CompetitorID: id,
		Status:       model.ScanSucceeded,
		Duration:     elapsed,
		Timestamp:    r.now(),
	}
	if c, ok := r.Lookup(id); ok {
		rec.CompetitorName = c.CompanyName
	}
	if scanErr != nil {
		rec.Status = model.ScanFailed
		rec.Error = scanErr.Error()
	} else {
		rec.Message = result.Message
		rec.ChangesDetected = len(result.Changes)
	}

	if err := r.journal.RecordScan(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Warn("failed to record scan", "competitor_id", id, "error", err)
	}
}

// IsScanning reports whether a scan of id is in flight.
func (r *Registry) IsScanning(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inFlight[id]
	return busy
}

// Competitors returns a copy of the current collection.
func (r *Registry) Competitors() []model.Competitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.competitors)
}

// Lookup returns the competitor with the given id from the current
// collection.
func (r *Registry) Lookup(id string) (model.Competitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.competitors {
		if c.ID == id {
			return c, true
		}
	}
	return model.Competitor{}, false
}

// Resolve finds a competitor by exact id, by domain, or by a unique id
// prefix, in that order.
func (r *Registry) Resolve(ref string) (model.Competitor, error) {
	ref = strings.TrimSpace(ref)
	if c, ok := r.Lookup(ref); ok {
		return c, nil
	}

	competitors := r.Competitors()
	for _, c := range competitors {
		if strings.EqualFold(c.Domain, ref) {
			return c, nil
		}
	}

	var matches []model.Competitor
	if ref != "" {
		for _, c := range competitors {
			if strings.HasPrefix(c.ID, ref) {
				matches = append(matches, c)
			}
		}
	}
	switch len(matches) {
	case 0:
		return model.Competitor{}, fmt.Errorf("%w: %s", ErrUnknownCompetitor, ref)
	case 1:
		return matches[0], nil
	default:
		return model.Competitor{}, fmt.Errorf("%w: %q matches %d competitors", ErrAmbiguousCompetitor, ref, len(matches))
	}
}

// Snapshot returns the current state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	scanning := make([]string, 0, len(r.inFlight))
	for id := range r.inFlight {
		scanning = append(scanning, id)
	}
	slices.Sort(scanning)
	return Snapshot{
		Competitors: slices.Clone(r.competitors),
		Scanning:    scanning,
	}
}

// Subscribe registers fn to receive a Snapshot after every change.
func (r *Registry) Subscribe(fn func(Snapshot)) (cancel func()) {
	return r.subs.Add(fn)
}

func (r *Registry) publish() {
	r.subs.Publish(r.Snapshot())
}
