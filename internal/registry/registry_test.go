package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/scoperival/internal/apiclient"
	"github.com/nao1215/scoperival/internal/model"
)

// backend is a minimal stateful stand-in for the competitor endpoints.
type backend struct {
	mu          sync.Mutex
	competitors []model.Competitor
	listStatus  int
	deleteFail  bool
	scanFail    map[string]bool

	// gate, when set, blocks every scan until it is closed.
	gate       chan struct{}
	scanCalls  map[string]int
	deletes    int
	inScan     int32
	maxInScan  int32
	scanEnters chan string
}

func newBackend(competitors ...model.Competitor) *backend {
	return &backend{
		competitors: competitors,
		scanFail:    make(map[string]bool),
		scanCalls:   make(map[string]int),
		scanEnters:  make(chan string, 64),
	}
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "/competitors":
		b.mu.Lock()
		status := b.listStatus
		list := append([]model.Competitor(nil), b.competitors...)
		b.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"detail":"unavailable"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(list)

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/competitors/"):
		id := strings.TrimPrefix(path, "/competitors/")
		b.mu.Lock()
		defer b.mu.Unlock()
		b.deletes++
		if b.deleteFail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"boom"}`))
			return
		}
		kept := b.competitors[:0:0]
		for _, c := range b.competitors {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		if len(kept) == len(b.competitors) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Competitor not found"}`))
			return
		}
		b.competitors = kept
		_, _ = w.Write([]byte(`{"message":"Competitor deleted successfully"}`))

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/scan"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/competitors/"), "/scan")
		b.mu.Lock()
		b.scanCalls[id]++
		gate := b.gate
		fail := b.scanFail[id]
		b.mu.Unlock()

		n := atomic.AddInt32(&b.inScan, 1)
		for {
			m := atomic.LoadInt32(&b.maxInScan)
			if n <= m || atomic.CompareAndSwapInt32(&b.maxInScan, m, n) {
				break
			}
		}
		b.scanEnters <- id
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
			}
		}
		atomic.AddInt32(&b.inScan, -1)

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"scraper crashed"}`))
			return
		}
		now := time.Now().UTC()
		b.mu.Lock()
		for i := range b.competitors {
			if b.competitors[i].ID == id {
				for j := range b.competitors[i].TrackedPages {
					b.competitors[i].TrackedPages[j].LastScraped = &now
				}
			}
		}
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"message":"Scan completed. 1 changes detected.","changes":[{"id":"ch-1","competitor_id":"` + id + `","significance_score":4}]}`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *backend) deleteCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deletes
}

func (b *backend) scans(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scanCalls[id]
}

type memJournal struct {
	mu      sync.Mutex
	records []model.ScanRecord
}

func (j *memJournal) RecordScan(_ context.Context, rec model.ScanRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

var (
	stripe = model.Competitor{
		ID: "c-stripe", Domain: "stripe.com", CompanyName: "Stripe",
		TrackedPages: []model.TrackedPage{{ID: "p-1", URL: "https://stripe.com/pricing", PageType: "pricing"}},
	}
	adyen = model.Competitor{ID: "c-adyen", Domain: "adyen.com", CompanyName: "Adyen"}
)

func newTestRegistry(t *testing.T, b *backend, opts ...Option) *Registry {
	t.Helper()

	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL+"/api", apiclient.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("apiclient.New() error = %v", err)
	}
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(client, opts...)
}

func waitEnter(t *testing.T, b *backend) string {
	t.Helper()
	select {
	case id := <-b.scanEnters:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("scan request never reached the backend")
		return ""
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	b := newBackend(stripe, adyen)
	r := newTestRegistry(t, b)

	got, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || len(r.Competitors()) != 2 {
		t.Fatalf("List() returned %d, registry holds %d", len(got), len(r.Competitors()))
	}

	b.mu.Lock()
	b.listStatus = http.StatusBadGateway
	b.mu.Unlock()

	if _, err := r.List(context.Background()); !errors.Is(err, apiclient.ErrServer) {
		t.Fatalf("List() error = %v, want ErrServer", err)
	}
	if len(r.Competitors()) != 2 {
		t.Errorf("failed List() replaced the collection: %d left", len(r.Competitors()))
	}

	b.mu.Lock()
	b.listStatus = 0
	b.competitors = nil
	b.mu.Unlock()

	got, err = r.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got == nil || len(got) != 0 || len(r.Competitors()) != 0 {
		t.Errorf("empty backend list not applied: %v", r.Competitors())
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	t.Run("declined confirmation sends nothing", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		var asked model.Competitor
		r := newTestRegistry(t, b, WithConfirm(func(_ context.Context, c model.Competitor) (bool, error) {
			asked = c
			return false, nil
		}))
		_ = r.Refresh(context.Background())

		if err := r.Remove(context.Background(), stripe.ID); !errors.Is(err, ErrNotConfirmed) {
			t.Fatalf("Remove() error = %v, want ErrNotConfirmed", err)
		}
		if asked.CompanyName != "Stripe" {
			t.Errorf("confirmation asked about %+v", asked)
		}
		if n := b.deleteCount(); n != 0 {
			t.Errorf("sent %d deletes", n)
		}
	})

	t.Run("no confirmation configured", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		r := newTestRegistry(t, b)
		if err := r.Remove(context.Background(), stripe.ID); !errors.Is(err, ErrNotConfirmed) {
			t.Fatalf("Remove() error = %v, want ErrNotConfirmed", err)
		}
	})

	t.Run("confirmation error aborts", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		r := newTestRegistry(t, b, WithConfirm(func(context.Context, model.Competitor) (bool, error) {
			return false, errors.New("stdin closed")
		}))
		if err := r.Remove(context.Background(), stripe.ID); err == nil || errors.Is(err, ErrNotConfirmed) {
			t.Fatalf("Remove() error = %v", err)
		}
		if n := b.deleteCount(); n != 0 {
			t.Errorf("sent %d deletes", n)
		}
	})

	t.Run("confirmed delete refreshes", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe, adyen)
		r := newTestRegistry(t, b, WithConfirm(AlwaysConfirm))
		_ = r.Refresh(context.Background())

		if err := r.Remove(context.Background(), stripe.ID); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		got := r.Competitors()
		if len(got) != 1 || got[0].ID != adyen.ID {
			t.Errorf("collection after delete = %+v", got)
		}
	})

	t.Run("failed delete keeps the collection", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe, adyen)
		b.deleteFail = true
		r := newTestRegistry(t, b, WithConfirm(AlwaysConfirm))
		_ = r.Refresh(context.Background())

		if err := r.Remove(context.Background(), stripe.ID); !errors.Is(err, apiclient.ErrServer) {
			t.Fatalf("Remove() error = %v, want ErrServer", err)
		}
		if len(r.Competitors()) != 2 {
			t.Errorf("collection changed after failed delete: %+v", r.Competitors())
		}
	})
}

func TestScanGuard(t *testing.T) {
	t.Parallel()

	t.Run("same competitor sends one request", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		b.gate = make(chan struct{})
		r := newTestRegistry(t, b)

		first := make(chan error, 1)
		go func() {
			_, err := r.Scan(context.Background(), stripe.ID)
			first <- err
		}()
		waitEnter(t, b)

		if !r.IsScanning(stripe.ID) {
			t.Error("IsScanning() = false during scan")
		}
		if _, err := r.Scan(context.Background(), stripe.ID); !errors.Is(err, ErrScanInProgress) {
			t.Fatalf("second Scan() error = %v, want ErrScanInProgress", err)
		}

		close(b.gate)
		if err := <-first; err != nil {
			t.Fatalf("first Scan() error = %v", err)
		}
		if n := b.scans(stripe.ID); n != 1 {
			t.Errorf("backend saw %d scans, want 1", n)
		}
		if r.IsScanning(stripe.ID) {
			t.Error("guard not released after completion")
		}
	})

	t.Run("distinct competitors scan concurrently", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe, adyen)
		b.gate = make(chan struct{})
		r := newTestRegistry(t, b)

		done := make(chan error, 2)
		for _, id := range []string{stripe.ID, adyen.ID} {
			go func() {
				_, err := r.Scan(context.Background(), id)
				done <- err
			}()
		}
		waitEnter(t, b)
		waitEnter(t, b)
		close(b.gate)

		for range 2 {
			if err := <-done; err != nil {
				t.Errorf("Scan() error = %v", err)
			}
		}
		if b.scans(stripe.ID) != 1 || b.scans(adyen.ID) != 1 {
			t.Errorf("scans = %d, %d", b.scans(stripe.ID), b.scans(adyen.ID))
		}
	})

	t.Run("failure releases the guard", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		b.scanFail[stripe.ID] = true
		r := newTestRegistry(t, b)

		if _, err := r.Scan(context.Background(), stripe.ID); !errors.Is(err, apiclient.ErrServer) {
			t.Fatalf("Scan() error = %v, want ErrServer", err)
		}
		if r.IsScanning(stripe.ID) {
			t.Fatal("guard stuck after failure")
		}

		b.mu.Lock()
		b.scanFail[stripe.ID] = false
		b.mu.Unlock()
		if _, err := r.Scan(context.Background(), stripe.ID); err != nil {
			t.Fatalf("retry Scan() error = %v", err)
		}
	})

	t.Run("cancellation releases the guard", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		b.gate = make(chan struct{})
		t.Cleanup(func() { close(b.gate) })
		r := newTestRegistry(t, b)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := r.Scan(ctx, stripe.ID)
			done <- err
		}()
		waitEnter(t, b)
		cancel()

		if err := <-done; !errors.Is(err, apiclient.ErrTransport) {
			t.Fatalf("Scan() error = %v, want ErrTransport", err)
		}
		if r.IsScanning(stripe.ID) {
			t.Error("guard stuck after cancellation")
		}
	})

	t.Run("success refreshes last scraped", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		r := newTestRegistry(t, b)
		_ = r.Refresh(context.Background())
		if c, _ := r.Lookup(stripe.ID); !c.LastScraped().IsZero() {
			t.Fatal("page already scraped")
		}

		result, err := r.Scan(context.Background(), stripe.ID)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if len(result.Changes) != 1 || result.Message == "" {
			t.Errorf("result = %+v", result)
		}
		if c, _ := r.Lookup(stripe.ID); c.LastScraped().IsZero() {
			t.Error("collection not refreshed after scan")
		}
	})
}

func TestScanJournal(t *testing.T) {
	t.Parallel()

	b := newBackend(stripe, adyen)
	b.scanFail[adyen.ID] = true
	journal := &memJournal{}
	r := newTestRegistry(t, b, WithJournal(journal))
	_ = r.Refresh(context.Background())

	_, _ = r.Scan(context.Background(), stripe.ID)
	_, _ = r.Scan(context.Background(), adyen.ID)

	journal.mu.Lock()
	defer journal.mu.Unlock()
	if len(journal.records) != 2 {
		t.Fatalf("journal has %d records, want 2", len(journal.records))
	}
	ok, failed := journal.records[0], journal.records[1]
	if ok.Status != model.ScanSucceeded || ok.CompetitorName != "Stripe" || ok.ChangesDetected != 1 {
		t.Errorf("success record = %+v", ok)
	}
	if failed.Status != model.ScanFailed || failed.Error == "" || failed.CompetitorID != adyen.ID {
		t.Errorf("failure record = %+v", failed)
	}
}

func TestScanAll(t *testing.T) {
	t.Parallel()

	t.Run("reports each outcome in order", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe, adyen)
		b.scanFail[adyen.ID] = true
		r := newTestRegistry(t, b)

		outcomes, err := r.ScanAll(context.Background(), []string{stripe.ID, adyen.ID, stripe.ID, ""}, 2)
		if err != nil {
			t.Fatalf("ScanAll() error = %v", err)
		}
		if len(outcomes) != 2 {
			t.Fatalf("got %d outcomes, want 2", len(outcomes))
		}
		if outcomes[0].CompetitorID != stripe.ID || outcomes[0].Err != nil {
			t.Errorf("outcome 0 = %+v", outcomes[0])
		}
		if outcomes[1].CompetitorID != adyen.ID || !errors.Is(outcomes[1].Err, apiclient.ErrServer) {
			t.Errorf("outcome 1 = %+v", outcomes[1])
		}
		if b.scans(stripe.ID) != 1 {
			t.Errorf("duplicate id scanned %d times", b.scans(stripe.ID))
		}
		if len(r.Competitors()) != 2 {
			t.Error("collection not refreshed after scans")
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var ids []string
		var competitors []model.Competitor
		for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
			ids = append(ids, id)
			competitors = append(competitors, model.Competitor{ID: id, Domain: id + ".com"})
		}
		b := newBackend(competitors...)
		r := newTestRegistry(t, b)

		if _, err := r.ScanAll(context.Background(), ids, 2); err != nil {
			t.Fatalf("ScanAll() error = %v", err)
		}
		if m := atomic.LoadInt32(&b.maxInScan); m > 2 {
			t.Errorf("max concurrent scans = %d, want <= 2", m)
		}
		for _, id := range ids {
			if b.scans(id) != 1 {
				t.Errorf("%s scanned %d times", id, b.scans(id))
			}
		}
	})

	t.Run("in-flight scan is refused", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		b.gate = make(chan struct{})
		r := newTestRegistry(t, b)

		done := make(chan error, 1)
		go func() {
			_, err := r.Scan(context.Background(), stripe.ID)
			done <- err
		}()
		waitEnter(t, b)

		outcomes, err := r.ScanAll(context.Background(), []string{stripe.ID}, 1)
		if err != nil {
			t.Fatalf("ScanAll() error = %v", err)
		}
		if !errors.Is(outcomes[0].Err, ErrScanInProgress) {
			t.Errorf("outcome = %+v, want ErrScanInProgress", outcomes[0])
		}
		close(b.gate)
		<-done
		if b.scans(stripe.ID) != 1 {
			t.Errorf("backend saw %d scans", b.scans(stripe.ID))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		b := newBackend(stripe)
		r := newTestRegistry(t, b)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		outcomes, err := r.ScanAll(ctx, []string{stripe.ID}, 1)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("ScanAll() error = %v, want context.Canceled", err)
		}
		if outcomes[0].Err == nil {
			t.Error("cancelled scan reported success")
		}
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	b := newBackend(
		model.Competitor{ID: "a1b2", Domain: "stripe.com", CompanyName: "Stripe"},
		model.Competitor{ID: "a1c3", Domain: "adyen.com", CompanyName: "Adyen"},
		model.Competitor{ID: "ffee", Domain: "paddle.com", CompanyName: "Paddle"},
	)
	r := newTestRegistry(t, b)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	tests := []struct {
		ref     string
		wantID  string
		wantErr error
	}{
		{ref: "a1b2", wantID: "a1b2"},
		{ref: "Stripe.com", wantID: "a1b2"},
		{ref: "ff", wantID: "ffee"},
		{ref: "a1", wantErr: ErrAmbiguousCompetitor},
		{ref: "zz", wantErr: ErrUnknownCompetitor},
		{ref: "", wantErr: ErrUnknownCompetitor},
	}
	for _, tt := range tests {
		got, err := r.Resolve(tt.ref)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got.ID != tt.wantID {
			t.Errorf("Resolve(%q) = %q, %v; want %q", tt.ref, got.ID, err, tt.wantID)
		}
	}
}

func TestSubscribeSeesScanningFlag(t *testing.T) {
	t.Parallel()

	b := newBackend(stripe)
	r := newTestRegistry(t, b)

	var mu sync.Mutex
	var sawScanning bool
	cancel := r.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		for _, id := range s.Scanning {
			if id == stripe.ID {
				sawScanning = true
			}
		}
	})
	defer cancel()

	if _, err := r.Scan(context.Background(), stripe.ID); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !sawScanning {
		t.Error("subscriber never saw the scan in flight")
	}
	if len(r.Snapshot().Scanning) != 0 {
		t.Error("snapshot still lists a scan")
	}
}
