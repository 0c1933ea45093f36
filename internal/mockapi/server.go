package mockapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/scoperival/internal/log"
)

const (
	// DefaultTokenTTL is how long issued access tokens stay valid.
	DefaultTokenTTL = 30 * time.Minute

	// RecentWindow is the period counted as "recent" by the stats endpoint.
	RecentWindow = 7 * 24 * time.Hour

	// maxListed caps the number of changes returned by GET /changes.
	maxListed = 100

	// maxBodySize limits request bodies.
	maxBodySize = 1 << 20
)

// Error details shared with the hosted backend.
const (
	detailEmailTaken         = "Email already registered"
	detailBadCredentials     = "Incorrect email or password"
	detailInvalidToken       = "Could not validate credentials"
	detailCompetitorNotFound = "Competitor not found"
	detailDomainRequired     = "Domain is required"
	detailMalformedBody      = "Malformed request body"
	detailInternal           = "Internal server error"
)

// Server is the in-memory backend.
type Server struct {
	store      *memoryStore
	secret     []byte
	tokenTTL   time.Duration
	cost       int
	discoverer Discoverer
	scanner    Scanner
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HMAC key used to sign access tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokenTTL = ttl }
}

// WithPasswordCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithPasswordCost(cost int) Option {
	return func(s *Server) { s.cost = cost }
}

// WithDiscoverer replaces page discovery.
func WithDiscoverer(d Discoverer) Option {
	return func(s *Server) { s.discoverer = d }
}

// WithScanner replaces change detection.
func WithScanner(sc Scanner) Option {
	return func(s *Server) { s.scanner = sc }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a Server. Without WithSecret a random key is generated, so
// tokens do not survive a restart.
func New(opts ...Option) *Server {
	s := &Server{
		store:      newMemoryStore(),
		tokenTTL:   DefaultTokenTTL,
		cost:       bcrypt.DefaultCost,
		discoverer: StaticDiscoverer{},
		scanner:    QuietScanner{},
		now:        time.Now,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.secret) == 0 {
		s.secret = make([]byte, 32)
		_, _ = rand.Read(s.secret)
	}
	return s
}

// Handler returns the router. All endpoints live beneath /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/me", s.me)
			r.Get("/competitors", s.listCompetitors)
			r.Post("/competitors", s.createCompetitor)
			r.Post("/competitors/discover-pages", s.discoverPages)
			r.Post("/competitors/{id}/pages", s.savePages)
			r.Post("/competitors/{id}/scan", s.scan)
			r.Delete("/competitors/{id}", s.deleteCompetitor)
			r.Get("/changes", s.listChanges)
			r.Get("/dashboard/stats", s.stats)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", r.Header.Get("X-Request-ID"),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// decode reads a JSON body into v and reports malformed input with 422.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		writeDetail(w, http.StatusUnprocessableEntity, "Request body is required")
		return false
	}
	writeDetail(w, http.StatusUnprocessableEntity, detailMalformedBody)
	return false
}
