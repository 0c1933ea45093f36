package mockapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nao1215/scoperival/internal/model"
)

func (s *Server) listCompetitors(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	writeJSON(w, http.StatusOK, s.store.competitorsOf(user.ID))
}

func (s *Server) createCompetitor(w http.ResponseWriter, r *http.Request) {
	var in model.NewCompetitor
	if !decode(w, r, &in) {
		return
	}
	in.Domain = strings.TrimSpace(in.Domain)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if in.Domain == "" || in.CompanyName == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "domain and company_name are required")
		return
	}

	user := currentUser(r.Context())
	c := model.Competitor{
		ID:           uuid.NewString(),
		Domain:       in.Domain,
		CompanyName:  in.CompanyName,
		TrackedPages: []model.TrackedPage{},
		CreatedAt:    s.now().UTC(),
	}
	s.store.addCompetitor(user.ID, c)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) discoverPages(w http.ResponseWriter, r *http.Request) {
	var in model.DiscoverRequest
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Domain) == "" {
		writeDetail(w, http.StatusBadRequest, detailDomainRequired)
		return
	}

	suggestions, err := s.discoverer.Discover(r.Context(), in.Domain)
	if err != nil {
		s.logger.Error("discovery failed", "domain", in.Domain, "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	if suggestions == nil {
		suggestions = []model.PageSuggestion{}
	}
	writeJSON(w, http.StatusOK, model.DiscoverResponse{Suggestions: suggestions})
}

func (s *Server) savePages(w http.ResponseWriter, r *http.Request) {
	var in model.SavePagesRequest
	if !decode(w, r, &in) {
		return
	}

	user := currentUser(r.Context())
	id := chi.URLParam(r, "id")
	now := s.now().UTC()
	pages := make([]model.TrackedPage, 0, len(in.URLs))
	for _, sel := range in.URLs {
		ts := now
		pages = append(pages, model.TrackedPage{
			ID:          uuid.NewString(),
			URL:         sel.URL,
			PageType:    sel.PageType,
			LastScraped: &ts,
		})
	}
	if !s.store.setPages(user.ID, id, pages) {
		writeDetail(w, http.StatusNotFound, detailCompetitorNotFound)
		return
	}
	writeJSON(w, http.StatusOK, model.Message{
		Message: fmt.Sprintf("Added %d pages for tracking", len(pages)),
	})
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	id := chi.URLParam(r, "id")
	c, ok := s.store.competitor(user.ID, id)
	if !ok {
		writeDetail(w, http.StatusNotFound, detailCompetitorNotFound)
		return
	}

	detected, err := s.scanner.Scan(r.Context(), cloneCompetitor(c))
	if err != nil {
		s.logger.Error("scan failed", "competitor_id", id, "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}

	now := s.now().UTC()
	changes := make([]model.Change, 0, len(detected))
	for _, ch := range detected {
		ch.ID = uuid.NewString()
		ch.CompetitorID = id
		if ch.CreatedAt.IsZero() {
			ch.CreatedAt = now
		}
		if ch.SuggestedActions == nil {
			ch.SuggestedActions = []string{}
		}
		ch.SignificanceScore = ch.SignificanceScore.Clamp()
		changes = append(changes, ch)
	}
	s.store.addChanges(changes...)
	s.store.markScraped(id, now)

	writeJSON(w, http.StatusOK, model.ScanResult{
		Message: fmt.Sprintf("Scan completed. %d changes detected.", len(changes)),
		Changes: changes,
	})
}

func (s *Server) deleteCompetitor(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if !s.store.deleteCompetitor(user.ID, chi.URLParam(r, "id")) {
		writeDetail(w, http.StatusNotFound, detailCompetitorNotFound)
		return
	}
	writeJSON(w, http.StatusOK, model.Message{Message: "Competitor deleted successfully"})
}

func (s *Server) listChanges(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	writeJSON(w, http.StatusOK, s.store.changesOf(user.ID, maxListed))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	competitors := s.store.competitorsOf(user.ID)
	changes := s.store.changesOf(user.ID, 0)

	var stats model.DashboardStats
	stats.TotalCompetitors = len(competitors)
	for _, c := range competitors {
		stats.TotalTrackedPages += c.PageCount()
	}
	since := s.now().Add(-RecentWindow)
	for _, ch := range changes {
		if !ch.CreatedAt.Before(since) {
			stats.RecentChanges++
		}
		if ch.SignificanceScore.IsHigh() {
			stats.HighSignificanceChanges++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}
