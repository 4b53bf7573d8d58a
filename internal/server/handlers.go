package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/jfmyers9/requestline/internal/catalog"
	"github.com/jfmyers9/requestline/internal/coordinator"
	"github.com/jfmyers9/requestline/pkg/requestline"
)

const defaultSearchLimit = catalog.MaxSearchLimit

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req requestline.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := s.deps.Coordinator.Submit(r.Context(), coordinator.Request{
		TrackID:  req.TrackID,
		Message:  req.Message,
		ClientID: clientID(r),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	respond(w, http.StatusCreated, requestline.Submission{
		EntryID:      sub.Entry.ID,
		Track:        wireTrack(sub.Track),
		Transitioned: sub.Transitioned,
		AdvanceInMs:  sub.AdvanceIn.Milliseconds(),
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Coordinator.Queue(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, wireQueue(entries))
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	cur, err := s.deps.Coordinator.Current(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, wireCurrent(cur))
}

func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request) {
	remaining, err := s.deps.Cooldowns.CheckCooldown(r.Context(), clientID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Negative means expired
	secs := int64(math.Ceil(remaining.Seconds()))
	if secs < 0 {
		secs = 0
	}

	respond(w, http.StatusOK, requestline.Cooldown{
		SecondsRemaining: secs,
		Enforced:         s.deps.Cooldowns.Enforced(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	text := strings.TrimSpace(q.Get("q"))
	if text == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	searchType := catalog.SearchTrack
	if t := q.Get("type"); t != "" {
		searchType = catalog.SearchType(t)
	}

	limit := defaultSearchLimit
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, catalog.MaxSearchLimit)
	}

	tracks, err := s.deps.Catalog.Search(r.Context(), text, searchType, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]requestline.Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, wireTrack(t))
	}
	respond(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
