package server

import (
	"net/http"
	"strconv"

	"github.com/jfmyers9/requestline/pkg/requestline"
)

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Coordinator.Skip(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req requestline.VolumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Percent < 0 || req.Percent > 100 {
		respondError(w, http.StatusBadRequest, "percent must be between 0 and 100")
		return
	}

	if err := s.deps.Catalog.SetVolume(r.Context(), req.Percent); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, req)
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	var req requestline.ShuffleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.deps.Catalog.SetShuffle(r.Context(), req.Enabled); err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, req)
}

func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	letters, err := s.deps.DeadLetters.DeadLetters(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, wireDeadLetters(letters))
}
