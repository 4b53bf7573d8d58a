package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// stateTTL bounds how long an /auth redirect stays valid
const stateTTL = 10 * time.Minute

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	s.statesMu.Lock()
	now := time.Now()
	for st, created := range s.states {
		if now.Sub(created) > stateTTL {
			delete(s.states, st)
		}
	}
	s.states[state] = now
	s.statesMu.Unlock()

	http.Redirect(w, r, s.deps.Auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// takeState consumes a pending OAuth state
func (s *Server) takeState(state string) bool {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	created, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return time.Since(created) <= stateTTL
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.FormValue("state")
	if state == "" || !s.takeState(state) {
		http.Error(w, "State mismatch", http.StatusForbidden)
		return
	}

	if err := s.deps.Auth.Exchange(r.Context(), state, r); err != nil {
		s.logger.Error().Err(err).Msg("authorization failed")
		http.Error(w, "Failed to get token: "+err.Error(), http.StatusForbidden)
		return
	}

	if s.deps.OnAuthorized != nil {
		if err := s.deps.OnAuthorized(r.Context()); err != nil {
			s.logger.Error().Err(err).Msg("failed to connect after authorization")
			http.Error(w, "Authorized, but connecting to Spotify failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	s.logger.Info().Msg("spotify authorized")
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "Authentication successful! You can close this window.")
}
