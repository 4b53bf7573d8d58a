package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/jfmyers9/requestline/internal/catalog"
	"github.com/jfmyers9/requestline/internal/coordinator"
	"github.com/jfmyers9/requestline/internal/store"
	"github.com/jfmyers9/requestline/pkg/requestline"
)

func respond(w http.ResponseWriter, status int, data any) {
	resp := requestline.Response{Success: true}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		resp.Data = b
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(requestline.Response{Success: false, Error: msg})
}

// fail maps a domain error to a status code and writes it
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)

	var cd *coordinator.CooldownError
	if errors.As(err, &cd) {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(math.Ceil(cd.Remaining.Seconds())), 10))
	}

	if status >= 500 {
		s.logger.Error().
			Err(err).
			Str("request_id", RequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	respondError(w, status, msg)
}

func statusFor(err error) (int, string) {
	var upstream *catalog.UpstreamError

	switch {
	case errors.Is(err, coordinator.ErrCooldownActive):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, coordinator.ErrTrackTooLong):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, coordinator.ErrInvalidRequest),
		errors.Is(err, catalog.ErrUnsupportedSearchType):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, catalog.ErrNotAuthenticated):
		return http.StatusServiceUnavailable, "spotify is not connected, an admin must visit /auth"
	case errors.Is(err, coordinator.ErrStopped):
		return http.StatusServiceUnavailable, "shutting down"
	case errors.As(err, &upstream):
		notFound := upstream.Status == http.StatusNotFound || upstream.Status == http.StatusBadRequest
		switch {
		case notFound && upstream.Op == catalog.OpGetTrack:
			return http.StatusNotFound, "track not found"
		case upstream.Status == http.StatusNotFound:
			// Player endpoints answer 404 when no device is active
			return http.StatusConflict, fmt.Sprintf("no active device: %v", upstream.Err)
		default:
			return http.StatusBadGateway, err.Error()
		}
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
}

func wireTrack(t catalog.Track) requestline.Track {
	return requestline.Track{
		ID:         t.ID,
		URI:        t.URI,
		Name:       t.Name,
		Artist:     t.Artist(),
		Album:      t.Album,
		DurationMs: t.Duration.Milliseconds(),
	}
}

func wireQueue(entries []store.QueueEntry) []requestline.QueueItem {
	items := make([]requestline.QueueItem, 0, len(entries))
	for i, e := range entries {
		items = append(items, requestline.QueueItem{
			Position:   i + 1,
			EntryID:    e.ID,
			TrackID:    e.TrackID,
			TrackName:  e.TrackName,
			Artist:     e.Artist,
			Message:    e.Message,
			DurationMs: e.Duration.Milliseconds(),
			Attempts:   e.Attempts,
			EnqueuedAt: e.EnqueuedAt,
		})
	}
	return items
}

func wireCurrent(cur *coordinator.Current) requestline.Current {
	out := requestline.Current{State: string(cur.State)}

	if pb := cur.Playback; pb != nil {
		out.Playing = pb.Playing
		out.ProgressMs = pb.Progress.Milliseconds()
		if pb.Track != nil {
			t := wireTrack(*pb.Track)
			out.Track = &t
		}
	}

	if req := cur.Request; req != nil {
		out.Message = req.Message
		requestedAt := req.RequestedAt
		out.RequestedAt = &requestedAt
		if out.Track == nil {
			out.Track = &requestline.Track{ID: req.TrackID, Name: req.TrackName, Artist: req.Artist}
		}
	}

	return out
}

func wireDeadLetters(letters []store.DeadLetter) []requestline.DeadLetter {
	out := make([]requestline.DeadLetter, 0, len(letters))
	for _, d := range letters {
		out = append(out, requestline.DeadLetter{
			EntryID:   d.QueueEntryID,
			ClientID:  d.ClientID,
			TrackID:   d.TrackID,
			TrackName: d.TrackName,
			Artist:    d.Artist,
			Reason:    d.Reason,
			Attempts:  d.Attempts,
			FailedAt:  d.FailedAt,
		})
	}
	return out
}
