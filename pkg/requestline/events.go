package requestline

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// EventStream is an open connection to the daemon's event stream.
type EventStream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// Events opens the websocket event stream.
func (c *Client) Events(ctx context.Context) (*EventStream, error) {
	u := *c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += APIPrefix + "/events"

	header := http.Header{}
	if c.clientID != "" {
		header.Set(ClientIDHeader, c.clientID)
	}

	c.logDebugf("requestline: dialing %s", u.String())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &Error{Status: resp.StatusCode, Message: err.Error()}
		}
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}

	return &EventStream{conn: conn}, nil
}

// Next blocks until the next event arrives or the stream closes.
func (s *EventStream) Next() (*Event, error) {
	var ev Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Close closes the stream. It is safe to call more than once and
// concurrently with Next.
func (s *EventStream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
