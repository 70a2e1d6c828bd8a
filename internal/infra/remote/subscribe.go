package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
)

// watchMessage is one frame on the watch channel: either a full
// snapshot batch or a terminal error.
type watchMessage struct {
	Documents []reports.Report `json:"documents"`
	Error     *watchError      `json:"error,omitempty"`
}

type watchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Subscribe opens the realtime watch channel for the query. The server
// pushes a full snapshot batch on every change. A handshake rejection
// carrying a precondition status (typically a missing composite index)
// surfaces as ErrPrecondition so the caller can degrade to polling.
func (c *Client) Subscribe(ctx context.Context, q reports.Query) (reports.Subscription, error) {
	u := fmt.Sprintf("%s/v1/collections/%s/watch?%s",
		wsBase(c.baseURL), q.Collection, queryParams(q).Encode())

	header := http.Header{}
	if tok := c.token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, queryStatusError("subscribe", resp)
		}
		return nil, fmt.Errorf("%w: subscribe: %v", reports.ErrUnavailable, err)
	}

	sub := &subscription{
		conn:    conn,
		batches: make(chan []reports.Report, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go sub.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

type subscription struct {
	conn      *websocket.Conn
	batches   chan []reports.Report
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Batches() <-chan []reports.Report { return s.batches }
func (s *subscription) Err() <-chan error                { return s.errs }

func (s *subscription) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.conn.Close()
}

func (s *subscription) readLoop() {
	defer close(s.batches)
	for {
		var msg watchMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				s.errs <- fmt.Errorf("%w: watch stream: %v", reports.ErrUnavailable, err)
			}
			return
		}
		if msg.Error != nil {
			s.errs <- watchErrorToDomain(msg.Error)
			return
		}
		select {
		case s.batches <- msg.Documents:
		case <-s.done:
			return
		}
	}
}

func watchErrorToDomain(we *watchError) error {
	var base error
	switch we.Code {
	case "failed_precondition":
		base = reports.ErrPrecondition
	case "permission_denied":
		base = reports.ErrPermissionDenied
	default:
		base = reports.ErrUnavailable
	}
	return fmt.Errorf("%w: watch: %s", base, we.Message)
}

func wsBase(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}
