package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cafesync/internal/event"
	"cafesync/internal/pkg/errs"
)

const (
	sseReconnectMin = time.Second
	sseReconnectMax = 30 * time.Second
)

// SSEChannel subscribes to the server's /api/events/{room} stream and
// implements EventChannel. Reconnects run with doubling backoff; every
// successful connect fires OnConnected so the session knows to resync.
type SSEChannel struct {
	baseURL string
	room    event.Room
	client  *http.Client
	logger  *slog.Logger

	onNotification func(event.Notification)
	onConnected    func()
	onDisconnected func(err error)
}

func NewSSEChannel(baseURL string, room event.Room, logger *slog.Logger) *SSEChannel {
	return &SSEChannel{
		baseURL: strings.TrimRight(baseURL, "/"),
		room:    room,
		// No overall timeout: the stream is long-lived.
		client: &http.Client{},
		logger: logger,
	}
}

func (s *SSEChannel) OnNotification(fn func(event.Notification)) { s.onNotification = fn }
func (s *SSEChannel) OnConnected(fn func())                      { s.onConnected = fn }
func (s *SSEChannel) OnDisconnected(fn func(err error))          { s.onDisconnected = fn }

func (s *SSEChannel) Start(ctx context.Context) {
	backoff := sseReconnectMin
	for {
		err := s.subscribe(ctx)
		if ctx.Err() != nil {
			return
		}
		if s.onDisconnected != nil {
			s.onDisconnected(err)
		}
		s.logger.Warn("event channel lost, reconnecting",
			"room", string(s.room), "backoff", backoff.String(), "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, sseReconnectMax)
	}
}

func (s *SSEChannel) subscribe(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/events/%s", s.baseURL, s.room)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(err, "build subscribe request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return errs.Wrap(err, "open event stream")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errs.New(fmt.Sprintf("event stream rejected: %s", resp.Status))
	}

	if s.onConnected != nil {
		s.onConnected()
	}
	s.logger.Info("event channel connected", "room", string(s.room))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data != "" {
				s.dispatch(data)
				data = ""
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		default:
			// id: and event: fields duplicate the payload; ignored
		}
	}
	if err := scanner.Err(); err != nil {
		return errs.Wrap(err, "read event stream")
	}
	return errs.New("event stream closed by server")
}

// dispatch decodes one frame. Delivery is at most once: a frame that does not
// parse is logged and skipped.
func (s *SSEChannel) dispatch(data string) {
	var n event.Notification
	if err := json.Unmarshal([]byte(data), &n); err != nil {
		s.logger.Warn("dropping unparseable notification", "error", err)
		return
	}
	if !n.Topic.IsValid() {
		s.logger.Warn("dropping notification with unknown topic", "topic", string(n.Topic))
		return
	}
	if s.onNotification != nil {
		s.onNotification(n)
	}
}
