// Package client implements the conversation-side chat session: a realtime
// websocket subscription with a polling fallback, both feeding one
// deduplicating message list, plus optimistic sends.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"printdesk-chat/internal/models"
)

// State is the session connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Conn is the realtime connection the session reads events from.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	Close() error
}

// Dialer opens a realtime connection to the given URL.
type Dialer func(url string) (Conn, error)

// Options configures a Session.
type Options struct {
	BaseURL      string // REST base, e.g. http://localhost:8083
	WebSocketURL string // realtime endpoint, e.g. ws://localhost:8083/ws/chat
	Identity     string // this participant's email
	AdminEmail   string // the fixed peer identity

	PollInterval     time.Duration // fallback poll period, default 3s
	HTTPTimeout      time.Duration // REST timeout, default 10s
	MaxDialAttempts  uint64        // realtime dial attempts before degrading, default 3
	RetryInitialWait time.Duration // first backoff interval, default 200ms

	Dialer     Dialer
	HTTPClient *http.Client
}

// Session is a per-conversation state machine. Messages arriving over the
// realtime connection and over poll responses are merged by id; an id already
// present is never re-appended, which makes the persist/fan-out race between
// the two transports harmless.
type Session struct {
	opts       Options
	httpClient *http.Client

	mu       sync.Mutex
	state    State
	msgs     []models.Message
	seen     map[string]int
	conn     Conn
	pollStop chan struct{}
	closed   bool
}

// NewSession builds a Session in the disconnected state. Call Connect to open
// the realtime channel; until it succeeds, Fetch and polling keep the message
// list current.
func NewSession(opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	if opts.MaxDialAttempts == 0 {
		opts.MaxDialAttempts = 3
	}
	if opts.RetryInitialWait <= 0 {
		opts.RetryInitialWait = 200 * time.Millisecond
	}
	if opts.Dialer == nil {
		opts.Dialer = defaultDialer
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.HTTPTimeout}
	}

	return &Session{
		opts:       opts,
		httpClient: httpClient,
		state:      StateDisconnected,
		seen:       make(map[string]int),
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Polling reports whether the fallback poller is running. Useful for a
// connectivity indicator.
func (s *Session) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollStop != nil
}

// Messages returns a snapshot of the merged message list.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Connect dials the realtime channel with bounded exponential backoff. On
// success it registers presence, stops the fallback poller and starts the
// read loop. When the attempt budget is exhausted the session enters the
// error state and degrades to polling; the dial error is returned.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	conn, err := s.dialWithRetry(ctx)
	if err != nil {
		s.setState(StateError)
		s.startPolling(ctx)
		return fmt.Errorf("realtime connect: %w", err)
	}

	join := models.Event{Type: models.EventJoin, Email: s.opts.Identity}
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		s.setState(StateError)
		s.startPolling(ctx)
		return fmt.Errorf("realtime join: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()
	s.stopPolling()

	go s.readLoop(ctx, conn)
	return nil
}

// Close disconnects the session. In-flight sends are not cancelled; the
// server keeps whatever already reached it.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	s.stopPolling()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *Session) dialWithRetry(ctx context.Context) (Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.RetryInitialWait
	bo.MaxInterval = 10 * s.opts.RetryInitialWait

	var conn Conn
	op := func() error {
		var err error
		conn, err = s.opts.Dialer(s.opts.WebSocketURL)
		return err
	}
	// MaxDialAttempts counts attempts, backoff counts retries after the first.
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, s.opts.MaxDialAttempts-1), ctx))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Session) readLoop(ctx context.Context, conn Conn) {
	for {
		var event models.Event
		if err := conn.ReadJSON(&event); err != nil {
			conn.Close()
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			closed := s.closed
			if !closed {
				s.state = StateError
			}
			s.mu.Unlock()
			if !closed {
				s.startPolling(ctx)
			}
			return
		}

		switch event.Type {
		case models.EventReceiveMessage:
			if event.Message != nil {
				s.ingest(*event.Message)
			}
		case models.EventMessageDeleted:
			if event.MessageID != "" {
				s.remove(event.MessageID)
			}
		}
	}
}

func (s *Session) startPolling(ctx context.Context) {
	s.mu.Lock()
	if s.pollStop != nil || s.closed {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.pollStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Fetch(ctx)
			}
		}
	}()
}

func (s *Session) stopPolling() {
	s.mu.Lock()
	stop := s.pollStop
	s.pollStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// ingest merges a message into the list. Returns false when the id was
// already present.
func (s *Session) ingest(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[msg.ID]; ok {
		return false
	}
	s.seen[msg.ID] = len(s.msgs)
	s.msgs = append(s.msgs, msg)
	return true
}

func (s *Session) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.seen[id]
	if !ok {
		return
	}
	s.msgs = append(s.msgs[:idx], s.msgs[idx+1:]...)
	delete(s.seen, id)
	for i := idx; i < len(s.msgs); i++ {
		s.seen[s.msgs[i].ID] = i
	}
}

// replace swaps the optimistic entry for the server-confirmed record. When
// the confirmed id already arrived through another transport the temporary
// entry is dropped instead, keeping exactly one copy.
func (s *Session) replace(tempID string, msg models.Message) {
	s.mu.Lock()
	idx, ok := s.seen[tempID]
	if !ok {
		s.mu.Unlock()
		s.ingest(msg)
		return
	}
	if _, dup := s.seen[msg.ID]; dup {
		s.mu.Unlock()
		s.remove(tempID)
		return
	}
	s.msgs[idx] = msg
	delete(s.seen, tempID)
	s.seen[msg.ID] = idx
	s.mu.Unlock()
}

// Send performs an optimistic send: the message appears in the list
// immediately under a temporary id, is replaced by the stored record once the
// server confirms, and is rolled back (with the error returned) on failure.
// A send is never left stuck in the temporary state.
func (s *Session) Send(ctx context.Context, body string) (models.Message, error) {
	temp := models.Message{
		ID:        "tmp-" + uuid.NewString(),
		Sender:    s.opts.Identity,
		Receiver:  s.opts.AdminEmail,
		Body:      body,
		Timestamp: time.Now(),
	}
	s.ingest(temp)

	stored, err := s.postMessage(ctx, temp.Sender, temp.Receiver, body)
	if err != nil {
		s.remove(temp.ID)
		return models.Message{}, err
	}

	s.replace(temp.ID, stored)
	return stored, nil
}

// Delete removes a message on the server and from the local list, and when
// connected emits the legacy delete notification event.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.deleteMessage(ctx, id); err != nil {
		return err
	}
	s.remove(id)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.WriteJSON(models.Event{Type: models.EventDeleteMessage, MessageID: id})
	}
	return nil
}

// Fetch pulls the full conversation over REST and merges it. It is the only
// delivery path while the realtime channel is down.
func (s *Session) Fetch(ctx context.Context) error {
	msgs, err := s.fetchConversation(ctx)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		s.ingest(msg)
	}
	return nil
}
