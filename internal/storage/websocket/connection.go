package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/timewalk/tourguide/pkg/streaming"
)

const (
	outboxSize  = 4096
	ackBuffer   = 8
	maxRedials  = 10
	minBackoff  = time.Second
	maxBackoff  = 30 * time.Second
	writeWait   = 10 * time.Second
	stopTimeout = 5 * time.Second
)

// link owns one WebSocket connection at a time. A single supervisor
// goroutine writes, watches the reader, and redials with backoff.
type link struct {
	rawURL string
	secret string
	logger *slog.Logger

	outbox chan []byte
	acks   chan streaming.AckMessage
	quit   chan struct{}
	exited chan struct{}

	mu      sync.Mutex
	hello   []byte // start_session, replayed after a redial
	stopped bool

	dropped    atomic.Uint64
	minBackoff time.Duration
}

func newLink(rawURL, secret string, logger *slog.Logger) *link {
	return &link{
		rawURL:     rawURL,
		secret:     secret,
		logger:     logger,
		outbox:     make(chan []byte, outboxSize),
		acks:       make(chan streaming.AckMessage, ackBuffer),
		quit:       make(chan struct{}),
		exited:     make(chan struct{}),
		minBackoff: minBackoff,
	}
}

// open dials once synchronously so configuration errors surface at Init,
// then hands the connection to the supervisor.
func (l *link) open() error {
	conn, err := l.dial()
	if err != nil {
		return err
	}
	go l.supervise(conn)
	return nil
}

func (l *link) dial() (*ws.Conn, error) {
	u, err := url.Parse(l.rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", l.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (l *link) supervise(conn *ws.Conn) {
	defer close(l.exited)
	for conn != nil {
		err := l.serve(conn)
		if err == nil {
			return
		}
		l.logger.Warn("Journal stream lost", "error", err)
		conn = l.redial()
	}
	l.logger.Error("Journal stream reconnect failed, dropping further messages", "maxAttempts", maxRedials)
}

// serve pumps the outbox into conn until shutdown (nil) or an I/O error.
func (l *link) serve(conn *ws.Conn) error {
	readErr := make(chan error, 1)
	go l.read(conn, readErr)

	for {
		select {
		case <-l.quit:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
			_ = conn.Close()
			return nil
		case err := <-readErr:
			_ = conn.Close()
			return err
		case data := <-l.outbox:
			if err := write(conn, data); err != nil {
				_ = conn.Close()
				return err
			}
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// read routes acks until the connection fails.
func (l *link) read(conn *ws.Conn, errc chan<- error) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			l.logger.Debug("Ignoring non-ack message", "raw", string(message))
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.logger.Debug("Ack buffer full, dropping", "for", ack.For)
		}
	}
}

// redial retries with exponential backoff; nil means give up or shutdown.
func (l *link) redial() *ws.Conn {
	backoff := l.minBackoff
	for attempt := 1; attempt <= maxRedials; attempt++ {
		select {
		case <-l.quit:
			return nil
		case <-time.After(backoff):
		}

		conn, err := l.dial()
		if err != nil {
			l.logger.Warn("Journal stream redial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		l.mu.Lock()
		hello := l.hello
		l.mu.Unlock()
		if hello != nil {
			if err := write(conn, hello); err != nil {
				l.logger.Warn("Failed to replay start_session", "error", err)
				_ = conn.Close()
				continue
			}
		}

		l.logger.Info("Journal stream reconnected", "attempt", attempt)
		return conn
	}
	return nil
}

// enqueue hands data to the supervisor without blocking.
func (l *link) enqueue(data []byte) bool {
	select {
	case l.outbox <- data:
		return true
	default:
		if l.dropped.Add(1) == 1 {
			l.logger.Warn("Journal stream outbox full, dropping messages")
		}
		return false
	}
}

// request enqueues data and waits for the matching ack.
func (l *link) request(data []byte, ackFor string, timeout time.Duration) error {
	if !l.enqueue(data) {
		return fmt.Errorf("outbox full, %q not sent", ackFor)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-l.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-l.exited:
			return fmt.Errorf("stream closed while waiting for ack of %q", ackFor)
		}
	}
}

func (l *link) setHello(data []byte) {
	l.mu.Lock()
	l.hello = data
	l.mu.Unlock()
}

// shutdown closes the connection. Queued messages not yet written are lost.
func (l *link) shutdown() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	l.mu.Unlock()

	close(l.quit)
	select {
	case <-l.exited:
		return nil
	case <-time.After(stopTimeout):
		return fmt.Errorf("journal stream did not stop within %s", stopTimeout)
	}
}
