// Package websocket streams the tour journal live to a remote collector.
package websocket

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/timewalk/tourguide/pkg/core"
	"github.com/timewalk/tourguide/pkg/streaming"
)

const defaultAckTimeout = 10 * time.Second

// Config holds WebSocket backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration
}

// Backend streams journal records over WebSocket.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	link *link
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	return &Backend{
		link: newLink(cfg.URL, cfg.Secret, logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.link.open()
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.link.shutdown()
}

// Dropped reports how many messages were discarded because the outbox was full.
func (b *Backend) Dropped() uint64 {
	return b.link.dropped.Load()
}

// StartSession announces the session and waits for the server ack. The
// message is replayed whenever the stream reconnects.
func (b *Backend) StartSession(s core.TourSession) error {
	data, err := streaming.Marshal(streaming.TypeStartSession, streaming.StartSessionPayload{
		Version: streaming.ProtocolVersion,
		Session: s,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeStartSession, err)
	}
	b.link.setHello(data)
	return b.link.request(data, streaming.TypeStartSession, b.cfg.AckTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession(s core.TourSession) error {
	data, err := streaming.Marshal(streaming.TypeEndSession, s)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeEndSession, err)
	}
	err = b.link.request(data, streaming.TypeEndSession, b.cfg.AckTimeout)
	b.link.setHello(nil)
	return err
}

func (b *Backend) RecordEvent(e core.TourEvent) error {
	return b.send(streaming.TypeTourEvent, e)
}

func (b *Backend) RecordSample(s core.TelemetrySample) error {
	return b.send(streaming.TypeTelemetrySample, s)
}

// send is fire-and-forget; a full outbox drops the message.
func (b *Backend) send(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	b.link.enqueue(data)
	return nil
}
