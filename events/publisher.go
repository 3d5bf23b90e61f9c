package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"matching-pairs/game"
)

// SubjectRoundFinished carries one JSON RoundFinished per completed round.
const SubjectRoundFinished = "matchingpairs.round.finished"

// RoundFinished is the published payload.
type RoundFinished struct {
	RoundID string           `json:"roundId,omitempty"`
	Result  game.RoundResult `json:"result"`
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher publishes game events to NATS. A nil *Publisher drops events.
type Publisher struct {
	nc conn
}

// Connect dials url. It returns (nil, nil) when url is empty.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	opts := []nats.Option{
		nats.Name("matching-pairs"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("disconnected from NATS", "tag", "events", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("reconnected to NATS", "tag", "events", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	slog.Info("connected to NATS", "tag", "events", "url", nc.ConnectedUrl())
	return &Publisher{nc: nc}, nil
}

// PublishRoundFinished publishes r on SubjectRoundFinished.
func (p *Publisher) PublishRoundFinished(roundID string, r game.RoundResult) error {
	if p == nil || p.nc == nil {
		return nil
	}
	data, err := json.Marshal(RoundFinished{RoundID: roundID, Result: r})
	if err != nil {
		return err
	}
	if err := p.nc.Publish(SubjectRoundFinished, data); err != nil {
		return fmt.Errorf("publishing %s: %w", SubjectRoundFinished, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		slog.Warn("draining NATS connection", "tag", "events", "err", err)
	}
}
