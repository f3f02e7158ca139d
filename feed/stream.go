// Package feed provides tick sources for the trading pipeline: a websocket
// stream client for live sessions and a file driven replay source for
// deterministic paper sessions.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quibex/tradebot/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// reconnectWait is the pause before redialing a dropped stream.
	reconnectWait = time.Second * 5
	// readTimeout bounds the wait for the next stream message.
	readTimeout = time.Minute
)

// StreamConfig represents the websocket stream configuration.
type StreamConfig struct {
	// URL is the websocket endpoint of the tick stream.
	URL string
	// Markets represents the tracked markets.
	Markets []string
	// SendTick relays the provided tick for processing.
	SendTick func(tick shared.Tick)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Stream represents a websocket tick stream client. Disconnects are treated
// as transient: the client redials and resumes, and downstream consumers
// tolerate the resulting gap in ticks.
type Stream struct {
	cfg *StreamConfig
}

// Ensure the stream implements the TickSource interface.
var _ shared.TickSource = (*Stream)(nil)

// NewStream initializes a new websocket tick stream.
func NewStream(cfg *StreamConfig) *Stream {
	return &Stream{
		cfg: cfg,
	}
}

// parseTick parses a tick from the provided stream payload.
func (s *Stream) parseTick(payload []byte) (*shared.Tick, error) {
	data := gjson.ParseBytes(payload)

	market := data.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("stream payload has no market")
	}

	price := data.Get("price").Float()
	if price <= 0 {
		return nil, fmt.Errorf("stream payload for %s has no price", market)
	}

	return &shared.Tick{
		Market:    market,
		Price:     price,
		Volume:    data.Get("volume").Float(),
		Timestamp: time.UnixMilli(data.Get("timestamp").Int()).UTC(),
	}, nil
}

// subscribe registers the tracked markets with the stream.
func (s *Stream) subscribe(conn *websocket.Conn) error {
	markets, err := json.Marshal(s.cfg.Markets)
	if err != nil {
		return fmt.Errorf("encoding markets: %w", err)
	}

	sub := fmt.Sprintf(`{"op":"subscribe","markets":%s}`, markets)
	return conn.WriteMessage(websocket.TextMessage, []byte(sub))
}

// stream consumes messages from a single connection until it fails or the
// context is cancelled.
func (s *Stream) stream(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	// Closing the connection on cancellation unblocks a pending read, a
	// quiet stream would otherwise stall shutdown until the read deadline.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	err := s.subscribe(conn)
	if err != nil {
		return fmt.Errorf("subscribing to stream: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		err = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading stream message: %w", err)
		}

		tick, err := s.parseTick(payload)
		if err != nil {
			s.cfg.Logger.Debug().Msgf("skipping stream payload: %v", err)
			continue
		}

		if !slices.Contains(s.cfg.Markets, tick.Market) {
			continue
		}

		s.cfg.SendTick(*tick)
	}
}

// Run manages the lifecycle processes of the stream, redialing on transient
// disconnects until the context is cancelled.
func (s *Stream) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
		if err != nil {
			s.cfg.Logger.Warn().Msgf("dialing tick stream: %v, retrying in %s",
				err, reconnectWait)
		} else {
			err = s.stream(ctx, conn)
			if err != nil {
				s.cfg.Logger.Warn().Msgf("tick stream interrupted: %v, reconnecting in %s",
					err, reconnectWait)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectWait):
		}
	}
}
