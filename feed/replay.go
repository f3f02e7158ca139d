package feed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/quibex/tradebot/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// ReplayConfig represents the replay source configuration.
type ReplayConfig struct {
	// FilePath is the filepath to the recorded tick data.
	FilePath string
	// SendTick relays the provided tick for processing.
	SendTick func(tick shared.Tick)
	// Done signals the replay has streamed all recorded ticks.
	Done func()
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Replay represents a recorded tick source. Ticks are streamed synchronously
// in recorded order, so a replayed session is fully deterministic.
type Replay struct {
	cfg    *ReplayConfig
	market string
	ticks  []shared.Tick
}

// Ensure the replay source implements the TickSource interface.
var _ shared.TickSource = (*Replay)(nil)

// NewReplay initializes a replay source from the provided file.
func NewReplay(cfg *ReplayConfig) (*Replay, error) {
	readb, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading replay data from file with path '%s': %w", cfg.FilePath, err)
	}

	b := gjson.ParseBytes(readb)

	market := b.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("replay data has no market")
	}

	data := b.Get("ticks").Array()
	if len(data) == 0 {
		return nil, fmt.Errorf("replay data for %s has no ticks", market)
	}

	ticks := make([]shared.Tick, 0, len(data))
	var prev time.Time
	for idx := range data {
		timestamp, err := time.Parse(shared.DateLayout, data[idx].Get("timestamp").String())
		if err != nil {
			return nil, fmt.Errorf("parsing tick timestamp: %w", err)
		}

		if timestamp.Before(prev) {
			return nil, fmt.Errorf("replay ticks for %s are not time ordered at index %d", market, idx)
		}
		prev = timestamp

		ticks = append(ticks, shared.Tick{
			Market:    market,
			Price:     data[idx].Get("price").Float(),
			Volume:    data[idx].Get("volume").Float(),
			Timestamp: timestamp,
		})
	}

	return &Replay{
		cfg:    cfg,
		market: market,
		ticks:  ticks,
	}, nil
}

// FetchMarket returns the replayed market.
func (r *Replay) FetchMarket() string {
	return r.market
}

// Run streams the recorded ticks in order, then signals completion.
func (r *Replay) Run(ctx context.Context) {
	r.cfg.Logger.Info().Msgf("replaying %d ticks for %s, from %s to %s",
		len(r.ticks), r.market,
		r.ticks[0].Timestamp.Format(time.RFC1123),
		r.ticks[len(r.ticks)-1].Timestamp.Format(time.RFC1123))

	for idx := range r.ticks {
		if ctx.Err() != nil {
			return
		}

		r.cfg.SendTick(r.ticks[idx])
	}

	if r.cfg.Done != nil {
		r.cfg.Done()
	}
}
