package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/quibex/tradebot/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createCandleTableSQL = "CREATE TABLE IF NOT EXISTS candle (market TEXT, interval TEXT, open REAL, high REAL, low REAL, close REAL, volume REAL, starttime INTEGER, endtime INTEGER, PRIMARY KEY (market, interval, starttime))"
	createTradeTableSQL  = "CREATE TABLE IF NOT EXISTS trade (market TEXT, direction TEXT, entryprice REAL, exitprice REAL, quantity REAL, pnl REAL, openedon INTEGER, closedon INTEGER)"
	persistCandleSQL     = "INSERT INTO candle(market, interval, open, high, low, close, volume, starttime, endtime) VALUES(?,?,?,?,?,?,?,?,?) ON CONFLICT(market, interval, starttime) DO UPDATE SET open = excluded.open, high = excluded.high, low = excluded.low, close = excluded.close, volume = excluded.volume"
	persistTradeSQL      = "INSERT INTO trade(market, direction, entryprice, exitprice, quantity, pnl, openedon, closedon) VALUES(?,?,?,?,?,?,?,?)"
	fetchCandlesSQL      = "SELECT market, interval, open, high, low, close, volume, starttime, endtime FROM candle WHERE market = ? AND interval = ? AND starttime >= ? AND starttime < ? ORDER BY starttime ASC"
)

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the CandleStore interface.
var _ shared.CandleStore = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createCandleTableSQL},
		{SQL: createTradeTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistCandle stores the provided closed candle, replacing any candle
// already stored for the same market, interval and start.
func (db *Database) PersistCandle(ctx context.Context, candle *shared.Candlestick) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistCandleSQL,
			PositionalParams: []any{candle.Market, candle.Interval.String(), candle.Open,
				candle.High, candle.Low, candle.Close, candle.Volume,
				candle.Start.Unix(), candle.End.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting candle for %s: %d -> %s", candle.Market, idx, errStr)
	}

	return nil
}

// PersistClosedTrade stores the provided confirmed closed trade.
func (db *Database) PersistClosedTrade(ctx context.Context, trade *shared.ClosedTrade) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistTradeSQL,
			PositionalParams: []any{trade.Market, trade.Direction.String(), trade.EntryPrice,
				trade.ExitPrice, trade.Quantity, trade.PNL,
				trade.OpenedOn.Unix(), trade.ClosedOn.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting closed trade for %s: %d -> %s", trade.Market, idx, errStr)
	}

	return nil
}

// FetchCandles fetches stored candles for a market over a time range,
// ordered by their start times.
func (db *Database) FetchCandles(ctx context.Context, market string, interval shared.Interval,
	start time.Time, end time.Time) ([]shared.Candlestick, error) {
	resp, err := db.client.QuerySingle(ctx, fetchCandlesSQL, market, interval.String(),
		start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", market, err)
	}

	results := resp.GetQueryResultsAssoc()
	if len(results) == 0 {
		return []shared.Candlestick{}, nil
	}

	rows := results[0].Rows
	candles := make([]shared.Candlestick, 0, len(rows))
	for idx := range rows {
		candle, err := parseCandleRow(rows[idx], interval)
		if err != nil {
			return nil, fmt.Errorf("parsing candle row for %s: %w", market, err)
		}

		candles = append(candles, *candle)
	}

	return candles, nil
}

// parseCandleRow parses a stored candle from the provided row.
func parseCandleRow(row map[string]any, interval shared.Interval) (*shared.Candlestick, error) {
	market, ok := row["market"].(string)
	if !ok {
		return nil, fmt.Errorf("candle row has no market")
	}

	candle := &shared.Candlestick{
		Market:   market,
		Interval: interval,
		Open:     floatColumn(row["open"]),
		High:     floatColumn(row["high"]),
		Low:      floatColumn(row["low"]),
		Close:    floatColumn(row["close"]),
		Volume:   floatColumn(row["volume"]),
		Start:    time.Unix(int64(floatColumn(row["starttime"])), 0).UTC(),
		End:      time.Unix(int64(floatColumn(row["endtime"])), 0).UTC(),
	}

	return candle, nil
}

// floatColumn coerces a numeric column value. rqlite responses surface
// numbers as float64 or int64 depending on the stored type.
func floatColumn(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	default:
		return 0
	}
}
