// Package market provides access to Binance spot market data.
package market

import (
	"context"
	"time"
)

// QuoteAsset is appended to every bare ticker before querying the exchange.
const QuoteAsset = "USDT"

// CandleInterval is the fixed granularity used for signal computation.
const CandleInterval = "1h"

// Candle is one OHLCV bucket as returned by the exchange.
type Candle struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Client fetches market data for a bare asset ticker such as "BTC".
type Client interface {
	// Candles returns up to limit most recent hourly candles, oldest first.
	Candles(ctx context.Context, asset string, limit int) ([]Candle, error)

	// Price returns the current spot price of the asset against QuoteAsset.
	Price(ctx context.Context, asset string) (float64, error)
}
