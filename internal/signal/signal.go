// Package signal computes RSI momentum signals from hourly candles.
package signal

import (
	"context"
	"strings"
	"time"

	"binance-signal-bot/internal/market"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// Period is the RSI smoothing window.
	Period = 14

	// candleCount is how many hourly candles are requested per computation.
	candleCount = 100

	// minCandles is the smallest series that yields a fully-windowed value:
	// Period diffs require Period+1 closes.
	minCandles = Period + 1

	fetchTimeout = 10 * time.Second
)

// Classification thresholds. Exact boundary values classify as Neutral.
const (
	oversoldBelow   = 35.0
	overboughtAbove = 65.0
)

// ErrDataUnavailable marks a failed or unusable market-data fetch.
var ErrDataUnavailable = errors.New("market data unavailable")

// Category is the coarse trading signal derived from the RSI value.
type Category int

const (
	Oversold Category = iota
	Neutral
	Overbought
)

func (c Category) String() string {
	switch c {
	case Oversold:
		return "OVERSOLD"
	case Overbought:
		return "OVERBOUGHT"
	default:
		return "NEUTRAL"
	}
}

// Result is one computed signal. It is recomputed per request, never stored.
type Result struct {
	Symbol   string
	Price    float64
	RSI      float64
	Category Category
}

// Engine computes signals against a market data source.
type Engine struct {
	market  market.Client
	timeout time.Duration
}

func NewEngine(m market.Client) *Engine {
	return &Engine{market: m, timeout: fetchTimeout}
}

// ComputeSignal fetches recent candles for the given bare ticker and returns
// its RSI signal. All failure paths return an ErrDataUnavailable-wrapped
// error; the engine never panics across this boundary.
func (e *Engine) ComputeSignal(symbol string) (*Result, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	candles, err := e.market.Candles(ctx, symbol, candleCount)
	if err != nil {
		log.Debugf("candle fetch failed for %s: %v", symbol, err)
		return nil, errors.Wrapf(ErrDataUnavailable, "%s: %v", symbol, err)
	}
	if len(candles) < minCandles {
		return nil, errors.Wrapf(ErrDataUnavailable, "%s: got %d candles, need at least %d", symbol, len(candles), minCandles)
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	value := rsi(closes, Period)
	return &Result{
		Symbol:   symbol,
		Price:    closes[len(closes)-1],
		RSI:      value,
		Category: classify(value),
	}, nil
}

// rsi returns the RSI over the most recent fully-windowed period diffs using
// a simple moving average of gains and losses. Callers guarantee
// len(closes) >= period+1. A window without losses clamps to exactly 100.
func rsi(closes []float64, period int) float64 {
	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

func classify(value float64) Category {
	switch {
	case value < oversoldBelow:
		return Oversold
	case value > overboughtAbove:
		return Overbought
	default:
		return Neutral
	}
}
