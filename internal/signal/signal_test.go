package signal

import (
	"context"
	"testing"

	"binance-signal-bot/internal/market"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	candles   []market.Candle
	candleErr error
	lastAsset string
}

func (f *fakeMarket) Candles(_ context.Context, asset string, _ int) ([]market.Candle, error) {
	f.lastAsset = asset
	return f.candles, f.candleErr
}

func (f *fakeMarket) Price(_ context.Context, _ string) (float64, error) {
	return 0, errors.New("not implemented")
}

func candlesFromCloses(closes []float64) []market.Candle {
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{Close: c}
	}
	return candles
}

// ascendingCloses returns n closes that rise by one on every bar.
func ascendingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return closes
}

func descendingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	return closes
}

func TestComputeSignalTooFewCandles(t *testing.T) {
	for _, n := range []int{0, 1, 14} {
		engine := NewEngine(&fakeMarket{candles: candlesFromCloses(ascendingCloses(n))})

		result, err := engine.ComputeSignal("BTC")
		assert.Nil(t, result, "n=%d", n)
		assert.True(t, errors.Is(err, ErrDataUnavailable), "n=%d", n)
	}
}

func TestComputeSignalFetchError(t *testing.T) {
	engine := NewEngine(&fakeMarket{candleErr: errors.New("binance: invalid symbol")})

	result, err := engine.ComputeSignal("NOPE")
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
}

func TestComputeSignalMonotonicIncrease(t *testing.T) {
	engine := NewEngine(&fakeMarket{candles: candlesFromCloses(ascendingCloses(100))})

	result, err := engine.ComputeSignal("BTC")
	require.NoError(t, err)

	// No losses in the window clamps RSI to exactly 100.
	assert.Equal(t, 100.0, result.RSI)
	assert.Equal(t, Overbought, result.Category)
	assert.Equal(t, 199.0, result.Price)
}

func TestComputeSignalMonotonicDecrease(t *testing.T) {
	engine := NewEngine(&fakeMarket{candles: candlesFromCloses(descendingCloses(100))})

	result, err := engine.ComputeSignal("BTC")
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.RSI)
	assert.Equal(t, Oversold, result.Category)
}

func TestComputeSignalNormalizesSymbol(t *testing.T) {
	fake := &fakeMarket{candles: candlesFromCloses(ascendingCloses(20))}
	engine := NewEngine(fake)

	result, err := engine.ComputeSignal("  btc ")
	require.NoError(t, err)
	assert.Equal(t, "BTC", result.Symbol)
	assert.Equal(t, "BTC", fake.lastAsset)
}

func TestRSIBalancedWindow(t *testing.T) {
	// Seven +1 diffs and seven -1 diffs: average gain equals average loss.
	closes := []float64{100}
	for i := 0; i < 7; i++ {
		closes = append(closes, closes[len(closes)-1]+1)
		closes = append(closes, closes[len(closes)-1]-1)
	}

	assert.InDelta(t, 50.0, rsi(closes, Period), 0.0001)
}

func TestRSIUsesOnlyTrailingWindow(t *testing.T) {
	// A heavy early drop outside the 14-diff window must not affect the value.
	closes := append([]float64{1000, 500}, ascendingCloses(16)...)
	assert.Equal(t, 100.0, rsi(closes, Period))
}

func TestClassifyBoundaries(t *testing.T) {
	assert.Equal(t, Oversold, classify(34.9))
	assert.Equal(t, Neutral, classify(35.0))
	assert.Equal(t, Neutral, classify(50.0))
	assert.Equal(t, Neutral, classify(65.0))
	assert.Equal(t, Overbought, classify(65.1))
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "OVERSOLD", Oversold.String())
	assert.Equal(t, "NEUTRAL", Neutral.String())
	assert.Equal(t, "OVERBOUGHT", Overbought.String())
}
