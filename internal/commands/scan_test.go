package commands

import (
	"context"
	"strings"
	"testing"

	"binance-signal-bot/internal/market"
	"binance-signal-bot/internal/signal"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	series  map[string][]float64
	failing map[string]bool
}

func (f *fakeMarket) Candles(_ context.Context, asset string, _ int) ([]market.Candle, error) {
	if f.failing[asset] {
		return nil, errors.Errorf("binance down for %s", asset)
	}
	closes, ok := f.series[asset]
	if !ok {
		return nil, errors.Errorf("unknown symbol %s", asset)
	}
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{Close: c}
	}
	return candles, nil
}

func (f *fakeMarket) Price(_ context.Context, _ string) (float64, error) {
	return 0, errors.New("not implemented")
}

// closesWithGains builds 15 closes whose 14 diffs contain exactly `gains`
// unit gains and the rest unit losses, yielding RSI = gains*100/14.
func closesWithGains(gains int) []float64 {
	closes := []float64{100}
	for i := 0; i < signal.Period-gains; i++ {
		closes = append(closes, closes[len(closes)-1]-1)
	}
	for i := 0; i < gains; i++ {
		closes = append(closes, closes[len(closes)-1]+1)
	}
	return closes
}

func TestCommandScanSortsAndPartitions(t *testing.T) {
	fake := &fakeMarket{series: map[string][]float64{
		"S1": closesWithGains(1),
		"S2": closesWithGains(2),
		"S3": closesWithGains(3),
		"S4": closesWithGains(4),
		"S5": closesWithGains(5),
		"S6": closesWithGains(6),
	}}
	engine := signal.NewEngine(fake)

	// Deliberately unsorted input.
	out := CommandScan(engine, []string{"S4", "S1", "S6", "S3", "S5", "S2"})

	require.Contains(t, out, "Top opportunities")
	require.Contains(t, out, "Caution zone")

	// Ascending RSI order: S1 (most oversold) first, S6 last.
	last := -1
	for _, symbol := range []string{"S1", "S2", "S3", "S4", "S5", "S6"} {
		idx := strings.Index(out, "*"+symbol+"*")
		require.NotEqual(t, -1, idx, "missing %s", symbol)
		assert.Greater(t, idx, last, "%s out of order", symbol)
		last = idx
	}

	// Only the sixth entry lands in the caution zone.
	caution := strings.Index(out, "Caution zone")
	assert.Less(t, strings.Index(out, "*S5*"), caution)
	assert.Greater(t, strings.Index(out, "*S6*"), caution)
}

func TestCommandScanToleratesFailures(t *testing.T) {
	fake := &fakeMarket{
		series:  map[string][]float64{"BTC": closesWithGains(2)},
		failing: map[string]bool{"ETH": true},
	}
	engine := signal.NewEngine(fake)

	out := CommandScan(engine, []string{"BTC", "ETH"})

	assert.Contains(t, out, "*BTC*")
	assert.Contains(t, out, "No data: ETH")
}

func TestCommandScanAllFailed(t *testing.T) {
	fake := &fakeMarket{failing: map[string]bool{"BTC": true, "ETH": true}}
	engine := signal.NewEngine(fake)

	out := CommandScan(engine, []string{"BTC", "ETH"})
	assert.Contains(t, out, "unavailable")
}

func TestFormatSignal(t *testing.T) {
	cases := []struct {
		result *signal.Result
		want   []string
	}{
		{
			&signal.Result{Symbol: "BTC", Price: 51000, RSI: 28.3, Category: signal.Oversold},
			[]string{"🟢", "OVERSOLD", `28\.3`, "pump"},
		},
		{
			&signal.Result{Symbol: "ETH", Price: 3000, RSI: 71.0, Category: signal.Overbought},
			[]string{"🔴", "OVERBOUGHT", `71\.0`, "dump"},
		},
		{
			&signal.Result{Symbol: "SOL", Price: 150, RSI: 50.0, Category: signal.Neutral},
			[]string{"🟡", "NEUTRAL", `50\.0`, "No clear move"},
		},
	}

	for _, tc := range cases {
		out := FormatSignal(tc.result)
		for _, want := range tc.want {
			assert.Contains(t, out, want, "result for %s", tc.result.Symbol)
		}
	}
}

func TestCommandSignalWrapsEngineError(t *testing.T) {
	fake := &fakeMarket{failing: map[string]bool{"BTC": true}}
	engine := signal.NewEngine(fake)

	_, err := CommandSignal(engine, "BTC")
	assert.True(t, errors.Is(err, signal.ErrDataUnavailable))
}
