package commands

import (
	"fmt"
	"sort"
	"strings"

	"binance-signal-bot/internal/signal"
	"binance-signal-bot/lib/helpers"

	log "github.com/sirupsen/logrus"
)

// TopCoins is the fixed watchlist used by /start and /signals.
var TopCoins = []string{"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE", "TRX", "LINK", "SUI"}

// opportunityCount is how many of the most oversold symbols lead the scan.
const opportunityCount = 5

// CommandScan computes signals for every symbol in the list and renders a
// market overview sorted from most oversold to most overbought. A symbol
// whose computation fails is reported in the reply and never aborts the rest.
func CommandScan(engine *signal.Engine, symbols []string) string {
	var results []*signal.Result
	var failed []string

	for _, symbol := range symbols {
		result, err := engine.ComputeSignal(symbol)
		if err != nil {
			log.Errorf("market scan failed for %s: %v", symbol, err)
			failed = append(failed, symbol)
			continue
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		return "❌ Market data is unavailable right now\\. Try again in a minute\\."
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].RSI < results[j].RSI
	})

	split := opportunityCount
	if split > len(results) {
		split = len(results)
	}

	var b strings.Builder
	b.WriteString("📊 *Market Scan*\n\n🔥 *Top opportunities*\n")
	for _, r := range results[:split] {
		b.WriteString(scanLine(r))
	}

	if split < len(results) {
		b.WriteString("\n⚠️ *Caution zone*\n")
		for _, r := range results[split:] {
			b.WriteString(scanLine(r))
		}
	}

	if len(failed) > 0 {
		b.WriteString(fmt.Sprintf("\n❌ No data: %s\n", helpers.EscapeMarkdownV2(strings.Join(failed, ", "))))
	}

	return b.String()
}

func scanLine(r *signal.Result) string {
	icon := "🟡"
	switch r.Category {
	case signal.Oversold:
		icon = "🟢"
	case signal.Overbought:
		icon = "🔴"
	}
	return fmt.Sprintf("%s *%s* RSI %s\n", icon, r.Symbol,
		helpers.EscapeMarkdownV2(fmt.Sprintf("%.1f", r.RSI)))
}
