package commands

import (
	"fmt"

	"binance-signal-bot/internal/signal"
	"binance-signal-bot/lib/helpers"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CommandSignal computes and renders the RSI signal for a single symbol.
func CommandSignal(engine *signal.Engine, symbol string) (string, error) {
	log.Debugf("processing signal request for %s", symbol)

	result, err := engine.ComputeSignal(symbol)
	if err != nil {
		return "", errors.Wrap(err, "signal command")
	}

	return FormatSignal(result), nil
}

// FormatSignal renders one signal result as a MarkdownV2 message.
func FormatSignal(r *signal.Result) string {
	rsi := helpers.EscapeMarkdownV2(fmt.Sprintf("%.1f", r.RSI))
	price := helpers.EscapeMarkdownV2(helpers.FormatPriceUS(r.Price, false))

	var line string
	switch r.Category {
	case signal.Oversold:
		line = fmt.Sprintf("🟢 *%s* is *OVERSOLD* \\(RSI: %s\\)\\. Expect a pump\\!", r.Symbol, rsi)
	case signal.Overbought:
		line = fmt.Sprintf("🔴 *%s* is *OVERBOUGHT* \\(RSI: %s\\)\\. Expect a dump\\!", r.Symbol, rsi)
	default:
		line = fmt.Sprintf("🟡 *%s* is *NEUTRAL* \\(RSI: %s\\)\\. No clear move\\.", r.Symbol, rsi)
	}

	return fmt.Sprintf("%s\nPrice: `$%s`", line, price)
}
