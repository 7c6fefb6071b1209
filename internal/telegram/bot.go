package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"binance-signal-bot/internal/alert"
	"binance-signal-bot/internal/commands"
	"binance-signal-bot/internal/signal"
	"binance-signal-bot/lib/helpers"
	"binance-signal-bot/lib/translation"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	signalCallbackPrefix = "signal|"
	buyVIPCallback       = "buy_vip"

	// Callers of the payment flow see at most this many characters of the
	// underlying error.
	paymentErrorLimit = 30
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, engine *signal.Engine, store *alert.Store) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
		engine: engine,
		store:  store,
	}, nil
}

// GetUpdatesChannel gets new updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig)
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// Notify implements alert.Notifier.
func (b *Bot) Notify(chatID int64, text string) error {
	return b.SendMessage(Message{ChatID: chatID, Text: text})
}

// ParseAlertArgs parses the /setalert arguments: exactly a symbol and a
// numeric target price.
func ParseAlertArgs(args string) (string, float64, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", 0, errors.Errorf("expected 2 arguments, got %d", len(fields))
	}

	target, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid target price %q", fields[1])
	}

	return fields[0], target, nil
}

// HandleUpdate processes Telegram commands and returns the reply text.
// Commands that send their own messages (inline keyboards) return "".
func (b *Bot) HandleUpdate(u tgbotapi.Update) string {
	log.Debugf("received command: %s", u.Message.Command())

	switch u.Message.Command() {
	case "start":
		b.handleStart(u.Message.Chat.ID)
		return ""
	case "signals":
		return commands.CommandScan(b.engine, commands.TopCoins)
	case "setalert":
		return b.handleSetAlert(u)
	case "alerts":
		return b.handleAlertList(u.Message.Chat.ID)
	}

	return helpText()
}

func helpText() string {
	return "🚀 *Binance RSI Signals*\n\n" +
		"`/start` pick a coin for a signal\n" +
		"`/signals` scan the whole watchlist\n" +
		"`/setalert BTC 105000` set a price alert\n" +
		"`/alerts` list your active alerts"
}

func (b *Bot) handleStart(chatID int64) {
	var buttons []tgbotapi.InlineKeyboardButton
	for _, coin := range commands.TopCoins[:6] {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(coin, signalCallbackPrefix+coin))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(buttons); i += 2 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons[i:i+2]...))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🌟 VIP SIGNAL (50 Stars)", buyVIPCallback),
	))

	msg := tgbotapi.NewMessage(chatID,
		"🚀 *Binance AI Predictor*\n\nSelect a coin for an RSI signal or use:\n`/setalert BTC 105000`")
	msg.ParseMode = "MarkdownV2"
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := b.Bot.Send(msg); err != nil {
		log.Errorf("failed to send start menu: %v", err)
	}
}

func (b *Bot) handleSetAlert(u tgbotapi.Update) string {
	usage := "❌ Usage: `/setalert BTC 100000`"

	symbol, target, err := ParseAlertArgs(u.Message.CommandArguments())
	if err != nil {
		log.Debugf("rejected /setalert %q: %v", u.Message.CommandArguments(), err)
		return usage
	}

	cond, err := b.store.Add(u.Message.Chat.ID, symbol, target)
	if err != nil {
		log.Debugf("rejected /setalert %q: %v", u.Message.CommandArguments(), err)
		return usage
	}

	return fmt.Sprintf("✅ Alert set\\!\n*%s* at *$%s*",
		helpers.EscapeMarkdownV2(cond.Symbol),
		helpers.EscapeMarkdownV2(humanize.FormatFloat("#,###.##", cond.Target)))
}

func (b *Bot) handleAlertList(chatID int64) string {
	conditions := b.store.List(chatID)
	if len(conditions) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("You have no active alerts."))
	}

	var list strings.Builder
	list.WriteString("🔔 *Active alerts*\n")
	for _, cond := range conditions {
		list.WriteString(fmt.Sprintf("🔸 *%s* at *$%s*\n",
			helpers.EscapeMarkdownV2(cond.Symbol),
			helpers.EscapeMarkdownV2(humanize.FormatFloat("#,###.##", cond.Target))))
	}
	return list.String()
}

// HandleCallbackQuery routes inline keyboard presses.
func (b *Bot) HandleCallbackQuery(callbackQuery *tgbotapi.CallbackQuery) {
	data := callbackQuery.Data
	chatID := callbackQuery.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, signalCallbackPrefix):
		symbol := strings.TrimPrefix(data, signalCallbackPrefix)
		b.answerCallback(callbackQuery.ID, translation.Translate("🧠 Analyzing RSI..."))

		text, err := commands.CommandSignal(b.engine, symbol)
		if err != nil {
			log.Error(err)
			text = fmt.Sprintf("❌ Error analyzing %s", helpers.EscapeMarkdownV2(symbol))
		}
		if err := b.SendMessage(Message{ChatID: chatID, Text: text}); err != nil {
			log.Error(err)
		}

	case data == buyVIPCallback:
		b.handleBuyVIP(callbackQuery)

	default:
		b.answerCallback(callbackQuery.ID, translation.Translate("Unknown action. Please try again."))
	}
}

func (b *Bot) handleBuyVIP(callbackQuery *tgbotapi.CallbackQuery) {
	chatID := callbackQuery.Message.Chat.ID

	// Telegram Stars invoices use the XTR currency and an empty provider
	// token; amounts are whole stars.
	invoice := tgbotapi.NewInvoice(
		chatID,
		"VIP Alpha Signal",
		"High-accuracy trading signal",
		"vip_payload",
		"",
		"vip",
		"XTR",
		[]tgbotapi.LabeledPrice{{Label: "VIP Signal", Amount: 50}},
	)

	if _, err := b.Bot.Send(invoice); err != nil {
		log.Errorf("failed to send VIP invoice to chat %d: %v", chatID, err)
		b.answerCallback(callbackQuery.ID,
			"⚠️ Payment unavailable: "+truncateError(err, paymentErrorLimit))
		return
	}

	b.answerCallback(callbackQuery.ID, "")
}

// HandlePreCheckout acknowledges a pre-checkout query. Telegram requires a
// positive answer within 10 seconds or the payment fails; there is nothing to
// validate on our side.
func (b *Bot) HandlePreCheckout(query *tgbotapi.PreCheckoutQuery) {
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}
	if _, err := b.Bot.Request(answer); err != nil {
		log.Errorf("failed to answer pre-checkout query %s: %v", query.ID, err)
	}
}

// HandleSuccessfulPayment delivers the unlocked content. The confirmation is
// stateless; it carries no linkage back to the original purchase intent.
func (b *Bot) HandleSuccessfulPayment(message *tgbotapi.Message) {
	text := "💎 *VIP SIGNAL UNLOCKED*\n\n" +
		"🎯 SOL/USDT Target: $350\n" +
		"⏰ Valid for the next 24h\n\n" +
		"_Trade responsibly\\!_"

	if err := b.SendMessage(Message{ChatID: message.Chat.ID, Text: text}); err != nil {
		log.Errorf("failed to send payment confirmation: %v", err)
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.Bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.Errorf("failed to answer callback query: %v", err)
	}
}

func truncateError(err error, limit int) string {
	msg := err.Error()
	if len(msg) > limit {
		msg = msg[:limit]
	}
	return msg
}
