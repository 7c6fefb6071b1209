package alert

import (
	"context"
	"fmt"
	"time"

	"binance-signal-bot/internal/market"
	"binance-signal-bot/lib/helpers"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	scanSchedule = "@every 5m"
	priceTimeout = 5 * time.Second
)

// Notifier delivers a message to a chat. Implemented by the telegram bot.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(chatID int64, text string) error

func (f NotifierFunc) Notify(chatID int64, text string) error {
	return f(chatID, text)
}

// Scanner re-checks the store every five minutes. The cron job is wrapped
// with SkipIfStillRunning so two scans can never overlap.
type Scanner struct {
	store    *Store
	market   market.Client
	notifier Notifier
	cron     *cron.Cron
}

func NewScanner(store *Store, m market.Client, notifier Notifier) *Scanner {
	return &Scanner{
		store:  store,
		market: m,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger())),
		)),
		notifier: notifier,
	}
}

// Start registers the scan job and launches the scheduler.
func (s *Scanner) Start() error {
	if _, err := s.cron.AddFunc(scanSchedule, s.Run); err != nil {
		return err
	}
	s.cron.Start()
	log.Info("alert scanner started")
	return nil
}

// Stop stops the scheduler, waiting for a running scan to finish.
func (s *Scanner) Stop() {
	<-s.cron.Stop().Done()
	log.Info("alert scanner stopped")
}

// Run executes one scan and pushes a notification for every fired condition.
func (s *Scanner) Run() {
	log.Debugf("scanning %d alert conditions", s.store.Count())

	fired := s.store.Scan(s.fetchPrice)
	for _, f := range fired {
		if err := s.notifier.Notify(f.ChatID, TriggerMessage(f)); err != nil {
			log.Errorf("failed to deliver alert for %s to chat %d: %v", f.Condition.Symbol, f.ChatID, err)
		}
	}

	if len(fired) > 0 {
		log.Infof("alert scan fired %d conditions", len(fired))
	}
}

func (s *Scanner) fetchPrice(symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), priceTimeout)
	defer cancel()
	return s.market.Price(ctx, symbol)
}

// TriggerMessage renders the MarkdownV2 notification for a fired condition.
func TriggerMessage(f Fired) string {
	return fmt.Sprintf(
		"🔔 *Price Alert Triggered*\n\n*%s* reached *$%s*\nTarget: *$%s*",
		helpers.EscapeMarkdownV2(f.Condition.Symbol),
		helpers.EscapeMarkdownV2(humanize.FormatFloat("#,###.##", f.Price)),
		helpers.EscapeMarkdownV2(humanize.FormatFloat("#,###.##", f.Condition.Target)),
	)
}
