package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"binance-signal-bot/config"
	"binance-signal-bot/internal/alert"
	"binance-signal-bot/internal/database"
	"binance-signal-bot/internal/market"
	sig "binance-signal-bot/internal/signal"
	"binance-signal-bot/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

type BotMetrics struct {
	CommandsProcessed prometheus.Counter
	MessagesHandled   prometheus.Counter
	AlertsFired       prometheus.Counter
	CommandsByName    *prometheus.CounterVec
}

var (
	metrics = NewBotMetrics()
)

func init() {
	config.InitConfig()
	setupLogging()
}

func NewBotMetrics() *BotMetrics {
	metrics := &BotMetrics{
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "binance",
			Subsystem: "signal_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "binance",
			Subsystem: "signal_bot",
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		AlertsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "binance",
			Subsystem: "signal_bot",
			Name:      "alerts_fired",
			Help:      "The total number of triggered price alerts",
		}),
		CommandsByName: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "binance",
				Subsystem: "signal_bot",
				Name:      "commands_by_name",
				Help:      "The total number of commands handled per command name",
			},
			[]string{"command"},
		),
	}

	prometheus.MustRegister(metrics.CommandsProcessed)
	prometheus.MustRegister(metrics.MessagesHandled)
	prometheus.MustRegister(metrics.AlertsFired)
	prometheus.MustRegister(metrics.CommandsByName)

	return metrics
}

func main() {
	token := config.GetString("bot_token")
	if token == "" {
		log.Fatal("BOT_TOKEN environment variable is not set")
	}

	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")

	err := database.InitDB(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	LoadMetricsFromDB()

	binanceClient := market.NewBinance()
	engine := sig.NewEngine(binanceClient)
	store := alert.NewStore()

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          token,
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
	}, engine, store)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	notifier := alert.NotifierFunc(func(chatID int64, text string) error {
		metrics.AlertsFired.Inc()
		return bot.Notify(chatID, text)
	})

	scanner := alert.NewScanner(store, binanceClient, notifier)
	if err := scanner.Start(); err != nil {
		log.Fatalf("Failed to start alert scanner: %v", err)
	}

	go handleUpdates(bot, bot.GetUpdatesChannel())

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			SaveMetricsToDB()
		}
	}()

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		<-sigs
		scanner.Stop()
		SaveMetricsToDB()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchHealthServer(config.GetInt("port")); err != nil {
		log.Fatalf("Failed to start health server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting telegram bot...")
}

func handleUpdates(bot *telegram.Bot, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.PreCheckoutQuery != nil {
			bot.HandlePreCheckout(update.PreCheckoutQuery)
			continue
		}

		if update.CallbackQuery != nil {
			bot.HandleCallbackQuery(update.CallbackQuery)
			continue
		}

		if update.Message == nil {
			log.Debug("Received non-message update")
			continue
		}

		if update.Message.SuccessfulPayment != nil {
			bot.HandleSuccessfulPayment(update.Message)
			continue
		}

		if !update.Message.IsCommand() {
			continue
		}

		metrics.MessagesHandled.Inc()
		metrics.CommandsByName.WithLabelValues(update.Message.Command()).Inc()

		handleCommand(bot, update)
	}
}

func handleCommand(bot *telegram.Bot, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	text := bot.HandleUpdate(update)
	if text == "" {
		metrics.CommandsProcessed.Inc()
		return
	}

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		metrics.CommandsProcessed.Inc()
	}
}

func livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("✅ Bot is alive! | Health Check OK"))
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchHealthServer(port int) error {
	http.HandleFunc("/", livenessHandler)
	http.HandleFunc("/health", healthCheckHandler)
	http.Handle("/metrics", promhttp.Handler())

	log.Infof("Launching health and metrics endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

func LoadMetricsFromDB() {
	commandsProcessed, _ := database.GetMetric("commands_processed")
	messagesHandled, _ := database.GetMetric("messages_handled")
	alertsFired, _ := database.GetMetric("alerts_fired")

	metrics.CommandsProcessed.Add(commandsProcessed)
	metrics.MessagesHandled.Add(messagesHandled)
	metrics.AlertsFired.Add(alertsFired)

	commandsByName, err := database.GetMetricsWithLabels("commands_by_name")
	if err != nil {
		log.Errorf("Failed to load per-command metrics: %v", err)
		return
	}
	for name, value := range commandsByName["command"] {
		metrics.CommandsByName.WithLabelValues(name).Add(value)
	}

	log.Println("Metrics loaded from database.")
}

func SaveMetricsToDB() {
	database.SaveMetric("commands_processed", GetMetricValue(metrics.CommandsProcessed))
	database.SaveMetric("messages_handled", GetMetricValue(metrics.MessagesHandled))
	database.SaveMetric("alerts_fired", GetMetricValue(metrics.AlertsFired))

	metricChan := make(chan prometheus.Metric, 1)
	go func() {
		metrics.CommandsByName.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read CommandsByName metric: %v", err)
			continue
		}
		var name string
		for _, label := range metricProto.Label {
			if label.GetName() == "command" {
				name = label.GetValue()
			}
		}
		database.SaveMetricWithLabels("commands_by_name", "command", name, metricProto.Counter.GetValue())
	}

	log.Println("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
