package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blood8879/turtle-canslim/internal/broker"
	"github.com/blood8879/turtle-canslim/internal/config"
	"github.com/blood8879/turtle-canslim/internal/journal"
	alpacamarket "github.com/blood8879/turtle-canslim/internal/market/alpaca"
	"github.com/blood8879/turtle-canslim/internal/metrics"
	"github.com/blood8879/turtle-canslim/internal/notify"
	"github.com/blood8879/turtle-canslim/internal/trader"
	"github.com/blood8879/turtle-canslim/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider := alpacamarket.NewProvider()

	var exec broker.Broker
	switch cfg.Broker.Mode {
	case "paper":
		quote := func(symbol string) float64 {
			bars, err := provider.GetBars(ctx, symbol, 1)
			if err != nil || len(bars) == 0 {
				return 0
			}
			return bars[len(bars)-1].Close
		}
		exec = broker.NewPaper(cfg.Broker.PaperStartingCash, quote)
	case "alpaca":
		exec = broker.NewAlpaca()
	default:
		log.Fatal().Str("mode", cfg.Broker.Mode).Msg("unknown broker mode")
	}

	jnl, err := journal.Open(cfg.Journal.SignalsPath, cfg.Journal.SnapshotPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open journal")
	}
	defer jnl.Close()

	var notifier notify.Notifier = notify.Nop{}
	if token, chat := os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"); token != "" && chat != "" {
		tg := notify.NewTelegram(token, chat, log)
		defer tg.Close()
		notifier = tg
		log.Info().Msg("telegram alerts enabled")
	}

	eng := trader.New(cfg, provider, exec, jnl, notifier, log)
	if err := eng.Restore(); err != nil {
		log.Fatal().Err(err).Msg("restore portfolio state")
	}

	log.Info().Str("broker", exec.Name()).Strs("watchlist", cfg.Trader.Watchlist).Msg("trader started")

	ticker := time.NewTicker(time.Duration(cfg.Trader.PollIntervalSecs) * time.Second)
	defer ticker.Stop()

	if err := eng.Cycle(ctx); err != nil {
		log.Error().Err(err).Msg("cycle failed")
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-ticker.C:
			if err := eng.Cycle(ctx); err != nil {
				log.Error().Err(err).Msg("cycle failed")
			}
		}
	}
}
