package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"trade-assistant/internal/advisor"
	"trade-assistant/internal/api"
	"trade-assistant/internal/audit"
	"trade-assistant/internal/autotrade"
	"trade-assistant/internal/events"
	"trade-assistant/internal/gateway"
	"trade-assistant/internal/order"
	"trade-assistant/pkg/config"
	"trade-assistant/pkg/db"
	"trade-assistant/pkg/market"
	"trade-assistant/pkg/vault"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}

	v, err := vault.Open()
	if err != nil {
		log.WithError(err).Fatal("encryption key error")
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("database error")
	}
	defer database.Close()

	bus := events.NewBus()
	factory := gateway.NewFactory(cfg)
	prices := market.NewService(market.Options{
		Paper:               cfg.Paper(),
		UseLivePriceInPaper: cfg.UseLivePriceInPaper,
		PublicBase:          cfg.BinanceAPIBase,
	}, log)
	writer := audit.NewWriter(database, log)
	router := order.NewRouter(database, v, factory, prices, writer, bus, log)

	var quantAdvisor api.QuantityAdvisor
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		quantAdvisor = advisor.New(cfg.AnthropicModel, log)
	} else {
		log.Info("ANTHROPIC_API_KEY not set, advisor disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoTradeRulesPath != "" {
		rules, err := autotrade.LoadRules(cfg.AutoTradeRulesPath)
		if err != nil {
			log.WithError(err).Fatal("auto-trade rules error")
		}
		sched := autotrade.NewScheduler(rules, router, log)
		go sched.Run(ctx)
		log.WithField("rules", len(rules)).Info("auto-trade scheduler started")
	}

	srv := api.NewServer(api.Deps{
		Config:   cfg,
		DB:       database,
		Vault:    v,
		Orders:   router,
		Prices:   prices,
		Gateways: factory,
		Advisor:  quantAdvisor,
		Bus:      bus,
		Log:      log,
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr": httpSrv.Addr,
			"mode": string(cfg.Mode),
		}).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
}
