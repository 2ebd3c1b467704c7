package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/admin"
	"fenrir/internal/agent"
	"fenrir/internal/config"
	"fenrir/internal/control"
	"fenrir/internal/marketdata"
	"fenrir/internal/metrics"
	"fenrir/internal/scheduler"
	"fenrir/internal/tradelog"
	"fenrir/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	sink, err := tradelog.NewCSVSink(cfg.TradeLogPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TradeLogPath).Msg("failed to open trade log")
	}
	defer sink.Close()

	registry := prometheus.NewRegistry()
	mx := metrics.NewCollector(registry)

	queue := control.NewQueue()
	hub := marketdata.NewHub(cfg.BroadcastRingCap)

	agents := buildPopulation(cfg)

	sched := scheduler.New(scheduler.Config{
		TickInterval: cfg.TickInterval,
		DrainWindow:  cfg.CommandDrainWindow,
		PollYield:    cfg.CommandPollYield,
		BroadcastCap: cfg.BroadcastRingCap,
	}, queue, hub, sink, mx, agents, time.Now().UnixNano())

	router := gin.New()
	router.Use(gin.Recovery())
	admin.New(queue).RegisterRoutes(router)
	ws.New(hub).Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	t, tombCtx := tomb.WithContext(ctx)

	t.Go(func() error {
		return sched.Run(t)
	})

	t.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.ListenAndServe() }()
		select {
		case <-tombCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		}
	})

	log.Info().Str("addr", cfg.ListenAddr).Msg("simulation server listening")

	<-t.Dying()
	queue.Close()
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("simulation server exited with error")
	}
}

func buildPopulation(cfg config.Config) []*agent.Agent {
	const (
		initialCash      = 1_000_000
		initialInventory = 1_000
	)

	var agents []*agent.Agent
	var id uint64 = 1
	seed := time.Now().UnixNano()

	for i := 0; i < cfg.RandomWalkers; i++ {
		agents = append(agents, agent.New(id, "random-walker", initialCash, initialInventory,
			agent.Strategy{Kind: agent.RandomWalker}, seed+int64(id)))
		id++
	}
	for i := 0; i < cfg.TrendFollowers; i++ {
		agents = append(agents, agent.New(id, "trend-follower", initialCash, initialInventory,
			agent.Strategy{Kind: agent.TrendFollower, WindowSize: 5}, seed+int64(id)))
		id++
	}
	for i := 0; i < cfg.MeanReverters; i++ {
		agents = append(agents, agent.New(id, "mean-reverter", initialCash, initialInventory,
			agent.Strategy{Kind: agent.MeanReverter, WindowSize: 10, StdDevMultiplier: 2.0}, seed+int64(id)))
		id++
	}
	for i := 0; i < cfg.MarketMakers; i++ {
		agents = append(agents, agent.New(id, "market-maker", initialCash, initialInventory,
			agent.Strategy{Kind: agent.MarketMaker, SpreadBps: 50}, seed+int64(id)))
		id++
	}

	return agents
}
