package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	"github.com/radieske/bet-settler/internal/settlement-worker/consumer"
	"github.com/radieske/bet-settler/internal/settlement/pubsub"
	"github.com/radieske/bet-settler/internal/settlement/settler"
	"github.com/radieske/bet-settler/internal/shared/cache"
	"github.com/radieske/bet-settler/internal/shared/config"
	"github.com/radieske/bet-settler/internal/shared/db"
	"github.com/radieske/bet-settler/internal/shared/logger"
	"github.com/radieske/bet-settler/internal/shared/metrics"
	"github.com/radieske/bet-settler/internal/shared/nats"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	if !cfg.SettlementBrokerEnabled {
		// com relay direto o outcome-consumer já liquida em processo
		log.Warn("SETTLEMENT_BROKER_ENABLED=false; settlement-worker has nothing to consume")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if v, err := db.MigrateUp(cfg.PostgresDSN); err != nil {
		log.Fatal("migrate up", zap.Error(err))
	} else {
		log.Info("schema ready", zap.Uint("version", v))
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	nc, js, err := nats.Connect(cfg.NATSURL, cfg.ServiceName, log)
	if err != nil {
		log.Fatal("nats connect", zap.Error(err))
	}
	defer nc.Close()

	subject := cfg.SubjectSettlements + ".*"
	if err := nats.EnsureStream(js, cfg.StreamSettlements, []string{subject}); err != nil {
		log.Fatal("nats stream", zap.Error(err))
	}

	received := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_messages_received_total", Help: "mensagens recebidas"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_worker_messages_handled_total", Help: "mensagens por desfecho (ack/nak/term)"}, []string{"disposition"})
	prometheus.MustRegister(received, handled)

	s := settler.New(repo.NewPostgres(pg), log, settler.WithNotifier(pubsub.NewRedisBroadcaster(redisClient, cfg.ChannelBetSettled)))
	w := &consumer.Worker{
		Log:        log,
		Settler:    s,
		OnReceived: received.Inc,
		OnHandled:  func(d consumer.Disposition) { handled.WithLabelValues(string(d)).Inc() },
	}

	sub, err := w.Subscribe(ctx, js, consumer.SubscribeConfig{
		Subject:    subject,
		Durable:    cfg.DurableSettlements,
		MaxDeliver: cfg.SettlementMaxDeliver,
		AckWait:    cfg.SettlementAckWait,
	})
	if err != nil {
		log.Fatal("nats subscribe", zap.Error(err))
	}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Combine(
		func(ctx context.Context) error { return pg.PingContext(ctx) },
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats not connected: %s", nc.Status())
			}
			return nil
		},
	))
	defer msrv.Close()

	log.Info("settlement-worker started", zap.String("subject", subject), zap.String("durable", cfg.DurableSettlements))
	<-ctx.Done()

	// para de receber e deixa as mensagens em voo terminarem
	if err := sub.Drain(); err != nil {
		log.Warn("nats drain failed", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
