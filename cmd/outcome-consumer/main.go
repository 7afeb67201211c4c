package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	"github.com/radieske/bet-settler/internal/outcome-consumer/consumer"
	"github.com/radieske/bet-settler/internal/outcome-consumer/matcher"
	"github.com/radieske/bet-settler/internal/outcome-consumer/relay"
	"github.com/radieske/bet-settler/internal/settlement/pubsub"
	"github.com/radieske/bet-settler/internal/settlement/settler"
	"github.com/radieske/bet-settler/internal/shared/cache"
	"github.com/radieske/bet-settler/internal/shared/config"
	"github.com/radieske/bet-settler/internal/shared/db"
	"github.com/radieske/bet-settler/internal/shared/kafka"
	"github.com/radieske/bet-settler/internal/shared/logger"
	"github.com/radieske/bet-settler/internal/shared/metrics"
	"github.com/radieske/bet-settler/internal/shared/nats"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "outcome-consumer"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
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

	bets := repo.NewPostgres(pg)
	health := []metrics.HealthFunc{
		func(ctx context.Context) error { return pg.PingContext(ctx) },
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	// Estratégia de relay escolhida uma única vez
	var rel relay.Relay
	if cfg.SettlementBrokerEnabled {
		nc, js, err := nats.Connect(cfg.NATSURL, cfg.ServiceName, log)
		if err != nil {
			log.Fatal("nats connect", zap.Error(err))
		}
		defer nc.Drain()
		if err := nats.EnsureStream(js, cfg.StreamSettlements, []string{cfg.SubjectSettlements + ".*"}); err != nil {
			log.Fatal("nats stream", zap.Error(err))
		}
		rel = relay.NewNATS(js, cfg.SubjectSettlements, cfg.SettlementSendTimeout, log)
		health = append(health, natsHealth(nc))
		log.Info("settlement relay: nats jetstream", zap.String("stream", cfg.StreamSettlements))
	} else {
		s := settler.New(bets, log, settler.WithNotifier(pubsub.NewRedisBroadcaster(redisClient, cfg.ChannelBetSettled)))
		rel = relay.NewDirect(s)
		log.Info("settlement relay: direct")
	}

	brokers := kafka.Brokers(cfg.KafkaBrokers)
	if cfg.KafkaAutoCreateTopics {
		tctx, tcancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopics(tctx, brokers, 3, cfg.TopicEventOutcomes, cfg.TopicEventOutcomesDLQ); err != nil {
			log.Warn("failed to ensure kafka topics", zap.Error(err))
		}
		tcancel()
	}

	// Consumer group com commit manual
	reader := kafka.NewGroupReader(brokers, cfg.TopicEventOutcomes, cfg.GroupOutcomes)
	defer reader.Close()

	dlq := kafka.NewKeyedWriter(brokers, cfg.TopicEventOutcomesDLQ, cfg.KafkaWriteTimeout, false, nil)
	defer dlq.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "outcome_consumer_messages_consumed_total", Help: "mensagens consumidas"})
	matched := prometheus.NewCounter(prometheus.CounterOpts{Name: "outcome_consumer_bets_matched_total", Help: "apostas avaliadas"})
	sent := prometheus.NewCounter(prometheus.CounterOpts{Name: "outcome_consumer_settlements_sent_total", Help: "decisões entregues ao relay"})
	sendFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "outcome_consumer_settlements_failed_total", Help: "decisões que falharam no relay"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "outcome_consumer_results_total", Help: "decisões de ack por tipo"}, []string{"result"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "outcome_consumer_dead_lettered_total", Help: "mensagens enviadas à DLQ"}, []string{"reason"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "outcome_consumer_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, matched, sent, sendFailed, results, deadLettered, errorsBy)

	proc := &consumer.Processor{
		Log:               log,
		Reader:            reader,
		Matcher:           matcher.New(bets, log),
		Relay:             rel,
		Cache:             cache.NewOutcomeCache(redisClient, cfg.OutcomeCacheTTL),
		DLQ:               dlq,
		MaxRedeliveries:   cfg.OutcomeMaxRedeliveries,
		RedeliveryBackoff: cfg.OutcomeRedeliveryBackoff,

		OnConsumed:     consumed.Inc,
		OnMatched:      func(n int) { matched.Add(float64(n)) },
		OnSent:         sent.Inc,
		OnSendFailed:   sendFailed.Inc,
		OnResult:       func(r consumer.Result) { results.WithLabelValues(r.String()).Inc() },
		OnDeadLettered: func(reason string) { deadLettered.WithLabelValues(reason).Inc() },
		OnError:        func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Combine(health...))
	defer msrv.Close()

	log.Info("outcome-consumer started",
		zap.String("topic", cfg.TopicEventOutcomes),
		zap.String("group", cfg.GroupOutcomes),
		zap.Bool("broker_relay", cfg.SettlementBrokerEnabled),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("outcome-consumer stopped")
}

func natsHealth(nc *natsgo.Conn) metrics.HealthFunc {
	return func(context.Context) error {
		if !nc.IsConnected() {
			return fmt.Errorf("nats not connected: %s", nc.Status())
		}
		return nil
	}
}
