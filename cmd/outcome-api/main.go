package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	httpapi "github.com/radieske/bet-settler/internal/outcome-api/http"
	"github.com/radieske/bet-settler/internal/outcome-api/producer"
	"github.com/radieske/bet-settler/internal/outcome-api/ws"
	"github.com/radieske/bet-settler/internal/shared/cache"
	"github.com/radieske/bet-settler/internal/shared/config"
	"github.com/radieske/bet-settler/internal/shared/db"
	"github.com/radieske/bet-settler/internal/shared/kafka"
	"github.com/radieske/bet-settler/internal/shared/logger"
	"github.com/radieske/bet-settler/internal/shared/metrics"
)

const version = "1.0.0"

func main() {
	// carrega config
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "outcome-api"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// conecta com db Postgres (consultas de apostas)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	bets := repo.NewPostgres(pg)

	// Redis: cache de resultados + pub/sub de liquidações
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	brokers := kafka.Brokers(cfg.KafkaBrokers)
	if cfg.KafkaAutoCreateTopics {
		tctx, tcancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopics(tctx, brokers, 3, cfg.TopicEventOutcomes, cfg.TopicEventOutcomesDLQ); err != nil {
			log.Warn("failed to ensure kafka topics", zap.Error(err))
		}
		tcancel()
	}

	// Métricas Prometheus
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "outcome_api_publish_requests_total", Help: "requisições de publicação por status HTTP"}, []string{"status"})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{Name: "outcome_api_outcomes_delivered_total", Help: "resultados confirmados pelo Kafka"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "outcome_api_outcomes_failed_total", Help: "resultados não entregues ao Kafka"})
	prometheus.MustRegister(requests, delivered, failed)

	// writer assíncrono: confirmação diferida via Completion
	writer := kafka.NewKeyedWriter(brokers, cfg.TopicEventOutcomes, cfg.KafkaWriteTimeout, true,
		producer.CompletionLogger(log, delivered.Inc, failed.Inc))
	pub := producer.NewKafkaPublisher(writer, cfg.TopicEventOutcomes, log)
	defer pub.Close() // Close faz flush das mensagens pendentes

	hub := ws.NewHub(allowOrigin(cfg.CORSAllowedOrigins), log)
	ws.StartRedisSubscriber(ctx, redisClient, cfg.ChannelBetSettled, hub, log)

	api := &httpapi.API{
		Log:       log,
		Publisher: pub,
		Outcomes:  cache.NewOutcomeCache(redisClient, cfg.OutcomeCacheTTL),
		Bets:      bets,
		WS:        hub,
		Origins:   origins(cfg.CORSAllowedOrigins),
		Version:   version,
		OnPublished: func(status int) {
			requests.WithLabelValues(strconv.Itoa(status)).Inc()
		},
	}

	// sobe servidor de métricas e health
	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Combine(
		func(ctx context.Context) error { return pg.PingContext(ctx) },
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = msrv.Shutdown(shutdownCtx)
	log.Info("outcome-api stopped")
}

// origins converte "a,b" em lista; vazio => qualquer origem
func origins(csv string) []string {
	var out []string
	for _, o := range strings.Split(csv, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func allowOrigin(csv string) func(r *http.Request) bool {
	allowed := origins(csv)
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		o := r.Header.Get("Origin")
		for _, a := range allowed {
			if a == "*" || a == o {
				return true
			}
		}
		return false
	}
}
