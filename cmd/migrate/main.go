package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/shared/config"
	"github.com/radieske/bet-settler/internal/shared/db"
	"github.com/radieske/bet-settler/internal/shared/logger"
)

// uso: migrate up | migrate down N | migrate status
func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate up | down N | status")
	}
	flag.Parse()

	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "migrate"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "up":
		v, err := db.MigrateUp(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("migrate up failed", zap.Error(err))
		}
		log.Info("migrations applied", zap.Uint("version", v))
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				log.Fatal("invalid step count", zap.String("arg", args[1]))
			}
			steps = n
		}
		if err := db.MigrateDown(cfg.PostgresDSN, steps); err != nil {
			log.Fatal("migrate down failed", zap.Error(err))
		}
		log.Info("migrations rolled back", zap.Int("steps", steps))
	case "status":
		v, dirty, err := db.MigrateStatus(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("migrate status failed", zap.Error(err))
		}
		log.Info("migration status", zap.Uint("version", v), zap.Bool("dirty", dirty))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
