package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/ferag-backend/internal/config"
	"github.com/yungbote/ferag-backend/internal/graph/fuseki"
	"github.com/yungbote/ferag-backend/internal/lifecycle"
	"github.com/yungbote/ferag-backend/internal/platform/llm"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime/bus"
	"github.com/yungbote/ferag-backend/internal/temporalx"
)

type Clients struct {
	Fuseki   *fuseki.Client
	Datasets *lifecycle.Manager
	LLM      *llm.Client
	Bus      bus.Bus
	// Redis is set when the status bus runs over redis.
	Redis    *goredis.Client
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, cfg config.Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Fuseki
	store, err := fuseki.New(fuseki.Config{
		BaseURL:      cfg.Fuseki.URL,
		User:         cfg.Fuseki.User,
		Password:     cfg.Fuseki.Password,
		AdminTimeout: cfg.Fuseki.AdminTimeout,
		QueryTimeout: cfg.Fuseki.QueryTimeout,
		LoadTimeout:  cfg.Fuseki.LoadTimeout,
	}, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init fuseki client: %w", err)
	}
	out.Fuseki = store
	out.Datasets = lifecycle.New(store, log)

	// LLM
	completer, err := llm.New(llm.Config{BaseURL: cfg.LLM.APIURL, APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model}, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init llm client: %w", err)
	}
	out.LLM = completer

	// Status bus
	if strings.EqualFold(cfg.StatusBus, config.BusRedis) {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis status bus: %w", err)
		}
		out.Redis = rdb
		out.Bus = bus.NewRedisBusFromClient(rdb, log)
	} else {
		b, err := bus.New(cfg, log)
		if err != nil {
			return Clients{}, fmt.Errorf("init status bus: %w", err)
		}
		out.Bus = b
	}

	// Temporal (nil when TEMPORAL_ADDRESS is unset)
	tc, err := temporalx.NewClient(ctx, cfg.Temporal, log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	out.Temporal = tc
	return out, nil
}

func (c Clients) Close() {
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
}
