package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime"
)

type redisBus struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisBus(addr, password string, log *logger.Logger) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisBusFromClient(rdb, log), nil
}

// NewRedisBusFromClient wraps an existing client; Close closes it.
func NewRedisBusFromClient(rdb *goredis.Client, log *logger.Logger) Bus {
	return &redisBus{log: log.With("service", "RedisStatusBus"), rdb: rdb}
}

func (b *redisBus) Publish(ctx context.Context, taskID uint, ev realtime.StatusEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis status bus not initialized")
	}
	raw, err := encode(taskID, ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, realtime.Channel(taskID), raw).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, taskID uint) (<-chan realtime.StatusEvent, func(), error) {
	if b == nil || b.rdb == nil {
		return nil, nil, fmt.Errorf("redis status bus not initialized")
	}
	channel := realtime.Channel(taskID)
	sub := b.rdb.Subscribe(ctx, channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan realtime.StatusEvent, 16)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case m, ok := <-in:
				if !ok || m == nil {
					return
				}
				ev, err := decode(taskID, []byte(m.Payload))
				if err != nil {
					b.log.Warn("bad redis status payload", "channel", channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
