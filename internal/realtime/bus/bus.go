// Package bus moves status events between processes. The API server
// subscribes and the worker publishes; any implementation works for both.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/ferag-backend/internal/config"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, taskID uint, ev realtime.StatusEvent) error
	// Subscribe returns a receiver of the task's events and a cancel func
	// that releases it. Events published before Subscribe returns are lost.
	Subscribe(ctx context.Context, taskID uint) (<-chan realtime.StatusEvent, func(), error)
	Close() error
}

// New builds the bus selected by cfg.StatusBus.
func New(cfg config.Config, log *logger.Logger) (Bus, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StatusBus)) {
	case config.BusRedis, "":
		return NewRedisBus(cfg.RedisAddr, cfg.RedisPassword, log)
	case config.BusNATS:
		return NewNATSBus(cfg.NATSURL, log)
	case config.BusMemory:
		return NewMemoryBus(log), nil
	default:
		return nil, fmt.Errorf("unknown status bus %q", cfg.StatusBus)
	}
}

func encode(taskID uint, ev realtime.StatusEvent) ([]byte, error) {
	ev.TaskID = taskID
	return json.Marshal(ev)
}

func decode(taskID uint, raw []byte) (realtime.StatusEvent, error) {
	var ev realtime.StatusEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, err
	}
	ev.TaskID = taskID
	return ev, nil
}
