package bus

import (
	"context"

	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime"
)

type memoryBus struct {
	hub *realtime.Hub
}

// NewMemoryBus keeps events inside the process. API and worker must share it.
func NewMemoryBus(log *logger.Logger) Bus {
	return &memoryBus{hub: realtime.NewHub(log)}
}

func (b *memoryBus) Publish(_ context.Context, taskID uint, ev realtime.StatusEvent) error {
	ev.TaskID = taskID
	b.hub.Broadcast(realtime.Channel(taskID), ev)
	return nil
}

func (b *memoryBus) Subscribe(_ context.Context, taskID uint) (<-chan realtime.StatusEvent, func(), error) {
	ch, cancel := b.hub.Subscribe(realtime.Channel(taskID))
	return ch, cancel, nil
}

func (b *memoryBus) Close() error { return nil }
