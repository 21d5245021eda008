package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

const subscriberBuffer = 16

type subscriber struct {
	id  uuid.UUID
	out chan StatusEvent
}

// Hub fans events out to in-process subscribers keyed by channel name.
type Hub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*subscriber]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:        log.With("component", "StatusHub"),
		subscriptions: make(map[string]map[*subscriber]bool),
	}
}

// Subscribe registers a buffered receiver on channel. The returned cancel
// func unregisters it and closes the receiver; it is safe to call twice.
func (hub *Hub) Subscribe(channel string) (<-chan StatusEvent, func()) {
	sub := &subscriber{id: uuid.New(), out: make(chan StatusEvent, subscriberBuffer)}

	hub.mu.Lock()
	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*subscriber]bool)
		hub.subscriptions[channel] = clients
	}
	clients[sub] = true
	hub.mu.Unlock()
	hub.logger.Debug("status subscriber added", "subscriberID", sub.id, "channel", channel)

	var once sync.Once
	return sub.out, func() {
		once.Do(func() {
			hub.mu.Lock()
			defer hub.mu.Unlock()
			if subMap, ok := hub.subscriptions[channel]; ok {
				delete(subMap, sub)
				if len(subMap) == 0 {
					delete(hub.subscriptions, channel)
				}
			}
			close(sub.out)
		})
	}
}

// Broadcast delivers ev to every subscriber of channel. A subscriber with a
// full buffer misses the event.
func (hub *Hub) Broadcast(channel string, ev StatusEvent) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for s := range hub.subscriptions[channel] {
		select {
		case s.out <- ev:
		default:
			hub.logger.Warn("Dropping status event; subscriber buffer full", "subscriberID", s.id, "channel", channel)
		}
	}
}

// Subscribers returns the number of receivers on channel.
func (hub *Hub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}
