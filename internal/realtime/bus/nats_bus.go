package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime"
)

type natsBus struct {
	log  *logger.Logger
	conn *nats.Conn
}

func NewNATSBus(url string, log *logger.Logger) (Bus, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("missing NATS_URL")
	}
	conn, err := nats.Connect(url,
		nats.Name("ferag-status"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &natsBus{log: log.With("service", "NATSStatusBus"), conn: conn}, nil
}

func subject(taskID uint) string { return fmt.Sprintf("task.%d", taskID) }

func (b *natsBus) Publish(_ context.Context, taskID uint, ev realtime.StatusEvent) error {
	raw, err := encode(taskID, ev)
	if err != nil {
		return err
	}
	return b.conn.Publish(subject(taskID), raw)
}

func (b *natsBus) Subscribe(ctx context.Context, taskID uint) (<-chan realtime.StatusEvent, func(), error) {
	in := make(chan *nats.Msg, 16)
	sub, err := b.conn.ChanSubscribe(subject(taskID), in)
	if err != nil {
		return nil, nil, fmt.Errorf("nats subscribe: %w", err)
	}
	// Make sure the server registered the interest before returning.
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("nats flush: %w", err)
	}

	out := make(chan realtime.StatusEvent, 16)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case m := <-in:
				ev, err := decode(taskID, m.Data)
				if err != nil {
					b.log.Warn("bad nats status payload", "subject", m.Subject, "error", err)
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

func (b *natsBus) Close() error {
	if b.conn != nil {
		b.conn.Close()
	}
	return nil
}
