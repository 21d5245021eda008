package bus

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats-server/v2/server"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ferag-backend/internal/config"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime"
)

func recv(t *testing.T, ch <-chan realtime.StatusEvent) realtime.StatusEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for status event")
	}
	return realtime.StatusEvent{}
}

func exerciseBus(t *testing.T, b Bus) {
	t.Helper()
	ctx := context.Background()

	ch, cancel, err := b.Subscribe(ctx, 42)
	require.NoError(t, err)
	other, cancelOther, err := b.Subscribe(ctx, 43)
	require.NoError(t, err)
	defer cancelOther()

	require.NoError(t, b.Publish(ctx, 42, realtime.Running(42, "graphrag")))
	require.NoError(t, b.Publish(ctx, 43, realtime.Running(43, "merge")))
	require.NoError(t, b.Publish(ctx, 42, realtime.Done(42)))

	first := recv(t, ch)
	assert.Equal(t, uint(42), first.TaskID)
	assert.Equal(t, realtime.StatusRunning, first.Status)
	assert.Equal(t, "graphrag", first.Step)
	assert.Equal(t, realtime.StatusDone, recv(t, ch).Status)

	assert.Equal(t, "merge", recv(t, other).Step)

	cancel()
	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryBus(t *testing.T) {
	b := NewMemoryBus(logger.Nop())
	defer b.Close()
	exerciseBus(t, b)
}

func TestRedisBus(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBus(mr.Addr(), "", logger.Nop())
	require.NoError(t, err)
	defer b.Close()
	exerciseBus(t, b)
}

func TestRedisBusDropsBadPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	b := NewRedisBusFromClient(rdb, logger.Nop())
	defer b.Close()

	ctx := context.Background()
	ch, cancel, err := b.Subscribe(ctx, 5)
	require.NoError(t, err)
	defer cancel()

	mr.Publish("task:5", "not json")
	require.NoError(t, b.Publish(ctx, 5, realtime.Done(5)))
	assert.Equal(t, realtime.StatusDone, recv(t, ch).Status)
}

func TestRedisBusUnreachable(t *testing.T) {
	_, err := NewRedisBus("127.0.0.1:1", "", logger.Nop())
	assert.Error(t, err)
	_, err = NewRedisBus("", "", logger.Nop())
	assert.Error(t, err)
}

func TestNATSBus(t *testing.T) {
	ns, err := server.NewServer(&server.Options{Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	t.Cleanup(ns.Shutdown)
	require.True(t, ns.ReadyForConnections(5*time.Second))

	b, err := NewNATSBus(ns.ClientURL(), logger.Nop())
	require.NoError(t, err)
	defer b.Close()
	exerciseBus(t, b)
}

func TestNewSelectsImplementation(t *testing.T) {
	b, err := New(config.Config{StatusBus: config.BusMemory}, logger.Nop())
	require.NoError(t, err)
	_, ok := b.(*memoryBus)
	assert.True(t, ok)

	_, err = New(config.Config{StatusBus: "carrier-pigeon"}, logger.Nop())
	assert.Error(t, err)
}
