package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const heartbeatInterval = 15 * time.Second

// ServeSSE writes first (when set) and then every event of ch as a
// server-sent event until a terminal event, ch closing or ctx ending.
func ServeSSE(ctx context.Context, w http.ResponseWriter, first *StatusEvent, ch <-chan StatusEvent) error {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}
	write := func(ev StatusEvent) error {
		raw, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", raw); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if first != nil {
		if err := write(*first); err != nil {
			return err
		}
		if first.Terminal() {
			return nil
		}
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := write(ev); err != nil {
				return err
			}
			if ev.Terminal() {
				return nil
			}
		}
	}
}
