package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/ferag-backend/internal/http/response"
	"github.com/yungbote/ferag-backend/internal/platform/logger"
	"github.com/yungbote/ferag-backend/internal/realtime"
	"github.com/yungbote/ferag-backend/internal/services"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// RealtimeHandler streams task status events over SSE and websockets.
type RealtimeHandler struct {
	log      *logger.Logger
	tasks    services.TaskService
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(log *logger.Logger, tasks services.TaskService) *RealtimeHandler {
	return &RealtimeHandler{
		log:   log.With("handler", "RealtimeHandler"),
		tasks: tasks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers cannot send Authorization on upgrade; the token query
			// parameter is checked by the auth middleware instead.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// GET /api/tasks/:id/events
func (h *RealtimeHandler) TaskEvents(c *gin.Context) {
	taskID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	w, err := h.tasks.Watch(c.Request.Context(), callerID(c), taskID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	defer w.Cancel()
	if err := realtime.ServeSSE(c.Request.Context(), c.Writer, w.First, w.Events); err != nil {
		h.log.Debug("SSE stream ended", "task_id", taskID, "error", err)
	}
}

// GET /api/ws/tasks/:id
func (h *RealtimeHandler) TaskSocket(c *gin.Context) {
	taskID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	w, err := h.tasks.Watch(c.Request.Context(), callerID(c), taskID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	defer w.Cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "task_id", taskID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go readPump(conn, cancel)

	send := func(ev realtime.StatusEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(ev)
	}

	if w.First != nil {
		if err := send(*w.First); err == nil {
			closeSocket(conn)
		}
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-w.Events:
			if !ok {
				closeSocket(conn)
				return
			}
			if err := send(ev); err != nil {
				h.log.Debug("websocket write failed", "task_id", taskID, "error", err)
				return
			}
			if ev.Terminal() {
				closeSocket(conn)
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn, done context.CancelFunc) {
	defer done()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeSocket(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
