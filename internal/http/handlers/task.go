package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ferag-backend/internal/http/response"
	"github.com/yungbote/ferag-backend/internal/services"
)

type TaskHandler struct {
	tasks services.TaskService
}

func NewTaskHandler(tasks services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), callerID(c), taskID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, task)
}

// GET /api/rags/:id/tasks?skip=0&limit=20
func (h *TaskHandler) ListForRag(c *gin.Context) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	page, err := h.tasks.ListByRag(c.Request.Context(), callerID(c), ragID,
		intQuery(c, "skip", 0),
		intQuery(c, "limit", services.DefaultTaskPageSize),
	)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}
