package handlers

import (
	"context"
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/ferag-backend/internal/domain"
	"github.com/yungbote/ferag-backend/internal/http/response"
	"github.com/yungbote/ferag-backend/internal/services"
)

const maxUploadBytes = 64 << 20

var uploadTypes = map[string]bool{
	"text/plain":               true,
	"application/octet-stream": true,
}

type CycleHandler struct {
	cycles services.CycleService
}

func NewCycleHandler(cycles services.CycleService) *CycleHandler {
	return &CycleHandler{cycles: cycles}
}

// POST /api/rags/:id/upload (multipart field "file")
func (h *CycleHandler) Upload(c *gin.Context) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field \"file\" is required: %w", err))
		return
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil || !uploadTypes[mt] {
		response.RespondError(c, http.StatusBadRequest, "unsupported_file_type", fmt.Errorf("unsupported content type %q; upload text/plain", ct))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	res, err := h.cycles.Upload(c.Request.Context(), callerID(c), ragID, f)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

// GET /api/rags/:id/cycles
func (h *CycleHandler) List(c *gin.Context) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	cycles, err := h.cycles.List(c.Request.Context(), callerID(c), ragID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cycles": cycles})
}

// POST /api/rags/:id/cycles/:cycle_id/approve
func (h *CycleHandler) Approve(c *gin.Context) {
	h.decide(c, h.cycles.Approve)
}

// POST /api/rags/:id/cycles/:cycle_id/reject
func (h *CycleHandler) Reject(c *gin.Context) {
	h.decide(c, h.cycles.Reject)
}

type decideFunc func(ctx context.Context, userID, ragID, cycleID uint) (*types.UploadCycle, error)

func (h *CycleHandler) decide(c *gin.Context, fn decideFunc) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	cycleID, ok := uintParam(c, "cycle_id")
	if !ok {
		return
	}
	cycle, err := fn(c.Request.Context(), callerID(c), ragID, cycleID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, cycle)
}
