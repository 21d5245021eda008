package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ferag-backend/internal/http/response"
	"github.com/yungbote/ferag-backend/internal/services"
)

type RagHandler struct {
	rags services.RagService
}

func NewRagHandler(rags services.RagService) *RagHandler {
	return &RagHandler{rags: rags}
}

type createRagReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// POST /api/rags
func (h *RagHandler) Create(c *gin.Context) {
	var req createRagReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	inst, err := h.rags.Create(c.Request.Context(), callerID(c), req.Name, req.Description)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, inst)
}

// GET /api/rags
func (h *RagHandler) List(c *gin.Context) {
	list, err := h.rags.List(c.Request.Context(), callerID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rags": list})
}

// GET /api/rags/:id
func (h *RagHandler) Get(c *gin.Context) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	inst, err := h.rags.Get(c.Request.Context(), callerID(c), ragID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, inst)
}

// DELETE /api/rags/:id
func (h *RagHandler) Delete(c *gin.Context) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.rags.Delete(c.Request.Context(), callerID(c), ragID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addMemberReq struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

// POST /api/rags/:id/members
func (h *RagHandler) AddMember(c *gin.Context) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	member, err := h.rags.AddMember(c.Request.Context(), callerID(c), ragID, req.Email, req.Role)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, member)
}

// GET /api/rags/:id/members
func (h *RagHandler) ListMembers(c *gin.Context) {
	ragID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	members, err := h.rags.ListMembers(c.Request.Context(), callerID(c), ragID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"members": members})
}
