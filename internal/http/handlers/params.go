package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ferag-backend/internal/http/response"
	"github.com/yungbote/ferag-backend/internal/platform/ctxutil"
)

// uintParam parses a positive path parameter, answering 400 when it is not.
func uintParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, fmt.Errorf("invalid %s %q", name, raw))
		return 0, false
	}
	return uint(n), true
}

func intQuery(c *gin.Context, name string, def int) int {
	if v := strings.TrimSpace(c.Query(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func callerID(c *gin.Context) uint {
	return ctxutil.UserID(c.Request.Context())
}
