package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	lifecycle "navo-system/internal/services/lifecycle/handler"
)

type SecurityHTTPHandler struct {
	lifecycle *lifecycle.LifecycleHandler
}

func NewSecurityHTTPHandler(lifecycleHandler *lifecycle.LifecycleHandler) *SecurityHTTPHandler {
	return &SecurityHTTPHandler{lifecycle: lifecycleHandler}
}

type BlockIPRequest struct {
	IP     string `json:"ip" binding:"required"`
	Reason string `json:"reason"`
}

func (h *SecurityHTTPHandler) ListBlockedIPs(c *gin.Context) {
	blocked, err := h.lifecycle.ListBlockedIPs(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Blocked IPs retrieved", blocked))
}

func (h *SecurityHTTPHandler) BlockIP(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req BlockIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("ip is required"))
		return
	}
	if err := h.lifecycle.BlockIP(c.Request.Context(), req.IP, req.Reason, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("IP blocked", gin.H{"ip": req.IP}))
}

func (h *SecurityHTTPHandler) UnblockIP(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	ip := c.Param("ip")
	if err := h.lifecycle.UnblockIP(c.Request.Context(), ip, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("IP unblocked", gin.H{"ip": ip}))
}

// IPGuard rejects requests from blocked addresses. Applied to the public
// auth routes; authenticated routes are already behind a valid token.
func (h *SecurityHTTPHandler) IPGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		blocked, err := h.lifecycle.IsIPBlocked(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Fail open: an unreachable database must not lock admins out.
			log.Printf("ip block check failed for %s: %v", c.ClientIP(), err)
			c.Next()
			return
		}
		if blocked {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse("Access denied"))
			return
		}
		c.Next()
	}
}
