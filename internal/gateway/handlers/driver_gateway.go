package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"navo-system/internal/gateway/middleware"
	lifecycle "navo-system/internal/services/lifecycle/handler"
)

type DriverHTTPHandler struct {
	lifecycle *lifecycle.LifecycleHandler
}

func NewDriverHTTPHandler(lifecycleHandler *lifecycle.LifecycleHandler) *DriverHTTPHandler {
	return &DriverHTTPHandler{lifecycle: lifecycleHandler}
}

type ListDriversQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Status   string `form:"status"`
}

type TransitionRequest struct {
	Action          string `json:"action" binding:"required"`
	Reason          string `json:"reason"`
	Notes           string `json:"notes"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type BulkTransitionRequest struct {
	DriverIDs []int64 `json:"driver_ids" binding:"required"`
	Action    string  `json:"action" binding:"required"`
	Reason    string  `json:"reason"`
}

// Rating is a pointer so a payload carrying the valid zero value is not
// rejected by the required binding.
type RatingUpdateRequest struct {
	Rating *float64 `json:"rating" binding:"required"`
}

func driverID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid driver id"))
		return 0, false
	}
	return id, true
}

func (h *DriverHTTPHandler) ListDrivers(c *gin.Context) {
	var query ListDriversQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	drivers, totalCount, err := h.lifecycle.ListDrivers(c.Request.Context(), query.Status, query.Page, query.PageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Drivers retrieved", drivers, paginationMeta{
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalCount: totalCount,
	}))
}

func (h *DriverHTTPHandler) GetDriver(c *gin.Context) {
	id, ok := driverID(c)
	if !ok {
		return
	}

	driver, err := h.lifecycle.GetDriver(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Driver retrieved", driver))
}

func (h *DriverHTTPHandler) Transition(c *gin.Context) {
	id, ok := driverID(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Action is required"))
		return
	}
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing actor identity"))
		return
	}

	driver, err := h.lifecycle.Transition(c.Request.Context(), lifecycle.TransitionRequest{
		DriverID:        id,
		Action:          lifecycle.Action(req.Action),
		Reason:          req.Reason,
		Notes:           req.Notes,
		Actor:           actor,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Driver "+driver.Status, driver))
}

func (h *DriverHTTPHandler) BulkTransition(c *gin.Context) {
	var req BulkTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Driver IDs and action are required"))
		return
	}
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing actor identity"))
		return
	}

	result, err := h.lifecycle.BulkTransition(c.Request.Context(), req.DriverIDs, lifecycle.Action(req.Action), req.Reason, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Bulk transition processed", result))
}

func (h *DriverHTTPHandler) UpdateRating(c *gin.Context) {
	id, ok := driverID(c)
	if !ok {
		return
	}
	var req RatingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Rating is required"))
		return
	}

	driver, err := h.lifecycle.ApplyRatingUpdate(c.Request.Context(), id, *req.Rating)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Rating updated", driver))
}

func (h *DriverHTTPHandler) RegisterComplaint(c *gin.Context) {
	id, ok := driverID(c)
	if !ok {
		return
	}

	driver, err := h.lifecycle.ApplyComplaint(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Complaint registered", driver))
}

func (h *DriverHTTPHandler) CheckDevice(c *gin.Context) {
	deviceID := c.Param("device_id")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Device id is required"))
		return
	}

	blocked, err := h.lifecycle.IsDeviceBlacklisted(c.Request.Context(), deviceID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Device checked", gin.H{"device_id": deviceID, "blacklisted": blocked}))
}
