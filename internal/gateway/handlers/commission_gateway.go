package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	commission "navo-system/internal/services/commission/handler"
)

type CommissionHTTPHandler struct {
	commission *commission.CommissionHandler
}

func NewCommissionHTTPHandler(commissionHandler *commission.CommissionHandler) *CommissionHTTPHandler {
	return &CommissionHTTPHandler{commission: commissionHandler}
}

type ResolveRateQuery struct {
	DriverID    int64  `form:"driver_id" binding:"required"`
	VehicleType string `form:"vehicle_type"`
	At          string `form:"at"`
}

func (h *CommissionHTTPHandler) ResolveRate(c *gin.Context) {
	var query ResolveRateQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("driver_id is required"))
		return
	}

	rideCtx := commission.RideContext{VehicleType: query.VehicleType}
	if query.At != "" {
		at, err := time.Parse(time.RFC3339, query.At)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("at must be RFC3339"))
			return
		}
		rideCtx.At = at
	}

	rate, err := h.commission.ResolveRate(c.Request.Context(), query.DriverID, rideCtx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Rate resolved", gin.H{
		"driver_id": query.DriverID,
		"rate":      rate,
	}))
}

type BreakdownRequest struct {
	Amount        string  `json:"amount" binding:"required"`
	Rate          float64 `json:"rate"`
	TaxRate       float64 `json:"tax_rate"`
	ProcessingFee string  `json:"processing_fee"`
}

func (h *CommissionHTTPHandler) CalculateBreakdown(c *gin.Context) {
	var req BreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Amount is required"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Amount is not a valid number"))
		return
	}
	fee := decimal.Zero
	if req.ProcessingFee != "" {
		fee, err = decimal.NewFromString(req.ProcessingFee)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Processing fee is not a valid number"))
			return
		}
	}

	breakdown := commission.CalculateBreakdown(amount, decimal.NewFromFloat(req.Rate), decimal.NewFromFloat(req.TaxRate), fee)
	c.JSON(http.StatusOK, successResponse("Breakdown calculated", breakdown))
}

type ProcessRideRequest struct {
	DriverID    int64  `json:"driver_id" binding:"required"`
	RideID      string `json:"ride_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	VehicleType string `json:"vehicle_type"`
}

func (h *CommissionHTTPHandler) ProcessRide(c *gin.Context) {
	var req ProcessRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("driver_id, ride_id and amount are required"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Amount is not a valid number"))
		return
	}

	breakdown, err := h.commission.ProcessRide(c.Request.Context(), req.DriverID, req.RideID, amount,
		commission.RideContext{VehicleType: req.VehicleType}, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Ride processed", breakdown))
}
