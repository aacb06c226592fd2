package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"navo-system/internal/database/models"
	"navo-system/internal/gateway/middleware"
	audit "navo-system/internal/services/audit/handler"
	rules "navo-system/internal/services/rules/handler"
)

type SettingsHTTPHandler struct {
	rules *rules.RulesHandler
}

func NewSettingsHTTPHandler(rulesHandler *rules.RulesHandler) *SettingsHTTPHandler {
	return &SettingsHTTPHandler{rules: rulesHandler}
}

func requireActor(c *gin.Context) (audit.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing actor identity"))
	}
	return actor, ok
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+name))
		return 0, false
	}
	return id, true
}

// --- Driver rules ---

func (h *SettingsHTTPHandler) GetDriverRules(c *gin.Context) {
	cfg, err := h.rules.GetDriverRules(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Driver rules retrieved", cfg))
}

func (h *SettingsHTTPHandler) UpdateDriverRules(c *gin.Context) {
	var patch rules.DriverRulesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid rule config payload"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	cfg, err := h.rules.UpdateDriverRules(c.Request.Context(), patch, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Driver rules updated", cfg))
}

// --- Commission settings ---

func (h *SettingsHTTPHandler) GetCommissionSettings(c *gin.Context) {
	settings, err := h.rules.GetCommissionSettings(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Commission settings retrieved", settings))
}

func (h *SettingsHTTPHandler) UpdateCommissionSettings(c *gin.Context) {
	var patch rules.CommissionSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid settings payload"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	settings, err := h.rules.UpdateCommissionSettings(c.Request.Context(), patch, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Commission settings updated", settings))
}

// --- Commission rules ---

type CommissionRuleRequest struct {
	Name           string  `json:"name" binding:"required"`
	ConditionType  string  `json:"condition_type" binding:"required"`
	ConditionValue string  `json:"condition_value" binding:"required"`
	CommissionRate float64 `json:"commission_rate"`
	Priority       int     `json:"priority"`
	IsActive       *bool   `json:"is_active"`
}

func (r CommissionRuleRequest) toModel() models.CommissionRule {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return models.CommissionRule{
		Name:           r.Name,
		ConditionType:  r.ConditionType,
		ConditionValue: r.ConditionValue,
		CommissionRate: r.CommissionRate,
		Priority:       r.Priority,
		IsActive:       active,
	}
}

func (h *SettingsHTTPHandler) ListCommissionRules(c *gin.Context) {
	list, err := h.rules.ListCommissionRules(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Commission rules retrieved", list))
}

func (h *SettingsHTTPHandler) CreateCommissionRule(c *gin.Context) {
	var req CommissionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid commission rule payload"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	rule, err := h.rules.CreateCommissionRule(c.Request.Context(), req.toModel(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Commission rule created", rule))
}

func (h *SettingsHTTPHandler) UpdateCommissionRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CommissionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid commission rule payload"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	rule, err := h.rules.UpdateCommissionRule(c.Request.Context(), id, req.toModel(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Commission rule updated", rule))
}

type ToggleRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (h *SettingsHTTPHandler) ToggleCommissionRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		c.JSON(http.StatusBadRequest, errorResponse("is_active is required"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	rule, err := h.rules.SetCommissionRuleActive(c.Request.Context(), id, *req.IsActive, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Commission rule toggled", rule))
}

func (h *SettingsHTTPHandler) DeleteCommissionRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.rules.DeleteCommissionRule(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Commission rule deleted", nil))
}

// --- Driver overrides ---

type OverrideRequest struct {
	CommissionRate float64 `json:"commission_rate"`
}

func (h *SettingsHTTPHandler) GetOverride(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	override, err := h.rules.GetOverride(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Override retrieved", override))
}

func (h *SettingsHTTPHandler) SetOverride(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid override payload"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	override, err := h.rules.SetOverride(c.Request.Context(), id, req.CommissionRate, actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Override set", override))
}

func (h *SettingsHTTPHandler) ResetOverride(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.rules.ResetOverride(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Override reset", nil))
}

// --- Automation rules ---

type AutomationRuleRequest struct {
	EventType        string `json:"event_type" binding:"required"`
	ConditionValue   string `json:"condition_value"`
	NotificationType string `json:"notification_type" binding:"required"`
	RecipientType    string `json:"recipient_type" binding:"required"`
	CooldownMinutes  int    `json:"cooldown_minutes"`
	IsActive         *bool  `json:"is_active"`
}

func (r AutomationRuleRequest) toModel() models.AutomationRule {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return models.AutomationRule{
		EventType:        r.EventType,
		ConditionValue:   r.ConditionValue,
		NotificationType: r.NotificationType,
		RecipientType:    r.RecipientType,
		CooldownMinutes:  r.CooldownMinutes,
		IsActive:         active,
	}
}

func (h *SettingsHTTPHandler) ListAutomationRules(c *gin.Context) {
	list, err := h.rules.ListAutomationRules(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Automation rules retrieved", list))
}

func (h *SettingsHTTPHandler) CreateAutomationRule(c *gin.Context) {
	var req AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid automation rule payload"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	rule, err := h.rules.CreateAutomationRule(c.Request.Context(), req.toModel(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Automation rule created", rule))
}

func (h *SettingsHTTPHandler) UpdateAutomationRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid automation rule payload"))
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	rule, err := h.rules.UpdateAutomationRule(c.Request.Context(), id, req.toModel(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Automation rule updated", rule))
}

func (h *SettingsHTTPHandler) DeleteAutomationRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.rules.DeleteAutomationRule(c.Request.Context(), id, actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Automation rule deleted", nil))
}
