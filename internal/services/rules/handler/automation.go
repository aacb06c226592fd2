package handler

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
	audit "navo-system/internal/services/audit/handler"
)

func ValidateAutomationRule(rule models.AutomationRule) error {
	if rule.EventType == "" {
		return apperrors.Validation("event_type", "must not be empty")
	}
	if rule.NotificationType == "" {
		return apperrors.Validation("notification_type", "must not be empty")
	}
	if rule.RecipientType == "" {
		return apperrors.Validation("recipient_type", "must not be empty")
	}
	if rule.CooldownMinutes < 0 {
		return apperrors.Validation("cooldown_minutes", "must not be negative")
	}
	return nil
}

func (h *RulesHandler) ListAutomationRules(ctx context.Context) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	if err := h.db.WithContext(ctx).Order("created_at desc").Find(&rules).Error; err != nil {
		return nil, apperrors.Storage("automation rules list", err)
	}
	return rules, nil
}

func (h *RulesHandler) CreateAutomationRule(ctx context.Context, rule models.AutomationRule, actor audit.Actor) (models.AutomationRule, error) {
	if err := ValidateAutomationRule(rule); err != nil {
		return models.AutomationRule{}, err
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rule).Error; err != nil {
			return apperrors.Storage("automation rule create", err)
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "automation_rule_created",
			Actor:      actor,
			TargetType: "automation_rule",
			TargetID:   strconv.FormatInt(rule.ID, 10),
			Severity:   models.SeverityInfo,
			Metadata: map[string]interface{}{
				"event_type":        rule.EventType,
				"notification_type": rule.NotificationType,
				"recipient_type":    rule.RecipientType,
				"cooldown_minutes":  rule.CooldownMinutes,
			},
		})
		return err
	})
	if err != nil {
		return models.AutomationRule{}, err
	}

	h.realtime.Publish(ctx, "automation_rules", "created", strconv.FormatInt(rule.ID, 10))
	return rule, nil
}

func (h *RulesHandler) UpdateAutomationRule(ctx context.Context, ruleID int64, updated models.AutomationRule, actor audit.Actor) (models.AutomationRule, error) {
	var rule models.AutomationRule
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, ruleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("automation rule", strconv.FormatInt(ruleID, 10))
			}
			return apperrors.Storage("automation rule lookup", err)
		}

		rule.EventType = updated.EventType
		rule.ConditionValue = updated.ConditionValue
		rule.NotificationType = updated.NotificationType
		rule.RecipientType = updated.RecipientType
		rule.CooldownMinutes = updated.CooldownMinutes
		rule.IsActive = updated.IsActive
		if err := ValidateAutomationRule(rule); err != nil {
			return err
		}
		if err := tx.Save(&rule).Error; err != nil {
			return apperrors.Storage("automation rule update", err)
		}

		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "automation_rule_updated",
			Actor:      actor,
			TargetType: "automation_rule",
			TargetID:   strconv.FormatInt(rule.ID, 10),
			Severity:   models.SeverityInfo,
			Metadata: map[string]interface{}{
				"event_type": rule.EventType,
				"is_active":  rule.IsActive,
			},
		})
		return err
	})
	if err != nil {
		return models.AutomationRule{}, err
	}

	h.realtime.Publish(ctx, "automation_rules", "updated", strconv.FormatInt(rule.ID, 10))
	return rule, nil
}

func (h *RulesHandler) DeleteAutomationRule(ctx context.Context, ruleID int64, actor audit.Actor) error {
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rule models.AutomationRule
		if err := tx.First(&rule, ruleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("automation rule", strconv.FormatInt(ruleID, 10))
			}
			return apperrors.Storage("automation rule lookup", err)
		}
		if err := tx.Delete(&rule).Error; err != nil {
			return apperrors.Storage("automation rule delete", err)
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "automation_rule_deleted",
			Actor:      actor,
			TargetType: "automation_rule",
			TargetID:   strconv.FormatInt(ruleID, 10),
			Severity:   models.SeverityWarning,
			Metadata:   map[string]interface{}{"event_type": rule.EventType},
		})
		return err
	})
	if err != nil {
		return err
	}

	h.realtime.Publish(ctx, "automation_rules", "deleted", strconv.FormatInt(ruleID, 10))
	return nil
}
