package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
	audit "navo-system/internal/services/audit/handler"
	commission "navo-system/internal/services/commission/handler"
)

// ValidateCommissionRule checks name, rate bounds and that the condition
// value parses for its condition type.
func ValidateCommissionRule(rule models.CommissionRule) error {
	if rule.Name == "" {
		return apperrors.Validation("name", "must not be empty")
	}
	if rule.CommissionRate < 0 || rule.CommissionRate > 100 {
		return apperrors.Validation("commission_rate", "must be between 0 and 100")
	}
	switch rule.ConditionType {
	case models.ConditionRideCount:
		if _, err := strconv.Atoi(rule.ConditionValue); err != nil {
			return apperrors.Validation("condition_value", "must be an integer for ride_count rules")
		}
	case models.ConditionTotalEarnings:
		if _, err := decimal.NewFromString(rule.ConditionValue); err != nil {
			return apperrors.Validation("condition_value", "must be an amount for total_earnings rules")
		}
	case models.ConditionRating:
		value, err := strconv.ParseFloat(rule.ConditionValue, 64)
		if err != nil || value < 0 || value > 5 {
			return apperrors.Validation("condition_value", "must be a rating between 0 and 5")
		}
	case models.ConditionVehicleType:
		if rule.ConditionValue == "" {
			return apperrors.Validation("condition_value", "must name a vehicle type")
		}
	default:
		return apperrors.Validation("condition_type", "unknown condition type "+rule.ConditionType)
	}
	return nil
}

func (h *RulesHandler) ListCommissionRules(ctx context.Context) ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := h.db.WithContext(ctx).Order("priority desc, created_at desc").Find(&rules).Error; err != nil {
		return nil, apperrors.Storage("commission rules list", err)
	}
	return rules, nil
}

func (h *RulesHandler) CreateCommissionRule(ctx context.Context, rule models.CommissionRule, actor audit.Actor) (models.CommissionRule, error) {
	if err := ValidateCommissionRule(rule); err != nil {
		return models.CommissionRule{}, err
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rule).Error; err != nil {
			return apperrors.Storage("commission rule create", err)
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "commission_rule_created",
			Actor:      actor,
			TargetType: "commission_rule",
			TargetID:   strconv.FormatInt(rule.ID, 10),
			Severity:   models.SeverityInfo,
			Metadata: map[string]interface{}{
				"name":            rule.Name,
				"condition_type":  rule.ConditionType,
				"commission_rate": rule.CommissionRate,
				"priority":        rule.Priority,
			},
		})
		return err
	})
	if err != nil {
		return models.CommissionRule{}, err
	}

	h.afterRuleChange(ctx, rule.ID, "created")
	return rule, nil
}

func (h *RulesHandler) UpdateCommissionRule(ctx context.Context, ruleID int64, updated models.CommissionRule, actor audit.Actor) (models.CommissionRule, error) {
	var rule models.CommissionRule
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, ruleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("commission rule", strconv.FormatInt(ruleID, 10))
			}
			return apperrors.Storage("commission rule lookup", err)
		}

		rule.Name = updated.Name
		rule.ConditionType = updated.ConditionType
		rule.ConditionValue = updated.ConditionValue
		rule.CommissionRate = updated.CommissionRate
		rule.Priority = updated.Priority
		rule.IsActive = updated.IsActive
		if err := ValidateCommissionRule(rule); err != nil {
			return err
		}
		if err := tx.Save(&rule).Error; err != nil {
			return apperrors.Storage("commission rule update", err)
		}

		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "commission_rule_updated",
			Actor:      actor,
			TargetType: "commission_rule",
			TargetID:   strconv.FormatInt(rule.ID, 10),
			Severity:   models.SeverityInfo,
			Metadata: map[string]interface{}{
				"name":            rule.Name,
				"commission_rate": rule.CommissionRate,
				"priority":        rule.Priority,
				"is_active":       rule.IsActive,
			},
		})
		return err
	})
	if err != nil {
		return models.CommissionRule{}, err
	}

	h.afterRuleChange(ctx, rule.ID, "updated")
	return rule, nil
}

func (h *RulesHandler) SetCommissionRuleActive(ctx context.Context, ruleID int64, active bool, actor audit.Actor) (models.CommissionRule, error) {
	var rule models.CommissionRule
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, ruleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("commission rule", strconv.FormatInt(ruleID, 10))
			}
			return apperrors.Storage("commission rule lookup", err)
		}
		rule.IsActive = active
		if err := tx.Save(&rule).Error; err != nil {
			return apperrors.Storage("commission rule update", err)
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "commission_rule_toggled",
			Actor:      actor,
			TargetType: "commission_rule",
			TargetID:   strconv.FormatInt(rule.ID, 10),
			Severity:   models.SeverityInfo,
			Metadata:   map[string]interface{}{"is_active": active},
		})
		return err
	})
	if err != nil {
		return models.CommissionRule{}, err
	}

	h.afterRuleChange(ctx, rule.ID, "toggled")
	return rule, nil
}

func (h *RulesHandler) DeleteCommissionRule(ctx context.Context, ruleID int64, actor audit.Actor) error {
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rule models.CommissionRule
		if err := tx.First(&rule, ruleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("commission rule", strconv.FormatInt(ruleID, 10))
			}
			return apperrors.Storage("commission rule lookup", err)
		}
		if err := tx.Delete(&rule).Error; err != nil {
			return apperrors.Storage("commission rule delete", err)
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "commission_rule_deleted",
			Actor:      actor,
			TargetType: "commission_rule",
			TargetID:   strconv.FormatInt(ruleID, 10),
			Severity:   models.SeverityWarning,
			Metadata:   map[string]interface{}{"name": rule.Name},
		})
		return err
	})
	if err != nil {
		return err
	}

	h.afterRuleChange(ctx, ruleID, "deleted")
	return nil
}

func (h *RulesHandler) afterRuleChange(ctx context.Context, ruleID int64, event string) {
	h.invalidate(ctx, commission.COMMISSION_RULES_CACHE_KEY)
	h.realtime.Publish(ctx, "commission_rules", event, strconv.FormatInt(ruleID, 10))
}

// GetOverride returns the per-driver override, or a NotFoundError when the
// driver resolves through rules and defaults.
func (h *RulesHandler) GetOverride(ctx context.Context, driverID int64) (models.DriverCommissionOverride, error) {
	var override models.DriverCommissionOverride
	err := h.db.WithContext(ctx).Where("driver_id = ?", driverID).First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DriverCommissionOverride{}, apperrors.NotFound("commission override", strconv.FormatInt(driverID, 10))
	}
	if err != nil {
		return models.DriverCommissionOverride{}, apperrors.Storage("commission override lookup", err)
	}
	return override, nil
}

// SetOverride upserts the driver's fixed rate.
func (h *RulesHandler) SetOverride(ctx context.Context, driverID int64, rate float64, actor audit.Actor) (models.DriverCommissionOverride, error) {
	if rate < 0 || rate > 100 {
		return models.DriverCommissionOverride{}, apperrors.Validation("commission_rate", "must be between 0 and 100")
	}

	var override models.DriverCommissionOverride
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var driverCount int64
		if err := tx.Model(&models.Driver{}).Where("id = ?", driverID).Count(&driverCount).Error; err != nil {
			return apperrors.Storage("driver lookup", err)
		}
		if driverCount == 0 {
			return apperrors.NotFound("driver", strconv.FormatInt(driverID, 10))
		}

		err := tx.Where("driver_id = ?", driverID).First(&override).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			override = models.DriverCommissionOverride{DriverID: driverID}
		} else if err != nil {
			return apperrors.Storage("commission override lookup", err)
		}
		override.CommissionRate = rate
		override.IsCustom = true
		if err := tx.Save(&override).Error; err != nil {
			return apperrors.Storage("commission override update", err)
		}

		_, err = h.audit.AppendTx(tx, audit.Entry{
			Action:     "commission_override_set",
			Actor:      actor,
			TargetType: "driver",
			TargetID:   strconv.FormatInt(driverID, 10),
			Severity:   models.SeverityInfo,
			Metadata:   map[string]interface{}{"commission_rate": rate},
		})
		return err
	})
	if err != nil {
		return models.DriverCommissionOverride{}, err
	}

	h.realtime.Publish(ctx, "driver_commissions", "set", strconv.FormatInt(driverID, 10))
	return override, nil
}

// ResetOverride deletes the override, returning the driver to rule/default
// resolution.
func (h *RulesHandler) ResetOverride(ctx context.Context, driverID int64, actor audit.Actor) error {
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var override models.DriverCommissionOverride
		if err := tx.Where("driver_id = ?", driverID).First(&override).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("commission override", strconv.FormatInt(driverID, 10))
			}
			return apperrors.Storage("commission override lookup", err)
		}
		if err := tx.Delete(&override).Error; err != nil {
			return apperrors.Storage("commission override delete", err)
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "commission_override_reset",
			Actor:      actor,
			TargetType: "driver",
			TargetID:   strconv.FormatInt(driverID, 10),
			Severity:   models.SeverityInfo,
		})
		return err
	})
	if err != nil {
		return err
	}

	h.realtime.Publish(ctx, "driver_commissions", "reset", strconv.FormatInt(driverID, 10))
	return nil
}
