package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
	"navo-system/internal/realtime"
	audit "navo-system/internal/services/audit/handler"
	commission "navo-system/internal/services/commission/handler"
)

const (
	DRIVER_RULES_CACHE_KEY = "driver_rules:config"
	CACHE_TTL_SHORT        = 5 * time.Minute
)

type RulesHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	audit    *audit.AuditHandler
	realtime *realtime.Publisher
}

func NewRulesHandler(db *gorm.DB, redisClient *redis.Client, auditHandler *audit.AuditHandler, publisher *realtime.Publisher) *RulesHandler {
	return &RulesHandler{
		db:       db,
		redis:    redisClient,
		audit:    auditHandler,
		realtime: publisher,
	}
}

// GetDriverRules returns the singleton rule config, creating the defaults
// lazily on first read. Never returns a NotFoundError.
func (h *RulesHandler) GetDriverRules(ctx context.Context) (models.DriverRuleConfig, error) {
	val, err := h.redis.Get(ctx, DRIVER_RULES_CACHE_KEY).Result()
	if err == nil {
		var cached models.DriverRuleConfig
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		log.Printf("Redis error on GET: %v. Falling back to DB.", err)
	}

	var cfg models.DriverRuleConfig
	err = h.db.WithContext(ctx).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.DefaultDriverRuleConfig()
		if err := h.db.WithContext(ctx).Create(&cfg).Error; err != nil {
			return cfg, apperrors.Storage("driver rules create", err)
		}
	} else if err != nil {
		return cfg, apperrors.Storage("driver rules lookup", err)
	}

	if jsonData, err := json.Marshal(&cfg); err == nil {
		if err := h.redis.Set(ctx, DRIVER_RULES_CACHE_KEY, jsonData, CACHE_TTL_SHORT).Err(); err != nil {
			log.Printf("Failed to set cache for key %s: %v", DRIVER_RULES_CACHE_KEY, err)
		}
	}
	return cfg, nil
}

// DriverRulesPatch carries only the fields the caller wants changed.
type DriverRulesPatch struct {
	MinAge                        *int     `json:"min_age"`
	MinDrivingExperience          *int     `json:"min_driving_experience"`
	MinRatingForActivation        *float64 `json:"min_rating_for_activation"`
	AutoSuspendBelowRating        *float64 `json:"auto_suspend_below_rating"`
	AutoBanBelowRating            *float64 `json:"auto_ban_below_rating"`
	MaxComplaintsBeforeSuspension *int     `json:"max_complaints_before_suspension"`
	MaxComplaintsBeforeBan        *int     `json:"max_complaints_before_ban"`
	RequireDocuments              *bool    `json:"require_documents"`
	RequireVehicleInspection      *bool    `json:"require_vehicle_inspection"`
}

func applyDriverRulesPatch(cfg *models.DriverRuleConfig, patch DriverRulesPatch) {
	if patch.MinAge != nil {
		cfg.MinAge = *patch.MinAge
	}
	if patch.MinDrivingExperience != nil {
		cfg.MinDrivingExperience = *patch.MinDrivingExperience
	}
	if patch.MinRatingForActivation != nil {
		cfg.MinRatingForActivation = *patch.MinRatingForActivation
	}
	if patch.AutoSuspendBelowRating != nil {
		cfg.AutoSuspendBelowRating = *patch.AutoSuspendBelowRating
	}
	if patch.AutoBanBelowRating != nil {
		cfg.AutoBanBelowRating = *patch.AutoBanBelowRating
	}
	if patch.MaxComplaintsBeforeSuspension != nil {
		cfg.MaxComplaintsBeforeSuspension = *patch.MaxComplaintsBeforeSuspension
	}
	if patch.MaxComplaintsBeforeBan != nil {
		cfg.MaxComplaintsBeforeBan = *patch.MaxComplaintsBeforeBan
	}
	if patch.RequireDocuments != nil {
		cfg.RequireDocuments = *patch.RequireDocuments
	}
	if patch.RequireVehicleInspection != nil {
		cfg.RequireVehicleInspection = *patch.RequireVehicleInspection
	}
}

// ValidateDriverRules checks ranges and the threshold ordering
// auto_ban < auto_suspend < min_rating_for_activation. A violating order
// would make the auto-transitions contradict each other.
func ValidateDriverRules(cfg models.DriverRuleConfig) error {
	for field, value := range map[string]float64{
		"min_rating_for_activation": cfg.MinRatingForActivation,
		"auto_suspend_below_rating": cfg.AutoSuspendBelowRating,
		"auto_ban_below_rating":     cfg.AutoBanBelowRating,
	} {
		if value < 0 || value > 5 {
			return apperrors.Validation(field, "must be between 0 and 5")
		}
	}
	for field, value := range map[string]int{
		"min_age":                          cfg.MinAge,
		"min_driving_experience":           cfg.MinDrivingExperience,
		"max_complaints_before_suspension": cfg.MaxComplaintsBeforeSuspension,
		"max_complaints_before_ban":        cfg.MaxComplaintsBeforeBan,
	} {
		if value < 0 {
			return apperrors.Validation(field, "must not be negative")
		}
	}
	if cfg.AutoBanBelowRating >= cfg.AutoSuspendBelowRating {
		return apperrors.Validation("auto_ban_below_rating", "must be below auto_suspend_below_rating")
	}
	if cfg.AutoSuspendBelowRating >= cfg.MinRatingForActivation {
		return apperrors.Validation("auto_suspend_below_rating", "must be below min_rating_for_activation")
	}
	if cfg.MaxComplaintsBeforeSuspension > cfg.MaxComplaintsBeforeBan {
		return apperrors.Validation("max_complaints_before_suspension", "must not exceed max_complaints_before_ban")
	}
	return nil
}

// UpdateDriverRules upserts the singleton config. The cache is invalidated
// before the call returns so no reader observes a stale config after a
// successful update.
func (h *RulesHandler) UpdateDriverRules(ctx context.Context, patch DriverRulesPatch, actor audit.Actor) (models.DriverRuleConfig, error) {
	var cfg models.DriverRuleConfig
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cfg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cfg = models.DefaultDriverRuleConfig()
		} else if err != nil {
			return apperrors.Storage("driver rules lookup", err)
		}

		applyDriverRulesPatch(&cfg, patch)
		if err := ValidateDriverRules(cfg); err != nil {
			return err
		}
		if err := tx.Save(&cfg).Error; err != nil {
			return apperrors.Storage("driver rules update", err)
		}

		_, err = h.audit.AppendTx(tx, audit.Entry{
			Action:     "driver_rules_updated",
			Actor:      actor,
			TargetType: "driver_rules",
			TargetID:   strconv.FormatInt(cfg.ID, 10),
			Severity:   models.SeverityInfo,
			Metadata:   patchMetadata(patch),
		})
		return err
	})
	if err != nil {
		return models.DriverRuleConfig{}, err
	}

	h.invalidate(ctx, DRIVER_RULES_CACHE_KEY)
	h.realtime.Publish(ctx, "driver_rules", "updated", strconv.FormatInt(cfg.ID, 10))
	return cfg, nil
}

// CommissionSettingsPatch carries only the fields the caller wants changed.
type CommissionSettingsPatch struct {
	DefaultCommission  *float64 `json:"default_commission"`
	PeakHourCommission *float64 `json:"peak_hour_commission"`
	PeakStartHour      *int     `json:"peak_start_hour"`
	PeakEndHour        *int     `json:"peak_end_hour"`
	TaxRate            *float64 `json:"tax_rate"`
	ProcessingFee      *string  `json:"processing_fee"`
}

func applyCommissionSettingsPatch(settings *models.CommissionSettings, patch CommissionSettingsPatch) {
	if patch.DefaultCommission != nil {
		settings.DefaultCommission = *patch.DefaultCommission
	}
	if patch.PeakHourCommission != nil {
		settings.PeakHourCommission = *patch.PeakHourCommission
	}
	if patch.PeakStartHour != nil {
		settings.PeakStartHour = *patch.PeakStartHour
	}
	if patch.PeakEndHour != nil {
		settings.PeakEndHour = *patch.PeakEndHour
	}
	if patch.TaxRate != nil {
		settings.TaxRate = *patch.TaxRate
	}
	if patch.ProcessingFee != nil {
		settings.ProcessingFee = *patch.ProcessingFee
	}
}

func ValidateCommissionSettings(settings models.CommissionSettings) error {
	for field, value := range map[string]float64{
		"default_commission":   settings.DefaultCommission,
		"peak_hour_commission": settings.PeakHourCommission,
		"tax_rate":             settings.TaxRate,
	} {
		if value < 0 || value > 100 {
			return apperrors.Validation(field, "must be between 0 and 100")
		}
	}
	for field, value := range map[string]int{
		"peak_start_hour": settings.PeakStartHour,
		"peak_end_hour":   settings.PeakEndHour,
	} {
		if value < 0 || value > 23 {
			return apperrors.Validation(field, "must be between 0 and 23")
		}
	}
	fee, err := decimal.NewFromString(settings.ProcessingFee)
	if err != nil {
		return apperrors.Validation("processing_fee", fmt.Sprintf("not a valid amount: %q", settings.ProcessingFee))
	}
	if fee.IsNegative() {
		return apperrors.Validation("processing_fee", "must not be negative")
	}
	return nil
}

func (h *RulesHandler) GetCommissionSettings(ctx context.Context) (models.CommissionSettings, error) {
	var settings models.CommissionSettings
	err := h.db.WithContext(ctx).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.DefaultCommissionSettings()
		if err := h.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return settings, apperrors.Storage("commission settings create", err)
		}
		return settings, nil
	}
	if err != nil {
		return settings, apperrors.Storage("commission settings lookup", err)
	}
	return settings, nil
}

func (h *RulesHandler) UpdateCommissionSettings(ctx context.Context, patch CommissionSettingsPatch, actor audit.Actor) (models.CommissionSettings, error) {
	var settings models.CommissionSettings
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&settings).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			settings = models.DefaultCommissionSettings()
		} else if err != nil {
			return apperrors.Storage("commission settings lookup", err)
		}

		applyCommissionSettingsPatch(&settings, patch)
		if err := ValidateCommissionSettings(settings); err != nil {
			return err
		}
		if err := tx.Save(&settings).Error; err != nil {
			return apperrors.Storage("commission settings update", err)
		}

		_, err = h.audit.AppendTx(tx, audit.Entry{
			Action:     "commission_settings_updated",
			Actor:      actor,
			TargetType: "commission_settings",
			TargetID:   strconv.FormatInt(settings.ID, 10),
			Severity:   models.SeverityInfo,
			Metadata:   patchMetadata(patch),
		})
		return err
	})
	if err != nil {
		return models.CommissionSettings{}, err
	}

	h.invalidate(ctx, commission.COMMISSION_SETTINGS_CACHE_KEY)
	h.realtime.Publish(ctx, "commission_settings", "updated", strconv.FormatInt(settings.ID, 10))
	return settings, nil
}

// invalidate drops a cache key before the write is reported successful.
func (h *RulesHandler) invalidate(ctx context.Context, keys ...string) {
	if err := h.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache invalidation failed for %v: %v", keys, err)
	}
}

// patchMetadata records the changed fields in the audit entry.
func patchMetadata(patch interface{}) map[string]interface{} {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	for key, value := range fields {
		if value == nil {
			delete(fields, key)
		}
	}
	return fields
}
