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

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
	audit "navo-system/internal/services/audit/handler"
)

const (
	COMMISSION_SETTINGS_CACHE_KEY = "commission:settings"
	COMMISSION_RULES_CACHE_KEY    = "commission:rules:active"
	CACHE_TTL_SHORT               = 5 * time.Minute
)

// RideContext carries the per-ride facts rate resolution depends on.
type RideContext struct {
	VehicleType string
	At          time.Time
}

type CommissionHandler struct {
	db    *gorm.DB
	redis *redis.Client
	audit *audit.AuditHandler
}

func NewCommissionHandler(db *gorm.DB, redisClient *redis.Client, auditHandler *audit.AuditHandler) *CommissionHandler {
	return &CommissionHandler{
		db:    db,
		redis: redisClient,
		audit: auditHandler,
	}
}

// ResolveRate computes the effective commission rate for a ride. Resolution
// is read-only: no audit entry, no side effects, and identical inputs give
// the identical rate.
func (h *CommissionHandler) ResolveRate(ctx context.Context, driverID int64, rideCtx RideContext) (float64, error) {
	var driver models.Driver
	if err := h.db.WithContext(ctx).First(&driver, driverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NotFound("driver", strconv.FormatInt(driverID, 10))
		}
		return 0, apperrors.Storage("driver lookup", err)
	}

	var override *models.DriverCommissionOverride
	var row models.DriverCommissionOverride
	err := h.db.WithContext(ctx).Where("driver_id = ?", driverID).First(&row).Error
	if err == nil {
		override = &row
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.Storage("commission override lookup", err)
	}

	rules, err := h.loadActiveRules(ctx)
	if err != nil {
		return 0, err
	}
	settings, err := h.LoadSettings(ctx)
	if err != nil {
		return 0, err
	}

	if rideCtx.At.IsZero() {
		rideCtx.At = time.Now()
	}
	return Resolve(override, rules, settings, driver, rideCtx), nil
}

// Resolve applies the precedence order: per-driver override, then the best
// matching active rule, then the peak-hour rate, then the default.
func Resolve(override *models.DriverCommissionOverride, rules []models.CommissionRule, settings models.CommissionSettings, driver models.Driver, rideCtx RideContext) float64 {
	if override != nil {
		return override.CommissionRate
	}
	if rule := pickRule(rules, driver, rideCtx); rule != nil {
		return rule.CommissionRate
	}
	if InPeakWindow(rideCtx.At.Hour(), settings.PeakStartHour, settings.PeakEndHour) {
		return settings.PeakHourCommission
	}
	return settings.DefaultCommission
}

// pickRule returns the matching active rule with the highest priority;
// ties go to the most recently created rule, then the higher id.
func pickRule(rules []models.CommissionRule, driver models.Driver, rideCtx RideContext) *models.CommissionRule {
	var best *models.CommissionRule
	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive || !MatchRule(*rule, driver, rideCtx) {
			continue
		}
		if best == nil || ruleWins(*rule, *best) {
			best = rule
		}
	}
	return best
}

func ruleWins(candidate, incumbent models.CommissionRule) bool {
	if candidate.Priority != incumbent.Priority {
		return candidate.Priority > incumbent.Priority
	}
	candidateAt := createdAtOrZero(candidate)
	incumbentAt := createdAtOrZero(incumbent)
	if !candidateAt.Equal(incumbentAt) {
		return candidateAt.After(incumbentAt)
	}
	return candidate.ID > incumbent.ID
}

func createdAtOrZero(rule models.CommissionRule) time.Time {
	if rule.CreatedAt == nil {
		return time.Time{}
	}
	return *rule.CreatedAt
}

// MatchRule evaluates a rule condition against the driver's aggregate stats
// and the ride context. Unparseable condition values never match.
func MatchRule(rule models.CommissionRule, driver models.Driver, rideCtx RideContext) bool {
	switch rule.ConditionType {
	case models.ConditionRideCount:
		value, err := strconv.Atoi(rule.ConditionValue)
		if err != nil {
			return false
		}
		return driver.RideCount >= value
	case models.ConditionTotalEarnings:
		value, err := decimal.NewFromString(rule.ConditionValue)
		if err != nil {
			return false
		}
		earnings, err := decimal.NewFromString(driver.TotalEarnings)
		if err != nil {
			return false
		}
		return earnings.GreaterThanOrEqual(value)
	case models.ConditionRating:
		value, err := strconv.ParseFloat(rule.ConditionValue, 64)
		if err != nil {
			return false
		}
		return driver.Rating >= value
	case models.ConditionVehicleType:
		return rideCtx.VehicleType != "" && rideCtx.VehicleType == rule.ConditionValue
	}
	return false
}

// InPeakWindow reports whether hour falls in [start, end); windows where
// start > end cross midnight.
func InPeakWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// LoadSettings reads the commission settings singleton through a short-TTL
// redis cache, creating the default row lazily on first read.
func (h *CommissionHandler) LoadSettings(ctx context.Context) (models.CommissionSettings, error) {
	val, err := h.redis.Get(ctx, COMMISSION_SETTINGS_CACHE_KEY).Result()
	if err == nil {
		var cached models.CommissionSettings
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		log.Printf("Redis error on GET: %v. Falling back to DB.", err)
	}

	var settings models.CommissionSettings
	err = h.db.WithContext(ctx).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.DefaultCommissionSettings()
		if err := h.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return settings, apperrors.Storage("commission settings create", err)
		}
	} else if err != nil {
		return settings, apperrors.Storage("commission settings lookup", err)
	}

	if jsonData, err := json.Marshal(&settings); err == nil {
		if err := h.redis.Set(ctx, COMMISSION_SETTINGS_CACHE_KEY, jsonData, CACHE_TTL_SHORT).Err(); err != nil {
			log.Printf("Failed to set cache for key %s: %v", COMMISSION_SETTINGS_CACHE_KEY, err)
		}
	}
	return settings, nil
}

func (h *CommissionHandler) loadActiveRules(ctx context.Context) ([]models.CommissionRule, error) {
	val, err := h.redis.Get(ctx, COMMISSION_RULES_CACHE_KEY).Result()
	if err == nil {
		var cached []models.CommissionRule
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		log.Printf("Redis error on GET: %v. Falling back to DB.", err)
	}

	var rules []models.CommissionRule
	if err := h.db.WithContext(ctx).Where("is_active = ?", true).Find(&rules).Error; err != nil {
		return nil, apperrors.Storage("commission rules lookup", err)
	}

	if jsonData, err := json.Marshal(rules); err == nil {
		if err := h.redis.Set(ctx, COMMISSION_RULES_CACHE_KEY, jsonData, CACHE_TTL_SHORT).Err(); err != nil {
			log.Printf("Failed to set cache for key %s: %v", COMMISSION_RULES_CACHE_KEY, err)
		}
	}
	return rules, nil
}

// ProcessRide resolves the rate for a completed ride, computes the payout
// breakdown and rolls the amounts into the driver's aggregates.
func (h *CommissionHandler) ProcessRide(ctx context.Context, driverID int64, rideID string, amount decimal.Decimal, rideCtx RideContext, actor audit.Actor) (Breakdown, error) {
	if amount.IsNegative() {
		return Breakdown{}, apperrors.Validation("amount", "must not be negative")
	}

	rate, err := h.ResolveRate(ctx, driverID, rideCtx)
	if err != nil {
		return Breakdown{}, err
	}
	settings, err := h.LoadSettings(ctx)
	if err != nil {
		return Breakdown{}, err
	}

	fee, err := decimal.NewFromString(settings.ProcessingFee)
	if err != nil {
		fee = decimal.Zero
	}
	breakdown := CalculateBreakdown(amount, decimal.NewFromFloat(rate), decimal.NewFromFloat(settings.TaxRate), fee)

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var driver models.Driver
		if err := tx.First(&driver, driverID).Error; err != nil {
			return apperrors.Storage("driver lookup", err)
		}
		earnings, err := decimal.NewFromString(driver.TotalEarnings)
		if err != nil {
			earnings = decimal.Zero
		}
		driver.RideCount++
		driver.TotalEarnings = earnings.Add(breakdown.DriverEarnings).StringFixed(2)
		if err := tx.Save(&driver).Error; err != nil {
			return apperrors.Storage("driver update", err)
		}

		_, err = h.audit.AppendTx(tx, audit.Entry{
			Action:     "ride_processed",
			Actor:      actor,
			TargetType: "ride",
			TargetID:   rideID,
			Severity:   models.SeverityInfo,
			Metadata: map[string]interface{}{
				"driver_id":         driverID,
				"amount":            amount.StringFixed(2),
				"rate":              fmt.Sprintf("%.2f", rate),
				"driver_earnings":   breakdown.DriverEarnings.StringFixed(2),
				"platform_earnings": breakdown.PlatformEarnings.StringFixed(2),
				"negative_earnings": breakdown.NegativeEarnings,
			},
		})
		return err
	})
	if err != nil {
		return Breakdown{}, err
	}

	if breakdown.NegativeEarnings {
		log.Printf("ride %s: fees exceed fare, driver earnings %s", rideID, breakdown.DriverEarnings.StringFixed(2))
	}
	return breakdown, nil
}
