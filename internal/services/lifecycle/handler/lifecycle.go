package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
	"navo-system/internal/realtime"
	audit "navo-system/internal/services/audit/handler"
	notify "navo-system/internal/services/notify/handler"
)

const driversTable = "drivers"

var auditActions = map[Action]string{
	ActionApprove:    "driver_approved",
	ActionReject:     "driver_rejected",
	ActionActivate:   "driver_activated",
	ActionSuspend:    "driver_suspended",
	ActionBan:        "driver_banned",
	ActionReactivate: "driver_reactivated",
}

var notifyEvents = map[Action]string{
	ActionApprove:    notify.EventDriverApproved,
	ActionReject:     notify.EventDriverRejected,
	ActionSuspend:    notify.EventDriverSuspended,
	ActionBan:        notify.EventDriverBanned,
	ActionReactivate: notify.EventDriverReactivated,
}

type LifecycleHandler struct {
	db       *gorm.DB
	audit    *audit.AuditHandler
	notify   *notify.NotifyHandler
	realtime *realtime.Publisher
}

func NewLifecycleHandler(db *gorm.DB, auditHandler *audit.AuditHandler, notifyHandler *notify.NotifyHandler, publisher *realtime.Publisher) *LifecycleHandler {
	return &LifecycleHandler{
		db:       db,
		audit:    auditHandler,
		notify:   notifyHandler,
		realtime: publisher,
	}
}

type TransitionRequest struct {
	DriverID int64
	Action   Action
	Reason   string
	Notes    string
	Actor    audit.Actor
	// ExpectedVersion, when set, makes the transition fail with a
	// ConflictError if the row changed since the caller read it.
	ExpectedVersion *int64
}

// Transition applies one lifecycle action. The row lock, status mutation and
// audit entry share a transaction: a transition never commits unaudited, and
// an invalid transition mutates nothing. Notification and change publication
// happen after commit and are best-effort.
func (h *LifecycleHandler) Transition(ctx context.Context, req TransitionRequest) (models.Driver, error) {
	if _, ok := TargetStatus(req.Action); !ok {
		return models.Driver{}, apperrors.Validation("action", fmt.Sprintf("unknown action %q", req.Action))
	}
	if RequiresReason(req.Action) && req.Reason == "" {
		return models.Driver{}, apperrors.Validation("reason", fmt.Sprintf("%s requires a reason", req.Action))
	}
	if req.Action == ActionSuspend && !ValidSuspensionReason(req.Reason) {
		return models.Driver{}, apperrors.Validation("reason", fmt.Sprintf("unknown suspension reason %q", req.Reason))
	}

	var driver models.Driver
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&driver, req.DriverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("driver", strconv.FormatInt(req.DriverID, 10))
			}
			return apperrors.Storage("driver lookup", err)
		}
		if req.ExpectedVersion != nil && *req.ExpectedVersion != driver.Version {
			return apperrors.Conflict("driver", strconv.FormatInt(req.DriverID, 10))
		}
		if !CanTransition(driver.Status, req.Action) {
			return apperrors.InvalidTransition(driver.Status, string(req.Action))
		}
		if req.Action == ActionActivate {
			cfg, err := loadRuleConfig(tx)
			if err != nil {
				return err
			}
			if driver.Rating < cfg.MinRatingForActivation {
				return apperrors.Validation("rating",
					fmt.Sprintf("rating %.2f is below the activation minimum %.2f", driver.Rating, cfg.MinRatingForActivation))
			}
		}

		previousStatus := driver.Status
		applyMutation(&driver, req.Action, req.Reason)
		driver.Version++

		if err := tx.Save(&driver).Error; err != nil {
			return apperrors.Storage("driver update", err)
		}

		if req.Action == ActionBan && driver.DeviceID != "" {
			blocked := models.BlacklistedDevice{
				DeviceID: driver.DeviceID,
				DriverID: driver.ID,
				Reason:   req.Reason,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&blocked).Error; err != nil {
				return apperrors.Storage("device blacklist", err)
			}
		}

		metadata := map[string]interface{}{
			"previous_status": previousStatus,
			"new_status":      driver.Status,
		}
		if req.Reason != "" {
			metadata["reason"] = req.Reason
		}
		if req.Notes != "" {
			metadata["notes"] = req.Notes
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     auditActions[req.Action],
			Actor:      req.Actor,
			TargetType: "driver",
			TargetID:   strconv.FormatInt(driver.ID, 10),
			Severity:   SeverityFor(req.Action),
			Metadata:   metadata,
		})
		return err
	})
	if err != nil {
		return models.Driver{}, err
	}

	h.afterTransition(ctx, driver, req.Action, req.Reason)
	return driver, nil
}

func (h *LifecycleHandler) afterTransition(ctx context.Context, driver models.Driver, action Action, reason string) {
	if event, ok := notifyEvents[action]; ok {
		h.notify.Enqueue(ctx, event, "driver", map[string]interface{}{
			"driver_id": driver.ID,
			"status":    driver.Status,
			"reason":    reason,
		})
	}
	h.realtime.Publish(ctx, driversTable, string(action), strconv.FormatInt(driver.ID, 10))
}

// applyMutation sets the status, the transition timestamp and the reason
// fields. Approve and reactivate clear prior suspension state; transition
// timestamps of earlier states are kept as history.
func applyMutation(driver *models.Driver, action Action, reason string) {
	now := time.Now()
	target, _ := TargetStatus(action)
	driver.Status = target

	switch action {
	case ActionApprove:
		driver.ApprovedAt = &now
		driver.SuspendedAt = nil
		driver.SuspensionReason = ""
	case ActionReject:
		driver.RejectedAt = &now
		driver.RejectionReason = reason
	case ActionActivate:
		driver.ActivatedAt = &now
	case ActionSuspend:
		driver.SuspendedAt = &now
		driver.SuspensionReason = reason
	case ActionBan:
		driver.BannedAt = &now
		driver.BanReason = reason
	case ActionReactivate:
		driver.ActivatedAt = &now
		driver.SuspendedAt = nil
		driver.SuspensionReason = ""
	}
}

type BulkFailure struct {
	DriverID int64  `json:"driver_id"`
	Error    string `json:"error"`
}

type BulkResult struct {
	Succeeded []int64       `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// runBulk applies fn to each driver concurrently and partitions the ids by
// outcome. A failure never aborts the rest of the batch.
func runBulk(driverIDs []int64, fn func(int64) error) BulkResult {
	var (
		result BulkResult
		wg     sync.WaitGroup
		mu     sync.Mutex
	)

	for _, driverID := range driverIDs {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()

			err := fn(id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, BulkFailure{DriverID: id, Error: err.Error()})
				return
			}
			result.Succeeded = append(result.Succeeded, id)
		}(driverID)
	}
	wg.Wait()

	return result
}

// BulkTransition applies the action to each driver independently; partial
// failure is expected and reported, never propagated. One audit entry is
// written per driver (by Transition) plus one batch summary entry.
func (h *LifecycleHandler) BulkTransition(ctx context.Context, driverIDs []int64, action Action, reason string, actor audit.Actor) (BulkResult, error) {
	result := runBulk(driverIDs, func(id int64) error {
		_, err := h.Transition(ctx, TransitionRequest{
			DriverID: id,
			Action:   action,
			Reason:   reason,
			Actor:    actor,
		})
		return err
	})

	_, err := h.audit.Append(ctx, audit.Entry{
		Action:     "driver_bulk_" + string(action),
		Actor:      actor,
		TargetType: "driver_batch",
		TargetID:   strconv.Itoa(len(driverIDs)),
		Severity:   SeverityFor(action),
		Metadata: map[string]interface{}{
			"requested": len(driverIDs),
			"succeeded": len(result.Succeeded),
			"failed":    len(result.Failed),
			"reason":    reason,
		},
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// ApplyRatingUpdate persists a driver's new rating and applies any
// threshold-triggered auto-transition. The ban threshold is evaluated before
// the suspend threshold so the more severe outcome wins.
func (h *LifecycleHandler) ApplyRatingUpdate(ctx context.Context, driverID int64, rating float64) (models.Driver, error) {
	if rating < 0 || rating > 5 {
		return models.Driver{}, apperrors.Validation("rating", "must be between 0 and 5")
	}
	return h.applyAutoEvaluation(ctx, driverID, func(driver *models.Driver, cfg models.DriverRuleConfig) (Action, string) {
		driver.Rating = rating
		return RatingAction(rating, cfg), models.ReasonLowRatingAuto
	})
}

// ApplyComplaint increments the complaint counter and applies the same
// ban-before-suspend threshold logic.
func (h *LifecycleHandler) ApplyComplaint(ctx context.Context, driverID int64) (models.Driver, error) {
	return h.applyAutoEvaluation(ctx, driverID, func(driver *models.Driver, cfg models.DriverRuleConfig) (Action, string) {
		driver.ComplaintCount++
		return ComplaintAction(driver.ComplaintCount, cfg), models.ReasonPassengerComplaints
	})
}

// applyAutoEvaluation mutates the driver under lock, then applies a
// system-initiated transition when the mutation crossed a threshold and the
// current state permits it. The whole evaluation is one transaction, so the
// stat update, the transition and its audit entry commit together.
func (h *LifecycleHandler) applyAutoEvaluation(ctx context.Context, driverID int64, mutate func(*models.Driver, models.DriverRuleConfig) (Action, string)) (models.Driver, error) {
	var (
		driver models.Driver
		action Action
		reason string
	)
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&driver, driverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("driver", strconv.FormatInt(driverID, 10))
			}
			return apperrors.Storage("driver lookup", err)
		}

		cfg, err := loadRuleConfig(tx)
		if err != nil {
			return err
		}

		action, reason = mutate(&driver, cfg)
		driver.Version++

		if action != "" && CanTransition(driver.Status, action) {
			previousStatus := driver.Status
			applyMutation(&driver, action, reason)

			if err := tx.Save(&driver).Error; err != nil {
				return apperrors.Storage("driver update", err)
			}
			if action == ActionBan && driver.DeviceID != "" {
				blocked := models.BlacklistedDevice{
					DeviceID: driver.DeviceID,
					DriverID: driver.ID,
					Reason:   reason,
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&blocked).Error; err != nil {
					return apperrors.Storage("device blacklist", err)
				}
			}
			_, err := h.audit.AppendTx(tx, audit.Entry{
				Action:     "driver_auto_" + autoPastTense(action),
				Actor:      audit.SystemActor(),
				TargetType: "driver",
				TargetID:   strconv.FormatInt(driver.ID, 10),
				Severity:   SeverityFor(action),
				Metadata: map[string]interface{}{
					"previous_status": previousStatus,
					"new_status":      driver.Status,
					"reason":          reason,
					"rating":          driver.Rating,
					"complaint_count": driver.ComplaintCount,
				},
			})
			return err
		}

		action = ""
		if err := tx.Save(&driver).Error; err != nil {
			return apperrors.Storage("driver update", err)
		}
		return nil
	})
	if err != nil {
		return models.Driver{}, err
	}

	if action != "" {
		h.afterTransition(ctx, driver, action, reason)
	}
	return driver, nil
}

func autoPastTense(action Action) string {
	if action == ActionBan {
		return "banned"
	}
	return "suspended"
}

func loadRuleConfig(tx *gorm.DB) (models.DriverRuleConfig, error) {
	var cfg models.DriverRuleConfig
	err := tx.First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.DefaultDriverRuleConfig()
		if err := tx.Create(&cfg).Error; err != nil {
			return cfg, apperrors.Storage("driver rules create", err)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, apperrors.Storage("driver rules lookup", err)
	}
	return cfg, nil
}

// GetDriver fetches one driver.
func (h *LifecycleHandler) GetDriver(ctx context.Context, driverID int64) (models.Driver, error) {
	var driver models.Driver
	if err := h.db.WithContext(ctx).First(&driver, driverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Driver{}, apperrors.NotFound("driver", strconv.FormatInt(driverID, 10))
		}
		return models.Driver{}, apperrors.Storage("driver lookup", err)
	}
	return driver, nil
}

// ListDrivers pages through drivers, optionally filtered by status.
func (h *LifecycleHandler) ListDrivers(ctx context.Context, status string, page, pageSize int) ([]models.Driver, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := h.db.WithContext(ctx).Model(&models.Driver{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, apperrors.Storage("driver count", err)
	}

	var drivers []models.Driver
	if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&drivers).Error; err != nil {
		return nil, 0, apperrors.Storage("driver list", err)
	}
	return drivers, totalCount, nil
}

// IsDeviceBlacklisted guards re-registration of banned drivers' devices.
func (h *LifecycleHandler) IsDeviceBlacklisted(ctx context.Context, deviceID string) (bool, error) {
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.BlacklistedDevice{}).
		Where("device_id = ?", deviceID).Count(&count).Error; err != nil {
		return false, apperrors.Storage("device blacklist lookup", err)
	}
	return count > 0, nil
}
