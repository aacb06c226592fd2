package handler

import (
	"context"
	"errors"
	"net"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
	audit "navo-system/internal/services/audit/handler"
)

// BlockIP adds an address to the block list. Blocking an already blocked
// address is a no-op, not an error.
func (h *LifecycleHandler) BlockIP(ctx context.Context, ip, reason string, actor audit.Actor) error {
	if net.ParseIP(ip) == nil {
		return apperrors.Validation("ip", "not a valid IP address")
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blocked := models.BlockedIP{IP: ip, Reason: reason}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&blocked).Error; err != nil {
			return apperrors.Storage("ip block", err)
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "ip_blocked",
			Actor:      actor,
			TargetType: "ip",
			TargetID:   ip,
			Severity:   models.SeveritySecurity,
			Metadata:   map[string]interface{}{"reason": reason},
		})
		return err
	})
	if err != nil {
		return err
	}

	h.realtime.Publish(ctx, "blocked_ips", "created", ip)
	return nil
}

// UnblockIP removes an address from the block list.
func (h *LifecycleHandler) UnblockIP(ctx context.Context, ip string, actor audit.Actor) error {
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var blocked models.BlockedIP
		if err := tx.Where("ip = ?", ip).First(&blocked).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("blocked ip", ip)
			}
			return apperrors.Storage("ip block lookup", err)
		}
		if err := tx.Delete(&blocked).Error; err != nil {
			return apperrors.Storage("ip unblock", err)
		}
		_, err := h.audit.AppendTx(tx, audit.Entry{
			Action:     "ip_unblocked",
			Actor:      actor,
			TargetType: "ip",
			TargetID:   ip,
			Severity:   models.SeveritySecurity,
		})
		return err
	})
	if err != nil {
		return err
	}

	h.realtime.Publish(ctx, "blocked_ips", "deleted", ip)
	return nil
}

func (h *LifecycleHandler) ListBlockedIPs(ctx context.Context) ([]models.BlockedIP, error) {
	var blocked []models.BlockedIP
	if err := h.db.WithContext(ctx).Order("created_at desc").Find(&blocked).Error; err != nil {
		return nil, apperrors.Storage("ip block list", err)
	}
	return blocked, nil
}

// IsIPBlocked is consulted by the gateway before authentication.
func (h *LifecycleHandler) IsIPBlocked(ctx context.Context, ip string) (bool, error) {
	var count int64
	if err := h.db.WithContext(ctx).Model(&models.BlockedIP{}).
		Where("ip = ?", ip).Count(&count).Error; err != nil {
		return false, apperrors.Storage("ip block lookup", err)
	}
	return count > 0, nil
}
