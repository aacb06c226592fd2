package handler

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
)

// Actor identifies who performed an action. A nil ID marks a system action
// (scheduled rating evaluation, threshold crossing).
type Actor struct {
	ID    *int64
	Name  string
	Email string
	IP    string
}

func SystemActor() Actor {
	return Actor{Name: "system"}
}

func AdminActor(id int64, name, email, ip string) Actor {
	return Actor{ID: &id, Name: name, Email: email, IP: ip}
}

// Entry is an audit record before insertion.
type Entry struct {
	Action     string
	Actor      Actor
	TargetType string
	TargetID   string
	Severity   string
	Metadata   map[string]interface{}
}

type AuditHandler struct {
	db *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

func (h *AuditHandler) toModel(e Entry) models.AuditLog {
	metadata := ""
	if len(e.Metadata) > 0 {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			metadata = string(raw)
		}
	}
	severity := e.Severity
	if severity == "" {
		severity = models.SeverityInfo
	}
	return models.AuditLog{
		Action:     e.Action,
		ActorID:    e.Actor.ID,
		AdminName:  e.Actor.Name,
		AdminEmail: e.Actor.Email,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		IPAddress:  e.Actor.IP,
		Severity:   severity,
		Metadata:   metadata,
	}
}

// Append inserts one entry. Never retried: a duplicate audit row is worse
// than a surfaced failure.
func (h *AuditHandler) Append(ctx context.Context, e Entry) (int64, error) {
	return h.AppendTx(h.db.WithContext(ctx), e)
}

// AppendTx inserts within the caller's transaction so that a state change
// and its audit entry commit or roll back together.
func (h *AuditHandler) AppendTx(tx *gorm.DB, e Entry) (int64, error) {
	row := h.toModel(e)
	if err := tx.Create(&row).Error; err != nil {
		return 0, apperrors.Storage("audit append", err)
	}
	return row.ID, nil
}

// likeEscaper neutralizes LIKE metacharacters so a search for "50%" does
// not match every row.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Filters compose conjunctively; zero values are ignored.
type Filters struct {
	Action     string
	TargetType string
	Severity   string
	Search     string
	From       *time.Time
	To         *time.Time
}

func (h *AuditHandler) buildQuery(ctx context.Context, f Filters) *gorm.DB {
	query := h.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.TargetType != "" {
		query = query.Where("target_type = ?", f.TargetType)
	}
	if f.Severity != "" {
		query = query.Where("severity = ?", f.Severity)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		query = query.Where(
			"action ILIKE ? OR metadata ILIKE ? OR target_id ILIKE ? OR admin_name ILIKE ? OR admin_email ILIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}
	return query
}

// Query returns one page ordered by created_at descending, ties broken by
// id ascending so that concatenated pages are gap- and duplicate-free.
func (h *AuditHandler) Query(ctx context.Context, f Filters, page, pageSize int) ([]models.AuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var totalCount int64
	if err := retryRead(func() error {
		return h.buildQuery(ctx, f).Count(&totalCount).Error
	}); err != nil {
		return nil, 0, apperrors.Storage("audit count", err)
	}

	var logs []models.AuditLog
	if err := retryRead(func() error {
		return h.buildQuery(ctx, f).
			Order("created_at desc, id asc").
			Offset(offset).
			Limit(pageSize).
			Find(&logs).Error
	}); err != nil {
		return nil, 0, apperrors.Storage("audit query", err)
	}

	return logs, totalCount, nil
}

type Statistics struct {
	TotalLogs        int64  `json:"total_logs"`
	LogsToday        int64  `json:"logs_today"`
	LogsThisWeek     int64  `json:"logs_this_week"`
	LogsThisMonth    int64  `json:"logs_this_month"`
	MostCommonAction string `json:"most_common_action"`
	TopAdmin         string `json:"top_admin"`
}

// Statistics aggregates over the full ledger server-side.
func (h *AuditHandler) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := startOfDay.AddDate(0, 0, -int((now.Weekday()+6)%7))
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	err := retryRead(func() error {
		base := h.db.WithContext(ctx).Model(&models.AuditLog{})
		if err := base.Count(&stats.TotalLogs).Error; err != nil {
			return err
		}
		if err := h.db.WithContext(ctx).Model(&models.AuditLog{}).
			Where("created_at >= ?", startOfDay).Count(&stats.LogsToday).Error; err != nil {
			return err
		}
		if err := h.db.WithContext(ctx).Model(&models.AuditLog{}).
			Where("created_at >= ?", startOfWeek).Count(&stats.LogsThisWeek).Error; err != nil {
			return err
		}
		if err := h.db.WithContext(ctx).Model(&models.AuditLog{}).
			Where("created_at >= ?", startOfMonth).Count(&stats.LogsThisMonth).Error; err != nil {
			return err
		}

		var topAction struct{ Action string }
		if err := h.db.WithContext(ctx).Model(&models.AuditLog{}).
			Select("action").
			Group("action").
			Order("COUNT(*) desc").
			Limit(1).
			Scan(&topAction).Error; err != nil {
			return err
		}
		stats.MostCommonAction = topAction.Action

		var topAdmin struct{ AdminName string }
		if err := h.db.WithContext(ctx).Model(&models.AuditLog{}).
			Select("admin_name").
			Where("actor_id IS NOT NULL").
			Group("admin_name").
			Order("COUNT(*) desc").
			Limit(1).
			Scan(&topAdmin).Error; err != nil {
			return err
		}
		stats.TopAdmin = topAdmin.AdminName
		return nil
	})
	if err != nil {
		return Statistics{}, apperrors.Storage("audit statistics", err)
	}

	return stats, nil
}

// retryRead runs a read once more on failure. Writes never go through here.
func retryRead(fn func() error) error {
	if err := fn(); err != nil {
		return fn()
	}
	return nil
}
