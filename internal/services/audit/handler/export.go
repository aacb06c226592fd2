package handler

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
)

// ExportRowCap bounds export size. Rows beyond the cap are silently
// excluded; this is documented behavior, not an error.
const ExportRowCap = 10000

var exportHeader = []string{
	"Timestamp", "Action", "Admin Name", "Admin Email",
	"Target Type", "Target ID", "IP Address", "Severity", "Details",
}

// ExportCSV streams the filtered ledger as CSV, newest first, capped at
// ExportRowCap rows.
func (h *AuditHandler) ExportCSV(ctx context.Context, f Filters, w io.Writer) error {
	var logs []models.AuditLog
	if err := retryRead(func() error {
		return h.buildQuery(ctx, f).
			Order("created_at desc, id asc").
			Limit(ExportRowCap).
			Find(&logs).Error
	}); err != nil {
		return apperrors.Storage("audit export", err)
	}
	return WriteCSV(w, logs)
}

// WriteCSV writes the export header plus at most ExportRowCap rows. Fields
// containing commas or quotes are escaped by encoding/csv.
func WriteCSV(w io.Writer, logs []models.AuditLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i, entry := range logs {
		if i >= ExportRowCap {
			break
		}
		createdAt := ""
		if entry.CreatedAt != nil {
			createdAt = entry.CreatedAt.Format(time.RFC3339)
		}
		adminName := entry.AdminName
		if entry.ActorID == nil {
			adminName = "system"
		}
		record := []string{
			createdAt,
			entry.Action,
			adminName,
			entry.AdminEmail,
			entry.TargetType,
			entry.TargetID,
			entry.IPAddress,
			entry.Severity,
			entry.Metadata,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
