package handler

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"testing"
	"time"

	"navo-system/internal/database/models"
)

func sampleLog(id int64) models.AuditLog {
	createdAt := time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)
	actorID := int64(7)
	return models.AuditLog{
		ID:         id,
		Action:     "driver_suspended",
		ActorID:    &actorID,
		AdminName:  "Aisha Karimova",
		AdminEmail: "aisha@navo.example",
		TargetType: "driver",
		TargetID:   strconv.FormatInt(id, 10),
		IPAddress:  "10.0.0.4",
		Severity:   models.SeverityWarning,
		Metadata:   `{"reason":"low_rating"}`,
		CreatedAt:  &createdAt,
	}
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "Timestamp,Action,Admin Name,Admin Email,Target Type,Target ID,IP Address,Severity,Details\n"
	if got := buf.String(); got != want {
		t.Fatalf("header = %q, want %q", got, want)
	}
}

func TestWriteCSVRow(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []models.AuditLog{sampleLog(42)}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	reader := csv.NewReader(&buf)
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want header plus one row", len(records))
	}

	row := records[1]
	if row[0] != "2026-08-30T14:05:00Z" {
		t.Errorf("timestamp = %q", row[0])
	}
	if row[1] != "driver_suspended" || row[2] != "Aisha Karimova" || row[5] != "42" {
		t.Errorf("unexpected row %v", row)
	}
	if row[8] != `{"reason":"low_rating"}` {
		t.Errorf("details = %q", row[8])
	}
}

func TestWriteCSVEscapesCommasAndQuotes(t *testing.T) {
	entry := sampleLog(1)
	entry.AdminName = `Karimova, Aisha "AK"`

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []models.AuditLog{entry}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if got := records[1][2]; got != `Karimova, Aisha "AK"` {
		t.Errorf("admin name round-tripped to %q", got)
	}
}

func TestWriteCSVSystemActor(t *testing.T) {
	entry := sampleLog(1)
	entry.ActorID = nil
	entry.AdminName = ""
	entry.AdminEmail = ""

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []models.AuditLog{entry}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if got := records[1][2]; got != "system" {
		t.Errorf("system actor rendered as %q, want %q", got, "system")
	}
}

func TestWriteCSVCapsRows(t *testing.T) {
	logs := make([]models.AuditLog, ExportRowCap+50)
	for i := range logs {
		logs[i] = sampleLog(int64(i + 1))
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, logs); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Count(buf.String(), "\n")
	if lines != ExportRowCap+1 {
		t.Fatalf("export has %d lines, want %d rows plus header", lines, ExportRowCap)
	}
}
