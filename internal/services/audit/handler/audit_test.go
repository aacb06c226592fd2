package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"navo-system/internal/database/models"
)

func TestToModelDefaultsSeverity(t *testing.T) {
	h := &AuditHandler{}
	row := h.toModel(Entry{Action: "driver_approved", Actor: SystemActor()})
	if row.Severity != models.SeverityInfo {
		t.Fatalf("severity = %q, want %q", row.Severity, models.SeverityInfo)
	}
}

func TestToModelSystemActorHasNoActorID(t *testing.T) {
	h := &AuditHandler{}
	row := h.toModel(Entry{Action: "driver_auto_suspended", Actor: SystemActor()})
	if row.ActorID != nil {
		t.Fatalf("system actor must have nil actor id, got %v", *row.ActorID)
	}
	if row.AdminName != "system" {
		t.Fatalf("system actor name = %q", row.AdminName)
	}
}

func TestToModelAdminActor(t *testing.T) {
	h := &AuditHandler{}
	actor := AdminActor(7, "Aisha Karimova", "aisha@navo.example", "10.0.0.4")
	row := h.toModel(Entry{
		Action:     "driver_banned",
		Actor:      actor,
		TargetType: "driver",
		TargetID:   "42",
		Severity:   models.SeverityCritical,
		Metadata:   map[string]interface{}{"reason": "fraud_suspicion"},
	})

	if row.ActorID == nil || *row.ActorID != 7 {
		t.Fatalf("actor id = %v, want 7", row.ActorID)
	}
	if row.IPAddress != "10.0.0.4" || row.AdminEmail != "aisha@navo.example" {
		t.Fatalf("actor fields lost: %+v", row)
	}
	if row.Metadata != `{"reason":"fraud_suspicion"}` {
		t.Fatalf("metadata = %q", row.Metadata)
	}
}

func TestRetryReadRetriesOnce(t *testing.T) {
	calls := 0
	err := retryRead(func() error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryRead: %v", err)
	}
	if calls != 2 {
		t.Fatalf("fn called %d times, want 2", calls)
	}
}

func TestRetryReadGivesUpAfterSecondFailure(t *testing.T) {
	calls := 0
	wantErr := errors.New("still down")
	err := retryRead(func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("retryRead = %v, want %v", err, wantErr)
	}
	if calls != 2 {
		t.Fatalf("fn called %d times, want 2", calls)
	}
}

func TestEscapeLike(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"50%", `50\%`},
		{"target_id", `target\_id`},
		{`a\b`, `a\\b`},
		{"driver_banned", `driver\_banned`},
		{"plain search", "plain search"},
	}
	for _, tc := range cases {
		if got := escapeLike(tc.in); got != tc.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func newTestAuditHandler(t *testing.T) *AuditHandler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so every query sees the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewAuditHandler(db)
}

func TestQueryPaginationNoGapsNoDuplicates(t *testing.T) {
	h := newTestAuditHandler(t)
	base := time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC)

	// Five rows per timestamp so the id tie-break is exercised.
	for i := 0; i < 25; i++ {
		ts := base.Add(time.Duration(i/5) * time.Minute)
		row := models.AuditLog{
			Action:    "driver_approved",
			AdminName: "system",
			Severity:  models.SeverityInfo,
			CreatedAt: &ts,
		}
		if err := h.db.Create(&row).Error; err != nil {
			t.Fatalf("seed row %d: %v", i, err)
		}
	}

	seen := make(map[int64]bool)
	var all []models.AuditLog
	for page := 1; page <= 3; page++ {
		logs, totalCount, err := h.Query(context.Background(), Filters{}, page, 10)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if totalCount != 25 {
			t.Fatalf("page %d total = %d, want 25", page, totalCount)
		}
		wantLen := 10
		if page == 3 {
			wantLen = 5
		}
		if len(logs) != wantLen {
			t.Fatalf("page %d returned %d rows, want %d", page, len(logs), wantLen)
		}
		for _, row := range logs {
			if seen[row.ID] {
				t.Fatalf("row %d appears on more than one page", row.ID)
			}
			seen[row.ID] = true
		}
		all = append(all, logs...)
	}

	if len(all) != 25 {
		t.Fatalf("concatenated pages hold %d rows, want 25", len(all))
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if cur.CreatedAt.After(*prev.CreatedAt) {
			t.Fatalf("created_at not descending at index %d", i)
		}
		if cur.CreatedAt.Equal(*prev.CreatedAt) && cur.ID < prev.ID {
			t.Fatalf("id tie-break not ascending at index %d", i)
		}
	}
}
