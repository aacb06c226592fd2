package handler

import (
	"sort"
	"testing"

	"navo-system/internal/apperrors"
)

func TestRunBulkPartialFailure(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 99}
	result := runBulk(ids, func(id int64) error {
		if id == 99 {
			return apperrors.NotFound("driver", "99")
		}
		return nil
	})

	if len(result.Succeeded) != 4 {
		t.Fatalf("succeeded = %v, want 4 ids", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed = %v, want 1 entry", result.Failed)
	}
	if result.Failed[0].DriverID != 99 {
		t.Fatalf("failed driver = %d, want 99", result.Failed[0].DriverID)
	}
	if result.Failed[0].Error == "" {
		t.Fatal("failed entry carries no error message")
	}

	// Every id is accounted for exactly once.
	seen := make(map[int64]int)
	for _, id := range result.Succeeded {
		seen[id]++
	}
	for _, f := range result.Failed {
		seen[f.DriverID]++
	}
	for _, id := range ids {
		if seen[id] != 1 {
			t.Fatalf("id %d reported %d times, want 1", id, seen[id])
		}
	}
}

func TestRunBulkAllSucceed(t *testing.T) {
	ids := []int64{10, 11, 12}
	result := runBulk(ids, func(int64) error { return nil })

	if len(result.Failed) != 0 {
		t.Fatalf("failed = %v, want none", result.Failed)
	}
	got := append([]int64(nil), result.Succeeded...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, id := range ids {
		if got[i] != id {
			t.Fatalf("succeeded = %v, want %v", got, ids)
		}
	}
}

func TestRunBulkEmptyInput(t *testing.T) {
	result := runBulk(nil, func(int64) error { return nil })
	if len(result.Succeeded) != 0 || len(result.Failed) != 0 {
		t.Fatalf("empty batch produced %+v", result)
	}
}
