package handler

import (
	"testing"
	"time"

	"navo-system/internal/database/models"
)

func testDriver() models.Driver {
	return models.Driver{
		ID:            1,
		Status:        models.DriverStatusActive,
		Rating:        4.6,
		RideCount:     120,
		TotalEarnings: "3500.00",
		VehicleType:   "sedan",
	}
}

func testSettings() models.CommissionSettings {
	settings := models.DefaultCommissionSettings()
	settings.DefaultCommission = 20
	settings.PeakHourCommission = 25
	settings.PeakStartHour = 17
	settings.PeakEndHour = 20
	return settings
}

func at(hour int) RideContext {
	return RideContext{At: time.Date(2026, 3, 14, hour, 30, 0, 0, time.UTC)}
}

func ruleAt(id int64, priority int, rate float64, createdAt time.Time) models.CommissionRule {
	return models.CommissionRule{
		ID:             id,
		Name:           "rule",
		ConditionType:  models.ConditionRideCount,
		ConditionValue: "100",
		CommissionRate: rate,
		Priority:       priority,
		IsActive:       true,
		CreatedAt:      &createdAt,
	}
}

func TestResolveDefaultRate(t *testing.T) {
	got := Resolve(nil, nil, testSettings(), testDriver(), at(10))
	if got != 20 {
		t.Fatalf("Resolve = %v, want default 20", got)
	}
}

func TestResolvePeakHourRate(t *testing.T) {
	got := Resolve(nil, nil, testSettings(), testDriver(), at(18))
	if got != 25 {
		t.Fatalf("Resolve = %v, want peak 25", got)
	}
}

func TestResolveRuleBeatsPeak(t *testing.T) {
	rules := []models.CommissionRule{ruleAt(1, 0, 15, time.Now())}
	got := Resolve(nil, rules, testSettings(), testDriver(), at(18))
	if got != 15 {
		t.Fatalf("Resolve = %v, want rule rate 15 over peak", got)
	}
}

func TestResolveOverrideBeatsEverything(t *testing.T) {
	override := &models.DriverCommissionOverride{DriverID: 1, CommissionRate: 5}
	rules := []models.CommissionRule{ruleAt(1, 10, 15, time.Now())}
	got := Resolve(override, rules, testSettings(), testDriver(), at(18))
	if got != 5 {
		t.Fatalf("Resolve = %v, want override rate 5", got)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	rules := []models.CommissionRule{
		ruleAt(1, 2, 12, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		ruleAt(2, 5, 14, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)),
	}
	first := Resolve(nil, rules, testSettings(), testDriver(), at(9))
	for i := 0; i < 50; i++ {
		if got := Resolve(nil, rules, testSettings(), testDriver(), at(9)); got != first {
			t.Fatalf("Resolve changed between identical calls: %v then %v", first, got)
		}
	}
}

func TestPickRuleHighestPriorityWins(t *testing.T) {
	rules := []models.CommissionRule{
		ruleAt(1, 1, 18, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		ruleAt(2, 9, 12, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		ruleAt(3, 4, 16, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
	}
	best := pickRule(rules, testDriver(), at(9))
	if best == nil || best.ID != 2 {
		t.Fatalf("pickRule picked %+v, want rule 2 with priority 9", best)
	}
}

func TestPickRuleTieBreaksOnNewestCreatedAt(t *testing.T) {
	rules := []models.CommissionRule{
		ruleAt(1, 5, 18, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		ruleAt(2, 5, 12, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)),
	}
	best := pickRule(rules, testDriver(), at(9))
	if best == nil || best.ID != 2 {
		t.Fatalf("pickRule picked %+v, want the newer rule 2", best)
	}
}

func TestPickRuleFullTieBreaksOnHigherID(t *testing.T) {
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rules := []models.CommissionRule{
		ruleAt(7, 5, 18, createdAt),
		ruleAt(3, 5, 12, createdAt),
	}
	best := pickRule(rules, testDriver(), at(9))
	if best == nil || best.ID != 7 {
		t.Fatalf("pickRule picked %+v, want rule 7", best)
	}
}

func TestPickRuleIgnoresInactiveAndNonMatching(t *testing.T) {
	inactive := ruleAt(1, 9, 10, time.Now())
	inactive.IsActive = false
	nonMatching := ruleAt(2, 9, 11, time.Now())
	nonMatching.ConditionValue = "9999"
	rules := []models.CommissionRule{inactive, nonMatching}

	if best := pickRule(rules, testDriver(), at(9)); best != nil {
		t.Fatalf("pickRule picked %+v, want nil", best)
	}
}

func TestMatchRule(t *testing.T) {
	driver := testDriver()

	tests := []struct {
		name          string
		conditionType string
		value         string
		rideCtx       RideContext
		want          bool
	}{
		{"ride count met", models.ConditionRideCount, "100", at(9), true},
		{"ride count exact", models.ConditionRideCount, "120", at(9), true},
		{"ride count not met", models.ConditionRideCount, "121", at(9), false},
		{"ride count garbage", models.ConditionRideCount, "lots", at(9), false},
		{"earnings met", models.ConditionTotalEarnings, "3000", at(9), true},
		{"earnings not met", models.ConditionTotalEarnings, "5000.01", at(9), false},
		{"earnings garbage", models.ConditionTotalEarnings, "much", at(9), false},
		{"rating met", models.ConditionRating, "4.5", at(9), true},
		{"rating not met", models.ConditionRating, "4.7", at(9), false},
		{"vehicle match", models.ConditionVehicleType, "sedan", RideContext{VehicleType: "sedan", At: at(9).At}, true},
		{"vehicle mismatch", models.ConditionVehicleType, "suv", RideContext{VehicleType: "sedan", At: at(9).At}, false},
		{"vehicle unknown in ride", models.ConditionVehicleType, "sedan", at(9), false},
		{"unknown condition type", "moon_phase", "full", at(9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.CommissionRule{
				ConditionType:  tt.conditionType,
				ConditionValue: tt.value,
				IsActive:       true,
			}
			if got := MatchRule(rule, driver, tt.rideCtx); got != tt.want {
				t.Errorf("MatchRule(%s=%s) = %v, want %v", tt.conditionType, tt.value, got, tt.want)
			}
		})
	}
}

func TestInPeakWindow(t *testing.T) {
	tests := []struct {
		hour, start, end int
		want             bool
	}{
		{17, 17, 20, true},
		{19, 17, 20, true},
		{20, 17, 20, false},
		{16, 17, 20, false},
		{23, 22, 2, true},
		{0, 22, 2, true},
		{1, 22, 2, true},
		{2, 22, 2, false},
		{12, 22, 2, false},
		{10, 9, 9, false},
		{9, 9, 9, false},
	}
	for _, tt := range tests {
		if got := InPeakWindow(tt.hour, tt.start, tt.end); got != tt.want {
			t.Errorf("InPeakWindow(%d, %d, %d) = %v, want %v", tt.hour, tt.start, tt.end, got, tt.want)
		}
	}
}
