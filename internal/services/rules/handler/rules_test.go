package handler

import (
	"errors"
	"testing"

	"navo-system/internal/apperrors"
	"navo-system/internal/database/models"
)

func mustValidationError(t *testing.T, err error) *apperrors.ValidationError {
	t.Helper()
	var validationErr *apperrors.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("got %v, want a ValidationError", err)
	}
	return validationErr
}

func TestValidateDriverRulesDefaultsPass(t *testing.T) {
	if err := ValidateDriverRules(models.DefaultDriverRuleConfig()); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestValidateDriverRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.DriverRuleConfig)
		wantField string
	}{
		{
			"rating above five",
			func(cfg *models.DriverRuleConfig) { cfg.MinRatingForActivation = 5.5 },
			"min_rating_for_activation",
		},
		{
			"negative rating",
			func(cfg *models.DriverRuleConfig) { cfg.AutoBanBelowRating = -1 },
			"auto_ban_below_rating",
		},
		{
			"negative complaint count",
			func(cfg *models.DriverRuleConfig) { cfg.MaxComplaintsBeforeBan = -3 },
			"max_complaints_before_ban",
		},
		{
			"ban threshold at suspend threshold",
			func(cfg *models.DriverRuleConfig) { cfg.AutoBanBelowRating = cfg.AutoSuspendBelowRating },
			"auto_ban_below_rating",
		},
		{
			"suspend threshold above activation threshold",
			func(cfg *models.DriverRuleConfig) { cfg.AutoSuspendBelowRating = 4.5 },
			"auto_suspend_below_rating",
		},
		{
			"suspension complaints above ban complaints",
			func(cfg *models.DriverRuleConfig) {
				cfg.MaxComplaintsBeforeSuspension = 12
				cfg.MaxComplaintsBeforeBan = 10
			},
			"max_complaints_before_suspension",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultDriverRuleConfig()
			tt.mutate(&cfg)
			validationErr := mustValidationError(t, ValidateDriverRules(cfg))
			if validationErr.Field != tt.wantField {
				t.Errorf("failed on field %q, want %q", validationErr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateCommissionSettingsDefaultsPass(t *testing.T) {
	if err := ValidateCommissionSettings(models.DefaultCommissionSettings()); err != nil {
		t.Fatalf("default settings rejected: %v", err)
	}
}

func TestValidateCommissionSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CommissionSettings)
	}{
		{"rate above hundred", func(s *models.CommissionSettings) { s.DefaultCommission = 101 }},
		{"negative rate", func(s *models.CommissionSettings) { s.PeakHourCommission = -1 }},
		{"tax above hundred", func(s *models.CommissionSettings) { s.TaxRate = 120 }},
		{"hour out of range", func(s *models.CommissionSettings) { s.PeakStartHour = 24 }},
		{"negative hour", func(s *models.CommissionSettings) { s.PeakEndHour = -1 }},
		{"fee not a number", func(s *models.CommissionSettings) { s.ProcessingFee = "free" }},
		{"negative fee", func(s *models.CommissionSettings) { s.ProcessingFee = "-0.50" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := models.DefaultCommissionSettings()
			tt.mutate(&settings)
			mustValidationError(t, ValidateCommissionSettings(settings))
		})
	}
}

func TestValidateCommissionRule(t *testing.T) {
	valid := models.CommissionRule{
		Name:           "loyal drivers",
		ConditionType:  models.ConditionRideCount,
		ConditionValue: "500",
		CommissionRate: 15,
	}
	if err := ValidateCommissionRule(valid); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.CommissionRule)
	}{
		{"empty name", func(r *models.CommissionRule) { r.Name = "" }},
		{"rate above hundred", func(r *models.CommissionRule) { r.CommissionRate = 150 }},
		{"negative rate", func(r *models.CommissionRule) { r.CommissionRate = -5 }},
		{"ride count not an integer", func(r *models.CommissionRule) { r.ConditionValue = "many" }},
		{"earnings not an amount", func(r *models.CommissionRule) {
			r.ConditionType = models.ConditionTotalEarnings
			r.ConditionValue = "a lot"
		}},
		{"rating out of range", func(r *models.CommissionRule) {
			r.ConditionType = models.ConditionRating
			r.ConditionValue = "5.5"
		}},
		{"empty vehicle type", func(r *models.CommissionRule) {
			r.ConditionType = models.ConditionVehicleType
			r.ConditionValue = ""
		}},
		{"unknown condition type", func(r *models.CommissionRule) { r.ConditionType = "weather" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid
			tt.mutate(&rule)
			mustValidationError(t, ValidateCommissionRule(rule))
		})
	}
}

func TestValidateAutomationRule(t *testing.T) {
	valid := models.AutomationRule{
		EventType:        "driver_suspended",
		NotificationType: "email",
		RecipientType:    "driver",
		CooldownMinutes:  30,
	}
	if err := ValidateAutomationRule(valid); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.AutomationRule)
	}{
		{"empty event type", func(r *models.AutomationRule) { r.EventType = "" }},
		{"empty notification type", func(r *models.AutomationRule) { r.NotificationType = "" }},
		{"empty recipient type", func(r *models.AutomationRule) { r.RecipientType = "" }},
		{"negative cooldown", func(r *models.AutomationRule) { r.CooldownMinutes = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid
			tt.mutate(&rule)
			mustValidationError(t, ValidateAutomationRule(rule))
		})
	}
}

func TestApplyDriverRulesPatchLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := models.DefaultDriverRuleConfig()
	before := cfg

	minRating := 4.5
	applyDriverRulesPatch(&cfg, DriverRulesPatch{MinRatingForActivation: &minRating})

	if cfg.MinRatingForActivation != 4.5 {
		t.Errorf("patched field = %v, want 4.5", cfg.MinRatingForActivation)
	}
	cfg.MinRatingForActivation = before.MinRatingForActivation
	if cfg != before {
		t.Errorf("patch touched unset fields: %+v", cfg)
	}
}

func TestPatchMetadataDropsUnsetFields(t *testing.T) {
	rate := 18.0
	fields := patchMetadata(CommissionSettingsPatch{DefaultCommission: &rate})

	if len(fields) != 1 {
		t.Fatalf("metadata has %d fields, want 1: %v", len(fields), fields)
	}
	if fields["default_commission"] != 18.0 {
		t.Errorf("default_commission = %v, want 18", fields["default_commission"])
	}
}
