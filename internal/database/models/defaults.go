package models

// DefaultDriverRuleConfig seeds the singleton row on first read.
func DefaultDriverRuleConfig() DriverRuleConfig {
	return DriverRuleConfig{
		MinAge:                        21,
		MinDrivingExperience:          2,
		MinRatingForActivation:        4.0,
		AutoSuspendBelowRating:        3.0,
		AutoBanBelowRating:            2.0,
		MaxComplaintsBeforeSuspension: 5,
		MaxComplaintsBeforeBan:        10,
		RequireDocuments:              true,
		RequireVehicleInspection:      true,
	}
}

// DefaultCommissionSettings seeds the singleton row on first read.
func DefaultCommissionSettings() CommissionSettings {
	return CommissionSettings{
		DefaultCommission:  20,
		PeakHourCommission: 25,
		PeakStartHour:      17,
		PeakEndHour:        20,
		TaxRate:            0,
		ProcessingFee:      "0.00",
	}
}
