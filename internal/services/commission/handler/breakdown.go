package handler

import "github.com/shopspring/decimal"

// Breakdown splits a ride fare between the driver and the platform.
// DriverEarnings + PlatformEarnings always equals the fare amount exactly.
type Breakdown struct {
	Commission       decimal.Decimal `json:"commission"`
	Tax              decimal.Decimal `json:"tax"`
	Fee              decimal.Decimal `json:"fee"`
	DriverEarnings   decimal.Decimal `json:"driver_earnings"`
	PlatformEarnings decimal.Decimal `json:"platform_earnings"`
	// NegativeEarnings flags fares where fees and tax exceed the amount.
	// The figures are not clamped; the caller decides what to do.
	NegativeEarnings bool `json:"negative_earnings"`
}

// CalculateBreakdown computes commission and tax as percentages of the fare,
// rounded to currency precision, and derives the driver's share as the exact
// remainder so the two sides always sum back to the amount.
func CalculateBreakdown(amount, rate, taxRate, processingFee decimal.Decimal) Breakdown {
	hundred := decimal.NewFromInt(100)

	commission := amount.Mul(rate).Div(hundred).Round(2)
	tax := amount.Mul(taxRate).Div(hundred).Round(2)
	fee := processingFee.Round(2)

	driverEarnings := amount.Sub(commission).Sub(tax).Sub(fee)
	platformEarnings := commission.Add(tax).Add(fee)

	return Breakdown{
		Commission:       commission,
		Tax:              tax,
		Fee:              fee,
		DriverEarnings:   driverEarnings,
		PlatformEarnings: platformEarnings,
		NegativeEarnings: driverEarnings.IsNegative(),
	}
}
