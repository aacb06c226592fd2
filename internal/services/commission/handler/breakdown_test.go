package handler

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculateBreakdown(t *testing.T) {
	b := CalculateBreakdown(dec("100.00"), dec("20"), dec("5"), dec("1.50"))

	if got := b.Commission.StringFixed(2); got != "20.00" {
		t.Errorf("commission = %s, want 20.00", got)
	}
	if got := b.Tax.StringFixed(2); got != "5.00" {
		t.Errorf("tax = %s, want 5.00", got)
	}
	if got := b.Fee.StringFixed(2); got != "1.50" {
		t.Errorf("fee = %s, want 1.50", got)
	}
	if got := b.DriverEarnings.StringFixed(2); got != "73.50" {
		t.Errorf("driver earnings = %s, want 73.50", got)
	}
	if got := b.PlatformEarnings.StringFixed(2); got != "26.50" {
		t.Errorf("platform earnings = %s, want 26.50", got)
	}
	if b.NegativeEarnings {
		t.Error("negative earnings flagged on a profitable fare")
	}
}

func TestCalculateBreakdownSumInvariant(t *testing.T) {
	amounts := []string{"0.01", "0.03", "1.00", "9.99", "33.33", "100.00", "7777.77"}
	rates := []string{"0", "12.5", "20", "33.33", "100"}

	for _, amount := range amounts {
		for _, rate := range rates {
			b := CalculateBreakdown(dec(amount), dec(rate), dec("7.25"), dec("0.40"))
			sum := b.DriverEarnings.Add(b.PlatformEarnings)
			if !sum.Equal(dec(amount)) {
				t.Errorf("amount %s rate %s: driver %s + platform %s = %s, want %s",
					amount, rate, b.DriverEarnings, b.PlatformEarnings, sum, amount)
			}
		}
	}
}

func TestCalculateBreakdownRounding(t *testing.T) {
	// 33.33% of 0.10 is 0.033333, which rounds to 0.03; the driver share
	// absorbs the remainder so the sides still sum to the fare.
	b := CalculateBreakdown(dec("0.10"), dec("33.33"), dec("0"), dec("0"))
	if got := b.Commission.StringFixed(2); got != "0.03" {
		t.Errorf("commission = %s, want 0.03", got)
	}
	if got := b.DriverEarnings.StringFixed(2); got != "0.07" {
		t.Errorf("driver earnings = %s, want 0.07", got)
	}
}

func TestCalculateBreakdownNegativeEarnings(t *testing.T) {
	b := CalculateBreakdown(dec("1.00"), dec("20"), dec("5"), dec("2.00"))

	if !b.NegativeEarnings {
		t.Fatal("expected negative earnings flag when fees exceed the fare")
	}
	if !b.DriverEarnings.IsNegative() {
		t.Fatalf("driver earnings = %s, want a negative figure, not a clamp", b.DriverEarnings)
	}
	sum := b.DriverEarnings.Add(b.PlatformEarnings)
	if !sum.Equal(dec("1.00")) {
		t.Fatalf("sum invariant broken on negative fare: %s", sum)
	}
}

func TestCalculateBreakdownZeroAmount(t *testing.T) {
	b := CalculateBreakdown(dec("0"), dec("20"), dec("5"), dec("0"))
	if !b.DriverEarnings.IsZero() || !b.PlatformEarnings.IsZero() {
		t.Fatalf("zero fare split into driver %s platform %s", b.DriverEarnings, b.PlatformEarnings)
	}
	if b.NegativeEarnings {
		t.Error("zero fare with zero fee must not be flagged negative")
	}
}
