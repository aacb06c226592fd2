package handler

import (
	"testing"
	"time"
)

func TestCooldownTTL(t *testing.T) {
	tests := []struct {
		minutes int
		want    time.Duration
	}{
		{0, 0},
		{-5, 0},
		{1, time.Minute},
		{30, 30 * time.Minute},
		{1440, 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := CooldownTTL(tt.minutes); got != tt.want {
			t.Errorf("CooldownTTL(%d) = %v, want %v", tt.minutes, got, tt.want)
		}
	}
}
