package models

import "time"

// DriverRuleConfig is a single-row table holding the configurable driver
// lifecycle thresholds. Defaults are created lazily on first read.
type DriverRuleConfig struct {
	ID                            int64      `gorm:"primaryKey;autoIncrement"`
	MinAge                        int        `gorm:"not null;default:21"`
	MinDrivingExperience          int        `gorm:"not null;default:2"`
	MinRatingForActivation        float64    `gorm:"not null;default:4"`
	AutoSuspendBelowRating        float64    `gorm:"not null;default:3"`
	AutoBanBelowRating            float64    `gorm:"not null;default:2"`
	MaxComplaintsBeforeSuspension int        `gorm:"not null;default:5"`
	MaxComplaintsBeforeBan        int        `gorm:"not null;default:10"`
	RequireDocuments              bool       `gorm:"not null;default:true"`
	RequireVehicleInspection      bool       `gorm:"not null;default:true"`
	CreatedAt                     *time.Time `gorm:"autoCreateTime"`
	UpdatedAt                     *time.Time `gorm:"autoUpdateTime"`
}

// CommissionSettings is a single-row table with the platform-wide rates.
type CommissionSettings struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement"`
	DefaultCommission  float64    `gorm:"not null;default:20"`
	PeakHourCommission float64    `gorm:"not null;default:25"`
	PeakStartHour      int        `gorm:"not null;default:17"`
	PeakEndHour        int        `gorm:"not null;default:20"`
	TaxRate            float64    `gorm:"not null;default:0"`
	ProcessingFee      string     `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt          *time.Time `gorm:"autoCreateTime"`
	UpdatedAt          *time.Time `gorm:"autoUpdateTime"`
}

// Commission rule condition types.
const (
	ConditionRideCount     = "ride_count"
	ConditionTotalEarnings = "total_earnings"
	ConditionRating        = "rating"
	ConditionVehicleType   = "vehicle_type"
)

// CommissionRule is a dynamic rate rule. Among matching active rules the
// highest Priority wins; ties go to the most recently created rule.
type CommissionRule struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	Name           string     `gorm:"not null"`
	ConditionType  string     `gorm:"index;not null"`
	ConditionValue string     `gorm:"not null"`
	CommissionRate float64    `gorm:"not null"`
	Priority       int        `gorm:"index;not null;default:0"`
	IsActive       bool       `gorm:"index;not null;default:true"`
	CreatedAt      *time.Time `gorm:"autoCreateTime"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime"`
}

// DriverCommissionOverride pins a driver to a fixed rate, superseding both
// the default and any rule-derived rate. Deleting it restores resolution.
type DriverCommissionOverride struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	DriverID       int64      `gorm:"uniqueIndex;not null"`
	CommissionRate float64    `gorm:"not null"`
	IsCustom       bool       `gorm:"not null;default:true"`
	CreatedAt      *time.Time `gorm:"autoCreateTime"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime"`
}

// AutomationRule triggers a notification when an event matching its
// condition fires, at most once per cooldown window.
type AutomationRule struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	EventType        string `gorm:"index;not null"`
	ConditionValue   string
	NotificationType string     `gorm:"not null"`
	RecipientType    string     `gorm:"not null"`
	CooldownMinutes  int        `gorm:"not null;default:0"`
	IsActive         bool       `gorm:"index;not null;default:true"`
	CreatedAt        *time.Time `gorm:"autoCreateTime"`
	UpdatedAt        *time.Time `gorm:"autoUpdateTime"`
}

// NotificationHistory records every enqueue attempt. Delivery is handled by
// an external collaborator; this service only writes status "queued".
type NotificationHistory struct {
	ID            int64      `gorm:"primaryKey;autoIncrement"`
	EventType     string     `gorm:"index;not null"`
	RecipientType string     `gorm:"not null"`
	Payload       string     `gorm:"type:text"`
	Status        string     `gorm:"not null;default:queued"`
	CreatedAt     *time.Time `gorm:"autoCreateTime"`
}
