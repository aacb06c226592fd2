package models

import "time"

// Driver statuses. A driver holds exactly one status at a time; records are
// never deleted, banned/rejected are terminal.
const (
	DriverStatusPending   = "pending"
	DriverStatusApproved  = "approved"
	DriverStatusActive    = "active"
	DriverStatusSuspended = "suspended"
	DriverStatusBanned    = "banned"
	DriverStatusRejected  = "rejected"
)

// Fixed suspension reason taxonomy.
const (
	ReasonDocumentsIncomplete = "documents_incomplete"
	ReasonDocumentsFake       = "documents_fake"
	ReasonLowRating           = "low_rating"
	ReasonPassengerComplaints = "passenger_complaints"
	ReasonFraudSuspicion      = "fraud_suspicion"
	ReasonSafetyViolation     = "safety_violation"
	ReasonPaymentDisputes     = "payment_disputes"
	ReasonOther               = "other"

	// Reason used by rating/complaint triggered transitions.
	ReasonLowRatingAuto = "low_rating_auto"
)

type Driver struct {
	ID                int64      `gorm:"primaryKey;autoIncrement"`
	UserID            int64      `gorm:"index;not null"`
	FullName          string     `gorm:"not null"`
	Phone             string
	VehicleType       string     `gorm:"index"`
	Status            string     `gorm:"index;not null;default:pending"`
	Rating            float64    `gorm:"not null;default:5"`
	ComplaintCount    int        `gorm:"not null;default:0"`
	RideCount         int        `gorm:"not null;default:0"`
	TotalEarnings     string     `gorm:"type:decimal(18,2);not null;default:0"`
	DeviceID          string     `gorm:"index"`
	DrivingExperience int        `gorm:"not null;default:0"`
	Age               int
	SuspensionReason  string
	BanReason         string
	RejectionReason   string
	ApprovedAt        *time.Time
	ActivatedAt       *time.Time
	SuspendedAt       *time.Time
	BannedAt          *time.Time
	RejectedAt        *time.Time
	Version           int64      `gorm:"not null;default:0"`
	CreatedAt         *time.Time `gorm:"autoCreateTime"`
	UpdatedAt         *time.Time `gorm:"autoUpdateTime"`
}

// BlacklistedDevice blocks a banned driver's device from re-registration.
type BlacklistedDevice struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	DeviceID  string     `gorm:"uniqueIndex;not null"`
	DriverID  int64      `gorm:"index;not null"`
	Reason    string     `gorm:"type:text"`
	CreatedAt *time.Time `gorm:"autoCreateTime"`
}

type BlockedIP struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	IP        string     `gorm:"uniqueIndex;not null"`
	Reason    string     `gorm:"type:text"`
	CreatedAt *time.Time `gorm:"autoCreateTime"`
}
