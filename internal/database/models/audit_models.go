package models

import "time"

// Audit severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
	SeveritySecurity = "security"
)

// AuditLog is append-only. Rows are never updated or deleted; queries are
// the only operation after insertion.
type AuditLog struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Action     string `gorm:"index;not null"`
	ActorID    *int64 `gorm:"index"`
	AdminName  string
	AdminEmail string
	TargetType string `gorm:"index"`
	TargetID   string `gorm:"index"`
	IPAddress  string
	Severity   string     `gorm:"index;not null;default:info"`
	Metadata   string     `gorm:"type:text"`
	CreatedAt  *time.Time `gorm:"autoCreateTime;index"`
}

// Admin is a dashboard account. Authentication lives at the gateway; the
// policy service itself only trusts the verified actor identity.
type Admin struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	FullName  string `gorm:"not null"`
	Role      string `gorm:"not null;default:admin"`
	IsActive  bool   `gorm:"default:true"`
	LastLogin *time.Time
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}
