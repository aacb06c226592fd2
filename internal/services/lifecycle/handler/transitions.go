package handler

import (
	"navo-system/internal/database/models"
)

// Action is an admin- or system-initiated lifecycle transition.
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionSuspend    Action = "suspend"
	ActionBan        Action = "ban"
	ActionReactivate Action = "reactivate"
	ActionActivate   Action = "activate"
)

// legalSources lists the statuses each action may be applied from. Banned
// and rejected have no outgoing edges.
var legalSources = map[Action][]string{
	ActionApprove:    {models.DriverStatusPending},
	ActionReject:     {models.DriverStatusPending},
	ActionActivate:   {models.DriverStatusApproved},
	ActionSuspend:    {models.DriverStatusApproved, models.DriverStatusActive},
	ActionBan:        {models.DriverStatusApproved, models.DriverStatusActive, models.DriverStatusSuspended},
	ActionReactivate: {models.DriverStatusSuspended},
}

var targetStatus = map[Action]string{
	ActionApprove:    models.DriverStatusApproved,
	ActionReject:     models.DriverStatusRejected,
	ActionActivate:   models.DriverStatusActive,
	ActionSuspend:    models.DriverStatusSuspended,
	ActionBan:        models.DriverStatusBanned,
	ActionReactivate: models.DriverStatusActive,
}

var auditSeverity = map[Action]string{
	ActionApprove:    models.SeverityInfo,
	ActionReject:     models.SeverityWarning,
	ActionActivate:   models.SeverityInfo,
	ActionSuspend:    models.SeverityWarning,
	ActionBan:        models.SeverityCritical,
	ActionReactivate: models.SeverityInfo,
}

func CanTransition(status string, action Action) bool {
	for _, source := range legalSources[action] {
		if source == status {
			return true
		}
	}
	return false
}

func TargetStatus(action Action) (string, bool) {
	target, ok := targetStatus[action]
	return target, ok
}

func SeverityFor(action Action) string {
	if severity, ok := auditSeverity[action]; ok {
		return severity
	}
	return models.SeverityInfo
}

// RequiresReason reports whether the action must carry a non-empty reason.
func RequiresReason(action Action) bool {
	switch action {
	case ActionReject, ActionSuspend, ActionBan:
		return true
	}
	return false
}

var suspensionReasons = map[string]bool{
	models.ReasonDocumentsIncomplete: true,
	models.ReasonDocumentsFake:       true,
	models.ReasonLowRating:           true,
	models.ReasonPassengerComplaints: true,
	models.ReasonFraudSuspicion:      true,
	models.ReasonSafetyViolation:     true,
	models.ReasonPaymentDisputes:     true,
	models.ReasonOther:               true,
	models.ReasonLowRatingAuto:       true,
}

// ValidSuspensionReason checks the fixed reason taxonomy for suspend.
func ValidSuspensionReason(reason string) bool {
	return suspensionReasons[reason]
}

// RatingAction returns the auto-transition a rating crossing triggers, or
// "" when no threshold is crossed. Ban is checked before suspend: on a
// misconfigured rule set the more severe outcome wins.
func RatingAction(rating float64, cfg models.DriverRuleConfig) Action {
	if rating < cfg.AutoBanBelowRating {
		return ActionBan
	}
	if rating < cfg.AutoSuspendBelowRating {
		return ActionSuspend
	}
	return ""
}

// ComplaintAction mirrors RatingAction for complaint-count crossings.
func ComplaintAction(complaintCount int, cfg models.DriverRuleConfig) Action {
	if cfg.MaxComplaintsBeforeBan > 0 && complaintCount >= cfg.MaxComplaintsBeforeBan {
		return ActionBan
	}
	if cfg.MaxComplaintsBeforeSuspension > 0 && complaintCount >= cfg.MaxComplaintsBeforeSuspension {
		return ActionSuspend
	}
	return ""
}
