package domain

import "time"

type NotificationKind string

const (
	NotifyPivotProposed     NotificationKind = "pivot_proposed"
	NotifyPivotExpiringSoon NotificationKind = "pivot_expiring_soon"
	NotifyPivotExpired      NotificationKind = "pivot_expired"
	NotifyContentFlagged    NotificationKind = "content_flagged"
)

// Notification is handed to the delivery collaborator; delivery itself is
// outside this module.
type Notification struct {
	Kind    NotificationKind
	TripID  string
	SlotID  string
	PivotID string
	UserID  string
	At      time.Time
	Detail  map[string]any
}
