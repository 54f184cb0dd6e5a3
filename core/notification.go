package core

import (
	"fmt"
	"time"
)

// Notification types.
const (
	NotifyApprovalRequest  = "approval_request"
	NotifyApprovalDecision = "approval_decision"
	NotifyManualUpdate     = "manual_update"
	NotifySystem           = "system"
)

type Notification struct {
	ID                int64     `json:"id"`
	User              string    `json:"user_username"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	Type              string    `json:"type"`
	RelatedManualID   string    `json:"related_manual_id,omitempty"`
	RelatedVersionSeq int       `json:"related_version_seq,omitempty"`
	IsRead            bool      `json:"is_read"`
	CreatedAt         time.Time `json:"created_at"`
	ReadAt            time.Time `json:"read_at,omitempty"`
}

type NotificationDB interface {
	InsertNotification(n Notification) (*Notification, error)
	UserNotifications(user string, limit int) ([]Notification, error)
	UnreadNotifications(user string) ([]Notification, error)
	UnreadCount(user string) (int, error)
	MarkRead(id int64, user string) error
	MarkAllRead(user string) error
	DeleteNotification(id int64, user string) error
}

// A Notifier receives workflow state-change events. Delivery is not the
// engine's concern; implementations may persist, mail, or drop events.
type Notifier interface {
	// StatusChanged fires on every derived-status transition of a version.
	StatusChanged(manualID string, versionSeq int, status Status, changedBy string) error

	// ReviewRequested fires when a named approver should review a version.
	ReviewRequested(manualID string, versionSeq int, approver string) error
}

// dbNotifier persists events as user notifications, addressed like the
// original system: transitions go to the manual owner, review requests to
// the approver.
type dbNotifier struct {
	notifications NotificationDB
	manuals       ManualDB
}

func NewNotifier(notifications NotificationDB, manuals ManualDB) Notifier {
	return &dbNotifier{
		notifications: notifications,
		manuals:       manuals,
	}
}

func (n *dbNotifier) StatusChanged(manualID string, versionSeq int, status Status, changedBy string) error {

	manual, err := n.manuals.GetManual(manualID)
	if err != nil {
		return err
	}

	var title, message string
	switch status {
	case StatusApproved:
		title = "Manual approved"
		message = fmt.Sprintf("Your manual %q (v%d) was approved by %s", manual.Title, versionSeq, changedBy)
	case StatusRejected:
		title = "Manual rejected"
		message = fmt.Sprintf("Your manual %q (v%d) was rejected by %s", manual.Title, versionSeq, changedBy)
	default:
		title = "Manual pending again"
		message = fmt.Sprintf("Your manual %q (v%d) went back to pending after a change by %s", manual.Title, versionSeq, changedBy)
	}

	_, err = n.notifications.InsertNotification(Notification{
		User:              manual.Owner,
		Title:             title,
		Message:           message,
		Type:              NotifyApprovalDecision,
		RelatedManualID:   manualID,
		RelatedVersionSeq: versionSeq,
	})
	return err
}

func (n *dbNotifier) ReviewRequested(manualID string, versionSeq int, approver string) error {

	manual, err := n.manuals.GetManual(manualID)
	if err != nil {
		return err
	}

	_, err = n.notifications.InsertNotification(Notification{
		User:              approver,
		Title:             "Manual awaiting approval",
		Message:           fmt.Sprintf("Manual %q (v%d) awaits your approval", manual.Title, versionSeq),
		Type:              NotifyApprovalRequest,
		RelatedManualID:   manualID,
		RelatedVersionSeq: versionSeq,
	})
	return err
}
