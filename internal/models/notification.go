package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeOverdueReminder NotificationType = "overdue_reminder"
	NotificationTypeDueSoon         NotificationType = "due_soon"
)

// IsValid checks if the notification type is valid
func (nt NotificationType) IsValid() bool {
	switch nt {
	case NotificationTypeOverdueReminder, NotificationTypeDueSoon:
		return true
	default:
		return false
	}
}

// Notice is one rendered reminder addressed to one member
type Notice struct {
	Type      NotificationType `json:"type"`
	UserID    string           `json:"user_id"`
	Recipient string           `json:"recipient,omitempty"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Loans     []LoanRecord     `json:"loans"`
	TotalFine decimal.Decimal  `json:"total_fine"`
	CreatedAt time.Time        `json:"created_at"`
}

// ReminderResult counts the outcome of one reminder run
type ReminderResult struct {
	Type    NotificationType `json:"type"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Notices []Notice         `json:"notices,omitempty"`
}
