package model

import (
	"time"

	"notifybell/internal/domain"
)

// Event is what an external producer hands over to be recorded. Webhook
// fields apply to webhook_change, the rest to generic kinds.
type Event struct {
	Kind          domain.Kind `json:"kind"`
	Campus        string      `json:"campus,omitempty"`
	ChangeType    string      `json:"change_type,omitempty"`
	ChangedBy     string      `json:"changed_by,omitempty"`
	ChangedByName string      `json:"changed_by_name,omitempty"`
	OldWebhookURL string      `json:"old_webhook_url,omitempty"`
	NewWebhookURL string      `json:"new_webhook_url,omitempty"`

	Title          string `json:"title,omitempty"`
	Message        string `json:"message,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	RelatedLeaveID string `json:"related_leave_id,omitempty"`
	CreatedBy      string `json:"created_by,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`
}

// UnreadUpdate is pushed to open views of Subject whenever its badge count
// is recomputed.
type UnreadUpdate struct {
	Subject string    `json:"subject"`
	Count   int       `json:"count"`
	At      time.Time `json:"at"`
}
