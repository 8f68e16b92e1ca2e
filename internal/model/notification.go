package model

import (
	"slices"
	"time"

	"notifybell/internal/domain"
)

// Notification is the logical record shown in the bell, projected from
// either physical collection. Exactly one of Webhook or Leave is set.
type Notification struct {
	ID          string             `json:"id"`
	Kind        domain.Kind        `json:"kind"`
	Title       string             `json:"title"`
	Message     string             `json:"message"`
	Timestamp   time.Time          `json:"timestamp"`
	ReadBy      []string           `json:"read_by"`
	OwnerUserID string             `json:"owner_user_id,omitempty"`
	CreatedBy   string             `json:"created_by,omitempty"`
	Webhook     *WebhookChangeData `json:"webhook,omitempty"`
	Leave       *LeaveData         `json:"leave,omitempty"`
}

type WebhookChangeData struct {
	Campus        string `json:"campus"`
	ChangeType    string `json:"change_type"`
	ChangedByName string `json:"changed_by_name,omitempty"`
	OldWebhookURL string `json:"old_webhook_url,omitempty"`
	NewWebhookURL string `json:"new_webhook_url,omitempty"`
}

type LeaveData struct {
	RelatedLeaveID string `json:"related_leave_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

func (n Notification) IsReadBy(userID string) bool {
	return userID != "" && slices.Contains(n.ReadBy, userID)
}

func (n Notification) Collection() domain.Collection {
	return domain.CollectionFor(n.Kind)
}
