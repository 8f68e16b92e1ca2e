package model

import "time"

// WebhookChange is a document of the webhook-change collection.
type WebhookChange struct {
	ID            string
	ChangeType    string
	Campus        string
	ChangedBy     string
	ChangedByName string
	OldWebhookURL string
	NewWebhookURL string
	Timestamp     time.Time
	ReadBy        []string
}

// GenericEvent is a document of the generic notifications collection.
type GenericEvent struct {
	ID             string
	Type           string
	Title          string
	Message        string
	CreatedAt      time.Time
	ReadBy         []string
	RelatedLeaveID string
	UserID         string
	CreatedBy      string
}
