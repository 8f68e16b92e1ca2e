package mongo

import (
	"time"

	"notifybell/internal/model"
)

type webhookChangeDoc struct {
	ID            string    `bson:"_id"`
	ChangeType    string    `bson:"change_type"`
	Campus        string    `bson:"campus"`
	ChangedBy     string    `bson:"changed_by"`
	ChangedByName string    `bson:"changed_by_name,omitempty"`
	OldWebhookURL string    `bson:"old_webhook_url,omitempty"`
	NewWebhookURL string    `bson:"new_webhook_url,omitempty"`
	Timestamp     time.Time `bson:"timestamp"`
	ReadBy        []string  `bson:"read_by"`
}

type genericEventDoc struct {
	ID             string    `bson:"_id"`
	Type           string    `bson:"type"`
	Title          string    `bson:"title"`
	Message        string    `bson:"message"`
	CreatedAt      time.Time `bson:"created_at"`
	ReadBy         []string  `bson:"read_by"`
	RelatedLeaveID string    `bson:"related_leave_id,omitempty"`
	UserID         string    `bson:"user_id,omitempty"`
	CreatedBy      string    `bson:"created_by,omitempty"`
}

func (d webhookChangeDoc) record() model.WebhookChange {
	return model.WebhookChange{
		ID:            d.ID,
		ChangeType:    d.ChangeType,
		Campus:        d.Campus,
		ChangedBy:     d.ChangedBy,
		ChangedByName: d.ChangedByName,
		OldWebhookURL: d.OldWebhookURL,
		NewWebhookURL: d.NewWebhookURL,
		Timestamp:     d.Timestamp,
		ReadBy:        d.ReadBy,
	}
}

func (d genericEventDoc) record() model.GenericEvent {
	return model.GenericEvent{
		ID:             d.ID,
		Type:           d.Type,
		Title:          d.Title,
		Message:        d.Message,
		CreatedAt:      d.CreatedAt,
		ReadBy:         d.ReadBy,
		RelatedLeaveID: d.RelatedLeaveID,
		UserID:         d.UserID,
		CreatedBy:      d.CreatedBy,
	}
}

func webhookChangeFrom(c model.WebhookChange) webhookChangeDoc {
	readBy := c.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return webhookChangeDoc{
		ID:            c.ID,
		ChangeType:    c.ChangeType,
		Campus:        c.Campus,
		ChangedBy:     c.ChangedBy,
		ChangedByName: c.ChangedByName,
		OldWebhookURL: c.OldWebhookURL,
		NewWebhookURL: c.NewWebhookURL,
		Timestamp:     c.Timestamp,
		ReadBy:        readBy,
	}
}

func genericEventFrom(e model.GenericEvent) genericEventDoc {
	readBy := e.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return genericEventDoc{
		ID:             e.ID,
		Type:           e.Type,
		Title:          e.Title,
		Message:        e.Message,
		CreatedAt:      e.CreatedAt,
		ReadBy:         readBy,
		RelatedLeaveID: e.RelatedLeaveID,
		UserID:         e.UserID,
		CreatedBy:      e.CreatedBy,
	}
}
