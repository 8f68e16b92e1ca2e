package mysql

import (
	"database/sql"
	"encoding/json"
	"time"

	"notifybell/internal/model"
)

type webhookChangeRow struct {
	ID            string         `db:"id"`
	ChangeType    string         `db:"change_type"`
	Campus        string         `db:"campus"`
	ChangedBy     string         `db:"changed_by"`
	ChangedByName string         `db:"changed_by_name"`
	OldWebhookURL sql.NullString `db:"old_webhook_url"`
	NewWebhookURL sql.NullString `db:"new_webhook_url"`
	Timestamp     time.Time      `db:"timestamp"`
	ReadBy        []byte         `db:"read_by"`
}

type genericEventRow struct {
	ID             string         `db:"id"`
	Type           string         `db:"type"`
	Title          string         `db:"title"`
	Message        string         `db:"message"`
	CreatedAt      time.Time      `db:"created_at"`
	ReadBy         []byte         `db:"read_by"`
	RelatedLeaveID sql.NullString `db:"related_leave_id"`
	UserID         sql.NullString `db:"user_id"`
	CreatedBy      sql.NullString `db:"created_by"`
}

func (r webhookChangeRow) record() (model.WebhookChange, error) {
	readBy, err := decodeReadBy(r.ReadBy)
	if err != nil {
		return model.WebhookChange{}, err
	}
	return model.WebhookChange{
		ID:            r.ID,
		ChangeType:    r.ChangeType,
		Campus:        r.Campus,
		ChangedBy:     r.ChangedBy,
		ChangedByName: r.ChangedByName,
		OldWebhookURL: r.OldWebhookURL.String,
		NewWebhookURL: r.NewWebhookURL.String,
		Timestamp:     r.Timestamp,
		ReadBy:        readBy,
	}, nil
}

func (r genericEventRow) record() (model.GenericEvent, error) {
	readBy, err := decodeReadBy(r.ReadBy)
	if err != nil {
		return model.GenericEvent{}, err
	}
	return model.GenericEvent{
		ID:             r.ID,
		Type:           r.Type,
		Title:          r.Title,
		Message:        r.Message,
		CreatedAt:      r.CreatedAt,
		ReadBy:         readBy,
		RelatedLeaveID: r.RelatedLeaveID.String,
		UserID:         r.UserID.String,
		CreatedBy:      r.CreatedBy.String,
	}, nil
}

func decodeReadBy(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var readBy []string
	if err := json.Unmarshal(raw, &readBy); err != nil {
		return nil, err
	}
	return readBy, nil
}

func encodeReadBy(readBy []string) ([]byte, error) {
	if readBy == nil {
		readBy = []string{}
	}
	return json.Marshal(readBy)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
