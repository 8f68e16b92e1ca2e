package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"notifybell/internal/domain"
	"notifybell/internal/model"
)

const (
	insertWebhookChange = "INSERT INTO webhook_change_notifications " +
		"(id, change_type, campus, changed_by, changed_by_name, old_webhook_url, new_webhook_url, `timestamp`, read_by) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	insertGenericEvent = "INSERT INTO notifications " +
		"(id, type, title, message, created_at, read_by, related_leave_id, user_id, created_by) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	selectWebhookChanges = "SELECT id, change_type, campus, changed_by, changed_by_name, old_webhook_url, new_webhook_url, `timestamp`, read_by " +
		"FROM webhook_change_notifications ORDER BY `timestamp` DESC LIMIT ?"
	selectGenericByKinds = "SELECT id, type, title, message, created_at, read_by, related_leave_id, user_id, created_by " +
		"FROM notifications WHERE type IN (?) ORDER BY created_at DESC LIMIT ?"
	selectGenericByUser = "SELECT id, type, title, message, created_at, read_by, related_leave_id, user_id, created_by " +
		"FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ?"
	// The JSON_CONTAINS guard keeps the append a set-union inside one statement.
	addReaderTemplate = "UPDATE %s SET read_by = JSON_ARRAY_APPEND(read_by, '$', ?) " +
		"WHERE id = ? AND NOT JSON_CONTAINS(read_by, JSON_QUOTE(?))"
	existsTemplate = "SELECT COUNT(*) FROM %s WHERE id = ?"
)

// listCap bounds unlimited list calls, the LIMIT clause needs a value.
const listCap = 1000

func (s *Store) CreateWebhookChange(ctx context.Context, change model.WebhookChange) (model.WebhookChange, error) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}
	readBy, err := encodeReadBy(change.ReadBy)
	if err != nil {
		return model.WebhookChange{}, err
	}
	if _, err := s.db.ExecContext(ctx, insertWebhookChange,
		change.ID,
		change.ChangeType,
		change.Campus,
		change.ChangedBy,
		change.ChangedByName,
		nullable(change.OldWebhookURL),
		nullable(change.NewWebhookURL),
		change.Timestamp,
		readBy,
	); err != nil {
		s.log.Error("sql create webhook change failed",
			zap.String("campus", change.Campus),
			zap.String("change_type", change.ChangeType),
			zap.Error(err),
		)
		return model.WebhookChange{}, err
	}
	return change, nil
}

func (s *Store) CreateGenericEvent(ctx context.Context, event model.GenericEvent) (model.GenericEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	readBy, err := encodeReadBy(event.ReadBy)
	if err != nil {
		return model.GenericEvent{}, err
	}
	if _, err := s.db.ExecContext(ctx, insertGenericEvent,
		event.ID,
		event.Type,
		event.Title,
		event.Message,
		event.CreatedAt,
		readBy,
		nullable(event.RelatedLeaveID),
		nullable(event.UserID),
		nullable(event.CreatedBy),
	); err != nil {
		s.log.Error("sql create notification failed",
			zap.String("type", event.Type),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		return model.GenericEvent{}, err
	}
	return event, nil
}

func (s *Store) ListWebhookChanges(ctx context.Context, limit int) ([]model.WebhookChange, error) {
	var rows []webhookChangeRow
	if err := s.db.SelectContext(ctx, &rows, selectWebhookChanges, sqlLimit(limit)); err != nil {
		s.log.Error("sql list webhook changes failed", zap.Int("limit", limit), zap.Error(err))
		return nil, err
	}
	result := make([]model.WebhookChange, 0, len(rows))
	for _, row := range rows {
		record, err := row.record()
		if err != nil {
			s.log.Error("sql decode read_by failed", zap.String("id", row.ID), zap.Error(err))
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}

func (s *Store) ListGenericByKinds(ctx context.Context, kinds []domain.Kind, limit int) ([]model.GenericEvent, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	types := make([]string, 0, len(kinds))
	for _, k := range kinds {
		types = append(types, string(k))
	}
	query, args, err := sqlx.In(selectGenericByKinds, types, sqlLimit(limit))
	if err != nil {
		return nil, err
	}
	return s.selectGeneric(ctx, s.db.Rebind(query), args...)
}

func (s *Store) ListGenericByUser(ctx context.Context, userID string, limit int) ([]model.GenericEvent, error) {
	return s.selectGeneric(ctx, selectGenericByUser, userID, sqlLimit(limit))
}

func (s *Store) selectGeneric(ctx context.Context, query string, args ...any) ([]model.GenericEvent, error) {
	var rows []genericEventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		s.log.Error("sql list notifications failed", zap.Error(err))
		return nil, err
	}
	result := make([]model.GenericEvent, 0, len(rows))
	for _, row := range rows {
		record, err := row.record()
		if err != nil {
			s.log.Error("sql decode read_by failed", zap.String("id", row.ID), zap.Error(err))
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}

func (s *Store) AddReader(ctx context.Context, collection domain.Collection, id, userID string) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(addReaderTemplate, table), userID, id, userID)
	if err != nil {
		s.log.Error("sql add reader failed", zap.String("table", table), zap.String("id", id), zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Nothing changed: either the reader was already present or the row is missing.
	var count int
	if err := s.db.GetContext(ctx, &count, fmt.Sprintf(existsTemplate, table), id); err != nil {
		s.log.Error("sql exists check failed", zap.String("table", table), zap.String("id", id), zap.Error(err))
		return err
	}
	if count == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func tableFor(collection domain.Collection) (string, error) {
	switch collection {
	case domain.CollectionWebhookChanges, domain.CollectionNotifications:
		return string(collection), nil
	default:
		return "", fmt.Errorf("unknown collection %q", collection)
	}
}

func sqlLimit(limit int) int {
	if limit <= 0 || limit > listCap {
		return listCap
	}
	return limit
}
