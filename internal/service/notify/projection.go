package notify

import (
	"fmt"
	"sort"
	"time"

	"notifybell/internal/domain"
	"notifybell/internal/model"
)

const (
	adminFallbackTitle = "Leave Notification"
	userFallbackTitle  = "Notification"
)

func projectWebhookChange(w model.WebhookChange, now time.Time) model.Notification {
	return model.Notification{
		ID:        w.ID,
		Kind:      domain.KindWebhookChange,
		Title:     fmt.Sprintf("Webhook %s", w.ChangeType),
		Message:   fmt.Sprintf("%s webhook URL %s by %s", w.Campus, w.ChangeType, w.ChangedByName),
		Timestamp: orNow(w.Timestamp, now),
		ReadBy:    readers(w.ReadBy),
		CreatedBy: w.ChangedBy,
		Webhook: &model.WebhookChangeData{
			Campus:        w.Campus,
			ChangeType:    w.ChangeType,
			ChangedByName: w.ChangedByName,
			OldWebhookURL: w.OldWebhookURL,
			NewWebhookURL: w.NewWebhookURL,
		},
	}
}

func projectGeneric(e model.GenericEvent, fallbackTitle string, now time.Time) model.Notification {
	kind := domain.Kind(e.Type)
	if !domain.IsValidKind(e.Type) || kind == domain.KindWebhookChange {
		kind = domain.KindOther
	}
	title := e.Title
	if title == "" {
		title = fallbackTitle
	}
	return model.Notification{
		ID:          e.ID,
		Kind:        kind,
		Title:       title,
		Message:     e.Message,
		Timestamp:   orNow(e.CreatedAt, now),
		ReadBy:      readers(e.ReadBy),
		OwnerUserID: e.UserID,
		CreatedBy:   e.CreatedBy,
		Leave: &model.LeaveData{
			RelatedLeaveID: e.RelatedLeaveID,
			UserID:         e.UserID,
		},
	}
}

// mergeNewestFirst drops duplicate (collection, id) pairs, orders by
// timestamp descending keeping fetch order on ties, and truncates.
func mergeNewestFirst(records []model.Notification, limit int) []model.Notification {
	type key struct {
		collection domain.Collection
		id         string
	}
	seen := make(map[key]struct{}, len(records))
	merged := make([]model.Notification, 0, len(records))
	for _, r := range records {
		k := key{collection: r.Collection(), id: r.ID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, r)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func countUnread(records []model.Notification, userID string) int {
	unread := 0
	for _, r := range records {
		if !r.IsReadBy(userID) {
			unread++
		}
	}
	return unread
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func readers(readBy []string) []string {
	if readBy == nil {
		return []string{}
	}
	return readBy
}
