package notify

import (
	"context"

	"notifybell/internal/domain"
	"notifybell/internal/model"
)

// Inbox picks the admin or the user-scoped operations from the caller's
// role. Identities reaching it are already verified.
type Inbox struct {
	svc *Service
}

func NewInbox(svc *Service) *Inbox {
	return &Inbox{svc: svc}
}

func (i *Inbox) List(ctx context.Context, id domain.Identity, limit int) ([]model.Notification, error) {
	if id.IsAdminClass() {
		return i.svc.FetchForAdmin(ctx, limit)
	}
	return i.svc.FetchForUser(ctx, id.UserID, limit)
}

func (i *Inbox) UnreadCount(ctx context.Context, id domain.Identity) int {
	if id.IsAdminClass() {
		return i.svc.UnreadCountForAdmin(ctx, id.UserID)
	}
	return i.svc.UnreadCountForUser(ctx, id.UserID)
}

func (i *Inbox) MarkRead(ctx context.Context, id domain.Identity, recordID string, kind domain.Kind) error {
	return i.svc.MarkRead(ctx, recordID, id.UserID, kind)
}

// MarkAllRead marks the caller's current listing read.
func (i *Inbox) MarkAllRead(ctx context.Context, id domain.Identity, limit int) (int, error) {
	records, err := i.List(ctx, id, limit)
	if err != nil {
		return 0, err
	}
	return i.svc.MarkAllRead(ctx, id.UserID, records)
}
