package domain

import "errors"

type Kind string

const (
	KindWebhookChange     Kind = "webhook_change"
	KindLeaveRequested    Kind = "leave_requested"
	KindLeaveApproved     Kind = "leave_approved"
	KindLeaveRejected     Kind = "leave_rejected"
	KindLeaveExpired      Kind = "leave_expired"
	KindLeaveExpiredAdmin Kind = "leave_expired_admin"
	KindOther             Kind = "other"
)

// Collection names one of the two physical record collections.
type Collection string

const (
	CollectionWebhookChanges Collection = "webhook_change_notifications"
	CollectionNotifications  Collection = "notifications"
)

const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

var (
	ErrInvalidKind  = errors.New("invalid notification kind")
	ErrInvalidEvent = errors.New("invalid notification event")
)

// AdminGenericKinds are the generic-collection kinds shown to admin-class
// callers. Webhook changes are fetched from their own collection.
var AdminGenericKinds = []Kind{KindLeaveRequested, KindLeaveExpiredAdmin}

func IsValidKind(value string) bool {
	switch Kind(value) {
	case KindWebhookChange, KindLeaveRequested, KindLeaveApproved, KindLeaveRejected,
		KindLeaveExpired, KindLeaveExpiredAdmin, KindOther:
		return true
	default:
		return false
	}
}

func IsValidChangeType(value string) bool {
	switch value {
	case ChangeCreated, ChangeUpdated, ChangeDeleted:
		return true
	default:
		return false
	}
}

// IsAdminRelevant reports whether records of kind k appear in admin listings.
func IsAdminRelevant(k Kind) bool {
	if k == KindWebhookChange {
		return true
	}
	for _, ak := range AdminGenericKinds {
		if ak == k {
			return true
		}
	}
	return false
}

// CollectionFor routes a kind to the collection holding its records.
func CollectionFor(k Kind) Collection {
	if k == KindWebhookChange {
		return CollectionWebhookChanges
	}
	return CollectionNotifications
}
