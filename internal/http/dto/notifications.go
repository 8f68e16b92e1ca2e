package dto

import (
	"time"

	"notifybell/internal/domain"
	"notifybell/internal/model"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NotificationResponse is one listing entry as seen by the caller; Read is
// derived from the record's read set.
type NotificationResponse struct {
	ID          string                   `json:"id"`
	Kind        domain.Kind              `json:"kind"`
	Title       string                   `json:"title"`
	Message     string                   `json:"message"`
	Timestamp   time.Time                `json:"timestamp"`
	Read        bool                     `json:"read"`
	ReadBy      []string                 `json:"read_by"`
	OwnerUserID string                   `json:"owner_user_id,omitempty"`
	CreatedBy   string                   `json:"created_by,omitempty"`
	Webhook     *model.WebhookChangeData `json:"webhook,omitempty"`
	Leave       *model.LeaveData         `json:"leave,omitempty"`
}

type ListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Unread        int                    `json:"unread"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type MarkReadRequest struct {
	Kind string `json:"kind"`
}

type MarkAllResponse struct {
	Marked int `json:"marked"`
}

type EventAcceptedResponse struct {
	StatusResponse
	RoutingKey string `json:"routing_key"`
}

type EventRecordedResponse struct {
	ID   string      `json:"id"`
	Kind domain.Kind `json:"kind"`
}

func NewListResponse(records []model.Notification, userID string) ListResponse {
	out := ListResponse{Notifications: make([]NotificationResponse, 0, len(records))}
	for _, n := range records {
		read := n.IsReadBy(userID)
		if !read {
			out.Unread++
		}
		out.Notifications = append(out.Notifications, NotificationResponse{
			ID:          n.ID,
			Kind:        n.Kind,
			Title:       n.Title,
			Message:     n.Message,
			Timestamp:   n.Timestamp,
			Read:        read,
			ReadBy:      n.ReadBy,
			OwnerUserID: n.OwnerUserID,
			CreatedBy:   n.CreatedBy,
			Webhook:     n.Webhook,
			Leave:       n.Leave,
		})
	}
	return out
}
