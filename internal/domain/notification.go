package domain

import "time"

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotificationLike          NotificationType = "like"
	NotificationComment       NotificationType = "comment"
	NotificationMention       NotificationType = "mention"
	NotificationSystem        NotificationType = "system"
	NotificationChat          NotificationType = "chat"
	NotificationCollaboration NotificationType = "collaboration"
	NotificationChefApproval  NotificationType = "chef-approval"
	NotificationJoinRoom      NotificationType = "join-room"
	NotificationLeaveRoom     NotificationType = "leave-room"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationMention, NotificationSystem,
		NotificationChat, NotificationCollaboration, NotificationChefApproval,
		NotificationJoinRoom, NotificationLeaveRoom:
		return true
	}
	return false
}

// Notification is a durable message addressed to one user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	ActorID   string           `json:"actorId,omitempty"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Push converts the record to its live payload.
func (n *Notification) Push() NotificationPush {
	return NotificationPush{
		ID:        n.ID,
		Type:      string(n.Type),
		Message:   n.Message,
		Link:      n.Link,
		CreatedAt: Timestamp(n.CreatedAt),
	}
}
