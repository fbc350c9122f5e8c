package ledger

import "github.com/agora-social/agora/backend/internal/models"

// EventType names a committed engagement change.
type EventType string

const (
	EventLike    EventType = "like"
	EventFollow  EventType = "follow"
	EventComment EventType = "comment"
)

// Event describes a change that has already committed. Active is the new
// edge state for likes and follows; Count is the counter it moved.
type Event struct {
	Type         EventType       `json:"type"`
	ActorID      string          `json:"actor_id"`
	PostID       string          `json:"post_id,omitempty"`
	TargetUserID string          `json:"target_user_id,omitempty"`
	Active       bool            `json:"active"`
	Count        int64           `json:"count"`
	Comment      *models.Comment `json:"comment,omitempty"`

	// Recipients are the users who should see the event, actor included.
	Recipients []string `json:"-"`
}

// Notifier receives events after commit. Publish must not block.
type Notifier interface {
	Publish(Event)
}

func recipients(actorID, ownerID string) []string {
	if ownerID == "" || ownerID == actorID {
		return []string{actorID}
	}
	return []string{ownerID, actorID}
}
