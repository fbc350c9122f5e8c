package websocket

import (
	"github.com/agora-social/agora/backend/internal/chat"
	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/agora-social/agora/backend/internal/metrics"
	"github.com/agora-social/agora/backend/internal/models"
)

// Notifier turns committed ledger events and chat messages into
// websocket pushes.
type Notifier struct {
	hub     *Hub
	metrics *metrics.Metrics
}

var (
	_ ledger.Notifier = (*Notifier)(nil)
	_ chat.Notifier   = (*Notifier)(nil)
)

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub, metrics: metrics.Get()}
}

// Publish pushes a like, follow or comment event to its recipients.
func (n *Notifier) Publish(ev ledger.Event) {
	n.fanOut(string(ev.Type), ev, ev.Recipients)
}

// PublishMessage pushes a new chat message to both participants.
func (n *Notifier) PublishMessage(msg *models.Message, recipients []string) {
	n.fanOut(MessageTypeChat, msg, recipients)
}

func (n *Notifier) fanOut(msgType string, payload interface{}, recipients []string) {
	message := NewMessage(msgType, payload)
	for _, userID := range recipients {
		if !n.hub.IsUserOnline(userID) {
			continue
		}
		n.hub.SendToUser(userID, message)
		n.metrics.WebSocketEventsTotal.WithLabelValues(msgType).Inc()
	}
}
