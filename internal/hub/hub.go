// Package hub holds the in-memory room registry and the per-connection
// broadcast plumbing. The rooms map is the only state shared between
// connection goroutines; every touch of it goes through the mutex here.
package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"realtime-chat/internal/domain"
	"realtime-chat/internal/service"
)

// WebSocket timing and size limits, shared by hub and client.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// How many recent messages a freshly joined client receives.
	historyBacklog = 50
)

// HubMessage is the envelope carried on the Hub's internal channel.
// Type is "register" or "unregister"; chat payloads bypass the channel
// (see HandleInbound) so one sender's messages keep their arrival order.
type HubMessage struct {
	Type   string
	Client *Client
}

// Hub is the room registry: it maps room ids to their current member
// sets and coordinates join, leave, and fan-out.
type Hub struct {
	messageChan chan HubMessage
	quit        chan struct{}

	// rooms maps room id to the set of currently connected members.
	rooms   map[uint]map[*Client]bool
	roomsMu sync.RWMutex

	chatService *service.ChatService
}

// NewHub creates a Hub.
func NewHub(chatService *service.ChatService) *Hub {
	if chatService == nil {
		panic("ChatService cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		quit:        make(chan struct{}),
		rooms:       make(map[uint]map[*Client]bool),
		chatService: chatService,
	}
}

// Run drives the Hub's registration loop. It should run in its own
// goroutine and exits when Stop is called.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for {
		select {
		case <-h.quit:
			h.closeAllClients()
			log.Info("Hub is shutting down...")
			return
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			default:
				log.Warnf("Hub: received unknown message type: %s", msg.Type)
			}
		}
	}
}

// Stop asks the Run loop to shut down and disconnect every client.
func (h *Hub) Stop() {
	close(h.quit)
}

// QueueMessage puts a registration event on the Hub's queue without
// blocking. It returns false when the queue is full.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Deregister removes a disconnecting client. It prefers the Run loop's
// queue but never gives up: if the queue stays full the removal runs
// directly on the caller. A client must leave the registry no matter
// how busy the hub is.
func (h *Hub) Deregister(client *Client) {
	select {
	case h.messageChan <- HubMessage{Type: "unregister", Client: client}:
	case <-time.After(time.Second):
		logrus.WithFields(logrus.Fields{
			"room_id": client.RoomID(),
			"name":    client.Name(),
		}).Warn("Hub message channel full, unregistering client directly")
		h.unregisterClient(client)
	}
}

// registerClient adds the client to its room's member set, creating the
// set on first use, then hands the newcomer the recent backlog.
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.RoomID(),
		"name":    client.Name(),
	})

	h.roomsMu.Lock()
	members, ok := h.rooms[client.roomID]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[client.roomID] = members
	}
	members[client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to hub")

	go h.sendHistoryBacklog(client)
}

// unregisterClient removes the client from its room. A client already
// gone is a no-op, which makes disconnect handling idempotent: the send
// channel is closed and the departure notice broadcast exactly once, on
// the call that actually removed the client.
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.RoomID(),
		"name":    client.Name(),
	})

	removed := false
	h.roomsMu.Lock()
	if members, ok := h.rooms[client.roomID]; ok {
		if members[client] {
			delete(members, client)
			close(client.send)
			removed = true
		}
		if len(members) == 0 {
			delete(h.rooms, client.roomID)
		}
	}
	h.roomsMu.Unlock()

	if !removed {
		logCtx.Debug("Client already absent during unregister")
		return
	}
	logCtx.Info("Client unregistered from hub")

	h.broadcast(client.roomID, []byte(fmt.Sprintf("%s left the room", client.Name())), nil)
}

// HandleInbound runs the persist-then-fan-out path for one payload. It
// is called synchronously from the sender's read pump, so successive
// messages of a single sender can never overtake each other. A failed
// save is logged, reported back to the sender only, and not broadcast;
// the sender's receive loop carries on either way.
func (h *Hub) HandleInbound(client *Client, payload []byte) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.RoomID(),
		"name":    client.Name(),
	})

	message, err := h.chatService.SaveMessage(context.Background(), client.roomID, client.userID, string(payload))
	if err != nil {
		logCtx.WithError(err).Error("Hub: failed to persist inbound message")
		client.trySend([]byte("error: your message could not be saved"))
		return
	}

	annotated := fmt.Sprintf("%s wrote: %s", client.Name(), message.Content)
	h.broadcast(client.roomID, []byte(annotated), client)
}

// broadcast delivers payload to every current member of the room,
// excluding sender when non-nil. The member set is snapshotted under the
// read lock and the sends happen outside it; each send is a non-blocking
// push into the member's buffered queue, so a stalled peer is skipped
// (and logged) instead of delaying the rest or failing the caller.
func (h *Hub) broadcast(roomID uint, payload []byte, sender *Client) {
	h.roomsMu.RLock()
	members := h.rooms[roomID]
	recipients := make([]*Client, 0, len(members))
	for client := range members {
		if client != sender {
			recipients = append(recipients, client)
		}
	}
	h.roomsMu.RUnlock()

	if len(recipients) == 0 {
		return
	}

	dropped := 0
	for _, client := range recipients {
		if !client.trySend(payload) {
			dropped++
			logrus.WithFields(logrus.Fields{
				"room_id": roomID,
				"name":    client.Name(),
			}).Warn("Client send queue full during broadcast, skipping this client")
		}
	}

	logrus.WithFields(logrus.Fields{
		"room_id":         roomID,
		"recipient_count": len(recipients),
		"dropped":         dropped,
	}).Debug("Broadcast delivered")
}

// sendHistoryBacklog pushes the most recent room messages to a newly
// joined client. Failures only cost the newcomer its backlog.
func (h *Hub) sendHistoryBacklog(client *Client) {
	messages, err := h.chatService.RecentMessages(context.Background(), client.roomID, historyBacklog)
	if err != nil {
		logrus.WithError(err).WithField("room_id", client.RoomID()).Warn("Hub: failed to load history backlog")
		return
	}
	for _, msg := range messages {
		if !client.trySend([]byte(fmt.Sprintf("%s wrote: %s", historyName(msg), msg.Content))) {
			return
		}
	}
}

// historyName renders the attribution for a persisted message. Stored
// rows only carry the sender id, so the backlog uses a numeric handle.
func historyName(msg domain.Message) string {
	if msg.SenderID == nil {
		return "anonymous"
	}
	return fmt.Sprintf("user %d", *msg.SenderID)
}

// closeAllClients force-disconnects everything, used on shutdown.
func (h *Hub) closeAllClients() {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	for roomID, members := range h.rooms {
		for client := range members {
			delete(members, client)
			close(client.send)
			client.CloseConn()
		}
		delete(h.rooms, roomID)
	}
}

// RoomMemberCount reports how many clients are currently in a room.
func (h *Hub) RoomMemberCount(roomID uint) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[roomID])
}
