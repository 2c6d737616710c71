package hub

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/domain"
	"realtime-chat/internal/repository/mocks"
	"realtime-chat/internal/service"
)

// newTestHub builds a Hub over mocked repositories. The history backlog
// mocks answer with nothing so registration never feeds test clients.
func newTestHub(t *testing.T) (*Hub, *mocks.MessageRepository, *mocks.StateRepository) {
	t.Helper()
	mockMessageRepo := new(mocks.MessageRepository)
	mockStateRepo := new(mocks.StateRepository)

	mockStateRepo.On("GetRecentMessages", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Message{}, nil).Maybe()
	mockMessageRepo.On("FindRecentByRoom", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Message{}, nil).Maybe()
	mockStateRepo.On("PushMessageToHistory", mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Maybe()

	chatService := service.NewChatService(mockMessageRepo, mockStateRepo, nil)
	return NewHub(chatService), mockMessageRepo, mockStateRepo
}

// receive waits briefly for one payload on the client's queue.
func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		require.True(t, ok, "send channel closed while a payload was expected")
		return string(payload)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for a payload")
		return ""
	}
}

// assertNoPayload asserts the client's queue is empty right now.
func assertNoPayload(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected payload: %q", payload)
		}
	default:
	}
}

func TestHub_RegisterCreatesRoomOnDemand(t *testing.T) {
	h, _, _ := newTestHub(t)

	alice := NewClient(h, nil, 1, nil, "alice")
	assert.Equal(t, 0, h.RoomMemberCount(1))

	h.registerClient(alice)
	assert.Equal(t, 1, h.RoomMemberCount(1))

	bob := NewClient(h, nil, 1, nil, "bob")
	h.registerClient(bob)
	assert.Equal(t, 2, h.RoomMemberCount(1))
}

func TestHub_UnregisterIsIdempotentAndNotifiesOnce(t *testing.T) {
	h, _, _ := newTestHub(t)

	alice := NewClient(h, nil, 1, nil, "alice")
	bob := NewClient(h, nil, 1, nil, "bob")
	h.registerClient(alice)
	h.registerClient(bob)

	h.unregisterClient(alice)
	assert.Equal(t, 1, h.RoomMemberCount(1))
	assert.Equal(t, "alice left the room", receive(t, bob))

	// A second unregister of the same client changes nothing: no panic,
	// no second departure notice.
	h.unregisterClient(alice)
	assert.Equal(t, 1, h.RoomMemberCount(1))
	assertNoPayload(t, bob)

	// Alice's queue was closed exactly once, on the first unregister.
	_, open := <-alice.send
	assert.False(t, open, "the departed client's send channel should be closed")
}

func TestHub_LastLeaverDropsTheRoom(t *testing.T) {
	h, _, _ := newTestHub(t)

	alice := NewClient(h, nil, 1, nil, "alice")
	h.registerClient(alice)
	h.unregisterClient(alice)

	assert.Equal(t, 0, h.RoomMemberCount(1))
	h.roomsMu.RLock()
	_, exists := h.rooms[1]
	h.roomsMu.RUnlock()
	assert.False(t, exists, "an emptied room should be removed from the registry")
}

func TestHub_BroadcastExcludesSender(t *testing.T) {
	h, _, _ := newTestHub(t)

	alice := NewClient(h, nil, 1, nil, "alice")
	bob := NewClient(h, nil, 1, nil, "bob")
	carol := NewClient(h, nil, 1, nil, "carol")
	outsider := NewClient(h, nil, 2, nil, "outsider")
	for _, c := range []*Client{alice, bob, carol, outsider} {
		h.registerClient(c)
	}

	h.broadcast(1, []byte("payload"), alice)

	assert.Equal(t, "payload", receive(t, bob))
	assert.Equal(t, "payload", receive(t, carol))
	assertNoPayload(t, alice)
	assertNoPayload(t, outsider)
}

func TestHub_BroadcastSkipsStalledClient(t *testing.T) {
	h, _, _ := newTestHub(t)

	healthy := NewClient(h, nil, 1, nil, "healthy")
	h.registerClient(healthy)

	// A client whose queue is already full: nothing ever drains it.
	stalled := &Client{hub: h, roomID: 1, name: "stalled", send: make(chan []byte)}
	h.registerClient(stalled)

	done := make(chan struct{})
	go func() {
		h.broadcast(1, []byte("payload"), nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("broadcast blocked on a stalled client")
	}
	assert.Equal(t, "payload", receive(t, healthy))
	assert.Equal(t, 2, h.RoomMemberCount(1), "a stalled client is skipped, not evicted")
}

func TestHub_HandleInbound_PersistsThenBroadcasts(t *testing.T) {
	h, mockMessageRepo, _ := newTestHub(t)

	senderID := uint(42)
	alice := NewClient(h, nil, 1, &senderID, "alice")
	bob := NewClient(h, nil, 1, nil, "bob")
	h.registerClient(alice)
	h.registerClient(bob)

	mockMessageRepo.On("Create", mock.Anything, mock.MatchedBy(func(msg *domain.Message) bool {
		assert.Equal(t, "hi there", msg.Content)
		assert.Equal(t, uint(1), msg.RoomID)
		require.NotNil(t, msg.SenderID)
		assert.Equal(t, senderID, *msg.SenderID)
		return true
	})).Return(nil).Once()

	h.HandleInbound(alice, []byte("hi there"))

	assert.Equal(t, "alice wrote: hi there", receive(t, bob))
	assertNoPayload(t, alice)
	mockMessageRepo.AssertExpectations(t)
}

func TestHub_HandleInbound_PersistFailureNotifiesSenderOnly(t *testing.T) {
	h, mockMessageRepo, _ := newTestHub(t)

	alice := NewClient(h, nil, 1, nil, "alice")
	bob := NewClient(h, nil, 1, nil, "bob")
	h.registerClient(alice)
	h.registerClient(bob)

	mockMessageRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Return(errors.New("connection refused")).Once()

	h.HandleInbound(alice, []byte("doomed"))

	assert.Equal(t, "error: your message could not be saved", receive(t, alice))
	assertNoPayload(t, bob)
	mockMessageRepo.AssertExpectations(t)
}

func TestHub_DeregisterSucceedsWithFullQueue(t *testing.T) {
	h, _, _ := newTestHub(t)

	alice := NewClient(h, nil, 1, nil, "alice")
	bob := NewClient(h, nil, 1, nil, "bob")
	h.registerClient(alice)
	h.registerClient(bob)

	// Saturate the registration queue with nobody draining it, the
	// state a disconnecting client can meet when the Run loop is busy.
	for i := 0; i < cap(h.messageChan); i++ {
		h.messageChan <- HubMessage{Type: "register"}
	}

	// The disconnect path must still remove the client: it falls back
	// to removing directly instead of dropping the event.
	h.Deregister(alice)

	assert.Equal(t, 1, h.RoomMemberCount(1))
	assert.Equal(t, "alice left the room", receive(t, bob))
	_, open := <-alice.send
	assert.False(t, open, "the departed client's send channel should be closed")
}

func TestHub_DeregisterThroughRunLoop(t *testing.T) {
	h, _, _ := newTestHub(t)
	go h.Run()
	defer h.Stop()

	alice := NewClient(h, nil, 1, nil, "alice")
	bob := NewClient(h, nil, 1, nil, "bob")
	h.registerClient(alice)
	h.registerClient(bob)

	h.Deregister(alice)

	assert.Equal(t, "alice left the room", receive(t, bob))
	assert.Equal(t, 1, h.RoomMemberCount(1))
}

func TestHub_ConcurrentJoinLeaveAndBroadcast(t *testing.T) {
	h, _, _ := newTestHub(t)

	const perRoom = 20
	var wg sync.WaitGroup
	for roomID := uint(1); roomID <= 3; roomID++ {
		for i := 0; i < perRoom; i++ {
			wg.Add(1)
			go func(roomID uint, i int) {
				defer wg.Done()
				c := NewClient(h, nil, roomID, nil, fmt.Sprintf("c-%d-%d", roomID, i))
				h.registerClient(c)
				h.broadcast(roomID, []byte("ping"), c)
				if i%2 == 0 {
					h.unregisterClient(c)
				}
			}(roomID, i)
		}
	}
	wg.Wait()

	for roomID := uint(1); roomID <= 3; roomID++ {
		assert.Equal(t, perRoom/2, h.RoomMemberCount(roomID))
	}
}
