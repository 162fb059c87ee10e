package hub

import (
	"context"
	"log"
	"sync"

	"messenger-service/internal/models"
)

// MessageLister loads the ordered message snapshot of a chat.
type MessageLister interface {
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// ChatLister loads the chat-list snapshot of a user.
type ChatLister interface {
	ListChatsForUser(ctx context.Context, uid string) ([]models.Chat, error)
}

// Hub fans out full snapshots to live subscribers. Every write to a chat
// triggers a fresh snapshot push to all subscribers of that chat and of the
// chat lists of its participants. Delivery is latest-wins per subscriber: a
// slow consumer sees the newest snapshot, not every intermediate one.
type Hub struct {
	messages MessageLister
	chats    ChatLister

	mu       sync.RWMutex
	chatSubs map[string]map[*MessageSubscription]struct{}
	listSubs map[string]map[*ChatListSubscription]struct{}

	// One lock per feed key. Reload and delivery for a key run under its
	// lock, so snapshots reach subscribers in state order even when
	// notifications overlap.
	feedLocks map[string]*sync.Mutex
}

// NewHub creates an empty hub backed by the given snapshot sources.
func NewHub(messages MessageLister, chats ChatLister) *Hub {
	return &Hub{
		messages:  messages,
		chats:     chats,
		chatSubs:  make(map[string]map[*MessageSubscription]struct{}),
		listSubs:  make(map[string]map[*ChatListSubscription]struct{}),
		feedLocks: make(map[string]*sync.Mutex),
	}
}

func (h *Hub) feedLock(key string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.feedLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		h.feedLocks[key] = lock
	}
	return lock
}

// SubscribeToChat registers a live message feed for the chat. The current
// snapshot (possibly empty) is delivered immediately.
func (h *Hub) SubscribeToChat(ctx context.Context, chatID string) (*MessageSubscription, error) {
	lock := h.feedLock("chat/" + chatID)
	lock.Lock()
	defer lock.Unlock()

	snap, err := h.messages.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	sub := &MessageSubscription{
		hub:    h,
		chatID: chatID,
		ch:     make(chan []models.Message, 1),
	}

	h.mu.Lock()
	if _, ok := h.chatSubs[chatID]; !ok {
		h.chatSubs[chatID] = make(map[*MessageSubscription]struct{})
	}
	h.chatSubs[chatID][sub] = struct{}{}
	h.mu.Unlock()

	sub.deliver(snap)
	return sub, nil
}

// SubscribeToUserChats registers a live chat-list feed for the user. The
// current snapshot is delivered immediately.
func (h *Hub) SubscribeToUserChats(ctx context.Context, uid string) (*ChatListSubscription, error) {
	lock := h.feedLock("list/" + uid)
	lock.Lock()
	defer lock.Unlock()

	snap, err := h.chats.ListChatsForUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	sub := &ChatListSubscription{
		hub: h,
		uid: uid,
		ch:  make(chan []models.Chat, 1),
	}

	h.mu.Lock()
	if _, ok := h.listSubs[uid]; !ok {
		h.listSubs[uid] = make(map[*ChatListSubscription]struct{})
	}
	h.listSubs[uid][sub] = struct{}{}
	h.mu.Unlock()

	sub.deliver(snap)
	return sub, nil
}

// NotifyChat pushes a fresh message snapshot to subscribers of the chat. A
// snapshot reload failure terminates those subscriptions with the error.
func (h *Hub) NotifyChat(ctx context.Context, chatID string) {
	lock := h.feedLock("chat/" + chatID)
	lock.Lock()
	defer lock.Unlock()

	h.mu.RLock()
	subs := make([]*MessageSubscription, 0, len(h.chatSubs[chatID]))
	for sub := range h.chatSubs[chatID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	snap, err := h.messages.ListMessages(ctx, chatID)
	if err != nil {
		log.Printf("hub: message snapshot for chat %s failed: %v", chatID, err)
		for _, sub := range subs {
			h.removeChatSub(sub)
			sub.close(err)
		}
		return
	}
	for _, sub := range subs {
		sub.deliver(snap)
	}
}

// NotifyUserChats pushes fresh chat-list snapshots to subscribers among the
// given users.
func (h *Hub) NotifyUserChats(ctx context.Context, uids ...string) {
	for _, uid := range uids {
		h.notifyChatList(ctx, uid)
	}
}

func (h *Hub) notifyChatList(ctx context.Context, uid string) {
	lock := h.feedLock("list/" + uid)
	lock.Lock()
	defer lock.Unlock()

	h.mu.RLock()
	subs := make([]*ChatListSubscription, 0, len(h.listSubs[uid]))
	for sub := range h.listSubs[uid] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	snap, err := h.chats.ListChatsForUser(ctx, uid)
	if err != nil {
		log.Printf("hub: chat-list snapshot for user %s failed: %v", uid, err)
		for _, sub := range subs {
			h.removeListSub(sub)
			sub.close(err)
		}
		return
	}
	for _, sub := range subs {
		sub.deliver(snap)
	}
}

func (h *Hub) removeChatSub(sub *MessageSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.chatSubs[sub.chatID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.chatSubs, sub.chatID)
		}
	}
}

func (h *Hub) removeListSub(sub *ChatListSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.listSubs[sub.uid]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.listSubs, sub.uid)
		}
	}
}

// MessageSubscription is a live feed of message snapshots for one chat.
// Updates is closed when the subscription ends; Err reports a terminal
// data-source error, nil after a plain Cancel.
type MessageSubscription struct {
	hub    *Hub
	chatID string
	ch     chan []models.Message

	mu     sync.Mutex
	closed bool
	err    error
}

// Updates returns the snapshot channel.
func (s *MessageSubscription) Updates() <-chan []models.Message {
	return s.ch
}

// Err returns the terminal error, if any, once Updates is closed.
func (s *MessageSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel ends the subscription and releases its hub resources. Other
// subscribers of the same chat are unaffected.
func (s *MessageSubscription) Cancel() {
	s.hub.removeChatSub(s)
	s.close(nil)
}

func (s *MessageSubscription) deliver(snap []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			// Drop the stale pending snapshot; only the latest matters.
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *MessageSubscription) close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}

// ChatListSubscription is a live feed of chat-list snapshots for one user.
type ChatListSubscription struct {
	hub *Hub
	uid string
	ch  chan []models.Chat

	mu     sync.Mutex
	closed bool
	err    error
}

// Updates returns the snapshot channel.
func (s *ChatListSubscription) Updates() <-chan []models.Chat {
	return s.ch
}

// Err returns the terminal error, if any, once Updates is closed.
func (s *ChatListSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel ends the subscription and releases its hub resources.
func (s *ChatListSubscription) Cancel() {
	s.hub.removeListSub(s)
	s.close(nil)
}

func (s *ChatListSubscription) deliver(snap []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snap:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *ChatListSubscription) close(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}
