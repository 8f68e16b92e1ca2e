package sse

import (
	"context"
	"sync"

	"notifybell/internal/model"
)

// Client is one open view of Subject's unread badge.
type Client struct {
	Subject string
	Ch      chan model.UnreadUpdate
}

func NewClient(subject string) *Client {
	return &Client{Subject: subject, Ch: make(chan model.UnreadUpdate, 8)}
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan model.UnreadUpdate
	subjects   map[string]map[*Client]struct{}
	mu         sync.RWMutex

	// done is closed when Run returns; later Register and Unregister calls
	// are no-ops.
	done     chan struct{}
	stopOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.UnreadUpdate, 64),
		subjects:   make(map[string]map[*Client]struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast queues update for every client of update.Subject. Updates are
// dropped when the queue is full; the next refresh carries a fresh count.
func (h *Hub) Broadcast(update model.UnreadUpdate) {
	select {
	case h.broadcast <- update:
	default:
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case update := <-h.broadcast:
			h.deliver(update)
		}
	}
}

// Clients reports how many clients are registered for subject.
func (h *Hub) Clients(subject string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subjects[subject])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subjects[client.Subject] == nil {
		h.subjects[client.Subject] = make(map[*Client]struct{})
	}
	h.subjects[client.Subject][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.subjects[client.Subject]
	if clients == nil {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.subjects, client.Subject)
	}
}

func (h *Hub) deliver(update model.UnreadUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.subjects[update.Subject] {
		select {
		case client.Ch <- update:
		default:
			// Drop if the client is too slow.
		}
	}
}
