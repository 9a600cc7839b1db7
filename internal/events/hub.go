package events

import (
	"sync"

	"github.com/JacobNewton007/tus-demo/internal/media"
	"github.com/rs/zerolog/log"
)

// Hub fans media lifecycle events out to websocket subscribers. Clients
// subscribe to individual record IDs or to SubscribeAll.
type Hub struct {
	clients    map[*Client]bool
	byMedia    map[string][]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *media.Event
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byMedia:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *media.Event, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.broadcast:
			h.broadcastEvent(ev)
		}
	}
}

// Publish implements media.Publisher. It never blocks the upload path: if
// the hub is saturated the event is dropped.
func (h *Hub) Publish(ev *media.Event) {
	select {
	case h.broadcast <- ev:
	default:
		log.Warn().Str("id", ev.ID).Str("type", string(ev.Type)).Msg("[WS] Broadcast buffer full, dropping event")
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	log.Info().
		Str("remoteAddr", client.remoteAddr).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	for id := range client.subscriptions {
		h.removeFromSubscribers(client, id)
	}

	log.Info().
		Str("remoteAddr", client.remoteAddr).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client unregistered")
}

func (h *Hub) removeFromSubscribers(client *Client, id string) {
	subscribers := h.byMedia[id]
	for i, c := range subscribers {
		if c == client {
			h.byMedia[id] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	if len(h.byMedia[id]) == 0 {
		delete(h.byMedia, id)
	}
}

func (h *Hub) Subscribe(client *Client, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.byMedia[id] {
		if c == client {
			return
		}
	}

	h.byMedia[id] = append(h.byMedia[id], client)

	log.Debug().
		Str("id", id).
		Int("subscribers", len(h.byMedia[id])).
		Msg("[WS] Subscription added")
}

func (h *Hub) Unsubscribe(client *Client, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromSubscribers(client, id)

	log.Debug().
		Str("id", id).
		Int("subscribers", len(h.byMedia[id])).
		Msg("[WS] Subscription removed")
}

func (h *Hub) broadcastEvent(ev *media.Event) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byMedia[ev.ID])+len(h.byMedia[SubscribeAll]))
	clients = append(clients, h.byMedia[ev.ID]...)
	for _, c := range h.byMedia[SubscribeAll] {
		if !c.IsSubscribed(ev.ID) {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	msg := &EventMessage{
		Type:  MessageTypeEvent,
		Event: ev,
	}

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			// Client buffer full, skip this message
			log.Warn().
				Str("remoteAddr", client.remoteAddr).
				Str("id", ev.ID).
				Msg("[WS] Client send buffer full, dropping message")
		}
	}
}

func (h *Hub) GetStats() (totalClients, totalSubscriptions int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalClients = len(h.clients)
	for _, clients := range h.byMedia {
		totalSubscriptions += len(clients)
	}
	return
}
