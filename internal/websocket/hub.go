package websocket

import (
	"sync"
	"time"

	"nutrivision/pkg/logger"
)

// Hub maintains the set of active clients and the registry of
// signaling rooms. Rooms are keyed by appointment call room ID.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients organized by user ID
	userClients map[string]*Client

	// Signaling rooms by room ID
	rooms map[string]*Room

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Messages addressed to a room
	RoomEmit chan *RoomMessage

	// Messages addressed to a single user
	UserEmit chan *UserMessage

	// How often the empty-room sweep runs
	sweepInterval time.Duration

	// How long an empty room survives before the sweep removes it
	maxEmptyRoomAge time.Duration

	mu sync.RWMutex
}

// Room tracks the clients connected to one signaling room. emptySince
// is set when the last client leaves and cleared when anyone joins, so
// the sweep can age out abandoned rooms without touching live ones.
type Room struct {
	ID         string
	clients    map[*Client]bool
	CreatedAt  time.Time
	emptySince *time.Time
}

// RoomMessage represents a message to be delivered to a room
type RoomMessage struct {
	RoomID  string
	Message *SignalMessage
	Exclude string // User ID excluded from delivery
}

// UserMessage represents a message to be delivered to one user
type UserMessage struct {
	UserID  string
	Message *SignalMessage
}

// NewHub creates a new signaling hub
func NewHub(sweepInterval, maxEmptyRoomAge time.Duration) *Hub {
	return &Hub{
		clients:         make(map[*Client]bool),
		userClients:     make(map[string]*Client),
		rooms:           make(map[string]*Room),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		RoomEmit:        make(chan *RoomMessage),
		UserEmit:        make(chan *UserMessage),
		sweepInterval:   sweepInterval,
		maxEmptyRoomAge: maxEmptyRoomAge,
	}
}

// Run starts the hub loop. Call it in its own goroutine.
func (h *Hub) Run() {
	go h.runSweep()

	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case roomMsg := <-h.RoomEmit:
			h.deliverToRoom(roomMsg)

		case userMsg := <-h.UserEmit:
			h.deliverToUser(userMsg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	// A reconnect replaces the previous socket for the same user. The
	// old connection is closed too so its read pump exits.
	if prev, ok := h.userClients[client.UserID]; ok && prev != client {
		delete(h.clients, prev)
		if prev.RoomID != "" {
			h.removeFromRoom(prev)
		}
		prev.closeSend()
		if prev.Conn != nil {
			prev.Conn.Close()
		}
	}
	h.userClients[client.UserID] = client

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": len(h.clients),
	}).Info("Signaling client registered")

	welcome := NewSignalMessage(EventConnected, "connected", map[string]interface{}{
		"user_id":     client.UserID,
		"server_time": time.Now(),
	})
	client.SendMessage(welcome)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	if h.userClients[client.UserID] == client {
		delete(h.userClients, client.UserID)
	}

	roomID := client.RoomID
	if roomID != "" {
		h.removeFromRoom(client)
	}

	client.closeSend()

	logger.WithFields(map[string]interface{}{
		"user_id":       client.UserID,
		"total_clients": len(h.clients),
		"room_id":       roomID,
	}).Info("Signaling client unregistered")

	if roomID != "" {
		h.notifyRoomUserLeft(roomID, client.UserID)
	}
}

// JoinRoom places a client in a signaling room, creating the room on
// first join. A client participates in at most one room per socket.
func (h *Hub) JoinRoom(client *Client, roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.RoomID != "" && client.RoomID != roomID {
		prev := client.RoomID
		h.removeFromRoom(client)
		h.notifyRoomUserLeft(prev, client.UserID)
	}

	room, exists := h.rooms[roomID]
	if !exists {
		room = &Room{
			ID:        roomID,
			clients:   make(map[*Client]bool),
			CreatedAt: time.Now(),
		}
		h.rooms[roomID] = room
	}

	room.clients[client] = true
	room.emptySince = nil
	client.SetRoomID(roomID)

	peers := make([]string, 0, len(room.clients)-1)
	for peer := range room.clients {
		if peer != client {
			peers = append(peers, peer.UserID)
		}
	}

	logger.LogCallEvent("room_joined", roomID, client.UserID, map[string]interface{}{
		"room_size": len(room.clients),
	})

	h.notifyRoomUserJoined(roomID, client.UserID)

	return peers
}

// LeaveRoom removes a client from its current room
func (h *Hub) LeaveRoom(client *Client) {
	h.mu.Lock()
	roomID := client.RoomID
	if roomID == "" {
		h.mu.Unlock()
		return
	}
	h.removeFromRoom(client)
	h.mu.Unlock()

	h.notifyRoomUserLeft(roomID, client.UserID)
}

// removeFromRoom detaches a client from its room. The room itself is
// kept and stamped emptySince when the last client leaves; the sweep
// is the only place rooms are deleted.
func (h *Hub) removeFromRoom(client *Client) {
	roomID := client.RoomID
	if roomID == "" {
		return
	}

	if room, exists := h.rooms[roomID]; exists {
		delete(room.clients, client)

		if len(room.clients) == 0 {
			now := time.Now()
			room.emptySince = &now
		}
	}

	client.SetRoomID("")

	logger.LogCallEvent("room_left", roomID, client.UserID, nil)
}

func (h *Hub) deliverToRoom(roomMsg *RoomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[roomMsg.RoomID]
	if !exists {
		return
	}

	data, err := roomMsg.Message.ToJSON()
	if err != nil {
		logger.WithError(err).Error("Failed to marshal room message")
		return
	}

	for client := range room.clients {
		if roomMsg.Exclude != "" && client.UserID == roomMsg.Exclude {
			continue
		}

		if !client.enqueue(data) {
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}

func (h *Hub) deliverToUser(userMsg *UserMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.userClients[userMsg.UserID]
	if !exists {
		return
	}

	client.SendMessage(userMsg.Message)
}

// Public delivery methods

// EmitToRoom delivers a message to every client in a room
func (h *Hub) EmitToRoom(roomID string, message *SignalMessage) {
	h.RoomEmit <- &RoomMessage{
		RoomID:  roomID,
		Message: message,
	}
}

// EmitToRoomExcept delivers a message to a room, skipping one user
func (h *Hub) EmitToRoomExcept(roomID, excludeUserID string, message *SignalMessage) {
	h.RoomEmit <- &RoomMessage{
		RoomID:  roomID,
		Message: message,
		Exclude: excludeUserID,
	}
}

// EmitToUser delivers a message to a single connected user. Delivery
// is best effort: an offline user simply misses the event.
func (h *Hub) EmitToUser(userID string, message *SignalMessage) {
	h.UserEmit <- &UserMessage{
		UserID:  userID,
		Message: message,
	}
}

// RelaySignal forwards a WebRTC signal to the sender's room peers,
// stamping the sender and a server timestamp so receivers never trust
// client-supplied identity.
func (h *Hub) RelaySignal(roomID, fromUserID string, eventType EventType, payload map[string]interface{}) {
	message := NewSignalMessage(eventType, "", payload)
	message.SetRoomID(roomID)
	message.SetFrom(fromUserID)

	h.EmitToRoomExcept(roomID, fromUserID, message)
}

func (h *Hub) notifyRoomUserJoined(roomID, userID string) {
	message := NewSignalMessage(EventUserJoined, "", map[string]interface{}{
		"user_id": userID,
	})
	message.SetRoomID(roomID)

	go h.EmitToRoomExcept(roomID, userID, message)
}

func (h *Hub) notifyRoomUserLeft(roomID, userID string) {
	message := NewSignalMessage(EventUserLeft, "", map[string]interface{}{
		"user_id": userID,
	})
	message.SetRoomID(roomID)

	go h.EmitToRoomExcept(roomID, userID, message)
}

// Introspection

// IsUserOnline checks if a user has a live signaling connection
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.userClients[userID]
	return exists
}

// RoomUsers returns the user IDs connected to a room
func (h *Hub) RoomUsers(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return []string{}
	}

	users := make([]string, 0, len(room.clients))
	for client := range room.clients {
		users = append(users, client.UserID)
	}

	return users
}

// RoomCount returns the number of live rooms
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Sweep

func (h *Hub) runSweep() {
	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		removed := h.SweepEmptyRooms(time.Now())
		if removed > 0 {
			logger.WithField("removed", removed).Info("Swept abandoned signaling rooms")
		}
	}
}

// SweepEmptyRooms removes rooms that have had no connected clients for
// longer than the configured maximum age. A room with any connected
// client is never removed, regardless of how old it is.
func (h *Hub) SweepEmptyRooms(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for roomID, room := range h.rooms {
		if len(room.clients) > 0 {
			continue
		}
		if room.emptySince == nil {
			// Created but never joined; start the clock now
			t := now
			room.emptySince = &t
			continue
		}
		if now.Sub(*room.emptySince) > h.maxEmptyRoomAge {
			delete(h.rooms, roomID)
			removed++
		}
	}

	return removed
}
