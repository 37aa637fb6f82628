package websocket

import (
	"fmt"
	"sync"
	"time"

	"nutrivision/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP offers are a few KB;
	// 64KB leaves ample headroom.
	maxMessageSize = 64 * 1024

	// Buffer size for client send channel
	sendBufferSize = 256

	// Signaling messages allowed per minute per client
	messageRateLimit = 120
)

var newline = []byte{'\n'}

// Client represents one authenticated signaling connection
type Client struct {
	Conn *websocket.Conn

	Hub *Hub

	// Buffered channel of outbound messages
	Send chan []byte

	UserID   string
	UserKind string
	RoomID   string
	IP       string

	// AllowedRoom is the room this socket was authorized for at upgrade
	// time. Empty on notification sockets, which may not join rooms.
	AllowedRoom string

	ConnectedAt time.Time
	LastPong    time.Time

	messageCount int
	lastMessage  time.Time

	// closed marks the Send channel as closed; enqueue checks it so a
	// reader that outlives its registration cannot write to a closed
	// channel.
	closed bool

	mu sync.RWMutex
}

// NewClient creates a new signaling client
func NewClient(conn *websocket.Conn, hub *Hub, userID, userKind string) *Client {
	return &Client{
		Conn:        conn,
		Hub:         hub,
		Send:        make(chan []byte, sendBufferSize),
		UserID:      userID,
		UserKind:    userKind,
		ConnectedAt: time.Now(),
		LastPong:    time.Now(),
	}
}

// ReadPump pumps messages from the WebSocket connection into the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		c.logDisconnection()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.LastPong = time.Now()
		c.mu.Unlock()
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	logger.LogUserAction(c.UserID, "signaling_connected", map[string]interface{}{
		"ip":   c.IP,
		"kind": c.UserKind,
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(map[string]interface{}{
					"user_id": c.UserID,
					"error":   err.Error(),
				}).Error("WebSocket read error")
			}
			break
		}

		if !c.checkRateLimit() {
			c.sendError("rate limit exceeded")
			continue
		}

		msg, err := FromJSON(raw)
		if err != nil {
			c.sendError(fmt.Sprintf("invalid message format: %v", err))
			continue
		}

		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}

		if err := msg.Validate(); err != nil {
			c.sendError(err.Error())
			continue
		}

		c.handleEvent(msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same frame
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEvent routes a client event. Failures are reported only to the
// sender; room peers never see another client's errors.
func (c *Client) handleEvent(msg *SignalMessage) {
	switch msg.Type {
	case EventJoin:
		c.handleJoin(msg)
	case EventLeave:
		c.Hub.LeaveRoom(c)
	case EventOffer, EventAnswer, EventICECandidate:
		c.handleRelay(msg)
	case EventHeartbeat:
		c.handleHeartbeat()
	default:
		c.sendError(fmt.Sprintf("unknown event type: %s", msg.Type))
	}
}

func (c *Client) handleJoin(msg *SignalMessage) {
	if msg.RoomID != c.AllowedRoom {
		c.sendError("not authorized for this room")
		return
	}

	peers := c.Hub.JoinRoom(c, msg.RoomID)

	ack := NewSignalMessage(EventRoomJoined, "", map[string]interface{}{
		"room_id": msg.RoomID,
		"peers":   peers,
	})
	ack.SetRoomID(msg.RoomID)
	c.SendMessage(ack)
}

func (c *Client) handleRelay(msg *SignalMessage) {
	roomID := c.GetRoomID()
	if roomID == "" {
		c.sendError("not in a signaling room")
		return
	}

	c.Hub.RelaySignal(roomID, c.UserID, msg.Type, msg.Payload)

	logger.LogCallEvent("signal_relayed", roomID, c.UserID, map[string]interface{}{
		"signal_type": msg.Type,
	})
}

func (c *Client) handleHeartbeat() {
	response := NewSignalMessage(EventHeartbeat, "", map[string]interface{}{
		"server_time": time.Now(),
	})
	c.SendMessage(response)
}

func (c *Client) checkRateLimit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastMessage) > time.Minute {
		c.messageCount = 0
	}

	c.lastMessage = now
	c.messageCount++

	return c.messageCount <= messageRateLimit
}

// closeSend closes the outbound channel exactly once. Safe to call
// from both the hub and replacement registrations.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// enqueue queues raw bytes for the write pump. It reports false when
// the client is closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// SendMessage sends a message to this client
func (c *Client) SendMessage(msg *SignalMessage) error {
	data, err := msg.ToJSON()
	if err != nil {
		return err
	}

	if !c.enqueue(data) {
		return fmt.Errorf("client closed or send buffer full")
	}
	return nil
}

func (c *Client) sendError(message string) {
	c.SendMessage(NewSignalMessage(EventError, message, nil))
}

// SetRoomID sets the room ID for the client
func (c *Client) SetRoomID(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RoomID = roomID
}

// GetRoomID gets the room ID for the client
func (c *Client) GetRoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.RoomID
}

func (c *Client) logDisconnection() {
	logger.LogUserAction(c.UserID, "signaling_disconnected", map[string]interface{}{
		"duration_seconds": time.Since(c.ConnectedAt).Seconds(),
		"room_id":          c.GetRoomID(),
	})
}
