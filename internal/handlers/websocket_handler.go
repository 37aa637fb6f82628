package handlers

import (
	"net/http"

	"nutrivision/internal/apperr"
	"nutrivision/internal/middleware"
	"nutrivision/internal/services"
	"nutrivision/internal/utils"
	"nutrivision/internal/websocket"
	"nutrivision/pkg/logger"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebSocketHandler upgrades connections onto the signaling hub.
type WebSocketHandler struct {
	hub          *websocket.Hub
	appointments *services.AppointmentService
	stunServers  []string
	upgrader     gorilla.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, appointments *services.AppointmentService, stunServers []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		appointments: appointments,
		stunServers:  stunServers,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS layer; the upgrade itself
			// is authenticated by token.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Signaling handles GET /ws/signaling/:room_id. The room is an
// appointment ID; only the appointment's parties may connect, and only
// once communication is enabled. The client lands in the room
// immediately after the upgrade.
func (h *WebSocketHandler) Signaling(c *gin.Context) {
	subject := middleware.Subject(c)

	roomID := c.Param("room_id")
	appointmentID, err := primitive.ObjectIDFromHex(roomID)
	if err != nil {
		utils.NotFoundResponse(c, "Appointment not found")
		return
	}

	appointment, err := h.appointments.Get(subject, appointmentID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	if !appointment.CommunicationReady() {
		utils.AppErrorResponse(c, apperr.ErrCommunicationNotEnabled)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(conn, h.hub, subject.ID.Hex(), string(subject.Kind))
	client.IP = c.ClientIP()
	client.AllowedRoom = roomID

	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	peers := h.hub.JoinRoom(client, roomID)

	ack := websocket.NewSignalMessage(websocket.EventRoomJoined, "", map[string]interface{}{
		"room_id":      roomID,
		"peers":        peers,
		"stun_servers": h.stunServers,
	})
	ack.SetRoomID(roomID)
	client.SendMessage(ack)
}

// Notifications handles GET /ws/notifications. No room membership;
// the connection just makes the user reachable for incoming_call and
// other targeted events.
func (h *WebSocketHandler) Notifications(c *gin.Context) {
	subject := middleware.Subject(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(conn, h.hub, subject.ID.Hex(), string(subject.Kind))
	client.IP = c.ClientIP()

	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
