package events

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"garrison/pkg/auth"
	"garrison/pkg/response"
)

// FeedHandler upgrades authenticated clients onto the custody feed.
type FeedHandler struct {
	hub    *Hub
	logger interface {
		Printf(string, ...interface{})
	}
}

func NewFeedHandler(hub *Hub) *FeedHandler {
	return &FeedHandler{
		hub:    hub,
		logger: log.New(log.Writer(), "[feed] ", log.LstdFlags),
	}
}

func (h *FeedHandler) RegisterRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	router.GET("/ws/feed", requireAuth, h.serveFeed)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, validate origin properly
		return true
	},
}

func (h *FeedHandler) serveFeed(c *gin.Context) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade error: %v", err)
		return
	}

	client := h.hub.AddClient(uuid.NewString(), actor.ID, conn)
	h.logger.Printf("user %s connected (%s)", actor.ID, client.ID)

	go h.readLoop(client)
	go h.writeLoop(client)
}

// readLoop drains the connection to catch pongs and disconnects. The feed is
// one-way; anything the client sends is discarded.
func (h *FeedHandler) readLoop(client *Client) {
	defer func() {
		h.hub.RemoveClient(client.ID)
		client.Conn.Close()
		h.logger.Printf("user %s disconnected (%s)", client.UserID, client.ID)
	}()

	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-client.Done:
			return
		default:
		}

		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Printf("websocket error for user %s: %v", client.UserID, err)
			}
			return
		}
	}
}

func (h *FeedHandler) writeLoop(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-client.Done:
			return

		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Printf("write error for user %s: %v", client.UserID, err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Printf("ping error for user %s: %v", client.UserID, err)
				return
			}
		}
	}
}
