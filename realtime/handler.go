package realtime

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/opsdesk/eventbus/consumer"
	"github.com/opsdesk/eventbus/core"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gin handler upgrading the request to websocket.
//
// Query parameters: 'org' (required), 'user' and 'project'. The client joins the organization room,
// and the project room if 'project' is present.
func Handler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		rail := core.EmptyRail()
		orgId := strings.TrimSpace(c.Query("org"))
		userId := strings.TrimSpace(c.Query("user"))
		projectId := strings.TrimSpace(c.Query("project"))

		if orgId == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing org"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			rail.Warnf("Websocket upgrade failed, org: %v, user: %v, ip: %v, %v", orgId, userId, c.ClientIP(), err)
			return
		}

		client := NewClient(hub, conn, orgId, userId)
		rooms := []string{consumer.Room(orgId, "")}
		if projectId != "" {
			rooms = append(rooms, consumer.Room(orgId, projectId))
		}
		hub.Attach(client, rooms...)

		go client.WritePump()
		go client.ReadPump()

		client.reply(NameConnected, map[string]any{"rooms": rooms})
		rail.Infof("Websocket connected, client: %v, rooms: %v, ip: %v", client, rooms, c.ClientIP())
	}
}
