package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"

	"github.com/pairlink/signaling/internal/api/http/converter"
	"github.com/pairlink/signaling/internal/config"
	"github.com/pairlink/signaling/internal/domain"
	"github.com/pairlink/signaling/internal/service"
)

const (
	// Time allowed to write one message to a peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong before the connection is torn down.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Large enough for a full SDP.
	defaultMaxMessageSize = 64 * 1024
)

type SignalController struct {
	relay      service.RelayInteractor
	upgrader   websocket.Upgrader
	iceServers []webrtc.ICEServer
	maxMsgSize int64
	log        *slog.Logger
}

func NewSignalController(relay service.RelayInteractor, cfg *config.Config, log *slog.Logger) *SignalController {
	if log == nil {
		log = slog.Default()
	}
	maxMsgSize := cfg.Signaling.MaxMessageSize
	if maxMsgSize <= 0 {
		maxMsgSize = defaultMaxMessageSize
	}
	var iceServers []webrtc.ICEServer
	if len(cfg.WebRTC.STUNServers) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: cfg.WebRTC.STUNServers})
	}
	return &SignalController{
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  defaultMaxMessageSize,
			WriteBufferSize: defaultMaxMessageSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		iceServers: iceServers,
		maxMsgSize: maxMsgSize,
		log:        log,
	}
}

// Signal upgrades the request to a websocket and runs the connection's read
// loop. All reads happen here; all writes happen in the forwardEvents
// goroutine, so each side of the socket has exactly one owner.
func (c *SignalController) Signal(ctx *gin.Context) {
	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("failed to upgrade connection", slog.Any("error", err))
		return
	}

	participant := c.relay.Connect()
	go c.forwardEvents(participant, conn)

	conn.SetReadLimit(c.maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg domain.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug("read failed", slog.String("participant_id", participant.ID), slog.Any("error", err))
			}
			break
		}

		if err := c.relay.HandleMessage(ctx.Request.Context(), participant, &msg); err != nil {
			c.log.Error("failed to handle message",
				slog.String("participant_id", participant.ID),
				slog.String("event", msg.Event),
				slog.Any("error", err),
			)
		}
	}

	c.relay.Disconnect(context.Background(), participant)
	conn.Close()
}

// forwardEvents drains the participant's event channel onto the websocket
// and keeps the connection alive with periodic pings.
func (c *SignalController) forwardEvents(p *domain.Participant, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event := <-p.Events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ListRooms returns a read-only view of live rooms and their member counts.
func (c *SignalController) ListRooms(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"rooms": converter.SnapshotToApi(c.relay.Snapshot())})
}

// CollectStats accepts arbitrary JSON from clients and logs it.
func (c *SignalController) CollectStats(ctx *gin.Context) {
	var stats any
	if err := ctx.ShouldBindJSON(&stats); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	c.log.Info("client stats", slog.Any("stats", stats))
	ctx.JSON(http.StatusOK, gin.H{"status": "Success"})
}

// ICEConfig exposes the STUN server list for clients building their peer
// connection. The relay itself never touches ICE traffic.
func (c *SignalController) ICEConfig(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"iceServers": c.iceServers})
}
