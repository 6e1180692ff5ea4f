package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-seat-reservation/internal/model"
	"github.com/iliyamo/travel-seat-reservation/internal/realtime"
	"github.com/iliyamo/travel-seat-reservation/internal/utils"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingInterval   = 30 * time.Second
	wsMaxFrameBytes  = 8 << 10
	wsCloseLeaveTime = 5 * time.Second
)

// WSHandler upgrades GET /ws to a realtime session.  An optional
// ?token=<access token> of an admin unlocks the admin:bookings channel.
type WSHandler struct {
	broker     *realtime.Broker
	relay      *realtime.Relay
	sendBuffer int
	secret     string
	log        *slog.Logger
	upgrader   websocket.Upgrader
}

func NewWSHandler(broker *realtime.Broker, relay *realtime.Relay, sendBuffer int, secret string, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		broker:     broker,
		relay:      relay,
		sendBuffer: sendBuffer,
		secret:     secret,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handle serves one connection until the client goes away.
func (h *WSHandler) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws_upgrade_fail", "error", err)
		return nil
	}
	defer conn.Close()

	sess := realtime.NewSession(h.broker, h.relay, h.sendBuffer, h.log)
	if raw := c.QueryParam("token"); raw != "" {
		if claims, err := utils.ParseAccessToken(h.secret, raw); err == nil && claims.Role == model.RoleAdmin {
			sess.GrantAdmin()
		}
	}
	ctx := context.WithoutCancel(c.Request().Context())
	h.log.Info("ws_connected", "client_id", sess.ID(), "remote", c.RealIP())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, sess)
	}()

	h.readPump(ctx, conn, sess)

	closeCtx, cancel := context.WithTimeout(ctx, wsCloseLeaveTime)
	sess.Close(closeCtx)
	cancel()
	<-writerDone
	h.log.Info("ws_disconnect", "client_id", sess.ID())
	return nil
}

func (h *WSHandler) readPump(ctx context.Context, conn *websocket.Conn, sess *realtime.Session) {
	conn.SetReadLimit(wsMaxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("ws_read_error", "client_id", sess.ID(), "error", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		sess.HandleFrame(ctx, msg)
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, sess *realtime.Session) {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case env := <-sess.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(env); err != nil {
				h.log.Debug("ws_write_fail", "client_id", sess.ID(), "error", err)
				_ = conn.Close()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				h.log.Debug("ws_ping_fail", "client_id", sess.ID(), "error", err)
				_ = conn.Close()
				return
			}
		case <-sess.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}
