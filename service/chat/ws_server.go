package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ChatCore/logger"
	"ChatCore/service/storage"
	"ChatCore/tools/safe"
	"ChatCore/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	sendQueueSize = 256
	pingInterval  = 30 * time.Second
	readLimit     = 64 << 10
)

// HandleWS upgrades the request and runs the session until the peer goes
// away. A missing or invalid token yields an anonymous session; commands
// that need identity fail individually with AUTH_REQUIRED.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	userID := ""
	if token := c.Query("token"); token != "" {
		sub, perr := security.Parse(s.AuthOpts, token)
		if perr != nil {
			logger.Warnf("[ws] invalid token, continuing anonymous: %v", perr)
		} else {
			userID = sub
		}
	}

	connID := uuid.NewString()
	client := NewClient(connID, userID, ws, sendQueueSize)
	if err := s.ConnMgr.Add(client); err != nil {
		logger.Errorf("[ws] register failed conn=%s err=%v", connID, err)
		_ = ws.Close()
		return
	}

	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pingInterval * 2))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pingInterval * 2))
	})

	safe.Go(func() { client.WritePump(pingInterval) })

	sess := NewSession(s, client)
	logger.Infof("[ws] session open conn=%s user=%s remote=%s", connID, userID, ws.RemoteAddr())

	ctx := c.Request.Context()
	s.readLoop(ctx, sess)

	// Teardown replays leaves, then drops the indexes and the socket.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sess.Close(cleanupCtx)
	s.ConnMgr.Remove(connID)
	client.Close()
	if userID != "" && len(s.ConnMgr.UserClients(userID)) == 0 {
		if err := storage.MirrorOffline(cleanupCtx, userID); err != nil {
			logger.Warnf("[ws] presence offline mirror failed user=%s err=%v", userID, err)
		}
	}
	logger.Infof("[ws] session closed conn=%s user=%s", connID, userID)
}

// readLoop is the session's single command thread. Domain errors become
// error events; only transport errors end the loop.
func (s *Server) readLoop(ctx context.Context, sess *Session) {
	ws := sess.Client().WS
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", sess.Client().ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s", sess.Client().ConnID)
			} else {
				logger.Infof("[ws] read error conn=%s err=%v", sess.Client().ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		_ = ws.SetReadDeadline(time.Now().Add(pingInterval * 2))

		cmd, perr := ParseCommand(data)
		if perr != nil {
			sess.EmitError(perr)
			continue
		}
		if derr := s.Disp.Dispatch(ctx, sess, cmd); derr != nil {
			sess.EmitError(derr)
		}
	}
}
