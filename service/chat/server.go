package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ChatCore/logger"
	"ChatCore/module/chat/model"
	chatsvc "ChatCore/module/chat/service"
	usermodel "ChatCore/module/user/model"
	usersvc "ChatCore/module/user/service"
	"ChatCore/service/storage"
	"ChatCore/tools/errs"
	"ChatCore/tools/security"
)

// Server glues the gateway together: connection indexes, fanout, command
// dispatch and the HTTP surface. One Server per process.
type Server struct {
	ConnMgr   *ConnManager
	Fanout    *Fanout
	Disp      *Dispatcher
	Registry  *chatsvc.Registry
	Messages  *chatsvc.Messages
	Ledger    *chatsvc.Ledger
	Friends   *chatsvc.Friends
	Directory *usersvc.Directory
	Presence  *storage.PresenceTracker
	Relay     *Relay // nil when running single-node

	AuthOpts security.Options
}

type Deps struct {
	ConnMgr   *ConnManager
	Fanout    *Fanout
	Registry  *chatsvc.Registry
	Messages  *chatsvc.Messages
	Ledger    *chatsvc.Ledger
	Friends   *chatsvc.Friends
	Directory *usersvc.Directory
	Presence  *storage.PresenceTracker
	AuthOpts  security.Options
}

func NewServer(d Deps) *Server {
	s := &Server{
		ConnMgr:   d.ConnMgr,
		Fanout:    d.Fanout,
		Disp:      NewDispatcher(),
		Registry:  d.Registry,
		Messages:  d.Messages,
		Ledger:    d.Ledger,
		Friends:   d.Friends,
		Directory: d.Directory,
		Presence:  d.Presence,
		AuthOpts:  d.AuthOpts,
	}
	s.registerHandlers()
	return s
}

// AttachRelay enables cross-node fanout.
func (s *Server) AttachRelay(r *Relay) { s.Relay = r }

// BroadcastRoom fans a frame out to the room's local subscribers and, when
// asked, mirrors it to peer nodes.
func (s *Server) BroadcastRoom(room *model.Room, payload []byte, relay bool) {
	group := room.GroupName()
	s.Fanout.Broadcast(s.ConnMgr.GroupClients(group), payload)
	if relay && s.Relay != nil {
		s.Relay.Publish(group, payload)
	}
}

// syncConnectedUsers reconciles the room row's connected_users snapshot with
// the live presence set. Write failures are logged; presence stays live.
func (s *Server) syncConnectedUsers(ctx context.Context, room *model.Room) {
	users := s.Presence.Snapshot(room.ID)
	if err := s.Registry.SyncConnectedUsers(ctx, room.ID, users); err != nil {
		logger.Warnf("[server] connected_users sync failed room=%s err=%v", room.ID, err)
	}
}

func (s *Server) serializeMessages(ctx context.Context, items []*model.Message) []map[string]any {
	now := time.Now()
	authors := make(map[string]*usermodel.Account)
	out := make([]map[string]any, 0, len(items))
	for _, m := range items {
		author := authors[m.AuthorID]
		if author == nil {
			author = s.Ledger.AuthorOf(ctx, m.AuthorID)
			authors[m.AuthorID] = author
		}
		out = append(out, serializeMessage(m, author, now))
	}
	return out
}

func (s *Server) serializeNotifications(items []*model.Notification) []map[string]any {
	now := time.Now()
	out := make([]map[string]any, 0, len(items))
	for _, n := range items {
		out = append(out, serializeNotification(n, now))
	}
	return out
}

// Routes mounts the HTTP surface on a gin engine.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/ws", s.HandleWS)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.POST("/token", s.handleToken)
	api.GET("/accounts/search", s.handleAccountSearch)
	api.POST("/friend-requests", s.handleFriendRequest)
	api.POST("/friend-requests/cancel", s.handleCancelFriendRequest)
	api.POST("/unfriend", s.handleUnfriend)
	api.GET("/rooms/public", s.handlePublicRooms)
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
}

// handleToken is the dev-mode identity entry: it registers the username on
// first sight and mints a signed token for the websocket handshake.
func (s *Server) handleToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errs.ErrValidation.WrapMsg("username is required"))
		return
	}
	account, err := s.Directory.GetOrRegister(c.Request.Context(), req.Username)
	if err != nil {
		s.writeError(c, err)
		return
	}
	token, expireAt, err := security.Generate(s.AuthOpts, account.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"user_id":    account.ID,
		"username":   account.Username,
		"expires_at": expireAt.Format(time.RFC3339),
	})
}

func (s *Server) handleAccountSearch(c *gin.Context) {
	accounts, err := s.Directory.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountJSON(a))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

type friendRequestBody struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
}

func (s *Server) handleFriendRequest(c *gin.Context) {
	caller, err := s.callerID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body friendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, errs.ErrValidation.WrapMsg("receiver_id is required"))
		return
	}
	req, err := s.Friends.SendRequest(c.Request.Context(), caller, body.ReceiverID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"request_id":  req.ID,
		"receiver_id": req.ReceiverID,
	})
}

type cancelRequestBody struct {
	RequestID string `json:"request_id" binding:"required"`
}

func (s *Server) handleCancelFriendRequest(c *gin.Context) {
	caller, err := s.callerID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body cancelRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, errs.ErrValidation.WrapMsg("request_id is required"))
		return
	}
	if err := s.Friends.Cancel(c.Request.Context(), body.RequestID, caller); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": body.RequestID, "cancelled": true})
}

type unfriendBody struct {
	UserID string `json:"user_id" binding:"required"`
}

func (s *Server) handleUnfriend(c *gin.Context) {
	caller, err := s.callerID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var body unfriendBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.writeError(c, errs.ErrValidation.WrapMsg("user_id is required"))
		return
	}
	if err := s.Friends.Unfriend(c.Request.Context(), caller, body.UserID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": body.UserID, "removed": true})
}

func (s *Server) handlePublicRooms(c *gin.Context) {
	rooms, err := s.Registry.ListPublicRooms(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, gin.H{
			"room_id": room.ID,
			"title":   room.Title,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// callerID authenticates a REST call from its bearer token.
func (s *Server) callerID(c *gin.Context) (string, error) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", errs.ErrAuthRequired.Wrap()
	}
	sub, err := security.Parse(s.AuthOpts, strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return "", errs.ErrAuthRequired.WrapMsg("invalid token")
	}
	return sub, nil
}

func (s *Server) writeError(c *gin.Context, err error) {
	ce := errs.AsCodeError(err)
	if ce == nil {
		logger.Errorf("[http] internal error path=%s err=%+v", c.FullPath(), err)
		ce = errs.ErrUnknown
	}
	detail := ce.Detail
	if detail == "" {
		detail = ce.Msg
	}
	c.JSON(httpStatus(ce.Code), gin.H{"error": ce.Msg, "message": detail})
}

// httpStatus maps the wire error codes onto HTTP. Codes embed the status in
// their leading digits.
func httpStatus(code int) int {
	status := code / 100
	if status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

func accountJSON(a *usermodel.Account) gin.H {
	return gin.H{
		"user_id":       a.ID,
		"username":      a.Username,
		"email":         a.Email,
		"profile_image": a.ProfileImage,
	}
}
