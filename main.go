package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"

	"ChatCore/global"
	"ChatCore/logger"
	"ChatCore/middleware"
	chatsvc "ChatCore/module/chat/service"
	chatstore "ChatCore/module/chat/store"
	usersvc "ChatCore/module/user/service"
	userstore "ChatCore/module/user/store"
	"ChatCore/service/chat"
	"ChatCore/service/mgo"
	"ChatCore/service/natsx"
	"ChatCore/service/storage"
	"ChatCore/tools/security"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml")
	flag.Parse()

	if err := global.Load(*configPath); err != nil {
		logger.Errorf("load config: %v", err)
		return
	}
	global.ConfigIds()

	ctx := context.Background()
	conf := global.Conf

	// Stores. Mongo when configured, in-memory otherwise.
	var chatStore chatstore.Store = chatstore.NewMem()
	var userStore userstore.AccountStore = userstore.NewMem()
	if conf.Mongo.Enabled {
		db, closeDB, err := mgo.Connect(ctx, conf.Mongo.URI, conf.Mongo.Database)
		if err != nil {
			logger.Errorf("mongo connect: %v", err)
			return
		}
		defer closeDB()
		mongoStore := chatstore.NewMongo(db)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			logger.Errorf("mongo indexes: %v", err)
			return
		}
		chatStore = mongoStore
		userStore = userstore.NewMongo(db)
		logger.Infof("storage: mongo %s/%s", conf.Mongo.URI, conf.Mongo.Database)
	} else {
		logger.Infof("storage: in-memory")
	}

	if conf.Redis.Enabled {
		err := storage.InitRedis(storage.RedisConfig{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if err != nil {
			logger.Errorf("redis connect: %v", err)
			return
		}
		defer func() { _ = storage.CloseRedis() }()
	}

	gatewayID := fmt.Sprintf("gw-%d", conf.Server.NodeID)
	presence := storage.NewPresenceTracker(gatewayID)

	directory := usersvc.NewDirectory(userStore)
	registry := chatsvc.NewRegistry(chatStore)
	messages := chatsvc.NewMessages(chatStore, global.PageSize())
	ledger := chatsvc.NewLedger(chatStore, directory, presence, global.PageSize())
	friends := chatsvc.NewFriends(chatStore, registry, directory)

	// Entering a room clears its unread state for the arriving user.
	presence.ConnectHook = func(ctx context.Context, roomID, userID string) {
		if err := ledger.OnUserConnected(ctx, roomID, userID); err != nil {
			logger.Errorf("unread reset failed room=%s user=%s err=%+v", roomID, userID, err)
		}
	}

	connMgr := chat.NewConnManager(gatewayID)
	defer connMgr.Close()
	fanout := chat.NewFanout(8, 4096)

	authOpts := security.DefaultOptions(global.GetJwtSecret())
	authOpts.TTL = conf.Auth.TTL()

	server := chat.NewServer(chat.Deps{
		ConnMgr:   connMgr,
		Fanout:    fanout,
		Registry:  registry,
		Messages:  messages,
		Ledger:    ledger,
		Friends:   friends,
		Directory: directory,
		Presence:  presence,
		AuthOpts:  authOpts,
	})

	if conf.Nats.Enabled {
		nc, err := natsx.Connect(natsx.Config{Servers: conf.Nats.Servers, Name: gatewayID})
		if err != nil {
			logger.Errorf("nats connect: %v", err)
			return
		}
		defer func() { _ = nc.Close() }()
		relay := chat.NewRelay(nc, connMgr, fanout)
		if err := relay.Start(); err != nil {
			logger.Errorf("nats relay: %v", err)
			return
		}
		defer relay.Stop()
		server.AttachRelay(relay)
		logger.Infof("relay: nats %v", conf.Nats.Servers)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.CORS())
	server.Routes(engine)

	logger.Infof("gateway %s listening on %s", gatewayID, conf.Server.Addr)
	if err := engine.Run(conf.Server.Addr); err != nil {
		logger.Errorf("http server: %v", err)
	}
}
