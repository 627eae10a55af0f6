package main

import (
	"context"
	"flag"
	"time"

	"e2ee_keyserver/internal/config"
	"e2ee_keyserver/internal/repository/account"
	"e2ee_keyserver/internal/repository/device"
	"e2ee_keyserver/internal/repository/group"
	"e2ee_keyserver/internal/service/auth"
	redisSvc "e2ee_keyserver/internal/service/redis"
	"e2ee_keyserver/internal/service/registration"
	"e2ee_keyserver/internal/service/response"
	"e2ee_keyserver/internal/service/server"
	"e2ee_keyserver/internal/service/withdrawal"
	"e2ee_keyserver/internal/store/bundle"
	"e2ee_keyserver/internal/utils/log"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}

	mongoDBClient, err := initMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal("connect to mongo failed", zap.Error(err))
	}

	db := mongoDBClient.Database(cfg.MongoDatabase)

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	redisService := redisSvc.NewRedis(rdb)

	accountRepo := account.NewAccountRepo(db)
	deviceRepo := device.NewDeviceRepo(db)
	groupRepo := group.NewGroupRepo(db)

	store := bundle.NewStore(cfg.MaxBundlesPerDevice)
	mailbox := response.NewRedisMailbox(redisService, cfg.ResponseTTL())
	dispatcher := response.NewDispatcher(mailbox)
	coordinator := registration.NewCoordinator(deviceRepo, groupRepo, store)
	batcher := withdrawal.NewBatcher(store, dispatcher, cfg.MaxWithdrawKeys)
	authenticator := auth.NewAuthenticator(accountRepo)

	s := server.NewHttpServer(
		cfg.HTTPAddr,
		accountRepo,
		deviceRepo,
		groupRepo,
		store,
		coordinator,
		batcher,
		dispatcher,
		authenticator,
	)

	if err := s.Run(); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func initMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return client, client.Ping(ctx, nil)
}
