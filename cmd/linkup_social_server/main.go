package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"linkup_social_server/internal/config"
	dao "linkup_social_server/internal/dao/mysql"
	myredis "linkup_social_server/internal/dao/redis"
	"linkup_social_server/internal/gateway"
	"linkup_social_server/internal/handler"
	"linkup_social_server/internal/https_server"
	"linkup_social_server/internal/infrastructure/logger"
	"linkup_social_server/internal/infrastructure/validation"
	"linkup_social_server/internal/service/call"
	"linkup_social_server/internal/service/presence"
	"linkup_social_server/internal/service/room"
	"linkup_social_server/pkg/util/jwt"
	"linkup_social_server/pkg/util/snowflake"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, "dev"); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	zap.L().Info("日志初始化成功")

	// 3. 初始化数据库
	repos := dao.Init()
	zap.L().Info("数据库初始化成功")

	// 4. 初始化 Redis
	myredis.Init()
	zap.L().Info("Redis 初始化成功")

	// 5. 初始化 JWT（密钥与主 API 一致）
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry, conf.JWTConfig.RefreshTokenExpiry)
	zap.L().Info("JWT 初始化成功")

	// 6. 初始化雪花 ID 生成器
	snowflake.Init()
	zap.L().Info("雪花ID生成器初始化成功")

	// 7. 组装服务层 (依赖注入)
	// 房间中心和信令转发以 room.Sender 依赖网关，网关先建再绑定
	registry := presence.NewRegistry(myredis.GetPresenceStore())
	gw := gateway.Init(registry)
	hub := room.NewHub(gw)
	relay := call.NewRelay(registry, repos.User, repos.CallRecord, myredis.GetCacheService(), gw)
	gw.Bind(hub, relay)
	zap.L().Info("Service 层初始化成功")

	// 8. kafka 模式下挂载跨实例广播桥
	var bridge *room.Bridge
	if conf.KafkaConfig.BroadcastMode == "kafka" {
		bridge = room.NewBridge(myredis.GetCacheService())
		hub.AttachBridge(bridge)
		bridge.Start()
		zap.L().Info("房间广播桥初始化成功")
	}

	// 9. 初始化参数校验翻译器
	if err := validation.Init("zh"); err != nil {
		zap.L().Fatal("init validator translator failed", zap.Error(err))
	}

	// 10. 初始化 HTTPS 服务器
	handlers := handler.NewHandlers(gw, registry, repos.User, repos.CallRecord)
	engine := https_server.Init(handlers)
	zap.L().Info("HTTPS 服务器初始化成功")

	// 11. 启动服务
	host := conf.MainConfig.Host
	port := conf.MainConfig.Port
	go func() {
		if err := engine.Run(fmt.Sprintf("%s:%d", host, port)); err != nil {
			zap.L().Fatal("server running fault")
			return
		}
	}()

	// 设置信号监听
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 等待信号
	<-quit

	if bridge != nil {
		bridge.Close()
	}

	zap.L().Info("关闭服务器...")
	zap.L().Info("服务器已关闭")
}
