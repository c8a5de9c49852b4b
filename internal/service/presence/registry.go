package presence

import (
	"context"

	"go.uber.org/zap"

	"linkup_social_server/internal/dao/redis"
)

// Registry 在线状态登记服务，封装底层 presence 存储
// 存储层故障只记日志并返回安全零值，不把错误传导到信令链路
type Registry struct {
	store redis.PresenceStore
}

func NewRegistry(store redis.PresenceStore) *Registry {
	return &Registry{store: store}
}

// Register 登记用户的一个连接，重复登记幂等
func (r *Registry) Register(ctx context.Context, userId, connId string) error {
	if err := r.store.AddConnection(ctx, userId, connId); err != nil {
		zap.L().Error("登记连接失败", zap.String("userId", userId), zap.String("connId", connId), zap.Error(err))
		return err
	}
	zap.L().Info("用户连接已登记", zap.String("userId", userId), zap.String("connId", connId))
	return nil
}

// RegisterFeatureChannel 将连接登记为用户的特性通道，同时保证其在连接集合内
func (r *Registry) RegisterFeatureChannel(ctx context.Context, userId, connId string) error {
	if err := r.store.SetFeatureConnection(ctx, userId, connId); err != nil {
		zap.L().Error("登记特性通道失败", zap.String("userId", userId), zap.String("connId", connId), zap.Error(err))
		return err
	}
	zap.L().Info("特性通道已更新", zap.String("userId", userId), zap.String("connId", connId))
	return nil
}

// DeregisterByConnection 注销一个连接，返回其归属用户 id
// 连接未登记时返回空字符串，调用方据此跳过后续广播
func (r *Registry) DeregisterByConnection(ctx context.Context, connId string) string {
	userId, err := r.store.RemoveConnection(ctx, connId)
	if err != nil {
		zap.L().Error("注销连接失败", zap.String("connId", connId), zap.Error(err))
		return ""
	}
	if userId != "" {
		zap.L().Info("用户连接已注销", zap.String("userId", userId), zap.String("connId", connId))
	}
	return userId
}

// DeregisterByUser 删除用户的全部在线记录（登出/管理操作）
func (r *Registry) DeregisterByUser(ctx context.Context, userId string) error {
	if err := r.store.RemoveUser(ctx, userId); err != nil {
		zap.L().Error("注销用户失败", zap.String("userId", userId), zap.Error(err))
		return err
	}
	zap.L().Info("用户全部连接已注销", zap.String("userId", userId))
	return nil
}

// IsOnline 用户是否至少有一个在线连接
func (r *Registry) IsOnline(ctx context.Context, userId string) bool {
	online, err := r.store.IsOnline(ctx, userId)
	if err != nil {
		zap.L().Error("查询在线状态失败", zap.String("userId", userId), zap.Error(err))
		return false
	}
	return online
}

// ListOnline 当前在线用户 id 快照
func (r *Registry) ListOnline(ctx context.Context) []string {
	users, err := r.store.OnlineUsers(ctx)
	if err != nil {
		zap.L().Error("查询在线用户失败", zap.Error(err))
		return []string{}
	}
	if users == nil {
		users = []string{}
	}
	return users
}

// CountOnline 当前在线用户数
func (r *Registry) CountOnline(ctx context.Context) int64 {
	count, err := r.store.OnlineCount(ctx)
	if err != nil {
		zap.L().Error("统计在线用户失败", zap.Error(err))
		return 0
	}
	return count
}

// ConnectionIdsOf 用户当前的全部连接 id
func (r *Registry) ConnectionIdsOf(ctx context.Context, userId string) []string {
	conns, err := r.store.ConnectionsOf(ctx, userId)
	if err != nil {
		zap.L().Error("查询用户连接失败", zap.String("userId", userId), zap.Error(err))
		return nil
	}
	return conns
}

// UserOfConnection 连接的归属用户 id，未登记返回空字符串
func (r *Registry) UserOfConnection(ctx context.Context, connId string) string {
	userId, err := r.store.UserOfConnection(ctx, connId)
	if err != nil {
		zap.L().Error("查询连接归属失败", zap.String("connId", connId), zap.Error(err))
		return ""
	}
	return userId
}

// ResolveDeliveryConn 解析送达连接：优先特性通道，否则任取一个在线连接
// 用户不在线返回空字符串
func (r *Registry) ResolveDeliveryConn(ctx context.Context, userId string) string {
	feature, err := r.store.FeatureConnectionOf(ctx, userId)
	if err != nil {
		zap.L().Error("查询特性通道失败", zap.String("userId", userId), zap.Error(err))
	} else if feature != "" {
		return feature
	}
	conns := r.ConnectionIdsOf(ctx, userId)
	if len(conns) == 0 {
		return ""
	}
	return conns[0]
}
