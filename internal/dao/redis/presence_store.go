// Package redis 提供 Redis 访问的封装
// 本文件实现在线状态存储：记录每个用户的连接集合、连接到用户的反向索引
// 以及可选的特性通道指针。三类键互相依赖，必须作为一个整体变更：
// 无条件写入收敛到 applyDelta，通过 TxPipelined 一次性提交；
// 依赖读取结果的删除（最后一个连接的判定）走 WATCH 乐观事务，
// 判定期间连接集合被并发修改则整个事务作废重试
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"linkup_social_server/pkg/errorx"
)

// 键布局
// presence_conns_<userId>      SET    用户当前所有连接 id
// presence_conn_owner_<connId> STRING 连接 id -> 用户 id 反向索引
// presence_feature_<userId>    STRING 用户的特性通道连接 id（可选）
// presence_online_users        SET    当前在线用户集合
const (
	keyConnSetPrefix   = "presence_conns_"
	keyConnOwnerPrefix = "presence_conn_owner_"
	keyFeaturePrefix   = "presence_feature_"
	keyOnlineUsers     = "presence_online_users"
)

// PresenceStore 在线状态存储接口
// 写操作内部保证同一次调用涉及的多个键在一个事务批次中变更；
// 进程在批次提交前崩溃导致的部分写入是已接受的已知风险
type PresenceStore interface {
	// AddConnection 为用户登记一个连接（幂等）
	AddConnection(ctx context.Context, userId, connId string) error
	// SetFeatureConnection 设置/覆盖用户的特性通道连接，并同时登记到连接集合
	SetFeatureConnection(ctx context.Context, userId, connId string) error
	// RemoveConnection 通过反向索引注销一个连接
	// 返回连接归属的用户 id；连接未注册时返回空字符串且不报错
	// 该连接是用户最后一个连接时，整条在线记录（含特性通道指针）一并删除
	RemoveConnection(ctx context.Context, connId string) (string, error)
	// RemoveUser 强制删除用户的全部在线记录（显式登出/管理操作）
	RemoveUser(ctx context.Context, userId string) error

	// UserOfConnection 反查连接归属的用户 id，未注册返回空字符串
	UserOfConnection(ctx context.Context, connId string) (string, error)
	// ConnectionsOf 获取用户当前的连接 id 集合
	ConnectionsOf(ctx context.Context, userId string) ([]string, error)
	// FeatureConnectionOf 获取用户的特性通道连接 id，未设置返回空字符串
	FeatureConnectionOf(ctx context.Context, userId string) (string, error)
	// IsOnline 用户是否在线（连接集合非空）
	IsOnline(ctx context.Context, userId string) (bool, error)
	// OnlineUsers 当前在线用户 id 集合
	OnlineUsers(ctx context.Context) ([]string, error)
	// OnlineCount 当前在线用户数
	OnlineCount(ctx context.Context) (int64, error)
}

// RedisPresenceStore PresenceStore 的 Redis 实现
type RedisPresenceStore struct {
	client *redis.Client
}

// NewRedisPresenceStore 创建在线状态存储实例
func NewRedisPresenceStore(client *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{client: client}
}

// presenceDelta 一次注册操作涉及的多键变更
// 注册路径的写入全部收敛到这里，禁止绕过它直接改键
type presenceDelta struct {
	addConnSet    string // SADD 连接集合的键（为空则跳过）
	addConnId     string //   对应的连接 id
	setOwnerKey   string // SET 反向索引键
	setOwnerVal   string //   对应的用户 id
	setFeatureKey string // SET 特性通道键
	setFeatureVal string //   对应的连接 id
	addOnlineUser string // SADD 在线用户集合的成员
}

// applyDelta 在一个 MULTI/EXEC 批次中应用全部键变更
func (s *RedisPresenceStore) applyDelta(ctx context.Context, d *presenceDelta) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if d.addConnSet != "" {
			pipe.SAdd(ctx, d.addConnSet, d.addConnId)
		}
		if d.setOwnerKey != "" {
			pipe.Set(ctx, d.setOwnerKey, d.setOwnerVal, 0)
		}
		if d.setFeatureKey != "" {
			pipe.Set(ctx, d.setFeatureKey, d.setFeatureVal, 0)
		}
		if d.addOnlineUser != "" {
			pipe.SAdd(ctx, keyOnlineUsers, d.addOnlineUser)
		}
		return nil
	})
	if err != nil {
		return errorx.Wrap(err, errorx.CodeCacheError, "redis presence delta")
	}
	return nil
}

// watchMaxRetries WATCH 乐观事务的重试上限
// 竞争方是同一用户的少量并发注销，通常一两次内收敛
const watchMaxRetries = 100

// AddConnection 为用户登记一个连接
// SADD/SET 天然幂等，并发多端登录不会互相覆盖
func (s *RedisPresenceStore) AddConnection(ctx context.Context, userId, connId string) error {
	return s.applyDelta(ctx, &presenceDelta{
		addConnSet:    keyConnSetPrefix + userId,
		addConnId:     connId,
		setOwnerKey:   keyConnOwnerPrefix + connId,
		setOwnerVal:   userId,
		addOnlineUser: userId,
	})
}

// SetFeatureConnection 设置/覆盖特性通道连接
// 特性通道连接同时计入用户的普通连接集合
func (s *RedisPresenceStore) SetFeatureConnection(ctx context.Context, userId, connId string) error {
	return s.applyDelta(ctx, &presenceDelta{
		addConnSet:    keyConnSetPrefix + userId,
		addConnId:     connId,
		setOwnerKey:   keyConnOwnerPrefix + connId,
		setOwnerVal:   userId,
		setFeatureKey: keyFeaturePrefix + userId,
		setFeatureVal: connId,
		addOnlineUser: userId,
	})
}

// RemoveConnection 注销一个连接并维护全部共生键
func (s *RedisPresenceStore) RemoveConnection(ctx context.Context, connId string) (string, error) {
	userId, err := s.UserOfConnection(ctx, connId)
	if err != nil {
		return "", err
	}
	if userId == "" {
		// 未注册或已被清理，调用方按无操作处理
		return "", nil
	}

	connSetKey := keyConnSetPrefix + userId
	featureKey := keyFeaturePrefix + userId

	// “是否最后一个连接”的判定必须与删除同时生效：WATCH 连接集合，
	// 两个连接并发注销时只有一方提交成功，另一方重试后按新状态重新判定
	removal := func(tx *redis.Tx) error {
		members, err := tx.SMembers(ctx, connSetKey).Result()
		if err != nil {
			return err
		}
		feature, err := tx.Get(ctx, featureKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		// 剩余连接数（除去本连接）
		remaining := 0
		for _, m := range members {
			if m != connId {
				remaining++
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SRem(ctx, connSetKey, connId)
			pipe.Unlink(ctx, keyConnOwnerPrefix+connId)
			if remaining == 0 {
				// 最后一个连接：整条记录删除，不留空集合残留
				pipe.SRem(ctx, keyOnlineUsers, userId)
				pipe.Unlink(ctx, connSetKey, featureKey)
			} else if feature == connId {
				// 特性通道连接先下线，指针一并清除，投递回退到普通连接
				pipe.Unlink(ctx, featureKey)
			}
			return nil
		})
		return err
	}

	for i := 0; i < watchMaxRetries; i++ {
		err := s.client.Watch(ctx, removal, connSetKey)
		if err == nil {
			return userId, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis remove conn %s", connId)
	}
	return "", errorx.Newf(errorx.CodeCacheError, "redis remove conn %s 竞争重试超限", connId)
}

// RemoveUser 强制删除用户的全部在线记录
// 连接集合同样在 WATCH 下读取：登出与新连接注册并发时重试，
// 保证新登记连接的反向索引不会漏删
func (s *RedisPresenceStore) RemoveUser(ctx context.Context, userId string) error {
	connSetKey := keyConnSetPrefix + userId

	removal := func(tx *redis.Tx) error {
		members, err := tx.SMembers(ctx, connSetKey).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SRem(ctx, keyOnlineUsers, userId)
			delKeys := []string{connSetKey, keyFeaturePrefix + userId}
			for _, connId := range members {
				delKeys = append(delKeys, keyConnOwnerPrefix+connId)
			}
			pipe.Unlink(ctx, delKeys...)
			return nil
		})
		return err
	}

	for i := 0; i < watchMaxRetries; i++ {
		err := s.client.Watch(ctx, removal, connSetKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis remove user %s", userId)
	}
	return errorx.Newf(errorx.CodeCacheError, "redis remove user %s 竞争重试超限", userId)
}

// UserOfConnection 反查连接归属的用户 id
func (s *RedisPresenceStore) UserOfConnection(ctx context.Context, connId string) (string, error) {
	userId, err := s.client.Get(ctx, keyConnOwnerPrefix+connId).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // 未注册，不视为错误
		}
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis get conn owner %s", connId)
	}
	return userId, nil
}

// ConnectionsOf 获取用户当前的连接 id 集合
func (s *RedisPresenceStore) ConnectionsOf(ctx context.Context, userId string) ([]string, error) {
	members, err := s.client.SMembers(ctx, keyConnSetPrefix+userId).Result()
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis smembers conns of %s", userId)
	}
	return members, nil
}

// FeatureConnectionOf 获取用户的特性通道连接 id
func (s *RedisPresenceStore) FeatureConnectionOf(ctx context.Context, userId string) (string, error) {
	connId, err := s.client.Get(ctx, keyFeaturePrefix+userId).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis get feature conn of %s", userId)
	}
	return connId, nil
}

// IsOnline 用户是否在线
func (s *RedisPresenceStore) IsOnline(ctx context.Context, userId string) (bool, error) {
	count, err := s.client.SCard(ctx, keyConnSetPrefix+userId).Result()
	if err != nil {
		return false, errorx.Wrapf(err, errorx.CodeCacheError, "redis scard conns of %s", userId)
	}
	return count > 0, nil
}

// OnlineUsers 当前在线用户 id 集合
func (s *RedisPresenceStore) OnlineUsers(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, keyOnlineUsers).Result()
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeCacheError, "redis smembers online users")
	}
	return members, nil
}

// OnlineCount 当前在线用户数
func (s *RedisPresenceStore) OnlineCount(ctx context.Context) (int64, error) {
	count, err := s.client.SCard(ctx, keyOnlineUsers).Result()
	if err != nil {
		return 0, errorx.Wrap(err, errorx.CodeCacheError, "redis scard online users")
	}
	return count, nil
}

// 确保 RedisPresenceStore 实现了 PresenceStore 接口
var _ PresenceStore = (*RedisPresenceStore)(nil)
