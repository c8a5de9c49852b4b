package room

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	myconfig "linkup_social_server/internal/config"
)

// bridgeEnvelope 跨实例广播的线上格式
// Origin 为发布方实例 id，消费侧据此跳过自己发出的消息
type bridgeEnvelope struct {
	Origin        string          `json:"origin"`
	RoomId        string          `json:"roomId"`
	Event         string          `json:"event"`
	Payload       json.RawMessage `json:"payload"`
	ExcludeConnId string          `json:"excludeConnId,omitempty"`
}

// TaskPool 异步任务提交能力，由缓存服务的 worker pool 提供
// 发布走异步，避免 Kafka 写超时拖住发起方连接的读协程
type TaskPool interface {
	SubmitTask(action func())
}

// Bridge 基于 Kafka 的跨实例房间广播桥
// 多实例部署且未启用粘性路由时使用，单实例部署无需挂载
type Bridge struct {
	instanceId string
	producer   *kafka.Writer
	consumer   *kafka.Reader
	hub        *Hub
	tasks      TaskPool
	cancel     context.CancelFunc
}

func NewBridge(tasks TaskPool) *Bridge {
	kafkaConfig := myconfig.GetConfig().KafkaConfig
	return &Bridge{
		instanceId: uuid.NewString(),
		tasks:      tasks,
		producer: &kafka.Writer{
			Addr:                   kafka.TCP(kafkaConfig.HostPort),
			Topic:                  kafkaConfig.BroadcastTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           kafkaConfig.Timeout * time.Second,
			RequiredAcks:           kafka.RequireNone,
			AllowAutoTopicCreation: false,
		},
		// 每个实例独立消费组，广播消息要到达全部实例
		consumer: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{kafkaConfig.HostPort},
			Topic:       kafkaConfig.BroadcastTopic,
			GroupID:     "room_broadcast_" + uuid.NewString(),
			StartOffset: kafka.LastOffset,
		}),
	}
}

// Start 启动消费循环，把其他实例发布的广播回放到本地 Hub
func (b *Bridge) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error(fmt.Sprintf("broadcast bridge panic: %v", r))
			}
		}()
		for {
			kafkaMessage, err := b.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				zap.L().Error(err.Error())
				continue
			}
			var envelope bridgeEnvelope
			if err := json.Unmarshal(kafkaMessage.Value, &envelope); err != nil {
				zap.L().Error(err.Error())
				continue
			}
			if envelope.Origin == b.instanceId {
				continue
			}
			b.hub.broadcastLocal(envelope.RoomId, envelope.Event, envelope.Payload, envelope.ExcludeConnId)
		}
	}()
}

// Publish 把本地广播发布给其他实例
// 序列化同步完成，Kafka 写入提交给 worker pool，调用方不被写超时阻塞
func (b *Bridge) Publish(roomId, event string, payload any, excludeConnId string) {
	raw, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error(err.Error())
		return
	}
	value, err := json.Marshal(bridgeEnvelope{
		Origin:        b.instanceId,
		RoomId:        roomId,
		Event:         event,
		Payload:       raw,
		ExcludeConnId: excludeConnId,
	})
	if err != nil {
		zap.L().Error(err.Error())
		return
	}
	b.tasks.SubmitTask(func() {
		if err := b.producer.WriteMessages(context.Background(), kafka.Message{
			Key:   []byte(roomId),
			Value: value,
		}); err != nil {
			zap.L().Error("广播桥发布失败", zap.String("roomId", roomId), zap.Error(err))
		}
	})
}

// Close 停止消费并释放 Kafka 资源
func (b *Bridge) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if err := b.producer.Close(); err != nil {
		zap.L().Error(err.Error())
	}
	if err := b.consumer.Close(); err != nil {
		zap.L().Error(err.Error())
	}
}
