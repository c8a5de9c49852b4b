package room

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueingPool 只入队不执行，验证发布不在调用方协程里写 Kafka
type queueingPool struct {
	tasks []func()
}

func (p *queueingPool) SubmitTask(action func()) {
	p.tasks = append(p.tasks, action)
}

func TestPublishSubmitsWriteToPool(t *testing.T) {
	pool := &queueingPool{}
	b := &Bridge{instanceId: "instance-a", tasks: pool}

	b.Publish("room-1", "chat-message", map[string]string{"content": "hi"}, "conn-x")

	require.Len(t, pool.tasks, 1, "Kafka 写入应提交给 worker pool")
}

func TestPublishSkipsUnmarshalablePayload(t *testing.T) {
	pool := &queueingPool{}
	b := &Bridge{instanceId: "instance-a", tasks: pool}

	b.Publish("room-1", "chat-message", make(chan int), "")

	assert.Empty(t, pool.tasks)
}

func TestBridgeEnvelopeRoundtripCarriesOrigin(t *testing.T) {
	value, err := json.Marshal(bridgeEnvelope{
		Origin:        "instance-a",
		RoomId:        "room-1",
		Event:         "chat-message",
		Payload:       json.RawMessage(`{"content":"hi"}`),
		ExcludeConnId: "conn-x",
	})
	require.NoError(t, err)

	var decoded bridgeEnvelope
	require.NoError(t, json.Unmarshal(value, &decoded))
	assert.Equal(t, "instance-a", decoded.Origin)
	assert.Equal(t, "conn-x", decoded.ExcludeConnId)
}
