package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup_social_server/internal/service/presence"
	"linkup_social_server/internal/service/room"
	"linkup_social_server/pkg/constants"
)

// fakePresenceStore 内存版 presence 存储
type fakePresenceStore struct {
	conns   map[string]map[string]struct{}
	owners  map[string]string
	feature map[string]string
}

func newFakePresenceStore() *fakePresenceStore {
	return &fakePresenceStore{
		conns:   make(map[string]map[string]struct{}),
		owners:  make(map[string]string),
		feature: make(map[string]string),
	}
}

func (f *fakePresenceStore) AddConnection(_ context.Context, userId, connId string) error {
	if _, ok := f.conns[userId]; !ok {
		f.conns[userId] = make(map[string]struct{})
	}
	f.conns[userId][connId] = struct{}{}
	f.owners[connId] = userId
	return nil
}

func (f *fakePresenceStore) SetFeatureConnection(ctx context.Context, userId, connId string) error {
	if err := f.AddConnection(ctx, userId, connId); err != nil {
		return err
	}
	f.feature[userId] = connId
	return nil
}

func (f *fakePresenceStore) RemoveConnection(_ context.Context, connId string) (string, error) {
	userId, ok := f.owners[connId]
	if !ok {
		return "", nil
	}
	delete(f.owners, connId)
	delete(f.conns[userId], connId)
	if len(f.conns[userId]) == 0 {
		delete(f.conns, userId)
		delete(f.feature, userId)
	}
	return userId, nil
}

func (f *fakePresenceStore) RemoveUser(_ context.Context, userId string) error {
	for connId := range f.conns[userId] {
		delete(f.owners, connId)
	}
	delete(f.conns, userId)
	delete(f.feature, userId)
	return nil
}

func (f *fakePresenceStore) UserOfConnection(_ context.Context, connId string) (string, error) {
	return f.owners[connId], nil
}

func (f *fakePresenceStore) ConnectionsOf(_ context.Context, userId string) ([]string, error) {
	conns := make([]string, 0, len(f.conns[userId]))
	for connId := range f.conns[userId] {
		conns = append(conns, connId)
	}
	return conns, nil
}

func (f *fakePresenceStore) FeatureConnectionOf(_ context.Context, userId string) (string, error) {
	return f.feature[userId], nil
}

func (f *fakePresenceStore) IsOnline(_ context.Context, userId string) (bool, error) {
	return len(f.conns[userId]) > 0, nil
}

func (f *fakePresenceStore) OnlineUsers(_ context.Context) ([]string, error) {
	users := make([]string, 0, len(f.conns))
	for userId := range f.conns {
		users = append(users, userId)
	}
	return users, nil
}

func (f *fakePresenceStore) OnlineCount(_ context.Context) (int64, error) {
	return int64(len(f.conns)), nil
}

// newTestGateway 组装网关及其依赖，不走真实 WebSocket
func newTestGateway() (*Gateway, *fakePresenceStore) {
	store := newFakePresenceStore()
	g := newGateway(presence.NewRegistry(store))
	g.Bind(room.NewHub(g), nil)
	return g, store
}

// attachConn 挂一条无底层 socket 的测试连接
func attachConn(g *Gateway, connId, authUserId string) *Conn {
	c := newConn(nil, connId, authUserId)
	g.conns.Store(connId, c)
	return c
}

// drainFrames 取出连接缓冲里的全部出站事件
func drainFrames(t *testing.T, c *Conn) []outFrame {
	t.Helper()
	var frames []outFrame
	for {
		select {
		case raw := <-c.SendBack:
			var frame outFrame
			require.NoError(t, json.Unmarshal(raw, &frame))
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

type outFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func eventNames(frames []outFrame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func TestInitReturnsSingleInstance(t *testing.T) {
	g1 := Init(presence.NewRegistry(newFakePresenceStore()))
	g2 := Init(presence.NewRegistry(newFakePresenceStore()))
	assert.Same(t, g1, g2)
}

func TestDispatchUnknownEvent(t *testing.T) {
	g, _ := newTestGateway()
	c := attachConn(g, "conn-1", "U100")

	g.dispatch(c, []byte(`{"event":"no-such-event","data":{}}`))

	frames := drainFrames(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, constants.EventError, frames[0].Event)
}

func TestDispatchMalformedEnvelope(t *testing.T) {
	g, _ := newTestGateway()
	c := attachConn(g, "conn-1", "U100")

	g.dispatch(c, []byte(`not-json`))

	frames := drainFrames(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, constants.EventError, frames[0].Event)
}

func TestRegisterUserValidatesPayload(t *testing.T) {
	g, store := newTestGateway()
	c := attachConn(g, "conn-1", "U100")

	g.dispatch(c, []byte(`{"event":"register-user","data":{}}`))

	frames := drainFrames(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, constants.EventError, frames[0].Event)
	assert.Empty(t, store.conns)
}

func TestValidationErrorIsTranslated(t *testing.T) {
	g, _ := newTestGateway()
	c := attachConn(g, "conn-1", "U100")

	g.dispatch(c, []byte(`{"event":"register-user","data":{}}`))

	frames := drainFrames(t, c)
	require.Len(t, frames, 1)
	require.Equal(t, constants.EventError, frames[0].Event)
	assert.Contains(t, string(frames[0].Data), "userId")
	assert.Contains(t, string(frames[0].Data), "必填")
}

func TestRegisterUserRejectsIdentityMismatch(t *testing.T) {
	g, store := newTestGateway()
	c := attachConn(g, "conn-1", "U100")

	g.dispatch(c, []byte(`{"event":"register-user","data":{"userId":"U999"}}`))

	frames := drainFrames(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, constants.EventError, frames[0].Event)
	assert.Empty(t, store.conns)
}

func TestRegisterUserStoresConnection(t *testing.T) {
	g, store := newTestGateway()
	c := attachConn(g, "conn-1", "U100")

	g.dispatch(c, []byte(`{"event":"register-user","data":{"userId":"U100"}}`))

	assert.Empty(t, eventNames(drainFrames(t, c)))
	assert.Equal(t, "U100", store.owners["conn-1"])
	assert.Equal(t, "U100", c.userId)
}

func TestOnlineSnapshotBroadcastToAdminRoom(t *testing.T) {
	g, _ := newTestGateway()
	watcher := attachConn(g, "conn-admin", "U001")
	watcher.userId = "U001"
	g.hub.Join(constants.ADMIN_ROOM, watcher.Id)

	c := attachConn(g, "conn-1", "U100")
	g.dispatch(c, []byte(`{"event":"register-user","data":{"userId":"U100"}}`))

	frames := drainFrames(t, watcher)
	require.Len(t, frames, 1)
	assert.Equal(t, constants.EventOnlineUsersUpdated, frames[0].Event)
	assert.Contains(t, string(frames[0].Data), "U100")
}

func TestCallEventRequiresRegistration(t *testing.T) {
	g, _ := newTestGateway()
	c := attachConn(g, "conn-1", "U100")

	g.dispatch(c, []byte(`{"event":"call-offer","data":{"toUserId":"U200","offer":{},"callKind":0}}`))

	frames := drainFrames(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, constants.EventError, frames[0].Event)
}

func TestGetOnlineUsersReturnsSnapshot(t *testing.T) {
	g, store := newTestGateway()
	require.NoError(t, store.AddConnection(context.Background(), "U300", "conn-x"))
	c := attachConn(g, "conn-1", "U100")

	g.dispatch(c, []byte(`{"event":"get-online-users","data":{}}`))

	frames := drainFrames(t, c)
	require.Len(t, frames, 1)
	assert.Equal(t, constants.EventOnlineUsersUpdated, frames[0].Event)
	assert.Contains(t, string(frames[0].Data), "U300")
}
