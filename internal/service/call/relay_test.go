package call

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup_social_server/internal/dto/request"
	"linkup_social_server/internal/dto/respond"
	"linkup_social_server/internal/model"
	"linkup_social_server/internal/service/presence"
	"linkup_social_server/pkg/constants"
	"linkup_social_server/pkg/errorx"
)

// fakePresenceStore 内存版 presence 存储
type fakePresenceStore struct {
	conns   map[string][]string
	feature map[string]string
}

func (f *fakePresenceStore) AddConnection(_ context.Context, userId, connId string) error {
	f.conns[userId] = append(f.conns[userId], connId)
	return nil
}

func (f *fakePresenceStore) SetFeatureConnection(ctx context.Context, userId, connId string) error {
	if err := f.AddConnection(ctx, userId, connId); err != nil {
		return err
	}
	f.feature[userId] = connId
	return nil
}

func (f *fakePresenceStore) RemoveConnection(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (f *fakePresenceStore) RemoveUser(_ context.Context, userId string) error {
	delete(f.conns, userId)
	delete(f.feature, userId)
	return nil
}

func (f *fakePresenceStore) UserOfConnection(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (f *fakePresenceStore) ConnectionsOf(_ context.Context, userId string) ([]string, error) {
	return f.conns[userId], nil
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

// fakeUserRepository 只认识预置的用户
type fakeUserRepository struct {
	users map[string]*model.UserInfo
}

func (f *fakeUserRepository) FindByUuid(uuid string) (*model.UserInfo, error) {
	if user, ok := f.users[uuid]; ok {
		return user, nil
	}
	return nil, errorx.Newf(errorx.CodeNotFound, "用户不存在")
}

func (f *fakeUserRepository) FindByUuids(uuids []string) ([]model.UserInfo, error) {
	var result []model.UserInfo
	for _, uuid := range uuids {
		if user, ok := f.users[uuid]; ok {
			result = append(result, *user)
		}
	}
	return result, nil
}

// fakeCallRecordRepository 记录落库调用
type fakeCallRecordRepository struct {
	created []*model.CallRecord
}

func (f *fakeCallRecordRepository) Create(record *model.CallRecord) error {
	f.created = append(f.created, record)
	return nil
}

func (f *fakeCallRecordRepository) FindByChatId(_ string) ([]model.CallRecord, error) {
	return nil, nil
}

func (f *fakeCallRecordRepository) FindByUserUuid(_ string) ([]model.CallRecord, error) {
	return nil, nil
}

// fakeCache 任务同步执行，缓存始终未命中
type fakeCache struct {
	stored map[string]string
}

func (f *fakeCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	f.stored[key] = value
	return nil
}

func (f *fakeCache) Get(_ context.Context, _ string) (string, error) { return "", nil }

func (f *fakeCache) GetOrError(_ context.Context, _ string) (string, error) {
	return "", errorx.Newf(errorx.CodeCacheError, "key不存在")
}

func (f *fakeCache) Delete(_ context.Context, _ string) error          { return nil }
func (f *fakeCache) DeleteByPattern(_ context.Context, _ string) error { return nil }
func (f *fakeCache) SubmitTask(action func())                          { action() }

// recordingSender 记录投递过的事件
type recordingSender struct {
	sends []sentEvent
}

type sentEvent struct {
	ConnId  string
	Event   string
	Payload any
}

func (s *recordingSender) SendToConn(connId string, event string, payload any) bool {
	s.sends = append(s.sends, sentEvent{ConnId: connId, Event: event, Payload: payload})
	return true
}

type relayFixture struct {
	store   *fakePresenceStore
	users   *fakeUserRepository
	records *fakeCallRecordRepository
	sender  *recordingSender
	relay   *Relay
}

func newRelayFixture() *relayFixture {
	store := &fakePresenceStore{
		conns:   make(map[string][]string),
		feature: make(map[string]string),
	}
	users := &fakeUserRepository{users: map[string]*model.UserInfo{
		"U100": {Uuid: "U100", Nickname: "阿青", Avatar: "/static/avatars/u100.png"},
		"U200": {Uuid: "U200", Nickname: "阿明", Avatar: "/static/avatars/u200.png"},
	}}
	records := &fakeCallRecordRepository{}
	sender := &recordingSender{}
	relay := NewRelay(presence.NewRegistry(store), users, records,
		&fakeCache{stored: make(map[string]string)}, sender)
	return &relayFixture{store: store, users: users, records: records, sender: sender, relay: relay}
}

func TestRelayOfferForwardsWithCallerProfile(t *testing.T) {
	ctx := context.Background()
	fx := newRelayFixture()
	require.NoError(t, fx.store.AddConnection(ctx, "U200", "conn-callee"))

	fx.relay.RelayOffer(ctx, "U100", request.CallOfferRequest{
		ToUserId: "U200",
		Offer:    json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
		CallKind: model.CallKindVideo,
	})

	require.Len(t, fx.sender.sends, 1)
	sent := fx.sender.sends[0]
	assert.Equal(t, "conn-callee", sent.ConnId)
	assert.Equal(t, constants.EventIncomingCall, sent.Event)
	payload := sent.Payload.(respond.IncomingCallRespond)
	assert.Equal(t, "U100", payload.Caller.Id)
	assert.Equal(t, "阿青", payload.Caller.DisplayName)
	assert.Equal(t, model.CallKindVideo, payload.CallKind)
}

func TestRelayOfferDropsWhenCalleeOffline(t *testing.T) {
	fx := newRelayFixture()

	fx.relay.RelayOffer(context.Background(), "U100", request.CallOfferRequest{
		ToUserId: "U404",
		Offer:    json.RawMessage(`{}`),
		CallKind: model.CallKindVoice,
	})

	assert.Empty(t, fx.sender.sends)
	assert.Empty(t, fx.records.created)
}

func TestRelayOfferPrefersFeatureChannel(t *testing.T) {
	ctx := context.Background()
	fx := newRelayFixture()
	require.NoError(t, fx.store.AddConnection(ctx, "U200", "conn-plain"))
	require.NoError(t, fx.store.SetFeatureConnection(ctx, "U200", "conn-feature"))

	fx.relay.RelayOffer(ctx, "U100", request.CallOfferRequest{
		ToUserId: "U200",
		Offer:    json.RawMessage(`{}`),
		CallKind: model.CallKindVoice,
	})

	require.Len(t, fx.sender.sends, 1)
	assert.Equal(t, "conn-feature", fx.sender.sends[0].ConnId)
}

func TestRelayCallEndPersistsRecordWithChatId(t *testing.T) {
	ctx := context.Background()
	fx := newRelayFixture()
	require.NoError(t, fx.store.AddConnection(ctx, "U200", "conn-callee"))

	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	ended := started + 125_600 // 125.6 秒，取整为 125

	fx.relay.RelayCallEnd(ctx, "U100", request.CallEndRequest{
		ToUserId:  "U200",
		StartedAt: started,
		EndedAt:   ended,
		CallKind:  model.CallKindVoice,
		ChatId:    "C300",
	})

	require.Len(t, fx.sender.sends, 1)
	assert.Equal(t, constants.EventCallEnded, fx.sender.sends[0].Event)

	require.Len(t, fx.records.created, 1)
	record := fx.records.created[0]
	assert.Equal(t, "U100", record.CallerId)
	assert.Equal(t, "U200", record.CalleeId)
	assert.Equal(t, "C300", record.ChatId)
	assert.Equal(t, int64(125), record.Duration)
	assert.NotZero(t, record.Uuid)
}

func TestRelayCallEndSkipsPersistWithoutChatId(t *testing.T) {
	ctx := context.Background()
	fx := newRelayFixture()
	require.NoError(t, fx.store.AddConnection(ctx, "U200", "conn-callee"))

	fx.relay.RelayCallEnd(ctx, "U100", request.CallEndRequest{
		ToUserId:  "U200",
		StartedAt: 1000,
		EndedAt:   2000,
		CallKind:  model.CallKindVoice,
	})

	require.Len(t, fx.sender.sends, 1)
	assert.Empty(t, fx.records.created)
}

func TestRelayCallEndClampsNegativeDuration(t *testing.T) {
	ctx := context.Background()
	fx := newRelayFixture()
	require.NoError(t, fx.store.AddConnection(ctx, "U200", "conn-callee"))

	fx.relay.RelayCallEnd(ctx, "U100", request.CallEndRequest{
		ToUserId:  "U200",
		StartedAt: 5000,
		EndedAt:   1000,
		CallKind:  model.CallKindVideo,
		ChatId:    "C300",
	})

	require.Len(t, fx.records.created, 1)
	assert.Equal(t, int64(0), fx.records.created[0].Duration)
}

func TestRelayAnswerForwardsToCaller(t *testing.T) {
	ctx := context.Background()
	fx := newRelayFixture()
	require.NoError(t, fx.store.AddConnection(ctx, "U100", "conn-caller"))

	fx.relay.RelayAnswer(ctx, "U200", request.CallAnswerRequest{
		ToUserId: "U100",
		Answer:   json.RawMessage(`{"type":"answer"}`),
	})

	require.Len(t, fx.sender.sends, 1)
	sent := fx.sender.sends[0]
	assert.Equal(t, "conn-caller", sent.ConnId)
	assert.Equal(t, constants.EventCallAccepted, sent.Event)
	assert.Equal(t, "U200", sent.Payload.(respond.CallAcceptedRespond).FromUserId)
}

func TestRelayToggleForwardsState(t *testing.T) {
	ctx := context.Background()
	fx := newRelayFixture()
	require.NoError(t, fx.store.AddConnection(ctx, "U200", "conn-callee"))

	enabled := false
	fx.relay.RelayMicToggle(ctx, "U100", request.CallToggleRequest{
		ToUserId: "U200",
		Enabled:  &enabled,
	})

	require.Len(t, fx.sender.sends, 1)
	assert.Equal(t, constants.EventMicToggled, fx.sender.sends[0].Event)
	assert.False(t, fx.sender.sends[0].Payload.(respond.CallToggleRespond).Enabled)
}
