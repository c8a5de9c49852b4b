package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePresenceStore 内存版 presence 存储，语义与 Redis 实现一致
type fakePresenceStore struct {
	conns   map[string]map[string]struct{} // userId -> connId 集合
	owners  map[string]string              // connId -> userId
	feature map[string]string              // userId -> connId
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
	} else if f.feature[userId] == connId {
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

func TestRegisterMultipleConnections(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))
	require.NoError(t, registry.Register(ctx, "U100", "conn-2"))

	assert.True(t, registry.IsOnline(ctx, "U100"))
	assert.ElementsMatch(t, []string{"conn-1", "conn-2"}, registry.ConnectionIdsOf(ctx, "U100"))
	assert.Equal(t, []string{"U100"}, registry.ListOnline(ctx))
	assert.Equal(t, int64(1), registry.CountOnline(ctx))
}

func TestRegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))
	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))

	assert.Equal(t, []string{"conn-1"}, registry.ConnectionIdsOf(ctx, "U100"))
}

func TestDeregisterPartialKeepsOnline(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))
	require.NoError(t, registry.Register(ctx, "U100", "conn-2"))

	userId := registry.DeregisterByConnection(ctx, "conn-1")
	assert.Equal(t, "U100", userId)
	assert.True(t, registry.IsOnline(ctx, "U100"))
	assert.Equal(t, []string{"conn-2"}, registry.ConnectionIdsOf(ctx, "U100"))
}

func TestDeregisterLastConnectionGoesOffline(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))

	userId := registry.DeregisterByConnection(ctx, "conn-1")
	assert.Equal(t, "U100", userId)
	assert.False(t, registry.IsOnline(ctx, "U100"))
	assert.Empty(t, registry.ListOnline(ctx))
}

func TestDeregisterUnknownConnectionIsNoop(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))

	userId := registry.DeregisterByConnection(ctx, "conn-ghost")
	assert.Equal(t, "", userId)
	assert.True(t, registry.IsOnline(ctx, "U100"))
}

func TestDeregisterByUserRemovesAllConnections(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))
	require.NoError(t, registry.RegisterFeatureChannel(ctx, "U100", "conn-2"))

	require.NoError(t, registry.DeregisterByUser(ctx, "U100"))
	assert.False(t, registry.IsOnline(ctx, "U100"))
	assert.Empty(t, registry.ConnectionIdsOf(ctx, "U100"))
	assert.Equal(t, "", registry.UserOfConnection(ctx, "conn-1"))
}

func TestResolveDeliveryConnPrefersFeatureChannel(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))
	require.NoError(t, registry.RegisterFeatureChannel(ctx, "U100", "conn-2"))

	assert.Equal(t, "conn-2", registry.ResolveDeliveryConn(ctx, "U100"))
}

func TestResolveDeliveryConnFallsBackAfterFeatureConnGone(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	require.NoError(t, registry.Register(ctx, "U100", "conn-1"))
	require.NoError(t, registry.RegisterFeatureChannel(ctx, "U100", "conn-2"))

	registry.DeregisterByConnection(ctx, "conn-2")
	assert.Equal(t, "conn-1", registry.ResolveDeliveryConn(ctx, "U100"))
}

func TestResolveDeliveryConnOffline(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(newFakePresenceStore())

	assert.Equal(t, "", registry.ResolveDeliveryConn(ctx, "U404"))
}
