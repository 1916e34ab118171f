package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisKVClient struct {
	lastSetKey string
	lastSetVal interface{}
	lastSetTTL time.Duration
	lastExists []string
	lastDel    []string

	setErr    error
	existsErr error
	delErr    error
	existsN   int64
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetVal = value
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastExists = keys
	cmd := redis.NewIntCmd(ctx)
	if m.existsErr != nil {
		cmd.SetErr(m.existsErr)
		return cmd
	}
	cmd.SetVal(m.existsN)
	return cmd
}

func (m *mockRedisKVClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastDel = keys
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func TestMemoryPresenceStore_ExpiresWithoutTouch(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryPresenceStore(time.Minute).(*memoryPresenceStore)
	store.now = func() time.Time { return now }

	ok, err := store.Online(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("expected offline before touch, got %v,%v", ok, err)
	}
	if err := store.Touch(ctx, "u1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	ok, err = store.Online(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("expected online, got %v,%v", ok, err)
	}

	now = now.Add(2 * time.Minute)
	ok, err = store.Online(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("expected expired presence, got %v,%v", ok, err)
	}
}

func TestMemoryPresenceStore_ClearAndEmptyID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPresenceStore(time.Minute)
	if err := store.Touch(ctx, "  "); err != nil {
		t.Fatalf("empty id touch should be no-op, got %v", err)
	}
	if err := store.Touch(ctx, "u2"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := store.Clear(ctx, "u2"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	ok, err := store.Online(ctx, "u2")
	if err != nil || ok {
		t.Fatalf("expected offline after clear, got %v,%v", ok, err)
	}
}

func TestRedisPresenceStore_Basics(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{existsN: 1}
	store := &redisPresenceStore{client: mock, ttl: 90 * time.Second, prefix: "chat:presence:"}

	if err := store.Touch(ctx, " u1 "); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	if mock.lastSetKey != "chat:presence:u1" {
		t.Fatalf("unexpected key, got %q", mock.lastSetKey)
	}
	if mock.lastSetTTL != 90*time.Second {
		t.Fatalf("expected ttl 90s, got %v", mock.lastSetTTL)
	}

	ok, err := store.Online(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("expected online true,nil; got %v,%v", ok, err)
	}
	if len(mock.lastExists) != 1 || mock.lastExists[0] != "chat:presence:u1" {
		t.Fatalf("unexpected exists key: %+v", mock.lastExists)
	}

	if err := store.Clear(ctx, "u1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if len(mock.lastDel) != 1 || mock.lastDel[0] != "chat:presence:u1" {
		t.Fatalf("unexpected del key: %+v", mock.lastDel)
	}
}

func TestRedisPresenceStore_ErrorPaths(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{
		setErr:    errors.New("set failed"),
		existsErr: errors.New("exists failed"),
		delErr:    errors.New("del failed"),
	}
	store := &redisPresenceStore{client: mock, ttl: time.Minute, prefix: "chat:presence:"}

	if err := store.Touch(ctx, ""); err != nil {
		t.Fatalf("empty id touch should be no-op, got %v", err)
	}
	if err := store.Touch(ctx, "u2"); err == nil {
		t.Fatalf("expected touch error")
	}
	if _, err := store.Online(ctx, "u2"); err == nil {
		t.Fatalf("expected online error")
	}
	if err := store.Clear(ctx, "u2"); err == nil {
		t.Fatalf("expected clear error")
	}
}

func TestNewRedisPresenceStore_NilClient(t *testing.T) {
	if store := NewRedisPresenceStore(nil, time.Minute); store != nil {
		t.Fatalf("expected nil store for nil client")
	}
}
