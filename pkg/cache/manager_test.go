package cache

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis starts an in-memory Redis for the test.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return client, mr
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Path: "/issues/1.json", Principal: "p1"}
	entry := &CacheEntry{
		Data:       []byte(`{"issue":{"id":1}}`),
		ETag:       `"abc123"`,
		Expires:    time.Now().Add(5 * time.Minute),
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		CachedAt:   time.Now(),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.ETag != entry.ETag {
		t.Errorf("ETag mismatch: got %s, want %s", retrieved.ETag, entry.ETag)
	}

	// Another principal must not see the entry.
	if _, err := manager.Get(ctx, CacheKey{Path: "/issues/1.json", Principal: "p2"}); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for other principal, got %v", err)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)

	_, err := manager.Get(context.Background(), CacheKey{Path: "/nonexistent.json"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)

	key := CacheKey{Path: "/issues/1.json"}
	if err := mr.Set(key.String(), "not json"); err != nil {
		t.Fatalf("miniredis set: %v", err)
	}

	_, err := manager.Get(context.Background(), key)
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestManager_Set_ExpiredEntryIsSkipped(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Path: "/issues/1.json"}
	entry := &CacheEntry{Data: []byte(`{}`), Expires: time.Now().Add(-1 * time.Hour)}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if mr.Exists(key.String()) {
		t.Error("expired entry should not be stored")
	}
}

func TestManager_SetStoresTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)

	key := CacheKey{Path: "/projects.json"}
	entry := &CacheEntry{Data: []byte(`{}`), Expires: time.Now().Add(10 * time.Minute)}

	if err := manager.Set(context.Background(), key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl := mr.TTL(key.String())
	if ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Errorf("TTL = %v, want about 10m", ttl)
	}

	mr.FastForward(11 * time.Minute)
	if _, err := manager.Get(context.Background(), key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after expiry, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Path: "/issues/1.json"}
	entry := &CacheEntry{Data: []byte(`{}`), Expires: time.Now().Add(5 * time.Minute)}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_InvalidatePath(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	entry := &CacheEntry{Data: []byte(`{}`), Expires: time.Now().Add(5 * time.Minute)}
	keys := []CacheKey{
		{Path: "/issues/1.json", Principal: "p1"},
		{Path: "/issues/1.json", Principal: "p2", QueryParams: url.Values{"include": []string{"journals"}}},
		{Path: "/issues/12.json", Principal: "p1"},
	}
	for _, key := range keys {
		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	removed, err := manager.InvalidatePath(ctx, "/issues/1.json")
	if err != nil {
		t.Fatalf("InvalidatePath failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	if _, err := manager.Get(ctx, keys[2]); err != nil {
		t.Errorf("unrelated entry was invalidated: %v", err)
	}

	removed, err = manager.InvalidatePath(ctx, "/issues/999.json")
	if err != nil || removed != 0 {
		t.Errorf("InvalidatePath(missing) = (%d, %v), want (0, nil)", removed, err)
	}
}

func TestManager_Renew(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Path: "/issues/1.json"}
	entry := &CacheEntry{Data: []byte(`{}`), ETag: `"v1"`, Expires: time.Now().Add(5 * time.Minute)}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	newExpires := time.Now().Add(10 * time.Minute)
	if err := manager.Renew(ctx, key, entry, newExpires); err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if !entry.Expires.Equal(newExpires) {
		t.Errorf("entry.Expires = %v, want %v", entry.Expires, newExpires)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after Renew failed: %v", err)
	}

	diff := retrieved.Expires.Sub(newExpires)
	if diff < -1*time.Second || diff > 1*time.Second {
		t.Errorf("Expires time not updated correctly: got %v, want %v", retrieved.Expires, newExpires)
	}
	if retrieved.ETag != `"v1"` {
		t.Errorf("ETag = %q, want %q", retrieved.ETag, `"v1"`)
	}
}

func TestManager_Renew_AfterInvalidation(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Path: "/issues/1.json"}
	entry := &CacheEntry{Data: []byte(`{}`), ETag: `"v1"`, Expires: time.Now().Add(5 * time.Minute)}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := manager.InvalidatePath(ctx, "/issues/1.json"); err != nil {
		t.Fatalf("InvalidatePath failed: %v", err)
	}

	err := manager.Renew(ctx, key, entry, time.Now().Add(10*time.Minute))
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Renew after invalidation = %v, want %v", err, ErrCacheMiss)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("Renew resurrected keys %v", keys)
	}
}

func TestManager_Get_NonOKEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Path: "/issues/1.json"}
	entry := &CacheEntry{Data: []byte(`{}`), StatusCode: http.StatusNotFound, Expires: time.Now().Add(5 * time.Minute)}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get = %v, want %v", err, ErrInvalidEntry)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("invalid entry not removed: %v", keys)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client, _ := setupTestRedis(t)
	manager := NewManager(client)

	if err := manager.Set(context.Background(), CacheKey{Path: "/x.json"}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}
