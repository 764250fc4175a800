package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips the test when none is
// running. manager_integration_test.go runs the same checks in a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
	if manager.staleRetention != DefaultStaleRetention {
		t.Errorf("staleRetention = %v, want %v", manager.staleRetention, DefaultStaleRetention)
	}

	custom := NewManager(client, WithStaleRetention(time.Hour))
	if custom.staleRetention != time.Hour {
		t.Errorf("staleRetention = %v, want 1h", custom.staleRetention)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_Set_NilEntry(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client)
	if err := manager.Set(context.Background(), Key{Path: "/api/v2/pokemon/1/"}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}

// runManagerSuite exercises a Manager against a live Redis client.
func runManagerSuite(t *testing.T, client *redis.Client) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		manager := NewManager(client)
		key := Key{Host: "pokeapi.co", Path: "/api/v2/pokemon/1/"}
		entry := &Entry{
			Data:         []byte(`{"id": 1, "name": "bulbasaur"}`),
			ETag:         `W/"abc123"`,
			Expires:      time.Now().Add(5 * time.Minute),
			LastModified: time.Now().Add(-1 * time.Hour),
			StatusCode:   200,
			ContentType:  "application/json",
			CachedAt:     time.Now(),
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
		if retrieved.IsExpired() {
			t.Error("fresh entry reported as expired")
		}
	})

	t.Run("cache miss", func(t *testing.T) {
		manager := NewManager(client)
		_, err := manager.Get(ctx, Key{Path: "/api/v2/pokemon/nonexistent/"})
		if !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("stale entry with validator is retained", func(t *testing.T) {
		manager := NewManager(client)
		key := Key{Path: "/api/v2/pokemon/2/"}
		entry := &Entry{
			Data:    []byte(`{"id": 2}`),
			ETag:    `"v1"`,
			Expires: time.Now().Add(-1 * time.Minute),
		}

		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		retrieved, err := manager.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !retrieved.IsExpired() {
			t.Error("stale entry should report IsExpired")
		}
	})

	t.Run("expired entry without validator is not stored", func(t *testing.T) {
		manager := NewManager(client)
		key := Key{Path: "/api/v2/pokemon/3/"}
		entry := &Entry{
			Data:    []byte(`{"id": 3}`),
			Expires: time.Now().Add(-1 * time.Hour),
		}

		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		manager := NewManager(client)
		key := Key{Path: "/api/v2/pokemon/4/"}
		entry := &Entry{
			Data:    []byte(`{"id": 4}`),
			Expires: time.Now().Add(5 * time.Minute),
		}

		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := manager.Delete(ctx, key); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
		}
	})

	t.Run("update ttl", func(t *testing.T) {
		manager := NewManager(client)
		key := Key{Path: "/api/v2/pokemon/5/"}
		entry := &Entry{
			Data:    []byte(`{"id": 5}`),
			ETag:    `"v5"`,
			Expires: time.Now().Add(-1 * time.Minute),
		}

		if err := manager.Set(ctx, key, entry); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		newExpires := time.Now().Add(10 * time.Minute)
		if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
			t.Fatalf("UpdateTTL failed: %v", err)
		}

		retrieved, err := manager.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get after UpdateTTL failed: %v", err)
		}
		diff := retrieved.Expires.Sub(newExpires)
		if diff < -1*time.Second || diff > 1*time.Second {
			t.Errorf("Expires time not updated correctly: got %v, want %v (diff: %v)",
				retrieved.Expires, newExpires, diff)
		}
		if retrieved.IsExpired() {
			t.Error("entry should be fresh after UpdateTTL")
		}
	})

	t.Run("corrupted entry", func(t *testing.T) {
		manager := NewManager(client)
		key := Key{Path: "/api/v2/pokemon/6/"}
		if err := client.Set(ctx, key.String(), "not json", time.Minute).Err(); err != nil {
			t.Fatal(err)
		}

		if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("Expected ErrInvalidEntry, got %v", err)
		}
		if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("corrupted entry should be deleted, got %v", err)
		}
	})
}

func TestManager_LocalRedis(t *testing.T) {
	runManagerSuite(t, setupTestRedis(t))
}
