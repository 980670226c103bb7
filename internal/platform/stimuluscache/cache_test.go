package stimuluscache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

func TestMemoryCacheExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemory(time.Minute, 4).(*memoryCache)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "sin/v1/s01.wav", &Entry{Body: []byte("a"), ContentType: "audio/wav"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if e, ok, _ := c.Get(ctx, "sin/v1/s01.wav"); !ok || string(e.Body) != "a" {
		t.Fatalf("Get before expiry: ok=%v entry=%+v", ok, e)
	}
	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "sin/v1/s01.wav"); ok {
		t.Fatalf("entry should expire after ttl")
	}
}

func TestMemoryCacheBounded(t *testing.T) {
	c := NewMemory(time.Hour, 2)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, &Entry{Body: []byte(k)}); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if n := len(c.(*memoryCache).items); n != 2 {
		t.Fatalf("entries: got=%d want=2", n)
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Fatalf("latest entry should be kept")
	}
}

func TestRedisCacheIntegration(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	key := "test/" + uuid.NewString() + ".wav"
	t.Cleanup(func() { _ = rdb.Del(context.Background(), keyPrefix+key).Err() })

	c := NewRedis(rdb, time.Minute)
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get on miss: ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, key, &Entry{Body: []byte("RIFF"), ContentType: "audio/wav", ETag: "e1"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	e, ok, err := c.Get(ctx, key)
	if err != nil || !ok || string(e.Body) != "RIFF" || e.ETag != "e1" {
		t.Fatalf("Get: entry=%+v ok=%v err=%v", e, ok, err)
	}
	if ttl := rdb.TTL(ctx, keyPrefix+key).Val(); ttl <= 0 {
		t.Fatalf("ttl not set: %v", ttl)
	}
}
