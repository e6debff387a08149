package tokencache_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/tokencache"
	"github.com/redis/go-redis/v9"
)

// failStore fails every operation, standing in for unavailable secure
// storage.
type failStore struct {
	getCalls int
	setCalls int
	delCalls int
}

func (s *failStore) Get(ctx context.Context, key string) (string, error) {
	s.getCalls++
	return "", identity.ErrSecureStorageUnavailable
}

func (s *failStore) Set(ctx context.Context, key, value string) error {
	s.setCalls++
	return identity.ErrSecureStorageUnavailable
}

func (s *failStore) Delete(ctx context.Context, key string) error {
	s.delCalls++
	return identity.ErrSecureStorageUnavailable
}

func quiet() tokencache.Option {
	return tokencache.WithLogger(slog.New(slog.DiscardHandler))
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := tokencache.New(tokencache.NewMemoryStore(), quiet())

	if _, ok := c.Get(ctx, "session"); ok {
		t.Fatal("Get() before Save should miss")
	}

	c.Save(ctx, "session", "tok_abc")
	v, ok := c.Get(ctx, "session")
	if !ok || v != "tok_abc" {
		t.Fatalf("Get() = (%q, %v), want (tok_abc, true)", v, ok)
	}

	c.Save(ctx, "session", "tok_refreshed")
	v, _ = c.Get(ctx, "session")
	if v != "tok_refreshed" {
		t.Errorf("Get() after overwrite = %q, want tok_refreshed", v)
	}

	c.Clear(ctx, "session")
	if _, ok := c.Get(ctx, "session"); ok {
		t.Error("Get() after Clear should miss")
	}
}

func TestCache_AbsorbsStorageFailures(t *testing.T) {
	ctx := context.Background()
	store := &failStore{}
	c := tokencache.New(store, quiet())

	// None of these may panic or surface an error; a broken store means
	// "no cached token", and the flow falls back to interactive sign-in.
	c.Save(ctx, "session", "tok_abc")
	if v, ok := c.Get(ctx, "session"); ok || v != "" {
		t.Errorf("Get() on failing store = (%q, %v), want (\"\", false)", v, ok)
	}
	c.Clear(ctx, "session")

	if store.getCalls != 1 || store.setCalls != 1 || store.delCalls != 1 {
		t.Errorf("store calls = get %d, set %d, del %d; want 1 each",
			store.getCalls, store.setCalls, store.delCalls)
	}
}

func TestCache_EmptyValueIsMiss(t *testing.T) {
	ctx := context.Background()
	store := tokencache.NewMemoryStore()
	c := tokencache.New(store, quiet())

	c.Save(ctx, "session", "")
	if _, ok := c.Get(ctx, "session"); ok {
		t.Error("an empty stored value should read as a miss")
	}
}

func TestMemoryStore_EntriesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := tokencache.NewMemoryStore()
	c := tokencache.New(store, quiet())

	c.Save(ctx, "device_trust_token", "dev_tok")
	c.Save(ctx, "session", "tok_abc")

	// Sign-out clears the session token but leaves device trust alone.
	c.Clear(ctx, "session")

	got := store.Entries()
	want := []identity.TokenCacheEntry{{Key: "device_trust_token", Value: "dev_tok"}}
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
}

func newRedisStore(t *testing.T) (*tokencache.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return tokencache.NewRedisStore(rdb), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	v, err := store.Get(ctx, "session")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if v != "" {
		t.Fatalf("Get() before Set = %q, want empty", v)
	}

	if err := store.Set(ctx, "session", "tok_abc"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	v, err = store.Get(ctx, "session")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if v != "tok_abc" {
		t.Errorf("Get() = %q, want tok_abc", v)
	}

	if err := store.Delete(ctx, "session"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	v, _ = store.Get(ctx, "session")
	if v != "" {
		t.Errorf("Get() after Delete = %q, want empty", v)
	}
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	store := tokencache.NewRedisStore(rdb, tokencache.WithTTL(time.Minute))
	if err := store.Set(ctx, "session", "tok_abc"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	v, err := store.Get(ctx, "session")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if v != "" {
		t.Errorf("Get() after TTL = %q, want empty", v)
	}
}

func TestRedisStore_UnavailableWrapsSentinel(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := tokencache.NewRedisStore(rdb)
	mr.Close()

	if _, err := store.Get(ctx, "session"); !errors.Is(err, identity.ErrSecureStorageUnavailable) {
		t.Errorf("Get() error = %v, want ErrSecureStorageUnavailable", err)
	}
	if err := store.Set(ctx, "session", "tok"); !errors.Is(err, identity.ErrSecureStorageUnavailable) {
		t.Errorf("Set() error = %v, want ErrSecureStorageUnavailable", err)
	}
	_ = rdb.Close()
}

func TestCache_OverRedis_AbsorbsOutage(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := tokencache.New(tokencache.NewRedisStore(rdb), quiet(), tokencache.WithName("redis"))
	c.Save(ctx, "session", "tok_abc")
	if v, ok := c.Get(ctx, "session"); !ok || v != "tok_abc" {
		t.Fatalf("Get() = (%q, %v), want (tok_abc, true)", v, ok)
	}

	mr.Close()

	// Outage: reads degrade to misses, writes to no-ops.
	if _, ok := c.Get(ctx, "session"); ok {
		t.Error("Get() during outage should miss, not error")
	}
	c.Save(ctx, "session", "tok_new")
	c.Clear(ctx, "session")
}
