package pagecache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(rdb), mr
}

func TestSetRead(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := TicketsKey(42)

	if c.Exists(ctx, key) {
		t.Fatal("key exists before Set")
	}

	items := []string{"a", "b", "c"}
	if err := c.Set(ctx, key, items); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if !c.Exists(ctx, key) {
		t.Fatal("key does not exist after Set")
	}
	if n := c.Len(ctx, key); n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}

	page := c.Read(ctx, key, 0, 2)
	if len(page) != 2 || page[0] != "a" || page[1] != "b" {
		t.Fatalf("page 0 = %v", page)
	}

	page = c.Read(ctx, key, 1, 2)
	if len(page) != 1 || page[0] != "c" {
		t.Fatalf("page 1 = %v", page)
	}
}

// пустой список кешируется: ключ существует, но элементов нет
func TestSetEmpty(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := ResponsibleKey(42)

	if err := c.Set(ctx, key, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if !c.Exists(ctx, key) {
		t.Fatal("empty list is not cached")
	}
	if n := c.Len(ctx, key); n != 0 {
		t.Fatalf("Len = %d, want 0", n)
	}
	if page := c.Read(ctx, key, 0, 10); page != nil {
		t.Fatalf("page = %v, want nil", page)
	}
}

// повторный Set заменяет список целиком, а не дописывает
func TestSetReplaces(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := SubdivisionsKey(42)

	if err := c.Set(ctx, key, []string{"a", "b"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, key, []string{"c"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if n := c.Len(ctx, key); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
	if page := c.Read(ctx, key, 0, 10); len(page) != 1 || page[0] != "c" {
		t.Fatalf("page = %v", page)
	}
}

func TestTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := TeamsKey(42, "SC-1")

	if err := c.Set(ctx, key, []string{"a"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mr.FastForward(TTL + time.Second)

	if c.Exists(ctx, key) {
		t.Fatal("key still exists after TTL")
	}
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := TicketsKey(42)

	if err := c.Set(ctx, key, []string{"a"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if c.Exists(ctx, key) {
		t.Fatal("key exists after Delete")
	}
}

func TestGuard(t *testing.T) {
	g := NewGuard()

	if !g.Begin("k") {
		t.Fatal("first Begin returned false")
	}
	if g.Begin("k") {
		t.Fatal("second Begin returned true while loading")
	}
	if !g.Begin("other") {
		t.Fatal("Begin for another key returned false")
	}

	g.End("k")
	if !g.Begin("k") {
		t.Fatal("Begin after End returned false")
	}
}
