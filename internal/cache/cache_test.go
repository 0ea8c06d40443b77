package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gestor360/commission/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "company-001"

	t.Run("SetAndGet", func(t *testing.T) {
		if err := cache.Set(ctx, tenantID, TierKey("RACAO"), []byte(`{"tiers":[]}`), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, tenantID, TierKey("RACAO"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(val) != `{"tiers":[]}` {
			t.Errorf("unexpected value %q", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, tenantID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, CampaignsKey(), []byte("[]"), time.Minute)

		if err := cache.Delete(ctx, tenantID, CampaignsKey()); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		if val, _ := cache.Get(ctx, tenantID, CampaignsKey()); val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
		c := NewLRUCache(10)
		c.now = func() time.Time { return now }

		_ = c.Set(ctx, tenantID, "expiring", []byte("temp"), time.Minute)
		if val, _ := c.Get(ctx, tenantID, "expiring"); string(val) != "temp" {
			t.Fatal("expected value before expiry")
		}

		now = now.Add(2 * time.Minute)
		if val, _ := c.Get(ctx, tenantID, "expiring"); val != nil {
			t.Error("expected nil after TTL")
		}
		if size, _ := c.Stats(); size != 0 {
			t.Errorf("expired entry not dropped, size %d", size)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, "company-A", AvistaRuleKey(), []byte("a"), time.Minute)
		_ = cache.Set(ctx, "company-B", AvistaRuleKey(), []byte("b"), time.Minute)

		a, _ := cache.Get(ctx, "company-A", AvistaRuleKey())
		b, _ := cache.Get(ctx, "company-B", AvistaRuleKey())
		if string(a) != "a" || string(b) != "b" {
			t.Errorf("tenants leaked: %q / %q", a, b)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if _, err := cache.Get(ctx, "", "k"); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if err := cache.Set(ctx, "", "k", nil, time.Minute); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("GoalSnapshot", func(t *testing.T) {
		target := 100.0
		snap := &domain.GoalSnapshot{StoredTarget: &target, Current: 120}
		if err := cache.SetGoalSnapshot(ctx, tenantID, "seller-1", "2025-03", snap, time.Minute); err != nil {
			t.Fatalf("SetGoalSnapshot failed: %v", err)
		}

		got, err := cache.GetGoalSnapshot(ctx, tenantID, "seller-1", "2025-03")
		if err != nil {
			t.Fatalf("GetGoalSnapshot failed: %v", err)
		}
		if got == nil || got.StoredTarget == nil || *got.StoredTarget != 100 || got.Current != 120 {
			t.Errorf("got %+v, want %+v", got, snap)
		}

		miss, err := cache.GetGoalSnapshot(ctx, tenantID, "seller-1", "2025-04")
		if err != nil || miss != nil {
			t.Errorf("expected miss, got %+v, %v", miss, err)
		}

		_ = cache.Delete(ctx, tenantID, GoalKey("seller-1", "2025-03"))
		if got, _ := cache.GetGoalSnapshot(ctx, tenantID, "seller-1", "2025-03"); got != nil {
			t.Error("expected goal snapshot removed via GoalKey")
		}
	})
}

func TestLRUEviction(t *testing.T) {
	cache := NewLRUCache(3)
	ctx := context.Background()
	tenantID := "company-001"

	for i := 0; i < 3; i++ {
		_ = cache.Set(ctx, tenantID, fmt.Sprintf("key%d", i), []byte("v"), time.Minute)
	}

	// touch key0 so key1 becomes the oldest
	_, _ = cache.Get(ctx, tenantID, "key0")
	_ = cache.Set(ctx, tenantID, "key3", []byte("v"), time.Minute)

	if val, _ := cache.Get(ctx, tenantID, "key1"); val != nil {
		t.Error("expected key1 to be evicted")
	}
	for _, k := range []string{"key0", "key2", "key3"} {
		if val, _ := cache.Get(ctx, tenantID, k); val == nil {
			t.Errorf("expected %s to remain", k)
		}
	}

	size, capacity := cache.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("Stats = %d/%d, want 3/3", size, capacity)
	}
}

func TestTwoPhaseCache(t *testing.T) {
	ctx := context.Background()
	tenantID := "company-001"

	// an LRU stands in for Redis as L2
	remote := NewLRUCache(100)
	c := newTwoPhase(NewLRUCache(100), remote, time.Minute)

	t.Run("L2HitPopulatesL1", func(t *testing.T) {
		_ = remote.Set(ctx, tenantID, "k", []byte("remote"), time.Hour)

		val, err := c.Get(ctx, tenantID, "k")
		if err != nil || string(val) != "remote" {
			t.Fatalf("Get = %q, %v", val, err)
		}
		if local, _ := c.local.Get(ctx, tenantID, "k"); string(local) != "remote" {
			t.Error("expected L1 populated after L2 hit")
		}
	})

	t.Run("SetWritesBothLayers", func(t *testing.T) {
		if err := c.Set(ctx, tenantID, "both", []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if v, _ := remote.Get(ctx, tenantID, "both"); string(v) != "v" {
			t.Error("expected value in L2")
		}
		if v, _ := c.local.Get(ctx, tenantID, "both"); string(v) != "v" {
			t.Error("expected value in L1")
		}
	})

	t.Run("DeleteClearsBothLayers", func(t *testing.T) {
		_ = c.Set(ctx, tenantID, "gone", []byte("v"), time.Hour)
		if err := c.Delete(ctx, tenantID, "gone"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if v, _ := c.Get(ctx, tenantID, "gone"); v != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("GoalSnapshotThroughLayers", func(t *testing.T) {
		snap := &domain.GoalSnapshot{Current: 3}
		if err := c.SetGoalSnapshot(ctx, tenantID, "seller-1", "2025-03", snap, time.Hour); err != nil {
			t.Fatalf("SetGoalSnapshot failed: %v", err)
		}
		got, err := c.GetGoalSnapshot(ctx, tenantID, "seller-1", "2025-03")
		if err != nil || got == nil || got.Current != 3 || got.StoredTarget != nil {
			t.Errorf("GetGoalSnapshot = %+v, %v", got, err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := c.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func TestNew(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 5})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("expected *LRUCache, got %T", c)
	}

	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("company-001", GoalKey("u1", "2025-03")); got != "gestor360:company-001:goal:u1:2025-03" {
		t.Errorf("redisKey = %q", got)
	}
}
