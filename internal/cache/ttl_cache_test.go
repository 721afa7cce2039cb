package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSetAndGet(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Set("key1", 42)

	if v, ok := c.Get("key1"); !ok || v != 42 {
		t.Errorf("Get(key1) = %d, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get returned ok=true for missing key")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestEntriesExpireIndividually(t *testing.T) {
	c := New[string, int](50 * time.Millisecond)
	c.Set("old", 1)
	time.Sleep(60 * time.Millisecond)
	c.Set("new", 2)

	if _, ok := c.Get("old"); ok {
		t.Error("old entry should have expired")
	}
	if v, ok := c.Get("new"); !ok || v != 2 {
		t.Errorf("new entry = %d, %v", v, ok)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New[string, int](0)
	c.Set("k", 1)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Error("zero TTL entry expired")
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	var evicted []string
	c := New[string, int](0,
		WithCapacity[string, int](2),
		WithEvict(func(k string, _ int) { evicted = append(evicted, k) }),
	)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if diff := cmp.Diff([]string{"a"}, evicted); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}

	c.Set("b", 20)
	c.Set("d", 4)
	if diff := cmp.Diff([]string{"a", "b", "c"}, evicted); diff != "" {
		t.Errorf("evicted mismatch after replace (-want +got):\n%s", diff)
	}
	if v, _ := c.Get("b"); v != 20 {
		t.Errorf("b = %d, want 20", v)
	}
}

func TestDeleteAndInvalidate(t *testing.T) {
	var evicted []string
	c := New[string, int](0, WithEvict(func(k string, _ int) { evicted = append(evicted, k) }))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("b")
	c.Delete("missing")
	c.Invalidate()

	if c.Len() != 0 {
		t.Errorf("Len after Invalidate = %d", c.Len())
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, evicted); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}
}

// TestGetOrComputeSharesWork verifies concurrent callers for one key run fn once.
func TestGetOrComputeSharesWork(t *testing.T) {
	c := New[string, int](time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute("fp", func() (int, error) {
				calls.Add(1)
				<-release
				return 7, nil
			})
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fn called %d times, want 1", n)
	}
	for i, v := range results {
		if v != 7 {
			t.Errorf("result[%d] = %d", i, v)
		}
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New[int, string](time.Minute)
	boom := errors.New("boom")

	if _, err := c.GetOrCompute(1, func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Error("failed computation was cached")
	}
	v, err := c.GetOrCompute(1, func() (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Errorf("retry = %q, %v", v, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](time.Minute, WithCapacity[int, int](16))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(id*100+j, j)
				c.Get(id*100 + j)
				c.Len()
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}
