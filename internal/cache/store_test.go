package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStoreValue_ThenGet(t *testing.T) {
	s := New()
	s.StoreValue("x", "5")

	v, ok := s.GetValue("x", time.Minute)
	require.True(t, ok)
	assert.Equal(t, "5", v)
}

func TestGetValue_MissOnAbsentKey(t *testing.T) {
	s := New()
	_, ok := s.GetValue("nope", time.Minute)
	assert.False(t, ok)
}

func TestGetValue_EmptyValueIsStillAHit(t *testing.T) {
	s := New()
	s.StoreValue("empty", "")

	v, ok := s.GetValue("empty", time.Minute)
	require.True(t, ok)
	assert.Equal(t, "", v)
}

func TestGetValue_StaleEntryMisses(t *testing.T) {
	clock := newFakeClock()
	s := NewWithClock(clock.Now)

	s.StoreValue("x", "5")
	clock.Advance(120 * time.Second)

	_, ok := s.GetValue("x", 60*time.Second)
	assert.False(t, ok)
}

func TestGetValue_AgeExactlyAtBoundIsAHit(t *testing.T) {
	clock := newFakeClock()
	s := NewWithClock(clock.Now)

	s.StoreValue("x", "5")
	clock.Advance(60 * time.Second)

	v, ok := s.GetValue("x", 60*time.Second)
	require.True(t, ok)
	assert.Equal(t, "5", v)
}

func TestStoreValue_OverwriteResetsAge(t *testing.T) {
	clock := newFakeClock()
	s := NewWithClock(clock.Now)

	s.StoreValue("x", "old")
	clock.Advance(120 * time.Second)
	s.StoreValue("x", "new")

	v, ok := s.GetValue("x", 60*time.Second)
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestKeys_InsertionOrderAndRestartable(t *testing.T) {
	s := New()
	s.StoreValue("a", "1")
	s.StoreValue("b", "2")
	s.StoreValue("a", "3") // overwrite must not duplicate or reorder
	s.StoreValue("c", "4")

	var first []string
	for k := range s.Keys() {
		first = append(first, k)
	}
	assert.Equal(t, []string{"a", "b", "c"}, first)

	// Re-invoking the sequence yields the same keys again.
	var second []string
	for k := range s.Keys() {
		second = append(second, k)
	}
	assert.Equal(t, first, second)
}

func TestKeys_EarlyBreak(t *testing.T) {
	s := New()
	s.StoreValue("a", "1")
	s.StoreValue("b", "2")

	for range s.Keys() {
		break
	}
	assert.Equal(t, 2, s.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%4)
			for j := 0; j < 200; j++ {
				s.StoreValue(key, fmt.Sprintf("v%d", j))
				s.GetValue(key, time.Minute)
				for range s.Keys() {
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, s.Len())
}
