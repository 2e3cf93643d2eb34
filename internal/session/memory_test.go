package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storyweaver/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	s := models.NewSession("sid", time.Now())
	s.Messages = append(s.Messages, models.NewMessage(models.RoleUser, "hello", time.Now()))
	require.NoError(t, store.Save(ctx, s, time.Hour))

	// изменения после Save не должны протекать в хранилище
	s.Messages[0].Content = "mutated"

	got, err := store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Messages[0].Content)

	got.ViewMode = models.ViewChat
	again, err := store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, models.ViewNewStory, again.ViewMode)

	require.NoError(t, store.Delete(ctx, "sid"))
	_, err = store.Get(ctx, "sid")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, models.NewSession("a", now), time.Minute))
	require.NoError(t, store.Save(ctx, models.NewSession("b", now), time.Hour))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	_, err = store.Get(ctx, "b")
	assert.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 1, store.sweep())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_RunStopsOnCancel(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestLocker_SerializesSameSession(t *testing.T) {
	l := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("sid")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestLocker_FixedStripeCount(t *testing.T) {
	l := NewLocker()
	used := map[uint32]struct{}{}
	for i := 0; i < 10000; i++ {
		id := fmt.Sprintf("session-%d", i)
		unlock := l.Lock(id)
		unlock()
		idx := stripeIndex(id)
		require.Less(t, idx, uint32(lockStripes))
		assert.Equal(t, idx, stripeIndex(id), "same id maps to the same stripe")
		used[idx] = struct{}{}
	}
	assert.LessOrEqual(t, len(used), lockStripes)
	assert.Greater(t, len(used), lockStripes/2, "ids spread across stripes")
	assert.Len(t, l.stripes[:], lockStripes)
}
