package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "web-123")
	assert.ErrorIs(t, err, ErrNotFound)

	sess := New("web-123")
	sess.Data.Language = "hi"
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "web-123")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Data.Language)
	assert.Equal(t, StepIdle, got.CurrentStep)

	// Mutating the returned session must not leak into the store.
	got.Data.Language = "en"
	again, err := store.Get(ctx, "web-123")
	require.NoError(t, err)
	assert.Equal(t, "hi", again.Data.Language)
}

func TestMemoryStore_SetStepCreatesSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.SetStep(ctx, "u1", StepAwaitingOTP, func(d *Data) {
		d.TempPhone = "9876543210"
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingOTP, got.CurrentStep)
	assert.Equal(t, "9876543210", got.Data.TempPhone)
}

func TestFromBag(t *testing.T) {
	sess, err := FromBag("test-1", map[string]any{
		"currentStep":    "awaiting_otp",
		"authenticated":  true,
		"pendingIntent":  "parcel_booking",
		"pendingMessage": "send parcel to Koregaon Park",
		"location":       map[string]any{"lat": 19.99, "lng": 73.78},
	})
	require.NoError(t, err)
	assert.Equal(t, StepAwaitingOTP, sess.CurrentStep)
	assert.True(t, sess.Data.Authenticated)
	assert.Equal(t, "parcel_booking", sess.Data.PendingIntent)
	require.NotNil(t, sess.Data.Location)
	assert.Equal(t, 19.99, sess.Data.Location.Latitude)
}

func TestStep_IsAuthStep(t *testing.T) {
	assert.True(t, StepAwaitingPhone.IsAuthStep())
	assert.True(t, StepAwaitingEmail.IsAuthStep())
	assert.False(t, StepIdle.IsAuthStep())
	assert.False(t, Step("").IsAuthStep())
}

func TestKeyLocks_SerializesSameKey(t *testing.T) {
	locks := NewKeyLocks(time.Minute)

	var order []int
	var wg sync.WaitGroup
	wg.Add(2)

	release := locks.Acquire("k")
	go func() {
		defer wg.Done()
		r := locks.Acquire("k")
		order = append(order, 2)
		r()
	}()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		order = append(order, 1)
		release()
	}()
	wg.Wait()

	assert.Equal(t, []int{1, 2}, order)
}

func TestKeyLocks_DifferentKeysDoNotBlock(t *testing.T) {
	locks := NewKeyLocks(time.Minute)

	releaseA := locks.Acquire("a")
	done := make(chan struct{})
	go func() {
		releaseB := locks.Acquire("b")
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on key a blocked key b")
	}
	releaseA()
}

func TestTrimHistory_TurnCap(t *testing.T) {
	turns := make([]Turn, 0, 30)
	for i := 0; i < 30; i++ {
		turns = append(turns, Turn{Role: "user", Text: "hi"})
	}
	trimmed := TrimHistory(turns, 100000)
	assert.Len(t, trimmed, MaxHistoryTurns)
}

func TestTrimHistory_TokenBudgetKeepsRecent(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	turns := []Turn{
		{Role: "user", Text: string(long)},
		{Role: "assistant", Text: string(long)},
		{Role: "user", Text: "latest"},
	}
	trimmed := TrimHistory(turns, 50)
	require.NotEmpty(t, trimmed)
	assert.Equal(t, "latest", trimmed[len(trimmed)-1].Text)
	assert.Less(t, len(trimmed), 3)
}

func TestClearPending(t *testing.T) {
	d := Data{
		PendingIntent:   "order_food",
		PendingMessage:  "pizza",
		PendingEntities: map[string]any{"item": "pizza"},
		PendingAction:   "search_food",
		PendingModule:   "food",
	}
	d.ClearPending()
	assert.Empty(t, d.PendingIntent)
	assert.Empty(t, d.PendingMessage)
	assert.Nil(t, d.PendingEntities)
	assert.Empty(t, d.PendingAction)
	assert.Empty(t, d.PendingModule)
}
