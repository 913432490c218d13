package collect

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mailsift/internal/address"
	"github.com/hpungsan/mailsift/internal/db"
)

func parseAll(ss ...string) []address.Address {
	out := make([]address.Address, len(ss))
	for i, s := range ss {
		out[i] = address.MustParse(s)
	}
	return out
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLStore(database),
	}
}

func TestStore_UnionIsIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			n, err := store.AddMany(ctx, parseAll("Jane@Example.com"))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			n, err = store.AddMany(ctx, parseAll("jane@example.com", "JANE@EXAMPLE.COM"))
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestStore_GetAllAndClear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.AddMany(ctx, parseAll("b@x.com", "a@x.com"))
			require.NoError(t, err)
			_, err = store.AddMany(ctx, parseAll("c@x.com", "a@x.com"))
			require.NoError(t, err)

			all, err := store.GetAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"b@x.com", "a@x.com", "c@x.com"}, address.Strings(all))

			require.NoError(t, store.Clear(ctx))
			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestSink_CollectBroadcastsOnChange(t *testing.T) {
	ctx := context.Background()
	hub := NewHub()
	sink := NewSink(NewMemoryStore(), hub, zerolog.Nop())

	ch, cancel := hub.Subscribe()
	defer cancel()

	res, err := sink.Collect(ctx, parseAll("a@x.com", "b@x.com", "A@X.com"))
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 2, Total: 2}, res)
	assert.Equal(t, 2, receive(t, ch))

	// Nothing new: no broadcast
	res, err = sink.Collect(ctx, parseAll("b@x.com"))
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 0, Total: 2}, res)
	select {
	case v := <-ch:
		t.Fatalf("unexpected broadcast %d", v)
	default:
	}

	require.NoError(t, sink.Clear(ctx))
	assert.Equal(t, 0, receive(t, ch))
}

func TestSink_EmptyBatch(t *testing.T) {
	sink := NewSink(NewMemoryStore(), nil, zerolog.Nop())

	res, err := sink.Collect(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestHub_KeepsLatestForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(1)
	hub.Publish(2)
	hub.Publish(3)

	assert.Equal(t, 3, receive(t, ch))
}

func TestHub_CancelUnsubscribes(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	require.Equal(t, 1, hub.Len())

	cancel()
	cancel()
	assert.Equal(t, 0, hub.Len())

	_, open := <-ch
	assert.False(t, open)

	// Publishing with no subscribers must not block
	hub.Publish(7)
}

func receive(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
		return 0
	}
}
