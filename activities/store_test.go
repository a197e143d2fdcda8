package activities

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []Definition {
	return []Definition{
		{
			Name:            "Math Club",
			Description:     "Solve problems",
			Schedule:        "Wednesdays",
			MaxParticipants: 10,
			Participants:    []string{"james@mergington.edu"},
		},
		{
			Name:            "Basketball Team",
			Description:     "Play basketball",
			Schedule:        "Tuesdays",
			MaxParticipants: 15,
		},
	}
}

func newTestRedisStore(t *testing.T, catalog []Definition) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := NewRedisStore(context.Background(), client, "test", catalog)
	require.NoError(t, err)
	return store, mr
}

// storeFactories lets every behavioural test run against each Store implementation.
func storeFactories() map[string]func(t *testing.T, catalog []Definition) Store {
	return map[string]func(t *testing.T, catalog []Definition) Store{
		"memory": func(t *testing.T, catalog []Definition) Store {
			return NewMemoryStore(catalog)
		},
		"redis": func(t *testing.T, catalog []Definition) Store {
			s, _ := newTestRedisStore(t, catalog)
			return s
		},
	}
}

func TestStore_Activities(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			store := newStore(t, testCatalog())

			all, err := store.Activities(context.Background())
			require.NoError(t, err)
			require.Len(t, all, 2)

			math := all["Math Club"]
			assert.Equal(t, "Solve problems", math.Description)
			assert.Equal(t, "Wednesdays", math.Schedule)
			assert.Equal(t, 10, math.MaxParticipants)
			assert.Equal(t, []string{"james@mergington.edu"}, math.Participants)

			// Empty rosters are never nil so they encode as [].
			assert.NotNil(t, all["Basketball Team"].Participants)
			assert.Empty(t, all["Basketball Team"].Participants)
		})
	}
}

func TestStore_SignupThenDuplicate(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, testCatalog())

			size, err := store.Signup(ctx, "Math Club", "ada@mergington.edu")
			require.NoError(t, err)
			assert.Equal(t, 2, size)

			size, err = store.Signup(ctx, "Math Club", "ada@mergington.edu")
			assert.ErrorIs(t, err, ErrAlreadyRegistered)
			assert.Equal(t, 2, size)

			all, err := store.Activities(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"james@mergington.edu", "ada@mergington.edu"}, all["Math Club"].Participants)
		})
	}
}

func TestStore_UnregisterThenRepeat(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, testCatalog())

			_, err := store.Signup(ctx, "Basketball Team", "ada@mergington.edu")
			require.NoError(t, err)

			size, err := store.Unregister(ctx, "Basketball Team", "ada@mergington.edu")
			require.NoError(t, err)
			assert.Equal(t, 0, size)

			_, err = store.Unregister(ctx, "Basketball Team", "ada@mergington.edu")
			assert.ErrorIs(t, err, ErrNotRegistered)

			all, err := store.Activities(ctx)
			require.NoError(t, err)
			assert.Empty(t, all["Basketball Team"].Participants)
		})
	}
}

func TestStore_UnregisterNeverSignedUp(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			_, err := newStore(t, testCatalog()).Unregister(context.Background(), "Math Club", "nobody@mergington.edu")
			assert.ErrorIs(t, err, ErrNotRegistered)
		})
	}
}

func TestStore_UnknownActivity(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, testCatalog())

			_, err := store.Signup(ctx, "Nonexistent", "nobody@mergington.edu")
			assert.ErrorIs(t, err, ErrActivityNotFound)

			_, err = store.Unregister(ctx, "Nonexistent", "nobody@mergington.edu")
			assert.ErrorIs(t, err, ErrActivityNotFound)

			all, err := store.Activities(ctx)
			require.NoError(t, err)
			assert.NotContains(t, all, "Nonexistent")
		})
	}
}

func TestStore_Reset(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, testCatalog())

			_, err := store.Signup(ctx, "Basketball Team", "ada@mergington.edu")
			require.NoError(t, err)
			_, err = store.Unregister(ctx, "Math Club", "james@mergington.edu")
			require.NoError(t, err)

			require.NoError(t, store.Reset(ctx))

			all, err := store.Activities(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"james@mergington.edu"}, all["Math Club"].Participants)
			assert.Empty(t, all["Basketball Team"].Participants)
		})
	}
}

func TestStore_ActivitiesReturnsCopy(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, testCatalog())

			first, err := store.Activities(ctx)
			require.NoError(t, err)
			first["Math Club"].Participants[0] = "modified"

			second, err := store.Activities(ctx)
			require.NoError(t, err)
			assert.Equal(t, "james@mergington.edu", second["Math Club"].Participants[0])
		})
	}
}

func TestStore_ConcurrentSignupSamePair(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t, testCatalog())

			const goroutines = 20
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Signup(ctx, "Basketball Team", "ada@mergington.edu")
					if err == nil {
						mu.Lock()
						successes++
						mu.Unlock()
					} else {
						assert.ErrorIs(t, err, ErrAlreadyRegistered)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			all, err := store.Activities(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"ada@mergington.edu"}, all["Basketball Team"].Participants)
		})
	}
}

func TestMemoryStore_CatalogNotAliased(t *testing.T) {
	catalog := testCatalog()
	store := NewMemoryStore(catalog)

	catalog[0].Participants[0] = "changed@mergington.edu"

	all, err := store.Activities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"james@mergington.edu"}, all["Math Club"].Participants)
}

func TestRedisStore_KeepsExistingRosterOnRestart(t *testing.T) {
	ctx := context.Background()
	first, mr := newTestRedisStore(t, testCatalog())

	_, err := first.Unregister(ctx, "Math Club", "james@mergington.edu")
	require.NoError(t, err)
	_, err = first.Signup(ctx, "Basketball Team", "ada@mergington.edu")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	second, err := NewRedisStore(ctx, client, "test", testCatalog())
	require.NoError(t, err)

	all, err := second.Activities(ctx)
	require.NoError(t, err)
	assert.Empty(t, all["Math Club"].Participants, "emptied roster must not be reseeded")
	assert.Equal(t, []string{"ada@mergington.edu"}, all["Basketball Team"].Participants)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, testCatalog())

	_, err := store.Signup(ctx, "Basketball Team", "ada@mergington.edu")
	require.NoError(t, err)

	members, err := mr.ZMembers("test:activity:Basketball Team:participants")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@mergington.edu"}, members)

	seeded, err := mr.SMembers("test:seeded")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Math Club", "Basketball Team"}, seeded)
}

func TestRedisStore_ConnectionFailure(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	store, err := NewRedisStore(ctx, client, "test", testCatalog())
	require.NoError(t, err)
	mr.Close()

	_, err = store.Signup(ctx, "Math Club", "ada@mergington.edu")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRegistered)

	_, err = store.Activities(ctx)
	assert.Error(t, err)
}

func TestRedisStore_ConcurrentStartupSeedsOnce(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	const replicas = 8
	var wg sync.WaitGroup
	errs := make(chan error, replicas)
	for range replicas {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			defer client.Close()
			_, err := NewRedisStore(ctx, client, "test", testCatalog())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	members, err := mr.ZMembers("test:activity:Math Club:participants")
	require.NoError(t, err)
	assert.Equal(t, []string{"james@mergington.edu"}, members)

	seeded, err := mr.SMembers("test:seeded")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Math Club", "Basketball Team"}, seeded)
}

func TestRedisStore_FailedSeedIsRetriedOnNextStart(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	mr.SetError("LOADING Redis is loading the dataset in memory")
	_, err := NewRedisStore(ctx, client, "test", testCatalog())
	require.Error(t, err)
	assert.False(t, mr.Exists("test:seeded"), "a failed seed must not leave the marker behind")
	mr.SetError("")

	store, err := NewRedisStore(ctx, client, "test", testCatalog())
	require.NoError(t, err)
	all, err := store.Activities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"james@mergington.edu"}, all["Math Club"].Participants)
}

func TestRedisStore_SeedKeepsEarlierSignups(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	_, err := mr.ZAdd("test:activity:Math Club:participants", 1, "ada@mergington.edu")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store, err := NewRedisStore(ctx, client, "test", testCatalog())
	require.NoError(t, err)

	all, err := store.Activities(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"james@mergington.edu", "ada@mergington.edu"}, all["Math Club"].Participants)
}
