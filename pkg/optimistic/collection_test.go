package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type entry struct {
	Piece    string
	Duration int
	Notes    string
}

type fakeRemote struct {
	mu      sync.Mutex
	gate    chan struct{}
	nextID  int
	created []entry
	deleted []string

	createErr error
	deleteErr error
	updateErr error
}

func (f *fakeRemote) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRemote) Create(ctx context.Context, p entry) (string, entry, error) {
	if err := f.wait(ctx); err != nil {
		return "", entry{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", entry{}, f.createErr
	}
	f.nextID++
	f.created = append(f.created, p)
	return fmt.Sprintf("srv-%d", f.nextID), p, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeRemote) Update(ctx context.Context, id string, p entry) (entry, error) {
	if err := f.wait(ctx); err != nil {
		return entry{}, err
	}
	if f.updateErr != nil {
		return entry{}, f.updateErr
	}
	p.Notes += " (saved)"
	return p, nil
}

type fetchingRemote struct {
	*fakeRemote
	fresh entry
}

func (f *fetchingRemote) Fetch(context.Context, string) (entry, error) { return f.fresh, nil }

func (f *fetchingRemote) List(context.Context) ([]Item[entry], error) {
	return []Item[entry]{{ID: "a", Payload: entry{Piece: "A"}}, {ID: "b", Payload: entry{Piece: "B"}}}, nil
}

func signedIn(id string) Identity {
	return IdentityFunc(func() (string, bool) { return id, true })
}

func seeded(t *testing.T, remote Remote[entry], ids ...string) *Collection[entry] {
	t.Helper()
	c := NewCollection[entry](remote, signedIn("u1"))
	for _, id := range ids {
		c.items = append(c.items, Record[entry]{ServerID: id, OwnerID: "u1", State: Confirmed, Payload: entry{Piece: id}})
	}
	return c
}

func ids(items []Record[entry]) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.ID()
	}
	return out
}

func TestAdd_PendingThenConfirmed(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{})}
	c := NewCollection[entry](remote, signedIn("u1"))

	rec, err := c.Add(context.Background(), entry{Piece: "Etude", Duration: 1800})
	require.NoError(t, err)
	assert.Equal(t, Pending, rec.State)
	assert.Empty(t, rec.ServerID)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, rec.LocalID, items[0].ID())
	assert.Equal(t, Pending, items[0].State)

	close(remote.gate)
	c.Wait()

	items = c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "srv-1", items[0].ID())
	assert.Equal(t, Confirmed, items[0].State)
	assert.Empty(t, items[0].LocalID)
	assert.Equal(t, entry{Piece: "Etude", Duration: 1800}, items[0].Payload)
}

func TestAdd_ManyConfirmWithoutDuplicates(t *testing.T) {
	c := NewCollection[entry](&fakeRemote{}, signedIn("u1"))
	for i := 0; i < 20; i++ {
		_, err := c.Add(context.Background(), entry{Duration: i})
		require.NoError(t, err)
	}
	c.Wait()

	items := c.Items()
	require.Len(t, items, 20)
	seen := map[string]bool{}
	for _, r := range items {
		assert.Equal(t, Confirmed, r.State)
		assert.False(t, seen[r.ID()])
		seen[r.ID()] = true
	}
}

func TestAdd_FailureRemovesPending(t *testing.T) {
	remote := &fakeRemote{createErr: errors.New("boom")}
	c := seeded(t, remote, "a")

	_, err := c.Add(context.Background(), entry{Piece: "Scale"})
	require.NoError(t, err)
	c.Wait()

	assert.Equal(t, []string{"a"}, ids(c.Items()))
}

func TestAdd_TimeoutRollsBack(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{})}
	c := NewCollection[entry](remote, signedIn("u1"), WithTimeout(20*time.Millisecond))

	_, err := c.Add(context.Background(), entry{Piece: "Stuck"})
	require.NoError(t, err)
	c.Wait()

	assert.Zero(t, c.Len())
}

func TestAdd_CallerCancellationDoesNotAbortRemote(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{})}
	c := NewCollection[entry](remote, signedIn("u1"))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.Add(ctx, entry{Piece: "Etude"})
	require.NoError(t, err)
	cancel()
	close(remote.gate)
	c.Wait()

	require.Equal(t, 1, c.Len())
	assert.Equal(t, "srv-1", c.Items()[0].ID())
}

func TestMutations_RequireIdentity(t *testing.T) {
	redirected := 0
	remote := &fakeRemote{}
	anon := IdentityFunc(func() (string, bool) { return "", false })
	c := NewCollection[entry](remote, anon, WithAuthRequired(func() { redirected++ }))

	_, err := c.Add(context.Background(), entry{Piece: "Etude"})
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.ErrorIs(t, c.Remove(context.Background(), "x"), ErrAuthRequired)
	assert.ErrorIs(t, c.UpdateField(context.Background(), "x", func(e entry) entry { return e }), ErrAuthRequired)
	c.Wait()

	assert.Zero(t, c.Len())
	assert.Equal(t, 3, redirected)
	assert.Empty(t, remote.created)
}

func TestRemove_FailureRestoresExactOrder(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{}), deleteErr: errors.New("offline")}
	c := seeded(t, remote, "a", "b", "c")
	before := c.Items()

	require.NoError(t, c.Remove(context.Background(), "b"))
	assert.Equal(t, []string{"a", "c"}, ids(c.Items()))

	close(remote.gate)
	c.Wait()

	assert.Equal(t, before, c.Items())
}

func TestRemove_FailureAfterConcurrentAddReinsertsAtPosition(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{}), deleteErr: errors.New("offline")}
	c := seeded(t, remote, "a", "b", "c")

	require.NoError(t, c.Remove(context.Background(), "c"))
	// another mutation lands before the delete settles
	c.apply(func(items []Record[entry]) []Record[entry] {
		return append(items, Record[entry]{ServerID: "d", OwnerID: "u1", State: Confirmed})
	})

	close(remote.gate)
	c.Wait()

	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(c.Items()))
}

func TestRemove_Success(t *testing.T) {
	remote := &fakeRemote{}
	c := seeded(t, remote, "a", "b")

	require.NoError(t, c.Remove(context.Background(), "a"))
	c.Wait()

	assert.Equal(t, []string{"b"}, ids(c.Items()))
	assert.Equal(t, []string{"a"}, remote.deleted)
}

func TestRemove_RemoteNotFoundIsSuccess(t *testing.T) {
	c := seeded(t, &fakeRemote{deleteErr: fmt.Errorf("gone: %w", ErrNotFound)}, "a")

	require.NoError(t, c.Remove(context.Background(), "a"))
	c.Wait()

	assert.Zero(t, c.Len())
}

func TestRemove_Guards(t *testing.T) {
	remote := &fakeRemote{gate: make(chan struct{})}
	c := seeded(t, remote, "a")
	c.items = append(c.items, Record[entry]{ServerID: "other", OwnerID: "u2", State: Confirmed})

	rec, err := c.Add(context.Background(), entry{Piece: "new"})
	require.NoError(t, err)

	assert.ErrorIs(t, c.Remove(context.Background(), rec.LocalID), ErrPending)
	assert.ErrorIs(t, c.Remove(context.Background(), "missing"), ErrNotFound)
	assert.ErrorIs(t, c.Remove(context.Background(), "other"), ErrNotOwner)

	close(remote.gate)
	c.Wait()
}

func TestUpdateField_SuccessTakesServerPayload(t *testing.T) {
	c := seeded(t, &fakeRemote{}, "a")

	err := c.UpdateField(context.Background(), "a", func(e entry) entry {
		e.Notes = "slow"
		return e
	})
	require.NoError(t, err)
	got, _ := c.Get("a")
	assert.Equal(t, "slow", got.Payload.Notes)

	c.Wait()
	got, _ = c.Get("a")
	assert.Equal(t, "slow (saved)", got.Payload.Notes)
}

func TestUpdateField_FailureRevertsToSnapshot(t *testing.T) {
	c := seeded(t, &fakeRemote{updateErr: errors.New("boom")}, "a")

	require.NoError(t, c.UpdateField(context.Background(), "a", func(e entry) entry {
		e.Notes = "slow"
		return e
	}))
	c.Wait()

	got, _ := c.Get("a")
	assert.Equal(t, entry{Piece: "a"}, got.Payload)
}

func TestUpdateField_FailureRefetches(t *testing.T) {
	remote := &fetchingRemote{fakeRemote: &fakeRemote{updateErr: errors.New("boom")}, fresh: entry{Piece: "a", Notes: "server"}}
	c := NewCollection[entry](remote, signedIn("u1"))
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.UpdateField(context.Background(), "a", func(e entry) entry {
		e.Notes = "local"
		return e
	}))
	c.Wait()

	got, _ := c.Get("a")
	assert.Equal(t, "server", got.Payload.Notes)
}

func TestLoad_KeepsPending(t *testing.T) {
	remote := &fetchingRemote{fakeRemote: &fakeRemote{gate: make(chan struct{})}}
	c := NewCollection[entry](remote, signedIn("u1"))

	rec, err := c.Add(context.Background(), entry{Piece: "new"})
	require.NoError(t, err)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, []string{rec.LocalID, "a", "b"}, ids(c.Items()))

	close(remote.gate)
	c.Wait()
	assert.Equal(t, []string{"srv-1", "a", "b"}, ids(c.Items()))
}

func TestOnChange_ReceivesEveryTransition(t *testing.T) {
	var mu sync.Mutex
	var lens []int
	c := NewCollection[entry](&fakeRemote{}, signedIn("u1"))
	c.OnChange(func(items []Record[entry]) {
		mu.Lock()
		lens = append(lens, len(items))
		mu.Unlock()
	})

	_, err := c.Add(context.Background(), entry{})
	require.NoError(t, err)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 1}, lens)
}

func TestPublish_DropsOvertakenSnapshot(t *testing.T) {
	c := NewCollection[entry](&fakeRemote{}, signedIn("u1"))
	var lens []int
	hook := func(items []Record[entry]) { lens = append(lens, len(items)) }

	newer := []Record[entry]{{ServerID: "a"}, {ServerID: "b"}}
	older := []Record[entry]{{ServerID: "a"}}
	c.publish(3, newer, hook)
	c.publish(2, older, hook)
	c.publish(4, older, hook)

	assert.Equal(t, []int{2, 1}, lens)
}
