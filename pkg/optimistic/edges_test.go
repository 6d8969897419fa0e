package optimistic

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEdgeRemote struct {
	mu      sync.Mutex
	gate    chan struct{}
	inserts []error
	deletes []error
	calls   []string
}

func (f *fakeEdgeRemote) next(queue *[]error) error {
	if len(*queue) == 0 {
		return nil
	}
	err := (*queue)[0]
	*queue = (*queue)[1:]
	return err
}

func (f *fakeEdgeRemote) Insert(ctx context.Context, target string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "insert:"+target)
	return f.next(&f.inserts)
}

func (f *fakeEdgeRemote) Delete(ctx context.Context, target string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+target)
	return f.next(&f.deletes)
}

func TestToggle_DuplicateInsertKeepsEdgeOnce(t *testing.T) {
	remote := &fakeEdgeRemote{inserts: []error{nil, ErrAlreadyExists}}
	s := NewEdgeSet("like", remote, signedIn("u1"))
	s.Observe("p1", false, 4)

	// both toggles fire from the same rendered state
	_, err := s.ToggleObserved(context.Background(), "p1", false)
	require.NoError(t, err)
	_, err = s.ToggleObserved(context.Background(), "p1", false)
	require.NoError(t, err)
	s.Wait()

	e := s.Get("p1")
	assert.True(t, e.Exists)
	assert.EqualValues(t, 5, e.Count)
	assert.Equal(t, []string{"insert:p1", "insert:p1"}, remote.calls)
}

func TestToggle_InFlightThenDuplicateStaysTrue(t *testing.T) {
	remote := &fakeEdgeRemote{gate: make(chan struct{}), inserts: []error{ErrAlreadyExists}}
	s := NewEdgeSet("follow", remote, signedIn("u1"))

	e, err := s.Toggle(context.Background(), "u2")
	require.NoError(t, err)
	assert.True(t, e.Exists)
	assert.True(t, s.Get("u2").Exists)
	assert.Equal(t, "u1", e.ActorID)
	assert.Equal(t, "follow", e.Kind)

	close(remote.gate)
	s.Wait()
	assert.True(t, s.Get("u2").Exists)
	assert.EqualValues(t, 1, s.Get("u2").Count)
}

func TestToggle_FailureFlipsBackWithCount(t *testing.T) {
	remote := &fakeEdgeRemote{inserts: []error{errors.New("boom")}, deletes: []error{errors.New("boom")}}
	s := NewEdgeSet("like", remote, signedIn("u1"))
	s.Observe("p1", false, 10)
	s.Observe("p2", true, 3)

	_, err := s.Toggle(context.Background(), "p1")
	require.NoError(t, err)
	_, err = s.Toggle(context.Background(), "p2")
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, Edge{ActorID: "u1", TargetID: "p1", Kind: "like", Exists: false, Count: 10}, s.Get("p1"))
	assert.Equal(t, Edge{ActorID: "u1", TargetID: "p2", Kind: "like", Exists: true, Count: 3}, s.Get("p2"))
}

func TestToggle_DeleteMissingIsSuccess(t *testing.T) {
	remote := &fakeEdgeRemote{deletes: []error{ErrNotFound}}
	s := NewEdgeSet("follow", remote, signedIn("u1"))
	s.Observe("u2", true, 1)

	_, err := s.Toggle(context.Background(), "u2")
	require.NoError(t, err)
	s.Wait()

	assert.False(t, s.Get("u2").Exists)
	assert.Zero(t, s.Get("u2").Count)
}

func TestToggle_StaleObservedFailureKeepsState(t *testing.T) {
	remote := &fakeEdgeRemote{inserts: []error{errors.New("boom")}}
	s := NewEdgeSet("like", remote, signedIn("u1"))
	s.Observe("p1", true, 5)

	// rendered before the like landed, so the caller still saw false
	e, err := s.ToggleObserved(context.Background(), "p1", false)
	require.NoError(t, err)
	assert.True(t, e.Exists)
	assert.EqualValues(t, 5, e.Count)
	s.Wait()

	got := s.Get("p1")
	assert.True(t, got.Exists)
	assert.EqualValues(t, 5, got.Count)
	assert.Equal(t, []string{"insert:p1"}, remote.calls)
}

func TestEdgePublish_DropsOvertakenEdge(t *testing.T) {
	s := NewEdgeSet("like", &fakeEdgeRemote{}, signedIn("u1"))
	var seen []Edge
	hook := func(e Edge) { seen = append(seen, e) }

	s.publish(2, Edge{TargetID: "p1", Exists: true, Count: 1}, hook)
	s.publish(1, Edge{TargetID: "p1", Exists: false, Count: 0}, hook)
	s.publish(1, Edge{TargetID: "p2", Exists: true, Count: 7}, hook)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Exists)
	assert.Equal(t, "p2", seen[1].TargetID)
}

func TestToggle_FlagAndCountChangeTogether(t *testing.T) {
	remote := &fakeEdgeRemote{}
	s := NewEdgeSet("like", remote, signedIn("u1"))
	s.Observe("p1", false, 0)

	var mu sync.Mutex
	var seen []Edge
	s.OnChange(func(e Edge) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})

	_, err := s.Toggle(context.Background(), "p1")
	require.NoError(t, err)
	s.Wait()
	_, err = s.Toggle(context.Background(), "p1")
	require.NoError(t, err)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	for _, e := range seen {
		if e.Exists {
			assert.EqualValues(t, 1, e.Count)
		} else {
			assert.EqualValues(t, 0, e.Count)
		}
	}
}

func TestToggle_RequiresIdentity(t *testing.T) {
	redirected := false
	remote := &fakeEdgeRemote{}
	s := NewEdgeSet("follow", remote, nil, WithAuthRequired(func() { redirected = true }))

	_, err := s.Toggle(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.True(t, redirected)
	assert.False(t, s.Get("u2").Exists)
	assert.Empty(t, remote.calls)
}
