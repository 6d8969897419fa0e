package optimistic

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Edge is a directed relationship between the acting user and a target, with
// the target's derived counter (followers, likes) kept beside the flag so both
// change in the same transition.
type Edge struct {
	ActorID  string
	TargetID string
	Kind     string
	Exists   bool
	Count    int64
}

// EdgeRemote inserts and deletes edges of one kind for the current identity.
type EdgeRemote interface {
	Insert(ctx context.Context, targetID string) error
	Delete(ctx context.Context, targetID string) error
}

// EdgeSet tracks toggleable edges of one kind, keyed by target.
type EdgeSet struct {
	kind     string
	remote   EdgeRemote
	identity Identity
	opts     options

	mu       sync.Mutex
	edges    map[string]Edge
	versions map[string]uint64
	onChange func(Edge)

	deliverMu sync.Mutex
	delivered map[string]uint64

	inflight sync.WaitGroup
}

func NewEdgeSet(kind string, remote EdgeRemote, identity Identity, opts ...Option) *EdgeSet {
	return &EdgeSet{
		kind:     kind,
		remote:   remote,
		identity: identity,
		opts:     buildOptions(opts),
		edges:     make(map[string]Edge),
		versions:  make(map[string]uint64),
		delivered: make(map[string]uint64),
	}
}

// OnChange registers a hook invoked with the edge after every transition.
// Per target, edges arrive in transition order and an overtaken one is
// dropped. The hook must not toggle synchronously.
func (s *EdgeSet) OnChange(fn func(Edge)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Observe records server state for a target, e.g. after a page load.
func (s *EdgeSet) Observe(targetID string, exists bool, count int64) {
	s.mu.Lock()
	e := s.edges[targetID]
	e.TargetID, e.Kind, e.Exists, e.Count = targetID, s.kind, exists, count
	s.edges[targetID] = e
	s.versions[targetID]++
	s.mu.Unlock()
}

// Get returns the local view of the edge to targetID.
func (s *EdgeSet) Get(targetID string) Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[targetID]
	if !ok {
		return Edge{TargetID: targetID, Kind: s.kind}
	}
	return e
}

// Wait blocks until every remote call issued so far has settled.
func (s *EdgeSet) Wait() { s.inflight.Wait() }

// Toggle flips the edge using the current local value as the observed one.
func (s *EdgeSet) Toggle(ctx context.Context, targetID string) (Edge, error) {
	return s.ToggleObserved(ctx, targetID, s.Get(targetID).Exists)
}

// ToggleObserved sets the edge to !observed and issues an insert when
// observed was false, a delete otherwise. The decision uses the value the
// caller saw, not a fresh read, so two toggles fired from the same rendered
// state both insert and the second one lands on "already exists", which is
// accepted as success.
//
// On any other failure the flag and the count are flipped back together. A
// call whose observed value already matched the local state changed nothing
// locally and so has nothing to roll back.
// Concurrent toggles on one edge settle in response order, not issue order.
func (s *EdgeSet) ToggleObserved(ctx context.Context, targetID string, observed bool) (Edge, error) {
	actor, err := currentUser(s.identity, s.opts.onAuthRequired)
	if err != nil {
		return Edge{}, err
	}
	want := !observed
	delta := int64(1)
	if !want {
		delta = -1
	}

	s.mu.Lock()
	e := s.edges[targetID]
	e.ActorID, e.TargetID, e.Kind = actor, targetID, s.kind
	changed := e.Exists != want
	if changed {
		e.Exists = want
		e.Count += delta
	}
	s.edges[targetID] = e
	s.versions[targetID]++
	version, hook := s.versions[targetID], s.onChange
	s.mu.Unlock()
	s.publish(version, e, hook)

	base := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		rctx, cancel := context.WithTimeout(base, s.opts.timeout)
		defer cancel()

		var err error
		if observed {
			err = s.remote.Delete(rctx, targetID)
		} else {
			err = s.remote.Insert(rctx, targetID)
		}
		switch {
		case err == nil:
			return
		case !observed && errors.Is(err, ErrAlreadyExists):
			s.opts.logger.Debug("edge already present", zap.String("kind", s.kind), zap.String("target", targetID))
			return
		case observed && errors.Is(err, ErrNotFound):
			s.opts.logger.Debug("edge already absent", zap.String("kind", s.kind), zap.String("target", targetID))
			return
		}
		s.opts.logger.Warn("toggle failed, rolling back",
			zap.String("kind", s.kind), zap.String("target", targetID), zap.Error(err))

		if !changed {
			return
		}
		s.mu.Lock()
		cur := s.edges[targetID]
		if cur.Exists != want {
			s.mu.Unlock()
			return
		}
		cur.Exists = observed
		cur.Count -= delta
		s.edges[targetID] = cur
		s.versions[targetID]++
		version, hook := s.versions[targetID], s.onChange
		s.mu.Unlock()
		s.publish(version, cur, hook)
	}()
	return e, nil
}

func (s *EdgeSet) publish(version uint64, e Edge, hook func(Edge)) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if version <= s.delivered[e.TargetID] {
		return
	}
	s.delivered[e.TargetID] = version
	notify(hook, e)
}
