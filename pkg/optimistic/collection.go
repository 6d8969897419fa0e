package optimistic

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Collection is a local list of records owned by the current identity.
//
// Local state changes are applied under the collection lock, so a reader never
// observes a half-applied transition. Remote calls run in their own goroutines
// and there is no ordering between concurrent mutations of the same record.
type Collection[T any] struct {
	remote   Remote[T]
	identity Identity
	opts     options

	mu       sync.Mutex
	items    []Record[T]
	version  uint64
	onChange func([]Record[T])

	deliverMu sync.Mutex
	delivered uint64

	inflight sync.WaitGroup
}

// NewCollection builds an empty collection bound to one remote and identity.
func NewCollection[T any](remote Remote[T], identity Identity, opts ...Option) *Collection[T] {
	return &Collection[T]{remote: remote, identity: identity, opts: buildOptions(opts)}
}

// OnChange registers a hook invoked with a snapshot after every transition.
// Snapshots arrive in transition order; one overtaken by a newer snapshot is
// dropped. The hook must not mutate the collection synchronously.
func (c *Collection[T]) OnChange(fn func([]Record[T])) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Items returns a copy of the current local state.
func (c *Collection[T]) Items() []Record[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Len returns the number of records currently visible.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Get looks a record up by server id or temporary id.
func (c *Collection[T]) Get(id string) (Record[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.items, id); i >= 0 {
		return c.items[i], true
	}
	return Record[T]{}, false
}

// Wait blocks until every remote call issued so far has settled.
func (c *Collection[T]) Wait() { c.inflight.Wait() }

// Load replaces confirmed records with the remote's listing. Pending records
// stay in front since their create is still in flight.
func (c *Collection[T]) Load(ctx context.Context) error {
	owner, err := c.owner()
	if err != nil {
		return err
	}
	lister, ok := c.remote.(Lister[T])
	if !ok {
		return errors.New("optimistic: remote cannot list")
	}
	rows, err := lister.List(ctx)
	if err != nil {
		return err
	}
	c.apply(func(items []Record[T]) []Record[T] {
		next := make([]Record[T], 0, len(rows)+len(items))
		for _, r := range items {
			if r.State == Pending {
				next = append(next, r)
			}
		}
		for _, row := range rows {
			next = append(next, Record[T]{ServerID: row.ID, OwnerID: owner, State: Confirmed, Payload: row.Payload})
		}
		return next
	})
	return nil
}

// Add inserts a pending record at the front and returns it immediately. The
// create request runs in the background: success swaps the pending record for
// the confirmed one, failure removes it.
func (c *Collection[T]) Add(ctx context.Context, payload T) (Record[T], error) {
	owner, err := c.owner()
	if err != nil {
		return Record[T]{}, err
	}
	pending := Record[T]{LocalID: c.opts.newLocalID(), OwnerID: owner, State: Pending, Payload: payload}
	c.apply(func(items []Record[T]) []Record[T] {
		return append([]Record[T]{pending}, items...)
	})

	c.async(ctx, func(ctx context.Context) {
		id, stored, err := c.remote.Create(ctx, payload)
		if err != nil {
			c.opts.logger.Warn("create failed, rolling back",
				zap.String("local_id", pending.LocalID), zap.Error(err))
			c.apply(func(items []Record[T]) []Record[T] {
				if i := indexOf(items, pending.LocalID); i >= 0 {
					return slices.Delete(items, i, i+1)
				}
				return items
			})
			return
		}
		confirmed := Record[T]{ServerID: id, OwnerID: owner, State: Confirmed, Payload: stored}
		c.apply(func(items []Record[T]) []Record[T] {
			if i := indexOf(items, pending.LocalID); i >= 0 {
				items[i] = confirmed
				return items
			}
			// a Load raced the create and already brought the row in
			if indexOf(items, id) >= 0 {
				return items
			}
			return append([]Record[T]{confirmed}, items...)
		})
	})
	return pending, nil
}

// Remove drops the record locally and issues the delete. If the delete fails
// the prior collection is restored exactly when nothing else changed it in the
// meantime, otherwise the record is put back at its former position.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	actor, err := c.owner()
	if err != nil {
		return err
	}

	c.mu.Lock()
	idx := indexOf(c.items, id)
	if idx < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	removed := c.items[idx]
	if err := checkMutable(removed, actor); err != nil {
		c.mu.Unlock()
		return err
	}
	before := slices.Clone(c.items)
	c.items = slices.Delete(slices.Clone(c.items), idx, idx+1)
	c.version++
	version := c.version
	snap, hook := slices.Clone(c.items), c.onChange
	c.mu.Unlock()
	c.publish(version, snap, hook)

	c.async(ctx, func(ctx context.Context) {
		err := c.remote.Delete(ctx, removed.ServerID)
		if err == nil || errors.Is(err, ErrNotFound) {
			return
		}
		c.opts.logger.Warn("delete failed, rolling back",
			zap.String("id", removed.ServerID), zap.Error(err))

		c.mu.Lock()
		switch {
		case c.version == version:
			c.items = before
		case indexOf(c.items, removed.ServerID) < 0:
			at := min(idx, len(c.items))
			c.items = slices.Insert(slices.Clone(c.items), at, removed)
		}
		c.version++
		v, snap, hook := c.version, slices.Clone(c.items), c.onChange
		c.mu.Unlock()
		c.publish(v, snap, hook)
	})
	return nil
}

// UpdateField merges a change into the record locally and sends the merged
// payload. On failure the pre-merge value is restored and, when the remote can
// fetch single records, the authoritative copy is re-read.
func (c *Collection[T]) UpdateField(ctx context.Context, id string, merge func(T) T) error {
	actor, err := c.owner()
	if err != nil {
		return err
	}

	c.mu.Lock()
	idx := indexOf(c.items, id)
	if idx < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	before := c.items[idx]
	if err := checkMutable(before, actor); err != nil {
		c.mu.Unlock()
		return err
	}
	after := before
	after.Payload = merge(before.Payload)
	c.items = slices.Clone(c.items)
	c.items[idx] = after
	c.version++
	version, snap, hook := c.version, slices.Clone(c.items), c.onChange
	c.mu.Unlock()
	c.publish(version, snap, hook)

	c.async(ctx, func(ctx context.Context) {
		stored, err := c.remote.Update(ctx, before.ServerID, after.Payload)
		if err == nil {
			c.replacePayload(before.ServerID, stored)
			return
		}
		c.opts.logger.Warn("update failed, rolling back",
			zap.String("id", before.ServerID), zap.Error(err))
		c.replacePayload(before.ServerID, before.Payload)

		fetcher, ok := c.remote.(Fetcher[T])
		if !ok {
			return
		}
		fresh, ferr := fetcher.Fetch(ctx, before.ServerID)
		if ferr != nil {
			c.opts.logger.Warn("refetch after failed update", zap.String("id", before.ServerID), zap.Error(ferr))
			return
		}
		c.replacePayload(before.ServerID, fresh)
	})
	return nil
}

func (c *Collection[T]) replacePayload(id string, payload T) {
	c.apply(func(items []Record[T]) []Record[T] {
		if i := indexOf(items, id); i >= 0 {
			items[i].Payload = payload
		}
		return items
	})
}

func (c *Collection[T]) owner() (string, error) {
	return currentUser(c.identity, c.opts.onAuthRequired)
}

// apply runs fn on a private copy of the items and publishes the result.
func (c *Collection[T]) apply(fn func([]Record[T]) []Record[T]) {
	c.mu.Lock()
	c.items = fn(slices.Clone(c.items))
	c.version++
	version, snap, hook := c.version, slices.Clone(c.items), c.onChange
	c.mu.Unlock()
	c.publish(version, snap, hook)
}

// publish hands snap to the hook unless a newer version was already delivered.
func (c *Collection[T]) publish(version uint64, snap []Record[T], hook func([]Record[T])) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if version <= c.delivered {
		return
	}
	c.delivered = version
	notify(hook, snap)
}

// async detaches the remote call from the caller's cancellation but keeps its
// values, and bounds it with the configured timeout.
func (c *Collection[T]) async(ctx context.Context, fn func(context.Context)) {
	base := context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		rctx, cancel := context.WithTimeout(base, c.opts.timeout)
		defer cancel()
		fn(rctx)
	}()
}

func indexOf[T any](items []Record[T], id string) int {
	return slices.IndexFunc(items, func(r Record[T]) bool {
		return r.ServerID == id || (r.LocalID != "" && r.LocalID == id)
	})
}

func checkMutable[T any](r Record[T], actor string) error {
	if r.State == Pending {
		return ErrPending
	}
	if r.OwnerID != "" && r.OwnerID != actor {
		return ErrNotOwner
	}
	return nil
}

func currentUser(identity Identity, onAuthRequired func()) (string, error) {
	if identity != nil {
		if id, ok := identity.CurrentUserID(); ok && id != "" {
			return id, nil
		}
	}
	if onAuthRequired != nil {
		onAuthRequired()
	}
	return "", ErrAuthRequired
}

func notify[S any](hook func(S), snap S) {
	if hook != nil {
		hook(snap)
	}
}
