// Package optimistic keeps a local, in-memory collection synchronized with a
// remote store while giving callers immediate feedback.
//
// Every mutation is applied to local state first and returned to the caller
// without waiting on the network. The remote write runs in the background and
// its outcome either confirms the local change or rolls it back.
package optimistic

import (
	"context"
	"errors"
)

var (
	// ErrAuthRequired is returned when a mutation is attempted without an identity.
	ErrAuthRequired = errors.New("optimistic: authentication required")
	// ErrAlreadyExists is reported by remotes when an insert hits an existing row.
	ErrAlreadyExists = errors.New("optimistic: already exists")
	// ErrNotFound is reported by remotes when the target row does not exist.
	ErrNotFound = errors.New("optimistic: not found")
	// ErrPending is returned when a mutation targets a record that is not confirmed yet.
	ErrPending = errors.New("optimistic: record is pending confirmation")
	// ErrNotOwner is returned when the record belongs to another user.
	ErrNotOwner = errors.New("optimistic: record owned by another user")
)

// State is the lifecycle state of a record.
type State int

const (
	Pending State = iota + 1
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// Record is one user-owned row. LocalID is set only while the record is
// pending; ServerID is set once the remote store assigned one.
type Record[T any] struct {
	LocalID  string
	ServerID string
	OwnerID  string
	State    State
	Payload  T
}

// ID returns the identifier callers should use to address the record.
func (r Record[T]) ID() string {
	if r.ServerID != "" {
		return r.ServerID
	}
	return r.LocalID
}

// Remote is the remote store seen from one feature.
type Remote[T any] interface {
	// Create persists payload and returns the server id and the server's view
	// of the payload (timestamps and other computed fields filled in).
	Create(ctx context.Context, payload T) (string, T, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, payload T) (T, error)
}

// Fetcher is implemented by remotes that can re-read a single record.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, id string) (T, error)
}

// Item is a server row as returned by Lister.
type Item[T any] struct {
	ID      string
	Payload T
}

// Lister is implemented by remotes that can list the owner's records.
type Lister[T any] interface {
	List(ctx context.Context) ([]Item[T], error)
}

// Identity reports the currently authenticated user, if any.
type Identity interface {
	CurrentUserID() (string, bool)
}

// IdentityFunc adapts a function to Identity.
type IdentityFunc func() (string, bool)

func (f IdentityFunc) CurrentUserID() (string, bool) { return f() }
