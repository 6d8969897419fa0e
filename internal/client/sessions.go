package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/d60-Lab/pronia/internal/practice"
	"github.com/d60-Lab/pronia/pkg/optimistic"
)

// ErrTooShort is returned when a recording rounds down to zero seconds.
var ErrTooShort = errors.New("practice recording shorter than one second")

// PracticeEntry is one logged practice session.
type PracticeEntry struct {
	Piece           string    `json:"piece"`
	DurationSeconds int64     `json:"duration_seconds"`
	Notes           string    `json:"notes"`
	PracticedAt     time.Time `json:"practiced_at"`
}

type practiceRow struct {
	ID string `json:"id"`
	PracticeEntry
}

// sessionsRemote backs Collection[PracticeEntry]. Update only satisfies
// optimistic.Remote; Sessions never calls UpdateField.
type sessionsRemote struct{ api *API }

var _ optimistic.Remote[PracticeEntry] = sessionsRemote{}

func (r sessionsRemote) Create(ctx context.Context, e PracticeEntry) (string, PracticeEntry, error) {
	var row practiceRow
	if err := r.api.do(ctx, http.MethodPost, "/sessions", e, &row); err != nil {
		return "", e, err
	}
	return row.ID, row.PracticeEntry, nil
}

func (r sessionsRemote) Delete(ctx context.Context, id string) error {
	return r.api.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil)
}

// Update is not offered by the server; logged sessions are immutable.
func (r sessionsRemote) Update(context.Context, string, PracticeEntry) (PracticeEntry, error) {
	return PracticeEntry{}, errors.ErrUnsupported
}

func (r sessionsRemote) List(ctx context.Context) ([]optimistic.Item[PracticeEntry], error) {
	var rows []practiceRow
	if err := r.api.do(ctx, http.MethodGet, "/sessions", nil, &rows); err != nil {
		return nil, err
	}
	items := make([]optimistic.Item[PracticeEntry], len(rows))
	for i, row := range rows {
		items[i] = optimistic.Item[PracticeEntry]{ID: row.ID, Payload: row.PracticeEntry}
	}
	return items, nil
}

// Sessions is the practice log of the signed-in user.
type Sessions struct {
	coll *optimistic.Collection[PracticeEntry]
}

func NewSessions(api *API, session *Session, opts ...optimistic.Option) *Sessions {
	return &Sessions{coll: optimistic.NewCollection[PracticeEntry](sessionsRemote{api: api}, session, opts...)}
}

func (s *Sessions) Load(ctx context.Context) error { return s.coll.Load(ctx) }

// Log adds an entry. PracticedAt defaults to now.
func (s *Sessions) Log(ctx context.Context, e PracticeEntry) (optimistic.Record[PracticeEntry], error) {
	if e.PracticedAt.IsZero() {
		e.PracticedAt = time.Now()
	}
	return s.coll.Add(ctx, e)
}

// LogStopwatch stops sw and logs the measured time, dated at the first start.
func (s *Sessions) LogStopwatch(ctx context.Context, piece, notes string, sw *practice.Stopwatch) (optimistic.Record[PracticeEntry], error) {
	elapsed, err := sw.Stop()
	if err != nil {
		return optimistic.Record[PracticeEntry]{}, err
	}
	secs := int64(elapsed.Round(time.Second) / time.Second)
	if secs < 1 {
		return optimistic.Record[PracticeEntry]{}, ErrTooShort
	}
	at := time.Now()
	if ts := sw.Transitions(); len(ts) > 0 {
		at = ts[0].At
	}
	return s.Log(ctx, PracticeEntry{Piece: piece, Notes: notes, DurationSeconds: secs, PracticedAt: at})
}

func (s *Sessions) Delete(ctx context.Context, id string) error { return s.coll.Remove(ctx, id) }

func (s *Sessions) Items() []optimistic.Record[PracticeEntry] { return s.coll.Items() }

func (s *Sessions) OnChange(fn func([]optimistic.Record[PracticeEntry])) { s.coll.OnChange(fn) }

func (s *Sessions) Wait() { s.coll.Wait() }

// Summary is the dashboard view of the practice log.
type Summary struct {
	Total         time.Duration
	WeeklySeconds int64
	ByDay         []practice.DayTotal
	Streak        int
}

// Summary aggregates the local view, pending entries included.
func (s *Sessions) Summary(now time.Time) Summary {
	items := s.coll.Items()
	entries := make([]practice.Entry, len(items))
	for i, r := range items {
		entries[i] = practice.Entry{At: r.Payload.PracticedAt, Seconds: r.Payload.DurationSeconds}
	}
	return Summary{
		Total:         practice.TotalDuration(entries),
		WeeklySeconds: practice.WeeklyPracticeTime(entries, now),
		ByDay:         practice.WeeklyPracticeByDay(entries, now),
		Streak:        practice.Streak(entries, now),
	}
}
