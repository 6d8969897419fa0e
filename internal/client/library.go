package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/d60-Lab/pronia/pkg/optimistic"
)

// Piece statuses.
const (
	PieceLearning  = "learning"
	PiecePolishing = "polishing"
	PieceMastered  = "mastered"
)

// Piece is one entry of the personal repertoire.
type Piece struct {
	Title    string `json:"title"`
	Composer string `json:"composer"`
	Status   string `json:"status,omitempty"`
	Notes    string `json:"notes"`
}

type pieceRow struct {
	ID string `json:"id"`
	Piece
}

type piecesRemote struct{ api *API }

func (r piecesRemote) Create(ctx context.Context, p Piece) (string, Piece, error) {
	var row pieceRow
	if err := r.api.do(ctx, http.MethodPost, "/pieces", p, &row); err != nil {
		return "", p, err
	}
	return row.ID, row.Piece, nil
}

func (r piecesRemote) Delete(ctx context.Context, id string) error {
	return r.api.do(ctx, http.MethodDelete, "/pieces/"+url.PathEscape(id), nil, nil)
}

func (r piecesRemote) Update(ctx context.Context, id string, p Piece) (Piece, error) {
	var row pieceRow
	if err := r.api.do(ctx, http.MethodPatch, "/pieces/"+url.PathEscape(id), p, &row); err != nil {
		return p, err
	}
	return row.Piece, nil
}

func (r piecesRemote) Fetch(ctx context.Context, id string) (Piece, error) {
	var row pieceRow
	err := r.api.do(ctx, http.MethodGet, "/pieces/"+url.PathEscape(id), nil, &row)
	return row.Piece, err
}

func (r piecesRemote) List(ctx context.Context) ([]optimistic.Item[Piece], error) {
	var rows []pieceRow
	if err := r.api.do(ctx, http.MethodGet, "/pieces", nil, &rows); err != nil {
		return nil, err
	}
	items := make([]optimistic.Item[Piece], len(rows))
	for i, row := range rows {
		items[i] = optimistic.Item[Piece]{ID: row.ID, Payload: row.Piece}
	}
	return items, nil
}

// Library is the signed-in user's repertoire.
type Library struct {
	coll *optimistic.Collection[Piece]
}

func NewLibrary(api *API, session *Session, opts ...optimistic.Option) *Library {
	return &Library{coll: optimistic.NewCollection[Piece](piecesRemote{api: api}, session, opts...)}
}

func (l *Library) Load(ctx context.Context) error { return l.coll.Load(ctx) }

func (l *Library) Add(ctx context.Context, p Piece) (optimistic.Record[Piece], error) {
	if p.Status == "" {
		p.Status = PieceLearning
	}
	return l.coll.Add(ctx, p)
}

func (l *Library) Remove(ctx context.Context, id string) error { return l.coll.Remove(ctx, id) }

// SetStatus moves a piece between learning, polishing and mastered.
func (l *Library) SetStatus(ctx context.Context, id, status string) error {
	return l.coll.UpdateField(ctx, id, func(p Piece) Piece {
		p.Status = status
		return p
	})
}

func (l *Library) SetNotes(ctx context.Context, id, notes string) error {
	return l.coll.UpdateField(ctx, id, func(p Piece) Piece {
		p.Notes = notes
		return p
	})
}

func (l *Library) Items() []optimistic.Record[Piece] { return l.coll.Items() }

func (l *Library) Get(id string) (optimistic.Record[Piece], bool) { return l.coll.Get(id) }

func (l *Library) OnChange(fn func([]optimistic.Record[Piece])) { l.coll.OnChange(fn) }

func (l *Library) Wait() { l.coll.Wait() }
