// Package outbox is the optional at-least-once delivery journal. By default
// the engine is fire and forget; configuring an outbox upgrades delivery to
// append-pending, send, mark, with a periodic flusher retrying failures.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edtrack/exercise-xapi/internal/xapi"
)

const (
	statusPending = "pending"
	statusOK      = "ok"
	statusFailed  = "failed"
)

// Row is one journaled statement, with the destination it was bound for.
type Row struct {
	ID        string
	Verb      string
	BodyJSON  string
	Endpoint  string
	AuthToken string
	Status    string
	Retries   int
	LastError string
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Append(ctx context.Context, st xapi.Statement, endpoint, authToken string) error {
	body, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("outbox: marshal statement: %w", err)
	}
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO statement_outbox (id, verb, body, endpoint, auth, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		st.ID, st.Verb.ID, string(body), endpoint, authToken, statusPending, now, now)
	return err
}

func (s *Store) MarkOK(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE statement_outbox SET status=$1, last_error='', updated_at=$2 WHERE id=$3`,
		statusOK, time.Now().Unix(), id)
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id, lastErr string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE statement_outbox SET status=$1, last_error=$2, retries=retries+1, updated_at=$3 WHERE id=$4`,
		statusFailed, lastErr, time.Now().Unix(), id)
	return err
}

// ListRetryable returns failed rows oldest first, capped at limit.
func (s *Store) ListRetryable(ctx context.Context, limit int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, verb, body, endpoint, auth, status, retries, last_error
		 FROM statement_outbox WHERE status=$1 ORDER BY created_at LIMIT $2`,
		statusFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Verb, &r.BodyJSON, &r.Endpoint, &r.AuthToken, &r.Status, &r.Retries, &r.LastError); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Poster is the synchronous delivery call the outbox drives; the transport
// client satisfies it.
type Poster interface {
	Post(ctx context.Context, st xapi.Statement) error
}

// Sender journals each statement before delivery and records the outcome.
// It keeps the engine's non-blocking contract: Send returns immediately.
// The session's endpoint and auth token are journaled with each row so the
// flusher can redeliver long after the session is gone.
type Sender struct {
	store     *Store
	poster    Poster
	endpoint  string
	authToken string
	log       *zap.Logger
}

func NewSender(store *Store, poster Poster, endpoint, authToken string, log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{store: store, poster: poster, endpoint: endpoint, authToken: authToken, log: log}
}

func (s *Sender) Send(ctx context.Context, st xapi.Statement) {
	if err := s.store.Append(ctx, st, s.endpoint, s.authToken); err != nil {
		s.log.Error("outbox append failed", zap.String("statement", st.ID), zap.Error(err))
	}
	go func() {
		if err := s.poster.Post(ctx, st); err != nil {
			s.log.Warn("statement delivery failed, journaled for retry",
				zap.String("statement", st.ID), zap.Error(err))
			if mErr := s.store.MarkFailed(context.Background(), st.ID, err.Error()); mErr != nil {
				s.log.Error("outbox mark failed", zap.String("statement", st.ID), zap.Error(mErr))
			}
			return
		}
		if err := s.store.MarkOK(context.Background(), st.ID); err != nil {
			s.log.Error("outbox mark ok", zap.String("statement", st.ID), zap.Error(err))
		}
	}()
}

// RetryPoster redelivers a journaled statement to the destination stored with
// its row; transport.Redeliverer satisfies it.
type RetryPoster interface {
	PostTo(ctx context.Context, endpoint, authToken string, st xapi.Statement) error
}

// Flusher periodically retries failed rows.
type Flusher struct {
	store    *Store
	poster   RetryPoster
	log      *zap.Logger
	interval time.Duration
	batch    int
}

func NewFlusher(store *Store, poster RetryPoster, log *zap.Logger, interval time.Duration) *Flusher {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Flusher{store: store, poster: poster, log: log, interval: interval, batch: 50}
}

// Run blocks until ctx is done.
func (f *Flusher) Run(ctx context.Context) {
	t := time.NewTicker(f.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.FlushOnce(ctx)
		}
	}
}

// FlushOnce retries one batch of failed rows.
func (f *Flusher) FlushOnce(ctx context.Context) {
	rows, err := f.store.ListRetryable(ctx, f.batch)
	if err != nil {
		f.log.Error("outbox list retryable", zap.Error(err))
		return
	}
	for _, r := range rows {
		var st xapi.Statement
		if err := json.Unmarshal([]byte(r.BodyJSON), &st); err != nil {
			f.log.Error("outbox row has unreadable body", zap.String("statement", r.ID), zap.Error(err))
			continue
		}
		if err := f.poster.PostTo(ctx, r.Endpoint, r.AuthToken, st); err != nil {
			if mErr := f.store.MarkFailed(ctx, r.ID, err.Error()); mErr != nil {
				f.log.Error("outbox mark failed", zap.String("statement", r.ID), zap.Error(mErr))
			}
			continue
		}
		if err := f.store.MarkOK(ctx, r.ID); err != nil {
			f.log.Error("outbox mark ok", zap.String("statement", r.ID), zap.Error(err))
		}
	}
}
