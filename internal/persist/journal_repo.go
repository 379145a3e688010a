package persist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/l1jgo/eventbatch/internal/render"
)

var journalColumns = []string{"session_id", "seq", "category", "kind", "object_index", "object_generation", "data", "delivered"}

// JournalRepo stores delivered render notifications.
type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteRecords bulk-inserts recs with COPY.
func (r *JournalRepo) WriteRecords(ctx context.Context, session uuid.UUID, recs []render.Record) error {
	if len(recs) == 0 {
		return nil
	}
	sid := pgtype.UUID{Bytes: session, Valid: true}
	n, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"render_journal"},
		journalColumns,
		pgx.CopyFromSlice(len(recs), func(i int) ([]any, error) {
			return journalRow(sid, recs[i]), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy render_journal: %w", err)
	}
	if n != int64(len(recs)) {
		return fmt.Errorf("copy render_journal: wrote %d of %d rows", n, len(recs))
	}
	return nil
}

// journalRow splits the object ID into its halves; both fit a BIGINT
// where the packed value may not.
func journalRow(sid pgtype.UUID, rec render.Record) []any {
	return []any{
		sid, rec.Seq, rec.Category.String(), rec.Kind,
		int64(rec.Object.Index()), int64(rec.Object.Generation()),
		rec.Data, rec.At,
	}
}

// CountSession returns how many records a session has stored.
func (r *JournalRepo) CountSession(ctx context.Context, session uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM render_journal WHERE session_id = $1`,
		pgtype.UUID{Bytes: session, Valid: true},
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count render_journal: %w", err)
	}
	return n, nil
}
