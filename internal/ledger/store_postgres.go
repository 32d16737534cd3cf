package ledger

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-merge-cli/internal/db"
)

// PostgresStore implements Store for one dependent record table. The three
// kinds share a schema shape (id, customer_identifier, merge bookkeeping), so
// one table-driven implementation covers all of them.
type PostgresStore struct {
	pool  db.Pool
	kind  Kind
	table string
}

// NewPostgresStore creates a store for a single record kind.
func NewPostgresStore(pool db.Pool, kind Kind) *PostgresStore {
	return &PostgresStore{pool: pool, kind: kind, table: string(kind)}
}

// NewPostgresStores returns stores for all three kinds in cascade order.
func NewPostgresStores(pool db.Pool) []Store {
	return []Store{
		NewPostgresStore(pool, KindInvoice),
		NewPostgresStore(pool, KindPayment),
		NewPostgresStore(pool, KindProductSale),
	}
}

// Kind returns the record kind this store serves.
func (s *PostgresStore) Kind() Kind { return s.kind }

// CountByCustomer returns how many records reference the identifier.
func (s *PostgresStore) CountByCustomer(ctx context.Context, identifier string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+s.table+` WHERE customer_identifier = $1`, identifier,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "ledger: count %s by customer %s", s.kind, identifier)
	}
	return n, nil
}

// StreamIDsByCustomer walks the id-only projection for the identifier.
func (s *PostgresStore) StreamIDsByCustomer(ctx context.Context, identifier string, fn func(id int64) error) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM `+s.table+` WHERE customer_identifier = $1 ORDER BY id`, identifier,
	)
	if err != nil {
		return eris.Wrapf(err, "ledger: stream %s ids for %s", s.kind, identifier)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return eris.Wrapf(err, "ledger: scan %s id", s.kind)
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return rows.Err()
}

// RewriteCustomer bulk-updates the given records from oldID to newID. The
// customer_identifier guard keeps the update idempotent: records already
// rewritten no longer match and are skipped.
func (s *PostgresStore) RewriteCustomer(ctx context.Context, ids []int64, oldID, newID string, mergeDate time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.table+` SET
			customer_identifier = $1,
			historical = TRUE,
			merged_from = $2,
			merge_date = $3,
			updated_at = now()
		WHERE id = ANY($4) AND customer_identifier = $2`,
		newID, oldID, mergeDate, ids,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "ledger: rewrite %s %s -> %s", s.kind, oldID, newID)
	}
	return tag.RowsAffected(), nil
}
