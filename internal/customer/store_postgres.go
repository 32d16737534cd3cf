package customer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-merge-cli/internal/db"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// customerColumns is the standard column list for customer queries.
const customerColumns = `identifier, display_name, first_name, last_name, email, phone,
	additional_phones, historical, merged_from, merge_date, created_at, updated_at`

// customerDests returns scan destinations for a Customer.
func customerDests(c *Customer) []any {
	return []any{
		&c.Identifier, &c.DisplayName, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.AdditionalPhones, &c.Historical, &c.MergedFrom, &c.MergeDate,
		&c.CreatedAt, &c.UpdatedAt,
	}
}

// StreamAll walks every customer with a single streaming cursor.
func (s *PostgresStore) StreamAll(ctx context.Context, fn func(Customer) error) error {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY identifier`)
	if err != nil {
		return eris.Wrap(err, "customer: stream all")
	}
	defer rows.Close()

	for rows.Next() {
		var c Customer
		if err := rows.Scan(customerDests(&c)...); err != nil {
			return eris.Wrap(err, "customer: scan")
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Get fetches a customer by identifier. Returns (nil, nil) when absent.
func (s *PostgresStore) Get(ctx context.Context, identifier string) (*Customer, error) {
	c := &Customer{}
	err := s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE identifier=$1`, identifier).
		Scan(customerDests(c)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "customer: get %s", identifier)
	}
	return c, nil
}

// Count returns the total number of customer records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM customers`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "customer: count")
	}
	return n, nil
}

// TagMerged stamps the surviving record with merge bookkeeping.
func (s *PostgresStore) TagMerged(ctx context.Context, identifier, mergedFrom string, mergeDate time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE customers SET
			historical = TRUE,
			merged_from = $2,
			merge_date = $3,
			updated_at = now()
		WHERE identifier = $1`,
		identifier, mergedFrom, mergeDate,
	)
	if err != nil {
		return eris.Wrapf(err, "customer: tag merged %s", identifier)
	}
	return nil
}

// Delete removes a customer record by identifier.
func (s *PostgresStore) Delete(ctx context.Context, identifier string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE identifier = $1`, identifier)
	if err != nil {
		return eris.Wrapf(err, "customer: delete %s", identifier)
	}
	return nil
}

// ListWithoutEmail returns customers missing an email address.
func (s *PostgresStore) ListWithoutEmail(ctx context.Context) ([]Customer, error) {
	return s.queryCustomers(ctx, `SELECT `+customerColumns+` FROM customers WHERE email = '' ORDER BY identifier`)
}

// ListWithEmail returns customers that already carry an email address.
func (s *PostgresStore) ListWithEmail(ctx context.Context) ([]Customer, error) {
	return s.queryCustomers(ctx, `SELECT `+customerColumns+` FROM customers WHERE email <> '' ORDER BY identifier`)
}

func (s *PostgresStore) queryCustomers(ctx context.Context, sql string, args ...any) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "customer: query")
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(customerDests(&c)...); err != nil {
			return nil, eris.Wrap(err, "customer: scan")
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// UpdateContact persists contact fields on an existing customer.
func (s *PostgresStore) UpdateContact(ctx context.Context, c *Customer) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE customers SET
			email = $2,
			phone = $3,
			first_name = $4,
			last_name = $5,
			additional_phones = $6,
			updated_at = now()
		WHERE identifier = $1`,
		c.Identifier, c.Email, c.Phone, c.FirstName, c.LastName, c.AdditionalPhones,
	)
	if err != nil {
		return eris.Wrapf(err, "customer: update contact %s", c.Identifier)
	}
	return nil
}
