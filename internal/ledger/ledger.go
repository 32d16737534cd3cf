// Package ledger exposes the dependent transactional record kinds that carry
// a customer foreign key: invoices, payments and product sales aggregates.
// The merge cascade treats all three uniformly through the Store capability.
package ledger

import (
	"context"
	"time"
)

// Kind names one dependent record collection.
type Kind string

// The three dependent record kinds, in cascade order.
const (
	KindInvoice     Kind = "invoices"
	KindPayment     Kind = "payments"
	KindProductSale Kind = "product_sales"
)

// Store is the capability a record kind must expose for the merge cascade:
// count by foreign key, stream id-only projections, and bulk rewrite by id
// list. Rewrites are keyed on the old identifier so re-running them is a
// no-op once the documents have moved.
type Store interface {
	Kind() Kind
	// CountByCustomer returns how many records reference the identifier.
	CountByCustomer(ctx context.Context, identifier string) (int64, error)
	// StreamIDsByCustomer walks the ids of all records referencing the
	// identifier with a streaming cursor.
	StreamIDsByCustomer(ctx context.Context, identifier string, fn func(id int64) error) error
	// RewriteCustomer re-points the given records from the old identifier to
	// the new one, stamping historical, merged_from and merge_date. Records
	// in ids that no longer reference old are left untouched. Returns the
	// number of records actually rewritten.
	RewriteCustomer(ctx context.Context, ids []int64, oldID, newID string, mergeDate time.Time) (int64, error)
}
