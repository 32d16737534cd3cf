package customer

import (
	"context"
	"time"
)

// Store defines persistence operations for the customer master set.
type Store interface {
	// StreamAll walks the full customer set with a streaming cursor,
	// invoking fn once per record. Returning an error from fn stops the scan.
	StreamAll(ctx context.Context, fn func(Customer) error) error
	Get(ctx context.Context, identifier string) (*Customer, error)
	Count(ctx context.Context) (int64, error)

	// TagMerged stamps the surviving record after a cascade: merged_from,
	// merge_date and the historical flag.
	TagMerged(ctx context.Context, identifier, mergedFrom string, mergeDate time.Time) error
	// Delete removes a provisional record. Only ever called after every
	// dependent record has been rewritten away from it.
	Delete(ctx context.Context, identifier string) error

	// Enrichment reads: the gap-filling matcher partitions customers by
	// whether they already carry an email.
	ListWithoutEmail(ctx context.Context) ([]Customer, error)
	ListWithEmail(ctx context.Context) ([]Customer, error)
	// UpdateContact persists contact fields filled by the matcher. It never
	// touches the identifier or merge bookkeeping.
	UpdateContact(ctx context.Context, c *Customer) error
}
