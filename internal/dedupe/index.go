// Package dedupe implements customer identity resolution: indexing the
// customer master set by normalized name, classifying duplicate groups into
// one-to-one merge candidates and human-review skips, and executing the
// foreign-key cascade for accepted candidates.
package dedupe

import (
	"context"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-merge-cli/internal/customer"
)

// Index partitions the customer master set into authoritative and provisional
// records grouped by exact normalized-name key. Built once per run from a
// streamed scan; read-only afterwards.
type Index struct {
	AuthoritativeByName map[string][]customer.Customer
	ProvisionalByName   map[string][]customer.Customer

	// Total counts every scanned record, including the unkeyed ones.
	Total int
	// Unkeyed counts records whose normalized name is empty. They cannot
	// participate in matching but still exist in the master set.
	Unkeyed int
}

// BuildIndex streams the full customer set once and groups it by normalized
// name key. Records are classified authoritative or provisional by testing
// the identifier against pattern (nil means the default ERP format).
func BuildIndex(ctx context.Context, store customer.Store, pattern *regexp.Regexp) (*Index, error) {
	idx := &Index{
		AuthoritativeByName: make(map[string][]customer.Customer),
		ProvisionalByName:   make(map[string][]customer.Customer),
	}

	err := store.StreamAll(ctx, func(c customer.Customer) error {
		idx.Total++

		key := customer.NameKey(c)
		if key == "" {
			idx.Unkeyed++
			return nil
		}

		if c.IsAuthoritative(pattern) {
			idx.AuthoritativeByName[key] = append(idx.AuthoritativeByName[key], c)
		} else {
			idx.ProvisionalByName[key] = append(idx.ProvisionalByName[key], c)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: build index")
	}

	zap.L().Info("customer index built",
		zap.Int("total", idx.Total),
		zap.Int("unkeyed", idx.Unkeyed),
		zap.Int("authoritative_keys", len(idx.AuthoritativeByName)),
		zap.Int("provisional_keys", len(idx.ProvisionalByName)),
	)

	return idx, nil
}
