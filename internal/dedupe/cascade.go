package dedupe

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/crm-merge-cli/internal/customer"
	"github.com/sells-group/crm-merge-cli/internal/db"
	"github.com/sells-group/crm-merge-cli/internal/ledger"
)

// ExecutorConfig tunes cascade batching and pacing.
type ExecutorConfig struct {
	// BatchSize bounds each bulk foreign-key rewrite (ids per UPDATE).
	BatchSize int
	// CandidateBatchSize groups candidates between pacing waits.
	CandidateBatchSize int
	// BatchDelay is the optional pause between candidate batches, capping
	// sustained write load on the store. Zero disables pacing.
	BatchDelay time.Duration
}

// Executor rewrites dependent records from the provisional identifier to the
// authoritative one, then deletes the provisional customer. Rewrite strictly
// precedes delete: a crash mid-candidate leaves the provisional record in
// place and the candidate is simply retried on the next run.
type Executor struct {
	customers customer.Store
	ledgers   []ledger.Store
	cfg       ExecutorConfig
	limiter   *rate.Limiter
	now       func() time.Time
}

// NewExecutor creates a cascade executor over the customer store and the
// dependent record stores, processed in the given fixed order.
func NewExecutor(customers customer.Store, ledgers []ledger.Store, cfg ExecutorConfig) *Executor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.CandidateBatchSize <= 0 {
		cfg.CandidateBatchSize = 50
	}
	var limiter *rate.Limiter
	if cfg.BatchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.BatchDelay), 1)
	}
	return &Executor{
		customers: customers,
		ledgers:   ledgers,
		cfg:       cfg,
		limiter:   limiter,
		now:       time.Now,
	}
}

// CandidateError records a cascade failure scoped to one candidate.
type CandidateError struct {
	Authoritative string `yaml:"authoritative" json:"authoritative"`
	Provisional   string `yaml:"provisional" json:"provisional"`
	Message       string `yaml:"message" json:"message"`
}

// Results aggregates one executor run. A failed candidate never aborts the
// others; everything is accounted for here.
type Results struct {
	Processed int                   `yaml:"processed" json:"processed"`
	Rewritten map[ledger.Kind]int64 `yaml:"rewritten" json:"rewritten"`
	Deleted   int                   `yaml:"deleted" json:"deleted"`
	Errors    []CandidateError      `yaml:"errors,omitempty" json:"errors,omitempty"`
}

// Execute runs the cascade for every candidate, in fixed-size batches with
// optional pacing between them.
func (e *Executor) Execute(ctx context.Context, candidates []Candidate) (*Results, error) {
	res := &Results{Rewritten: make(map[ledger.Kind]int64, len(e.ledgers))}
	log := zap.L().With(zap.String("component", "dedupe.cascade"))

	for start := 0; start < len(candidates); start += e.cfg.CandidateBatchSize {
		if start > 0 && e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return res, eris.Wrap(err, "dedupe: cascade pacing wait")
			}
		}

		end := start + e.cfg.CandidateBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		for _, cand := range candidates[start:end] {
			if err := ctx.Err(); err != nil {
				return res, eris.Wrap(err, "dedupe: cascade interrupted")
			}

			rewritten, err := e.executeOne(ctx, cand)
			res.Processed++
			for kind, n := range rewritten {
				res.Rewritten[kind] += n
			}
			if err != nil {
				log.Warn("candidate cascade failed",
					zap.String("authoritative", cand.Authoritative.Identifier),
					zap.String("provisional", cand.Provisional.Identifier),
					zap.Error(err),
				)
				res.Errors = append(res.Errors, CandidateError{
					Authoritative: cand.Authoritative.Identifier,
					Provisional:   cand.Provisional.Identifier,
					Message:       err.Error(),
				})
				continue
			}
			res.Deleted++
		}
	}

	return res, nil
}

// executeOne cascades a single candidate: rewrite all dependent kinds, verify
// nothing still references the provisional identifier, tag the survivor, then
// delete the provisional record. Returns per-kind rewrite counts even on error.
func (e *Executor) executeOne(ctx context.Context, cand Candidate) (map[ledger.Kind]int64, error) {
	oldID := cand.Provisional.Identifier
	newID := cand.Authoritative.Identifier
	mergeDate := e.now().UTC()
	rewritten := make(map[ledger.Kind]int64, len(e.ledgers))

	var rewriteErrs []error
	for _, store := range e.ledgers {
		n, err := e.rewriteKind(ctx, store, oldID, newID, mergeDate)
		rewritten[store.Kind()] += n
		if err != nil {
			// One kind failing must not block the others; the verification
			// below keeps the provisional record alive for a retry.
			rewriteErrs = append(rewriteErrs, err)
		}
	}

	// Verify the invariant before the irreversible step: zero dependent
	// records may still reference the provisional identifier.
	for _, store := range e.ledgers {
		remaining, err := store.CountByCustomer(ctx, oldID)
		if err != nil {
			return rewritten, eris.Wrapf(err, "dedupe: verify %s after rewrite", store.Kind())
		}
		if remaining > 0 {
			return rewritten, eris.Errorf("dedupe: %d %s records still reference %s, keeping provisional record",
				remaining, store.Kind(), oldID)
		}
	}
	if len(rewriteErrs) > 0 {
		// All kinds verified clean, so the failures hit already-rewritten
		// documents. Safe to proceed; surface the first error in the log.
		zap.L().Warn("cascade rewrite errors on already-clean candidate",
			zap.String("provisional", oldID),
			zap.Error(rewriteErrs[0]),
		)
	}

	if err := e.customers.TagMerged(ctx, newID, oldID, mergeDate); err != nil {
		return rewritten, err
	}
	if err := e.customers.Delete(ctx, oldID); err != nil {
		return rewritten, err
	}

	zap.L().Info("candidate merged",
		zap.String("authoritative", newID),
		zap.String("provisional", oldID),
		zap.Int64("invoices", rewritten[ledger.KindInvoice]),
		zap.Int64("payments", rewritten[ledger.KindPayment]),
		zap.Int64("product_sales", rewritten[ledger.KindProductSale]),
	)

	return rewritten, nil
}

// rewriteKind streams the id projection for one kind and rewrites it in
// bounded batches. Batch failures are recorded and skipped so one bad
// document cannot block the rest.
func (e *Executor) rewriteKind(ctx context.Context, store ledger.Store, oldID, newID string, mergeDate time.Time) (int64, error) {
	var ids []int64
	err := store.StreamIDsByCustomer(ctx, oldID, func(id int64) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return 0, eris.Wrapf(err, "dedupe: collect %s ids for %s", store.Kind(), oldID)
	}
	if len(ids) == 0 {
		// Already rewritten on a previous run, or nothing to do.
		return 0, nil
	}

	var total int64
	var firstErr error
	for _, chunk := range db.ChunkIDs(ids, e.cfg.BatchSize) {
		n, err := store.RewriteCustomer(ctx, chunk, oldID, newID, mergeDate)
		total += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return total, firstErr
}
