package dedupe

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-merge-cli/internal/customer"
	"github.com/sells-group/crm-merge-cli/internal/ledger"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// mockCustomerStore implements customer.Store over an in-memory map.
type mockCustomerStore struct {
	mu        sync.Mutex
	customers map[string]customer.Customer
	tagged    []string
	deleted   []string
	streamErr error
	deleteErr error
}

func newMockCustomerStore(cs ...customer.Customer) *mockCustomerStore {
	m := &mockCustomerStore{customers: make(map[string]customer.Customer)}
	for _, c := range cs {
		m.customers[c.Identifier] = c
	}
	return m
}

func (m *mockCustomerStore) StreamAll(_ context.Context, fn func(customer.Customer) error) error {
	if m.streamErr != nil {
		return m.streamErr
	}
	ids := make([]string, 0, len(m.customers))
	for id := range m.customers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := fn(m.customers[id]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCustomerStore) Get(_ context.Context, identifier string) (*customer.Customer, error) {
	c, ok := m.customers[identifier]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *mockCustomerStore) Count(_ context.Context) (int64, error) {
	return int64(len(m.customers)), nil
}

func (m *mockCustomerStore) TagMerged(_ context.Context, identifier, mergedFrom string, mergeDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[identifier]
	if ok {
		c.Historical = true
		c.MergedFrom = mergedFrom
		c.MergeDate = &mergeDate
		m.customers[identifier] = c
	}
	m.tagged = append(m.tagged, identifier)
	return nil
}

func (m *mockCustomerStore) Delete(_ context.Context, identifier string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.customers, identifier)
	m.deleted = append(m.deleted, identifier)
	return nil
}

func (m *mockCustomerStore) ListWithoutEmail(_ context.Context) ([]customer.Customer, error) {
	var out []customer.Customer
	for _, c := range m.customers {
		if c.Email == "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCustomerStore) ListWithEmail(_ context.Context) ([]customer.Customer, error) {
	var out []customer.Customer
	for _, c := range m.customers {
		if c.Email != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCustomerStore) UpdateContact(_ context.Context, c *customer.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.Identifier] = *c
	return nil
}

// mockLedgerStore implements ledger.Store over an in-memory id -> customer map.
type mockLedgerStore struct {
	kind ledger.Kind
	// docs maps record id -> customer identifier.
	docs       map[int64]string
	rewriteErr error
	countErr   error
	rewrites   int
}

func newMockLedgerStore(kind ledger.Kind, docs map[int64]string) *mockLedgerStore {
	if docs == nil {
		docs = make(map[int64]string)
	}
	return &mockLedgerStore{kind: kind, docs: docs}
}

func (m *mockLedgerStore) Kind() ledger.Kind { return m.kind }

func (m *mockLedgerStore) CountByCustomer(_ context.Context, identifier string) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, owner := range m.docs {
		if owner == identifier {
			n++
		}
	}
	return n, nil
}

func (m *mockLedgerStore) StreamIDsByCustomer(_ context.Context, identifier string, fn func(int64) error) error {
	var ids []int64
	for id, owner := range m.docs {
		if owner == identifier {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockLedgerStore) RewriteCustomer(_ context.Context, ids []int64, oldID, newID string, _ time.Time) (int64, error) {
	m.rewrites++
	if m.rewriteErr != nil {
		return 0, m.rewriteErr
	}
	var n int64
	for _, id := range ids {
		if m.docs[id] == oldID {
			m.docs[id] = newID
			n++
		}
	}
	return n, nil
}

// mockReporter implements Reporter and remembers what it was given.
type mockReporter struct {
	classifications []*Classification
	path            string
}

func (m *mockReporter) WriteAudit(cl *Classification, _ *Summary) (string, error) {
	m.classifications = append(m.classifications, cl)
	if m.path == "" {
		m.path = "audit.xlsx"
	}
	return m.path, nil
}
