package enrich

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-merge-cli/internal/customer"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// mockStore is a map-backed customer.Store for matcher tests.
type mockStore struct {
	customers map[string]customer.Customer
	updated   []string
}

func newMockStore(customers ...customer.Customer) *mockStore {
	s := &mockStore{customers: make(map[string]customer.Customer)}
	for _, c := range customers {
		s.customers[c.Identifier] = c
	}
	return s
}

func (s *mockStore) StreamAll(ctx context.Context, fn func(customer.Customer) error) error {
	for _, id := range s.sortedIDs() {
		if err := fn(s.customers[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *mockStore) Get(ctx context.Context, identifier string) (*customer.Customer, error) {
	c, ok := s.customers[identifier]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *mockStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.customers)), nil
}

func (s *mockStore) TagMerged(ctx context.Context, identifier, mergedFrom string, mergeDate time.Time) error {
	return nil
}

func (s *mockStore) Delete(ctx context.Context, identifier string) error {
	delete(s.customers, identifier)
	return nil
}

func (s *mockStore) ListWithoutEmail(ctx context.Context) ([]customer.Customer, error) {
	return s.filter(func(c customer.Customer) bool { return c.Email == "" }), nil
}

func (s *mockStore) ListWithEmail(ctx context.Context) ([]customer.Customer, error) {
	return s.filter(func(c customer.Customer) bool { return c.Email != "" }), nil
}

func (s *mockStore) UpdateContact(ctx context.Context, c *customer.Customer) error {
	s.customers[c.Identifier] = *c
	s.updated = append(s.updated, c.Identifier)
	return nil
}

func (s *mockStore) filter(keep func(customer.Customer) bool) []customer.Customer {
	var out []customer.Customer
	for _, id := range s.sortedIDs() {
		if c := s.customers[id]; keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *mockStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.customers))
	for id := range s.customers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
