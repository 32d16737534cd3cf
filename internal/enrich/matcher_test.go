package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-merge-cli/internal/customer"
)

func TestMatcherFillsEmailByPhone(t *testing.T) {
	store := newMockStore(customer.Customer{
		Identifier:  "C0001",
		DisplayName: "Jane Doe",
		Phone:       "612345678",
	})
	m := NewMatcher(store, customer.DefaultPhoneRules)

	res, err := m.Run(context.Background(), []Contact{{
		Email:     "jane.doe@acme.example",
		Phone:     "+33 6 12 34 56 78",
		FirstName: "Jane",
		LastName:  "Doe",
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.EmailsFilled)
	assert.Equal(t, 0, res.Unmatched)

	got, err := store.Get(context.Background(), "C0001")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@acme.example", got.Email)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "Doe", got.LastName)
	assert.Equal(t, "612345678", got.Phone, "existing phone is kept")
}

func TestMatcherFallsBackToName(t *testing.T) {
	store := newMockStore(customer.Customer{
		Identifier:  "C0002",
		DisplayName: "John Smith",
	})
	m := NewMatcher(store, customer.DefaultPhoneRules)

	res, err := m.Run(context.Background(), []Contact{{
		Email:     "john.smith@acme.example",
		Phone:     "0712345678",
		FirstName: "John",
		LastName:  "Smith",
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.EmailsFilled)

	got, err := store.Get(context.Background(), "C0002")
	require.NoError(t, err)
	assert.Equal(t, "john.smith@acme.example", got.Email)
	assert.Equal(t, "0712345678", got.Phone, "missing phone is filled")
}

func TestMatcherOneContactPerCustomer(t *testing.T) {
	store := newMockStore(customer.Customer{
		Identifier:  "C0003",
		DisplayName: "Jane Doe",
		Phone:       "612345678",
	})
	m := NewMatcher(store, customer.DefaultPhoneRules)

	res, err := m.Run(context.Background(), []Contact{
		{Email: "first@acme.example", Phone: "0612345678"},
		{Email: "second@acme.example", FirstName: "Jane", LastName: "Doe"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.EmailsFilled)
	assert.Equal(t, 1, res.Unmatched)

	got, err := store.Get(context.Background(), "C0003")
	require.NoError(t, err)
	assert.Equal(t, "first@acme.example", got.Email)
}

func TestMatcherAddsPhoneOnEmailMatch(t *testing.T) {
	store := newMockStore(customer.Customer{
		Identifier:  "C0004",
		DisplayName: "Acme Corp",
		Email:       "billing@acme.example",
		Phone:       "612345678",
	})
	m := NewMatcher(store, customer.DefaultPhoneRules)

	res, err := m.Run(context.Background(), []Contact{
		{Email: "billing@acme.example", Phone: "0798765432"},
		// Same number as the primary phone in a different format.
		{Email: "billing@acme.example", Phone: "+33 6 12 34 56 78"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.PhonesAdded)

	got, err := store.Get(context.Background(), "C0004")
	require.NoError(t, err)
	assert.Equal(t, []string{"0798765432"}, got.AdditionalPhones)
}

func TestMatcherIdempotent(t *testing.T) {
	store := newMockStore(customer.Customer{
		Identifier:  "C0005",
		DisplayName: "Acme Corp",
		Email:       "billing@acme.example",
	})
	m := NewMatcher(store, customer.DefaultPhoneRules)
	contacts := []Contact{{Email: "billing@acme.example", Phone: "0798765432"}}

	first, err := m.Run(context.Background(), contacts)
	require.NoError(t, err)
	assert.Equal(t, 1, first.PhonesAdded)

	second, err := m.Run(context.Background(), contacts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.PhonesAdded)

	got, err := store.Get(context.Background(), "C0005")
	require.NoError(t, err)
	assert.Equal(t, []string{"0798765432"}, got.AdditionalPhones)
}

func TestMatcherUnmatchedContact(t *testing.T) {
	store := newMockStore()
	m := NewMatcher(store, customer.DefaultPhoneRules)

	res, err := m.Run(context.Background(), []Contact{{
		Email: "nobody@acme.example",
		Phone: "0600000000",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unmatched)
	assert.Empty(t, store.updated)
}
