package enrich

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-merge-cli/internal/customer"
)

// Matcher fills missing emails, phones and names on existing customers by
// matching external contacts on normalized phone first, then normalized name.
// Field fills are idempotent; a customer absorbs at most one contact per run.
type Matcher struct {
	store customer.Store
	rules customer.PhoneRules
}

// NewMatcher creates a gap-filling matcher.
func NewMatcher(store customer.Store, rules customer.PhoneRules) *Matcher {
	return &Matcher{store: store, rules: rules}
}

// Result summarizes one matcher run.
type Result struct {
	Contacts     int `yaml:"contacts" json:"contacts"`
	EmailsFilled int `yaml:"emails_filled" json:"emails_filled"`
	PhonesAdded  int `yaml:"phones_added" json:"phones_added"`
	Unmatched    int `yaml:"unmatched" json:"unmatched"`
}

// candidate tracks one emailless customer during a run.
type candidate struct {
	cust    customer.Customer
	claimed bool
}

// Run matches every contact against the current customer store and persists
// the resulting field fills.
func (m *Matcher) Run(ctx context.Context, contacts []Contact) (*Result, error) {
	log := zap.L().With(zap.String("component", "enrich.matcher"))
	res := &Result{Contacts: len(contacts)}

	withoutEmail, err := m.store.ListWithoutEmail(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list customers without email")
	}
	withEmail, err := m.store.ListWithEmail(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list customers with email")
	}

	// Index the emailless customers by every phone key and by name keys.
	// First match wins, and a claimed customer leaves candidacy.
	byPhone := make(map[string]*candidate)
	byName := make(map[string]*candidate)
	for _, c := range withoutEmail {
		cand := &candidate{cust: c}

		for _, raw := range append([]string{c.Phone}, c.AdditionalPhones...) {
			if key := customer.NormalizePhone(raw, m.rules); key != "" {
				if _, taken := byPhone[key]; !taken {
					byPhone[key] = cand
				}
			}
		}
		if key := customer.NormalizeName(c.DisplayName); key != "" {
			if _, taken := byName[key]; !taken {
				byName[key] = cand
			}
		}
		if key := customer.NormalizeName(c.FirstName + " " + c.LastName); key != "" {
			if _, taken := byName[key]; !taken {
				byName[key] = cand
			}
		}
	}

	// Customers that already have an email absorb extra phone numbers from
	// contacts sharing that email.
	emailOwners := make(map[string]*customer.Customer)
	for i := range withEmail {
		c := &withEmail[i]
		emailOwners[c.Email] = c
	}

	for _, contact := range contacts {
		if cand := m.lookup(contact, byPhone, byName); cand != nil && contact.Email != "" {
			cand.claimed = true
			if err := m.fillContact(ctx, cand, contact); err != nil {
				return res, err
			}
			res.EmailsFilled++
			continue
		}

		if owner, ok := emailOwners[contact.Email]; ok && contact.Email != "" {
			added, err := m.addPhone(ctx, owner, contact.Phone)
			if err != nil {
				return res, err
			}
			if added {
				res.PhonesAdded++
			}
			continue
		}

		res.Unmatched++
	}

	log.Info("gap-filling complete",
		zap.Int("contacts", res.Contacts),
		zap.Int("emails_filled", res.EmailsFilled),
		zap.Int("phones_added", res.PhonesAdded),
		zap.Int("unmatched", res.Unmatched),
	)

	return res, nil
}

// lookup finds the unclaimed candidate matching the contact: normalized phone
// first, then normalized full name.
func (m *Matcher) lookup(contact Contact, byPhone, byName map[string]*candidate) *candidate {
	if key := customer.NormalizePhone(contact.Phone, m.rules); key != "" {
		if cand, ok := byPhone[key]; ok && !cand.claimed {
			return cand
		}
	}
	if key := customer.NormalizeName(contact.FirstName + " " + contact.LastName); key != "" {
		if cand, ok := byName[key]; ok && !cand.claimed {
			return cand
		}
	}
	return nil
}

// fillContact writes the contact's email and any missing fields onto the
// matched customer.
func (m *Matcher) fillContact(ctx context.Context, cand *candidate, contact Contact) error {
	c := cand.cust
	c.Email = contact.Email
	if c.Phone == "" && contact.Phone != "" {
		c.Phone = contact.Phone
	}
	if c.FirstName == "" && contact.FirstName != "" {
		c.FirstName = contact.FirstName
	}
	if c.LastName == "" && contact.LastName != "" {
		c.LastName = contact.LastName
	}
	if err := m.store.UpdateContact(ctx, &c); err != nil {
		return eris.Wrapf(err, "enrich: fill contact on %s", c.Identifier)
	}
	cand.cust = c
	return nil
}

// addPhone appends the contact's phone to the customer's additional phones
// unless an equivalent number (normalized comparison) is already present.
func (m *Matcher) addPhone(ctx context.Context, c *customer.Customer, rawPhone string) (bool, error) {
	key := customer.NormalizePhone(rawPhone, m.rules)
	if key == "" {
		return false, nil
	}
	if customer.NormalizePhone(c.Phone, m.rules) == key {
		return false, nil
	}
	for _, p := range c.AdditionalPhones {
		if customer.NormalizePhone(p, m.rules) == key {
			return false, nil
		}
	}

	c.AdditionalPhones = append(c.AdditionalPhones, rawPhone)
	if err := m.store.UpdateContact(ctx, c); err != nil {
		return false, eris.Wrapf(err, "enrich: add phone on %s", c.Identifier)
	}
	return true, nil
}
