package dedupe

import (
	"sort"

	"github.com/sells-group/crm-merge-cli/internal/customer"
)

// Skip reasons for duplicate groups routed to the audit report.
const (
	ReasonAuthoritativeDup = "multiple authoritative records share the name key"
	ReasonProvisionalDup   = "multiple provisional records share the name key"
	ReasonProvisionalOnly  = "multiple provisional records share the name key, no authoritative match"
)

// Candidate is an accepted one-to-one merge pairing. The authoritative record
// survives; the provisional record is absorbed.
type Candidate struct {
	Key           string
	Authoritative customer.Customer
	Provisional   customer.Customer
}

// DuplicateGroup is a set of records sharing a matching key that cannot be
// resolved automatically. Always surfaced to a human, never an error.
type DuplicateGroup struct {
	Key       string
	Reason    string
	Customers []customer.Customer
}

// Classification is the immutable result of one classification pass. Dry-run
// and execute share it verbatim: classification performs no mutation.
type Classification struct {
	Candidates              []Candidate
	AuthoritativeDuplicates []DuplicateGroup
	ProvisionalDuplicates   []DuplicateGroup
}

// Classify derives merge candidates and skip groups from the index. Pure and
// deterministic: keys are visited in sorted order so repeated runs over the
// same snapshot produce identical output.
func Classify(idx *Index) *Classification {
	cl := &Classification{}

	authKeys := sortedKeys(idx.AuthoritativeByName)
	for _, key := range authKeys {
		auths := idx.AuthoritativeByName[key]
		if len(auths) > 1 {
			// Ambiguous authoritative identity: no candidate for this key,
			// regardless of what the provisional side holds.
			cl.AuthoritativeDuplicates = append(cl.AuthoritativeDuplicates, DuplicateGroup{
				Key:       key,
				Reason:    ReasonAuthoritativeDup,
				Customers: auths,
			})
			continue
		}

		provs, ok := idx.ProvisionalByName[key]
		if !ok {
			continue
		}
		switch {
		case len(provs) == 1:
			cl.Candidates = append(cl.Candidates, Candidate{
				Key:           key,
				Authoritative: auths[0],
				Provisional:   provs[0],
			})
		default:
			cl.ProvisionalDuplicates = append(cl.ProvisionalDuplicates, DuplicateGroup{
				Key:       key,
				Reason:    ReasonProvisionalDup,
				Customers: provs,
			})
		}
	}

	// Provisional-only duplicate groups exist independently of any merge
	// decision and still need human cleanup.
	for _, key := range sortedKeys(idx.ProvisionalByName) {
		provs := idx.ProvisionalByName[key]
		if len(provs) <= 1 {
			continue
		}
		if _, ok := idx.AuthoritativeByName[key]; ok {
			continue
		}
		cl.ProvisionalDuplicates = append(cl.ProvisionalDuplicates, DuplicateGroup{
			Key:       key,
			Reason:    ReasonProvisionalOnly,
			Customers: provs,
		})
	}

	return cl
}

func sortedKeys(m map[string][]customer.Customer) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
