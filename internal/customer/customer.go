// Package customer defines the customer master record and its persistence.
package customer

import (
	"regexp"
	"time"
)

// Customer is a customer master record. Records with an ERP-style identifier
// are authoritative; everything else (imports, manual entry) is provisional.
type Customer struct {
	Identifier       string     `json:"identifier" db:"identifier"`
	DisplayName      string     `json:"display_name" db:"display_name"`
	FirstName        string     `json:"first_name,omitempty" db:"first_name"`
	LastName         string     `json:"last_name,omitempty" db:"last_name"`
	Email            string     `json:"email,omitempty" db:"email"`
	Phone            string     `json:"phone,omitempty" db:"phone"`
	AdditionalPhones []string   `json:"additional_phones,omitempty" db:"additional_phones"`
	Historical       bool       `json:"historical" db:"historical"`
	MergedFrom       string     `json:"merged_from,omitempty" db:"merged_from"`
	MergeDate        *time.Time `json:"merge_date,omitempty" db:"merge_date"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// DefaultIdentifierPattern matches ERP-issued identifiers: one uppercase
// letter followed by four digits (e.g. C0001). Anything that deviates from
// this format, including different digit counts, is treated as provisional.
var DefaultIdentifierPattern = regexp.MustCompile(`^[A-Z][0-9]{4}$`)

// IsAuthoritative reports whether the identifier matches the ERP format.
func (c Customer) IsAuthoritative(pattern *regexp.Regexp) bool {
	if pattern == nil {
		pattern = DefaultIdentifierPattern
	}
	return pattern.MatchString(c.Identifier)
}

// FullName returns "first last" when both parts are set, else the display name.
func (c Customer) FullName() string {
	if c.FirstName != "" && c.LastName != "" {
		return c.FirstName + " " + c.LastName
	}
	return c.DisplayName
}
