// Package enrich fills contact gaps on existing customer records from an
// external contact list. It never creates, merges or deletes identities.
package enrich

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Contact is one already-parsed external contact row (e.g. a marketing
// platform export).
type Contact struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

// XLSXOptions configures the contact spreadsheet reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
	SkipRows   int    // number of header rows to skip
}

// Expected column order in contact exports.
const (
	colEmail = iota
	colPhone
	colFirstName
	colLastName
)

// ReadContactsXLSX reads an XLSX contact export into Contact rows. Rows with
// neither email nor phone nor name are dropped.
func ReadContactsXLSX(path string, opts XLSXOptions) ([]Contact, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: open contacts file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var contacts []Contact
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		c := rowToContact(row)
		if c.Email == "" && c.Phone == "" && c.FirstName == "" && c.LastName == "" {
			continue
		}
		contacts = append(contacts, c)
	}

	return contacts, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("enrich: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("enrich: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToContact(row *xlsx.Row) Contact {
	cell := func(i int) string {
		if i >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[i].String())
	}
	return Contact{
		Email:     strings.ToLower(cell(colEmail)),
		Phone:     cell(colPhone),
		FirstName: cell(colFirstName),
		LastName:  cell(colLastName),
	}
}
