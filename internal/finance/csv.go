package finance

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

// statementColumns are the headers a statement CSV must carry. The
// backend runs the authoritative parse; this client-side reader exists
// for advisory validation and previews, so the upload screen can
// reject an obviously wrong file before any network call.
var statementColumns = []string{"Date", "Description", "Amount"}

// IsCSVFilename reports whether the filename denotes a CSV. Advisory
// only, not a security boundary.
func IsCSVFilename(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// ReadStatement parses a statement CSV into transactions. Rows get no
// ID or category; both are assigned by the backend. It fails on a
// missing required column or an unparseable amount, and skips blank
// lines.
func ReadStatement(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("statement is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var txs []Transaction
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(record[idx["Amount"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q", line, record[idx["Amount"]])
		}

		txs = append(txs, Transaction{
			Date:        strings.TrimSpace(record[idx["Date"]]),
			Description: strings.TrimSpace(record[idx["Description"]]),
			Amount:      amount,
		})
	}
	return txs, nil
}

// columnIndex maps required column names to their positions,
// case-insensitively.
func columnIndex(header []string) (map[string]int, error) {
	idx := map[string]int{}
	for i, h := range header {
		for _, want := range statementColumns {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				idx[want] = i
			}
		}
	}
	for _, want := range statementColumns {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("statement is missing required column %q", want)
		}
	}
	return idx, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
