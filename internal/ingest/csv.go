// Package ingest reads institution CSV exports into raw batches. It is
// deliberately forgiving: exports come from several CRM vendors with
// inconsistent quoting, ragged rows and BOM-prefixed headers.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"leadscore/internal/domain/lead"
	"leadscore/pkg/errors"
)

const utf8BOM = "\uFEFF"

// ReadFile reads one CSV export from disk
func ReadFile(path string) (*lead.RawBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open export %s", path)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a CSV export. The first row is the header; header labels
// keep their original text apart from BOM and whitespace trimming. Rows
// shorter than the header leave the trailing cells empty, longer rows
// drop the surplus.
func Read(r io.Reader) (*lead.RawBatch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyBatch, "export has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header row")
	}

	columns := make([]string, len(header))
	for i, label := range header {
		if i == 0 {
			label = strings.TrimPrefix(label, utf8BOM)
		}
		columns[i] = strings.TrimSpace(label)
	}

	var records []lead.RawRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read record %d", len(records)+1)
		}

		rec := make(lead.RawRecord, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyBatch, "export has a header but no records")
	}

	return &lead.RawBatch{Columns: columns, Records: records}, nil
}
