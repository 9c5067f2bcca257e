/*
Package archive reads and names generated invoice files.

PURPOSE:
  The engine resumes accumulation after the last month that was actually
  invoiced. That watermark is not stored anywhere explicit - it is
  recovered by scanning the output directory for generated invoice
  filenames and taking the highest month of the current year.

FILENAME SCHEME:
  faktura_{rulesetId}_{YY}_{MM}[_{part}].{ext}

  The optional part suffix appears for split invoices (second and later
  parts of a month).

DEGRADATION:
  A missing or empty output directory yields watermark 0 (nothing
  invoiced yet); that is a silent default, not an error.
*/
package archive

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

var invoicePattern = regexp.MustCompile(`^faktura_.+_(\d{2})_(\d{2})(?:_\d+)?\.[A-Za-z0-9]+$`)

// Filename builds the output filename for one generated invoice.
// part is the zero-based split index; only nonzero parts carry a suffix.
func Filename(rulesetID string, year, month, part int, ext string) string {
	if part > 0 {
		return fmt.Sprintf("faktura_%s_%02d_%02d_%d.%s", rulesetID, year%100, month, part, ext)
	}
	return fmt.Sprintf("faktura_%s_%02d_%02d.%s", rulesetID, year%100, month, ext)
}

// LastInvoicedMonth scans dir for generated invoice files and returns the
// highest invoiced month of the given year, or 0 when none exist.
func LastInvoicedMonth(dir string, year int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("scanning invoice archive: %w", err)
	}

	last := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := invoicePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		yy, _ := strconv.Atoi(m[1])
		if yy != year%100 {
			continue
		}
		month, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 && month > last {
			last = month
		}
	}
	return last, nil
}
