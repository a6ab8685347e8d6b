package cmd

import (
	"io"
	"time"

	"github.com/sofmeright/steiger/src/output"
)

// writeSummary renders the closing Summary section. Each row is marked
// failed when err is set.
func writeSummary(w io.Writer, start time.Time, color bool, err error, rows ...output.KV) {
	status := output.StatusSuccess
	if err != nil {
		status = output.StatusFailed
	}
	sec := output.NewSection(w, "Summary", 0, color)
	for _, r := range rows {
		output.SummaryRow(w, r.Key, status, r.Value, color)
	}
	sec.Separator()
	output.SummaryTotal(w, time.Since(start), status, color)
	sec.Close()
}
