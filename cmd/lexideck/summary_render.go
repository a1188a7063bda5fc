package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"lexideck/internal/governor"
	"lexideck/internal/pipeline"
)

const maxListedFailures = 20

var summaryColumns = []column{
	textColumn("Kind"),
	numericColumn("Cached"),
	numericColumn("Fetched"),
	numericColumn("Failed"),
	numericColumn("Size"),
}

func renderSummary(out io.Writer, summary pipeline.Summary, gov governor.State) {
	rows := make([][]string, 0, len(summary.Kinds))
	var cached, fetched, failed int
	var bytes int64
	for _, k := range summary.Kinds {
		rows = append(rows, []string{
			string(k.Kind),
			strconv.Itoa(k.Cached),
			strconv.Itoa(k.Fetched),
			strconv.Itoa(k.Failed),
			humanize.IBytes(uint64(max(k.Bytes, 0))),
		})
		cached += k.Cached
		fetched += k.Fetched
		failed += k.Failed
		bytes += k.Bytes
	}
	total := []string{
		"total",
		strconv.Itoa(cached),
		strconv.Itoa(fetched),
		strconv.Itoa(failed),
		humanize.IBytes(uint64(max(bytes, 0))),
	}
	fmt.Fprintln(out, renderTable(summaryColumns, rows, total))
	fmt.Fprintf(out, "Records: %d (%d usable, %d complete)\n", summary.Records, summary.Usable, summary.Complete)
	fmt.Fprintf(out, "Concurrency: %d of %d (%d throttles, %d adjustments)\n",
		gov.EffectiveLimit, gov.MaxLimit, gov.TotalThrottles, gov.Adjustments)

	if len(summary.Failures) == 0 {
		return
	}
	fmt.Fprintln(out, "Failures:")
	for i, f := range summary.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(out, "  ... and %d more\n", len(summary.Failures)-maxListedFailures)
			break
		}
		label := strings.TrimSpace(f.Label)
		if label == "" {
			label = f.RecordID
		}
		marker := ""
		if f.Mandatory {
			marker = " (card skipped)"
		}
		fmt.Fprintf(out, "  - %s %s%s: %s\n", label, f.Kind, marker, f.Reason)
	}
}
