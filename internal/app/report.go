package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/discusslab/chat-analyzer/internal/core/domain"
	"github.com/discusslab/chat-analyzer/internal/process/backfill"
)

const reportRule = "============================================================"

// printReport writes the human-readable run summary for analyze mode.
func printReport(w io.Writer, result *domain.AnalysisResult, path string) {
	meta := result.Metadata

	fmt.Fprintln(w)
	fmt.Fprintln(w, reportRule)
	fmt.Fprintln(w, "ANALYSIS SUMMARY")
	fmt.Fprintln(w, reportRule)
	fmt.Fprintf(w, "Chat: %s\n", meta.Chat)
	fmt.Fprintf(w, "Date: %s\n", meta.Date)
	fmt.Fprintf(w, "Analyzed: %d/%d messages\n", meta.AnalyzedMessages, meta.TotalMessages)
	fmt.Fprintf(w, "Tokens: %d\n", meta.TokensUsed)
	fmt.Fprintf(w, "Latency: %.2fs\n", meta.LatencySeconds)
	fmt.Fprintf(w, "Model: %s\n", meta.Model)
	fmt.Fprintf(w, "\nDiscussions found: %d\n", len(result.Discussions))

	for i, d := range result.Discussions {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, d.Topic)
		fmt.Fprintf(w, "   Priority: %s, Complexity: %d/5, Value: %d/10\n",
			d.Priority, d.Complexity, d.PracticalValue)
		fmt.Fprintf(w, "   Keywords: %s\n", strings.Join(d.Keywords, ", "))
		fmt.Fprintf(w, "   Participants: %s\n", strings.Join(d.Participants, ", "))
		fmt.Fprintf(w, "   Links: %d messages\n", len(d.MessageLinks))
	}

	fmt.Fprintf(w, "\nReport: %s\n", path)
	fmt.Fprintln(w, reportRule)
}

// printBackfillSummary writes the sweep totals for backfill mode.
func printBackfillSummary(w io.Writer, summary backfill.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, reportRule)
	fmt.Fprintln(w, "BACKFILL SUMMARY")
	fmt.Fprintln(w, reportRule)
	fmt.Fprintf(w, "Days scanned: %d\n", summary.Scanned)
	fmt.Fprintf(w, "Up to date:   %d\n", summary.Scanned-summary.Pending())
	fmt.Fprintf(w, "Analyzed:     %d\n", summary.Analyzed)
	fmt.Fprintf(w, "Failed:       %d\n", summary.Failed)
	fmt.Fprintln(w, reportRule)
}
