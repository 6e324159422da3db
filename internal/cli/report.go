package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/refcheck/internal/domain"
)

// writeMarkdownSummary renders a human-readable Markdown table of the
// batch's verdicts, grouped by status, for quick eyeballing alongside
// the machine-readable JSON output.
func writeMarkdownSummary(path string, refs []domain.Reference, results []domain.ValidationResult) error {
	var b strings.Builder

	b.WriteString("# Reference validation report\n\n")
	fmt.Fprintf(&b, "Checked %d references.\n\n", len(results))

	b.WriteString("| # | Title | Status | Source | Failed backends |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range results {
		title := ""
		if r.Index < len(refs) {
			title = refs[r.Index].Title
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			r.Index, escapeMD(title), r.Status, r.Source, strings.Join(r.FailedDBs, ", "))
	}

	b.WriteString("\n## Retractions\n\n")
	anyRetracted := false
	for _, r := range results {
		if r.RetractionInfo.IsRetracted {
			anyRetracted = true
			title := ""
			if r.Index < len(refs) {
				title = refs[r.Index].Title
			}
			fmt.Fprintf(&b, "- reference %d (%s): retraction DOI %s, source %s\n",
				r.Index, escapeMD(title), r.RetractionInfo.RetractionDOI, r.RetractionInfo.Source)
		}
	}
	if !anyRetracted {
		b.WriteString("None detected.\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}

func escapeMD(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
