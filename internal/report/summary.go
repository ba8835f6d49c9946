package report

import (
	"fmt"
	"io"
	"strings"

	"slnlint/internal/coordinator"
	"slnlint/internal/diag"
)

// Summary prints diagnostic counts, load errors and unresolved projects.
func Summary(w io.Writer, run *coordinator.Run) error {
	var b strings.Builder
	counts := diag.Counts(run.Diagnostics)
	fmt.Fprintf(&b, "%s: %s (%d errors, %d warnings, %d info)\n",
		run.State, plural(len(run.Diagnostics), "diagnostic"),
		counts[diag.SevError], counts[diag.SevWarning], counts[diag.SevInfo])

	for _, le := range run.LoadErrors {
		fmt.Fprintf(&b, "  %v\n", le)
	}
	if run.Load != nil {
		for _, id := range run.Unresolved() {
			pr, _ := run.Load.Project(id)
			fmt.Fprintf(&b, "  %s not loaded: depends on %s\n", id, strings.Join(pr.BlockedBy, ", "))
		}
	}
	if run.Err != nil {
		fmt.Fprintf(&b, "  %v\n", run.Err)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
