package execution

import (
	"strings"

	"codecollab/domain"
)

// NoOutput is shown when a terminal run produced nothing on any stream.
const NoOutput = "No output"

// Aggregate merges the judge's heterogeneous output fields into one display
// text: stdout, stderr, compile output, then message, each on its own line,
// absent fields skipped. Display convention only; nothing is deduplicated
// or truncated.
func Aggregate(snap domain.StatusSnapshot) string {
	parts := make([]string, 0, 4)
	for _, field := range []string{snap.Stdout, snap.Stderr, snap.CompileOutput, snap.Message} {
		if field != "" {
			parts = append(parts, field)
		}
	}

	out := strings.TrimSpace(strings.Join(parts, "\n"))
	if out == "" {
		return NoOutput
	}
	return out
}
