package execution

import (
	"testing"

	"codecollab/domain"

	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	cases := map[string]struct {
		snap domain.StatusSnapshot
		want string
	}{
		"stdout only": {
			snap: domain.StatusSnapshot{Stdout: "42\n"},
			want: "42",
		},
		"stderr after stdout": {
			snap: domain.StatusSnapshot{Stdout: "partial", Stderr: "Traceback: boom"},
			want: "partial\nTraceback: boom",
		},
		"compile output for build failures": {
			snap: domain.StatusSnapshot{CompileOutput: "main.cpp:3: error: expected ';'"},
			want: "main.cpp:3: error: expected ';'",
		},
		"all four fields in order": {
			snap: domain.StatusSnapshot{Stdout: "out", Stderr: "err", CompileOutput: "cc", Message: "Exited with error"},
			want: "out\nerr\ncc\nExited with error",
		},
		"empty run": {
			snap: domain.StatusSnapshot{StatusID: 3},
			want: NoOutput,
		},
		"whitespace only counts as empty": {
			snap: domain.StatusSnapshot{Stdout: "  \n\t"},
			want: NoOutput,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, Aggregate(tc.snap))
		})
	}
}
