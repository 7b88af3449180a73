package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain uppercase", in: "GABAPENTIN", want: "GABAPENTIN"},
		{name: "lowercase", in: "gabapentin", want: "GABAPENTIN"},
		{name: "multi word keeps first token", in: "Abbott Laboratories", want: "ABBOTT"},
		{name: "punctuation stripped", in: "Abbott Laboratories, Inc.", want: "ABBOTT"},
		{name: "hyphenated name collapses", in: "Sandoz-Novartis", want: "SANDOZNOVARTIS"},
		{name: "dosage suffix dropped with token split", in: "GABAPENTIN 300MG CAP", want: "GABAPENTIN"},
		{name: "leading whitespace", in: "  Teva Pharmaceuticals", want: "TEVA"},
		{name: "digits preserved", in: "3M Company", want: "3M"},
		{name: "empty", in: "", want: ""},
		{name: "punctuation only", in: "???", want: ""},
		{name: "whitespace only", in: "   ", want: ""},
		{name: "unicode stripped", in: "Sanofi™", want: "SANOFI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinKey(tt.in))
		})
	}
}

// Both sides of a join must agree after normalization even when the feed
// spellings differ; this is the pairing the joins actually rely on.
func TestJoinKeySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"ABBOTT LABS", "Abbott Laboratories, Inc."},
		{"gabapentin 600mg tablet", "GABAPENTIN"},
		{"Teva Pharmaceutical Industries", "TEVA USA"},
	}

	for _, pair := range pairs {
		assert.Equal(t, JoinKey(pair[0]), JoinKey(pair[1]),
			"%q and %q should normalize to the same key", pair[0], pair[1])
	}
}
