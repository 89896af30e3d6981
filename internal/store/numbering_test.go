package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextChangeOrderNumber(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{name: "no existing numbers", existing: nil, want: "CO-1"},
		{name: "empty list", existing: []string{}, want: "CO-1"},
		{name: "sequential", existing: []string{"CO-1", "CO-2", "CO-3"}, want: "CO-4"},
		{name: "gaps use the highest", existing: []string{"CO-1", "CO-5", "CO-10"}, want: "CO-11"},
		{name: "unordered", existing: []string{"CO-7", "CO-2"}, want: "CO-8"},
		{name: "non-conforming ignored", existing: []string{"CO-x", "PO-3", "", "CO-2-rev"}, want: "CO-1"},
		{name: "mixed", existing: []string{"draft", "CO-4", "CO-abc"}, want: "CO-5"},
		{name: "leading zeroes parse numerically", existing: []string{"CO-09"}, want: "CO-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextChangeOrderNumber(tt.existing))
		})
	}
}
