package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldPrompt(t *testing.T) {
	tests := []struct {
		name       string
		skip       bool
		jsonOutput bool
		want       bool
	}{
		{"interactive", false, false, true},
		{"skip flag", true, false, false},
		{"json output", false, true, false},
		{"json output with skip", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, shouldPrompt(tt.skip, tt.jsonOutput))
		})
	}
}
