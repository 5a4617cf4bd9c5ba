package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name     string
		filePath string
		query    string
		reset    bool
		want     runMode
	}{
		{name: "no flags serves", want: modeServe},
		{name: "file", filePath: "doc.pdf", want: modeIngest},
		{name: "query", query: "what?", want: modeQuery},
		{name: "reset alone stops after clearing", reset: true, want: modeResetOnly},
		{name: "reset then ingest", filePath: "doc.pdf", reset: true, want: modeIngest},
		{name: "reset then query", query: "what?", reset: true, want: modeQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectMode(tt.filePath, tt.query, tt.reset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := selectMode("doc.pdf", "what?", false)
	assert.Error(t, err)
}
