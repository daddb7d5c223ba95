package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"0", 0},
		{"1024", 1024},
		{"1KB", 1024},
		{"2MB", 2 * 1024 * 1024},
		{"2 MiB", 2 * 1024 * 1024},
		{"20GB", 20 * 1024 * 1024 * 1024},
		{"1.5GB", 1536 * 1024 * 1024},
		{"1T", 1024 * 1024 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDataSize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDataSizeErrors(t *testing.T) {
	for _, input := range []string{"", "GB", "12XB", "abc"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDataSize(input)
			assert.Error(t, err)
		})
	}
}

func TestFormatDataSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{2 * 1024 * 1024, "2.0 MB"},
		{20 * 1024 * 1024 * 1024, "20.0 GB"},
		{-1, "invalid"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDataSize(tt.bytes))
	}
}
