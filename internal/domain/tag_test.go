package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTagName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Rust", "rust"},
		{"  Machine   Learning  ", "machine learning"},
		{"GOLANG", "golang"},
		{"", ""},
		{"   ", ""},
		{"\tfront-end\n", "front-end"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTagName(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeTagNames(t *testing.T) {
	got := NormalizeTagNames([]string{"Rust", "rust", " RUST ", "", "go", "Go"})
	assert.Equal(t, []string{"rust", "go"}, got)

	assert.Empty(t, NormalizeTagNames([]string{"", "  "}))
}
