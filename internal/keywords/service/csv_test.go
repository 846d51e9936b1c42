package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKeywordCSV(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "header skipped", in: "Keyword,volume\nhiking boots,100\n trail shoes ,50\n", want: []string{"hiking boots", "trail shoes"}},
		{name: "bom header skipped", in: "\ufeffkeyword\nrain jacket\n", want: []string{"rain jacket"}},
		{name: "no header", in: "tent\nsleeping bag\n", want: []string{"tent", "sleeping bag"}},
		{name: "blank cells ignored", in: "keyword\n\n,\nstove\n", want: []string{"stove"}},
		{name: "quoted commas", in: "\"boots, waterproof\",1\n", want: []string{"boots, waterproof"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKeywordCSV(strings.NewReader(tt.in))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeywordCSVLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i <= maxKeywords; i++ {
		b.WriteString("kw\n")
	}
	_, err := parseKeywordCSV(strings.NewReader(b.String()))
	require.ErrorIs(t, err, errTooManyKeywords)
}
